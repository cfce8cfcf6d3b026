// Package content loads the portfolio copy and prepares it for templates.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed profile.yaml
var defaultProfile []byte

// Anchors are the in-page section ids, in page order.
var Anchors = []string{
	"home", "about", "skills", "projects",
	"experience", "education", "certifications", "contact",
}

var ErrInvalidProfile = errors.New("content: invalid profile")

type Profile struct {
	Name           string       `yaml:"name"`
	Initials       string       `yaml:"initials"`
	Links          Links        `yaml:"links"`
	Nav            []NavLink    `yaml:"nav"`
	Hero           Hero         `yaml:"hero"`
	About          About        `yaml:"about"`
	Skills         []SkillGroup `yaml:"skills"`
	Projects       []Project    `yaml:"projects"`
	Experience     []Job        `yaml:"experience"`
	Education      []School     `yaml:"education"`
	Certifications []string     `yaml:"certifications"`
	Contact        ContactInfo  `yaml:"contact"`
}

type Links struct {
	GitHub   string `yaml:"github"`
	LinkedIn string `yaml:"linkedin"`
}

type NavLink struct {
	Anchor string `yaml:"anchor"`
	Label  string `yaml:"label"`
}

// Href is the in-page link to the anchor.
func (n NavLink) Href() string { return "#" + n.Anchor }

type Hero struct {
	Headline   string   `yaml:"headline"`
	Tagline    string   `yaml:"tagline"`
	Photo      string   `yaml:"photo"`
	Words      []string `yaml:"words"`
	RotateMS   int      `yaml:"rotate_ms"`
	Highlights []string `yaml:"highlights"`
}

type About struct {
	Body       string        `yaml:"body"`
	QuickLinks []NavLink     `yaml:"quick_links"`
	HTML       template.HTML `yaml:"-"`
}

type SkillGroup struct {
	Title string   `yaml:"title"`
	Items []string `yaml:"items"`
}

type Project struct {
	Title       string        `yaml:"title"`
	Emoji       string        `yaml:"emoji"`
	Link        string        `yaml:"link"`
	Description string        `yaml:"description"`
	HTML        template.HTML `yaml:"-"`
}

type Job struct {
	Role    string   `yaml:"role"`
	Company string   `yaml:"company"`
	Period  string   `yaml:"period"`
	Bullets []string `yaml:"bullets"`
}

type School struct {
	Degree      string `yaml:"degree"`
	Institution string `yaml:"institution"`
	Detail      string `yaml:"detail"`
}

type ContactInfo struct {
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Location string `yaml:"location"`
}

// PhoneHref is the tel: link with spaces stripped.
func (c ContactInfo) PhoneHref() template.URL {
	return template.URL("tel:" + strings.ReplaceAll(c.Phone, " ", ""))
}

// Default returns the embedded profile.
func Default() (*Profile, error) {
	return Parse(defaultProfile)
}

// Load reads a profile from path, or the embedded one when path is empty.
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes, validates and renders a YAML profile.
func Parse(data []byte) (*Profile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidProfile)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	p.About.HTML = RenderMarkdown(p.About.Body)
	for i := range p.Projects {
		p.Projects[i].HTML = RenderMarkdown(p.Projects[i].Description)
	}
	if p.Hero.RotateMS <= 0 {
		p.Hero.RotateMS = 3000
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if len(p.Nav) != len(Anchors) {
		return fmt.Errorf("%w: nav must list %d anchors, got %d", ErrInvalidProfile, len(Anchors), len(p.Nav))
	}
	for i, link := range p.Nav {
		if link.Anchor != Anchors[i] {
			return fmt.Errorf("%w: nav[%d] is %q, want %q", ErrInvalidProfile, i, link.Anchor, Anchors[i])
		}
	}
	for _, link := range p.About.QuickLinks {
		if !isAnchor(link.Anchor) {
			return fmt.Errorf("%w: quick link to unknown anchor %q", ErrInvalidProfile, link.Anchor)
		}
	}
	return nil
}

func isAnchor(s string) bool {
	for _, a := range Anchors {
		if a == s {
			return true
		}
	}
	return false
}

var (
	mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))
	sanitizer  = bluemonday.UGCPolicy()
)

// RenderMarkdown converts markdown to sanitized HTML.
func RenderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return template.HTML(sanitizer.Sanitize(template.HTMLEscapeString(src)))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}
