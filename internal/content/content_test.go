package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Nuni V Vijay Sai", p.Name)
	require.Len(t, p.Nav, 8)
	for i, link := range p.Nav {
		assert.Equal(t, "#"+Anchors[i], link.Href())
	}
	assert.Equal(t, "/assets/profile.jpg", p.Hero.Photo)
	assert.Equal(t, 3000, p.Hero.RotateMS)
	assert.Len(t, p.Hero.Words, 2)
	assert.Len(t, p.Skills, 6)
	assert.Contains(t, p.Skills[4].Items, "AWS (S3, Lambda)")
	assert.Len(t, p.Projects, 2)
	assert.Len(t, p.Certifications, 4)
	assert.Equal(t, "tel:+916362348934", string(p.Contact.PhoneHref()))

	assert.Contains(t, string(p.About.HTML), "<strong>Lovely Professional University</strong>")
	assert.Contains(t, string(p.Projects[1].HTML), "<strong>12–15%</strong>")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "bad yaml", doc: "name: [unterminated"},
		{name: "no name", doc: "nav: []"},
		{name: "short nav", doc: "name: X\nnav:\n  - {anchor: home, label: Home}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidProfile)
		})
	}
}

func TestParse_WrongAnchorOrder(t *testing.T) {
	doc := strings.Replace(string(defaultProfile), "anchor: home", "anchor: start", 1)
	_, err := Parse([]byte(doc))
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	doc := strings.Replace(string(defaultProfile), "name: Nuni V Vijay Sai", "name: Someone Else", 1)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Someone Else", p.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRenderMarkdown_Sanitizes(t *testing.T) {
	out := string(RenderMarkdown("hello <script>alert(1)</script> **world**"))
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<strong>world</strong>")
	assert.Empty(t, RenderMarkdown("  "))
}
