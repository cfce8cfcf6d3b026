// Package config loads the portfolio server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Resume source kinds.
const (
	SourceDir  = "dir"
	SourceHTTP = "http"
	SourceS3   = "s3"
)

// DirAssetsPrefix is the URL prefix PublicDir/assets is served under. Dir
// candidates must live there so the direct-open fallback link resolves.
const DirAssetsPrefix = "/assets/"

// Config holds the server configuration. Every field has a usable default, so a
// bare environment still boots the site; missing EmailJS keys only disable the
// contact form.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	GinMode   string `env:"GIN_MODE" envDefault:"release"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// PublicDir is served under /assets and backs the dir resume source.
	PublicDir   string `env:"PORTFOLIO_PUBLIC_DIR" envDefault:"./public"`
	DBPath      string `env:"PORTFOLIO_DB_PATH" envDefault:"portfolio.db"`
	ContentFile string `env:"PORTFOLIO_CONTENT_FILE"`

	Retention time.Duration `env:"VISITOR_RETENTION" envDefault:"8760h"`

	Admin   AdminConfig   `envPrefix:"ADMIN_"`
	EmailJS EmailJSConfig `envPrefix:"EMAILJS_"`
	Resume  ResumeConfig  `envPrefix:"RESUME_"`
}

// AdminConfig controls the admin dashboard. An empty password disables it.
type AdminConfig struct {
	Username string `env:"USERNAME" envDefault:"admin"`
	Password string `env:"PASSWORD"`
}

// Enabled reports whether the admin routes should be mounted.
func (a AdminConfig) Enabled() bool {
	return a.Password != ""
}

// EmailJSConfig carries the email-delivery credentials.
type EmailJSConfig struct {
	ServiceID  string `env:"SERVICE_ID"`
	TemplateID string `env:"TEMPLATE_ID"`
	PublicKey  string `env:"PUBLIC_KEY"`
	// PrivateKey is sent as accessToken when the EmailJS account enforces it.
	PrivateKey string        `env:"PRIVATE_KEY"`
	Endpoint   string        `env:"ENDPOINT" envDefault:"https://api.emailjs.com/api/v1.0/email/send"`
	Origin     string        `env:"ORIGIN"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// ResumeConfig describes where the resume PDF may live.
type ResumeConfig struct {
	Candidates []string      `env:"CANDIDATES" envSeparator:"," envDefault:"/assets/Nuni_V_Vijay_Sai_Resume.pdf,/assets/NUNI%20V%20VIJAY%20SAI%20AI%20resume.pdf"`
	Filename   string        `env:"FILENAME" envDefault:"Nuni_V_Vijay_Sai_Resume.pdf"`
	Source     string        `env:"SOURCE" envDefault:"dir"`
	Origin     string        `env:"ORIGIN"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
	S3         S3Config      `envPrefix:"S3_"`
}

// S3Config is used when Resume.Source is "s3".
type S3Config struct {
	Bucket         string `env:"BUCKET"`
	Region         string `env:"REGION" envDefault:"us-east-1"`
	Prefix         string `env:"PREFIX"`
	Endpoint       string `env:"ENDPOINT"`
	BaseURL        string `env:"BASE_URL"`
	AccessKeyID    string `env:"ACCESS_KEY_ID"`
	SecretKey      string `env:"SECRET_ACCESS_KEY"`
	ForcePathStyle bool   `env:"FORCE_PATH_STYLE"`
}

// Load parses the process environment. Extra dotenv files, when given, are
// loaded first without overriding variables that are already set.
func Load(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Resume.Source = strings.ToLower(strings.TrimSpace(c.Resume.Source))
	switch c.Resume.Source {
	case SourceDir:
	case SourceHTTP:
		if c.Resume.Origin == "" {
			return fmt.Errorf("RESUME_ORIGIN is required when RESUME_SOURCE=%s", SourceHTTP)
		}
	case SourceS3:
		if c.Resume.S3.Bucket == "" {
			return fmt.Errorf("RESUME_S3_BUCKET is required when RESUME_SOURCE=%s", SourceS3)
		}
	default:
		return fmt.Errorf("RESUME_SOURCE has invalid value %q", c.Resume.Source)
	}

	candidates := c.Resume.Candidates[:0]
	for _, p := range c.Resume.Candidates {
		if p = strings.TrimSpace(p); p != "" {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return fmt.Errorf("RESUME_CANDIDATES must list at least one path")
	}
	c.Resume.Candidates = candidates

	if c.Resume.Source == SourceDir {
		for _, p := range candidates {
			if !strings.HasPrefix(p, DirAssetsPrefix) {
				return fmt.Errorf("RESUME_CANDIDATES entry %q must be under %s when RESUME_SOURCE=%s", p, DirAssetsPrefix, SourceDir)
			}
		}
	}

	if c.Resume.Filename == "" {
		return fmt.Errorf("RESUME_FILENAME must not be empty")
	}
	return nil
}

// Addr is the listen address derived from Port.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
