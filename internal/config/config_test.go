package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allConfigKeys = []string{
	"PORT", "GIN_MODE", "LOG_LEVEL", "LOG_FORMAT",
	"PORTFOLIO_PUBLIC_DIR", "PORTFOLIO_DB_PATH", "PORTFOLIO_CONTENT_FILE", "VISITOR_RETENTION",
	"ADMIN_USERNAME", "ADMIN_PASSWORD",
	"EMAILJS_SERVICE_ID", "EMAILJS_TEMPLATE_ID", "EMAILJS_PUBLIC_KEY", "EMAILJS_PRIVATE_KEY",
	"EMAILJS_ENDPOINT", "EMAILJS_ORIGIN", "EMAILJS_TIMEOUT",
	"RESUME_CANDIDATES", "RESUME_FILENAME", "RESUME_SOURCE", "RESUME_ORIGIN", "RESUME_TIMEOUT",
	"RESUME_S3_BUCKET", "RESUME_S3_REGION", "RESUME_S3_PREFIX", "RESUME_S3_ENDPOINT",
	"RESUME_S3_BASE_URL", "RESUME_S3_ACCESS_KEY_ID", "RESUME_S3_SECRET_ACCESS_KEY", "RESUME_S3_FORCE_PATH_STYLE",
}

// isolateConfigEnv unsets every variable Load reads so host values don't leak in.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "./public", cfg.PublicDir)
	assert.Equal(t, 8760*time.Hour, cfg.Retention)
	assert.Equal(t, SourceDir, cfg.Resume.Source)
	assert.Equal(t, []string{
		"/assets/Nuni_V_Vijay_Sai_Resume.pdf",
		"/assets/NUNI%20V%20VIJAY%20SAI%20AI%20resume.pdf",
	}, cfg.Resume.Candidates)
	assert.Equal(t, "Nuni_V_Vijay_Sai_Resume.pdf", cfg.Resume.Filename)
	assert.Empty(t, cfg.EmailJS.ServiceID)
	assert.False(t, cfg.Admin.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("EMAILJS_SERVICE_ID", "svc")
	t.Setenv("EMAILJS_TEMPLATE_ID", "tpl")
	t.Setenv("EMAILJS_PUBLIC_KEY", "key")
	t.Setenv("RESUME_CANDIDATES", " /a.pdf , ,/b.pdf")
	t.Setenv("RESUME_SOURCE", "S3")
	t.Setenv("RESUME_S3_BUCKET", "cv")
	t.Setenv("ADMIN_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, "svc", cfg.EmailJS.ServiceID)
	assert.Equal(t, "tpl", cfg.EmailJS.TemplateID)
	assert.Equal(t, "key", cfg.EmailJS.PublicKey)
	assert.Equal(t, []string{"/a.pdf", "/b.pdf"}, cfg.Resume.Candidates)
	assert.Equal(t, SourceS3, cfg.Resume.Source)
	assert.Equal(t, "cv", cfg.Resume.S3.Bucket)
	assert.True(t, cfg.Admin.Enabled())
}

func TestLoad_InvalidSource(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown source", env: map[string]string{"RESUME_SOURCE": "ftp"}},
		{name: "http without origin", env: map[string]string{"RESUME_SOURCE": "http"}},
		{name: "s3 without bucket", env: map[string]string{"RESUME_SOURCE": "s3"}},
		{name: "no candidates", env: map[string]string{"RESUME_CANDIDATES": " , "}},
		{name: "bad duration", env: map[string]string{"EMAILJS_TIMEOUT": "soon"}},
		{name: "dir candidate outside assets", env: map[string]string{"RESUME_CANDIDATES": "/assets/a.pdf,/resume.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_DirCandidatesUnderAssets(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("RESUME_CANDIDATES", "/assets/a.pdf,/assets/cv/b%20c.pdf")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/assets/a.pdf", "/assets/cv/b%20c.pdf"}, cfg.Resume.Candidates)

	t.Setenv("RESUME_CANDIDATES", "/resume.pdf")
	t.Setenv("RESUME_SOURCE", "http")
	t.Setenv("RESUME_ORIGIN", "https://cdn.example.com")
	_, err = Load()
	assert.NoError(t, err, "remote sources may use any path")
}

func TestLoad_EnvFile(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EMAILJS_SERVICE_ID=from_file\nPORT=7000\n"), 0o600))
	t.Setenv("PORT", "7100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from_file", cfg.EmailJS.ServiceID)
	assert.Equal(t, ":7100", cfg.Addr(), "existing variables win over the file")
}
