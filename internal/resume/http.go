package resume

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPSource probes a remote origin (a CDN or static host) for the asset.
// Candidates are appended to the origin as-is, so they stay URL-encoded.
type HTTPSource struct {
	origin string
	client *http.Client
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// NewHTTPSource builds a source for origin, e.g. "https://cdn.example.com".
func NewHTTPSource(origin string, timeout time.Duration, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		origin: strings.TrimRight(origin, "/"),
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exists issues a HEAD request and retries as GET when the origin rejects HEAD.
func (s *HTTPSource) Exists(ctx context.Context, p string) error {
	code, err := s.probe(ctx, http.MethodHead, p)
	if err != nil {
		return err
	}
	if code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented {
		if code, err = s.probe(ctx, http.MethodGet, p); err != nil {
			return err
		}
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrMissing, p, code)
	}
	return nil
}

// probe returns the status code only; the body is closed unread.
func (s *HTTPSource) probe(ctx context.Context, method, p string) (int, error) {
	resp, err := s.do(ctx, method, p)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (s *HTTPSource) Fetch(ctx context.Context, p string) (*Blob, error) {
	resp, err := s.do(ctx, http.MethodGet, p)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, p); err != nil {
		return nil, err
	}
	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return &Blob{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

func (s *HTTPSource) URL(p string) string {
	return s.origin + "/" + strings.TrimLeft(p, "/")
}

func (s *HTTPSource) do(ctx context.Context, method, p string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.URL(p), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, p, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response, p string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("%w: %s returned %d", ErrMissing, p, resp.StatusCode)
}
