package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the EmailJS REST send endpoint.
const DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJS sends submissions through the EmailJS REST API. Server-side calls
// need "Allow EmailJS API for non-browser applications" enabled on the account.
type EmailJS struct {
	endpoint    string
	client      *http.Client
	accessToken string
	origin      string
}

// Option configures an EmailJS sender.
type Option func(*EmailJS)

func WithEndpoint(u string) Option {
	return func(e *EmailJS) {
		if u != "" {
			e.endpoint = u
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *EmailJS) {
		if c != nil {
			e.client = c
		}
	}
}

// WithAccessToken sets the account private key for strict-mode accounts.
func WithAccessToken(token string) Option {
	return func(e *EmailJS) { e.accessToken = token }
}

// WithOrigin sets the Origin header, for accounts restricted to a domain.
func WithOrigin(origin string) Option {
	return func(e *EmailJS) { e.origin = origin }
}

func NewEmailJS(opts ...Option) *EmailJS {
	e := &EmailJS{
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// APIError is a non-2xx answer from EmailJS.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("emailjs: status %d: %s", e.StatusCode, e.Body)
}

// Send posts one email. The response body is only read for error reporting.
func (e *EmailJS) Send(ctx context.Context, creds Credentials, fields Fields) error {
	payload, err := json.Marshal(sendRequest{
		ServiceID:      creds.ServiceID,
		TemplateID:     creds.TemplateID,
		UserID:         creds.PublicKey,
		AccessToken:    e.accessToken,
		TemplateParams: fields.Params(),
	})
	if err != nil {
		return fmt.Errorf("emailjs: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("emailjs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.origin != "" {
		req.Header.Set("Origin", e.origin)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
