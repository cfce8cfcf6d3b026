// Package contact forwards contact-form submissions to a transactional email
// provider and tracks the form's per-interaction state.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// User-visible status strings.
const (
	StatusMissingConfig = "Set EmailJS keys to enable form."
	StatusSent          = "Message sent!"
	StatusFailed        = "Failed. Try again later."
)

var (
	ErrMissingConfig    = errors.New("contact: email credentials not configured")
	ErrSubmissionFailed = errors.New("contact: submission failed")
	ErrInFlight         = errors.New("contact: submission already in flight")
)

// Credentials identify the EmailJS service, template and account.
type Credentials struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
}

// Missing reports whether any credential is empty.
func (c Credentials) Missing() bool {
	return c.ServiceID == "" || c.TemplateID == "" || c.PublicKey == ""
}

// Fields is what the visitor typed. It is never stored.
type Fields struct {
	Name    string
	ReplyTo string
	Message string
}

// Params returns the template parameters under the form's field names.
func (f Fields) Params() map[string]string {
	return map[string]string{
		"from_name": f.Name,
		"reply_to":  f.ReplyTo,
		"message":   f.Message,
	}
}

// Phase is where a single submission is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Form is the state of the contact form for one interaction.
type Form struct {
	Fields  Fields
	Status  string
	Loading bool
	Phase   Phase
}

// Sender delivers one submission.
type Sender interface {
	Send(ctx context.Context, creds Credentials, fields Fields) error
}

// Submitter validates configuration and hands the form to a Sender.
type Submitter struct {
	creds  Credentials
	sender Sender
	logger *slog.Logger
}

func NewSubmitter(creds Credentials, sender Sender, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{creds: creds, sender: sender, logger: logger}
}

// Enabled reports whether submissions can be delivered at all.
func (s *Submitter) Enabled() bool {
	return !s.creds.Missing()
}

// Submit sends form once. On return form.Loading is always false and
// form.Status describes the outcome. Fields are cleared only on success.
func (s *Submitter) Submit(ctx context.Context, form *Form) error {
	if form.Loading {
		return ErrInFlight
	}
	if s.creds.Missing() {
		form.Status = StatusMissingConfig
		form.Phase = PhaseIdle
		return ErrMissingConfig
	}

	form.Loading = true
	form.Phase = PhaseSending
	defer func() { form.Loading = false }()

	if err := s.sender.Send(ctx, s.creds, form.Fields); err != nil {
		s.logger.WarnContext(ctx, "contact submission failed", "error", err)
		form.Phase = PhaseFailed
		form.Status = StatusFailed
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	form.Phase = PhaseSuccess
	form.Status = StatusSent
	form.Fields = Fields{}
	return nil
}
