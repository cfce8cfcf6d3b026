package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvvs/portfolio/internal/logging"
)

type stubSender struct {
	calls    int
	err      error
	sawForm  *Form
	loading  bool
	received Fields
}

func (s *stubSender) Send(_ context.Context, _ Credentials, f Fields) error {
	s.calls++
	s.received = f
	if s.sawForm != nil {
		s.loading = s.sawForm.Loading
	}
	return s.err
}

var validCreds = Credentials{ServiceID: "svc", TemplateID: "tpl", PublicKey: "key"}

func filledForm() *Form {
	return &Form{Fields: Fields{Name: "Ada", ReplyTo: "ada@example.com", Message: "Hi"}}
}

func TestSubmit_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{name: "no service", creds: Credentials{TemplateID: "tpl", PublicKey: "key"}},
		{name: "no template", creds: Credentials{ServiceID: "svc", PublicKey: "key"}},
		{name: "no key", creds: Credentials{ServiceID: "svc", TemplateID: "tpl"}},
		{name: "none", creds: Credentials{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &stubSender{}
			form := filledForm()

			err := NewSubmitter(tt.creds, sender, logging.Discard()).Submit(context.Background(), form)

			assert.ErrorIs(t, err, ErrMissingConfig)
			assert.Equal(t, "Set EmailJS keys to enable form.", form.Status)
			assert.Zero(t, sender.calls)
			assert.False(t, form.Loading)
			assert.Equal(t, "Ada", form.Fields.Name, "fields are kept")
		})
	}
}

func TestSubmit_Rejected(t *testing.T) {
	sender := &stubSender{err: &APIError{StatusCode: 400, Body: "The Public Key is invalid"}}
	form := filledForm()
	sender.sawForm = form

	err := NewSubmitter(validCreds, sender, logging.Discard()).Submit(context.Background(), form)

	assert.ErrorIs(t, err, ErrSubmissionFailed)
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed. Try again later.", form.Status)
	assert.Equal(t, PhaseFailed, form.Phase)
	assert.True(t, sender.loading, "loading is set while the call is in flight")
	assert.False(t, form.Loading, "loading is cleared afterwards")
	assert.Equal(t, 1, sender.calls, "no automatic retry")
	assert.Equal(t, "Hi", form.Fields.Message)
}

func TestSubmit_Accepted(t *testing.T) {
	sender := &stubSender{}
	form := filledForm()

	err := NewSubmitter(validCreds, sender, nil).Submit(context.Background(), form)

	require.NoError(t, err)
	assert.Equal(t, "Message sent!", form.Status)
	assert.Equal(t, PhaseSuccess, form.Phase)
	assert.Equal(t, Fields{}, form.Fields)
	assert.False(t, form.Loading)
	assert.Equal(t, "ada@example.com", sender.received.ReplyTo)
}

func TestSubmit_InFlight(t *testing.T) {
	sender := &stubSender{}
	form := filledForm()
	form.Loading = true

	err := NewSubmitter(validCreds, sender, nil).Submit(context.Background(), form)
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Zero(t, sender.calls)
}

func TestSubmitter_Enabled(t *testing.T) {
	assert.True(t, NewSubmitter(validCreds, nil, nil).Enabled())
	assert.False(t, NewSubmitter(Credentials{ServiceID: "svc"}, nil, nil).Enabled())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "sending", PhaseSending.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}

func TestEmailJS_Send(t *testing.T) {
	var got sendRequest
	var origin string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		origin = r.Header.Get("Origin")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("OK"))
	}))
	t.Cleanup(ts.Close)

	sender := NewEmailJS(WithEndpoint(ts.URL), WithAccessToken("priv"), WithOrigin("https://nvvs.dev"))
	err := sender.Send(context.Background(), validCreds, Fields{Name: "Ada", ReplyTo: "ada@example.com", Message: "Hi"})
	require.NoError(t, err)

	assert.Equal(t, "svc", got.ServiceID)
	assert.Equal(t, "tpl", got.TemplateID)
	assert.Equal(t, "key", got.UserID)
	assert.Equal(t, "priv", got.AccessToken)
	assert.Equal(t, map[string]string{
		"from_name": "Ada",
		"reply_to":  "ada@example.com",
		"message":   "Hi",
	}, got.TemplateParams)
	assert.Equal(t, "https://nvvs.dev", origin)
}

func TestEmailJS_Rejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "API calls are disabled for non-browser applications", http.StatusForbidden)
	}))
	t.Cleanup(ts.Close)

	err := NewEmailJS(WithEndpoint(ts.URL)).Send(context.Background(), validCreds, Fields{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "non-browser")
}

func TestSubmit_MissingCredentialsMakesNoNetworkCall(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(ts.Close)

	form := filledForm()
	sub := NewSubmitter(Credentials{TemplateID: "tpl", PublicKey: "key"}, NewEmailJS(WithEndpoint(ts.URL)), nil)

	err := sub.Submit(context.Background(), form)
	assert.True(t, errors.Is(err, ErrMissingConfig))
	assert.Equal(t, StatusMissingConfig, form.Status)
	assert.Zero(t, hits.Load())
}

func TestSubmit_NetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	form := filledForm()
	err := NewSubmitter(validCreds, NewEmailJS(WithEndpoint(ts.URL)), logging.Discard()).Submit(context.Background(), form)

	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, StatusFailed, form.Status)
	assert.False(t, form.Loading)
}
