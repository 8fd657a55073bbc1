package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/zara/internal/fallback"
)

// stubProvider returns a fixed response or error and counts calls.
type stubProvider struct {
	response string
	err      error
	calls    int
}

func (s *stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Available() bool { return true }

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"dash bullet", "- first\n- second", "first\nsecond"},
		{"star bullet", "* item", "item"},
		{"dot bullet", "• item", "item"},
		{"indented bullet", "   - item", "item"},
		{"mixed lines", "- bullet\nplain line\n* another", "bullet\nplain line\nanother"},
		{"plain text identity", "hello\nworld", "hello\nworld"},
		{"marker without space kept", "-nospace", "-nospace"},
		{"empty", "", ""},
		{"blank lines preserved", "- a\n\n- b", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanResponse(tt.input))
		})
	}
}

func TestClient_Generate_Success(t *testing.T) {
	provider := &stubProvider{response: "- a clean answer"}
	client := NewClient(provider, NewThrottle(time.Second), fallback.New(), nil)

	res := client.Generate(context.Background(), "tell me something")

	assert.Equal(t, "a clean answer", res.Text)
	assert.False(t, res.Degraded)
	assert.Equal(t, 1, provider.calls)
}

func TestClient_Generate_RateLimitedShortCircuit(t *testing.T) {
	provider := &stubProvider{response: "upstream answer"}
	responder := fallback.New()
	client := NewClient(provider, NewThrottle(time.Hour), responder, nil)

	first := client.Generate(context.Background(), "hello")
	require.False(t, first.Degraded)

	// Inside the window: exactly the fallback response, provider untouched.
	second := client.Generate(context.Background(), "hello")
	assert.True(t, second.Degraded)
	assert.Equal(t, responder.Respond("hello"), second.Text)
	assert.Equal(t, 1, provider.calls)
}

func TestClient_Generate_ProviderErrorDegrades(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"quota marker", errors.New("googleapi: Error 429: Quota exceeded")},
		{"rate limit marker", errors.New("rate limit reached for model")},
		{"generic failure", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{err: tt.err}
			responder := fallback.New()
			client := NewClient(provider, NewThrottle(time.Millisecond), responder, nil)

			res := client.Generate(context.Background(), "hello")

			assert.True(t, res.Degraded)
			assert.Equal(t, responder.Respond("hello"), res.Text)
		})
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		err   error
		quota bool
	}{
		{errors.New("Quota Exceeded for project"), true},
		{errors.New("HTTP 429 Too Many Requests"), true},
		{errors.New("Rate Limit hit"), true},
		{errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.quota, isQuotaError(tt.err), "err=%v", tt.err)
	}
}
