package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/normanking/zara/internal/fallback"
	"github.com/normanking/zara/internal/logging"
)

// leadingBullet matches a list marker ("- ", "* ", "• ") with optional
// leading whitespace at the start of a line.
var leadingBullet = regexp.MustCompile(`^\s*[-*•]\s`)

// CleanResponse strips a leading bullet marker from the start of every line.
// Line count, order and all other content are preserved; non-bulleted text
// round-trips unchanged.
func CleanResponse(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = leadingBullet.ReplaceAllString(line, "")
	}
	return strings.Join(lines, "\n")
}

// quotaMarkers identify upstream throttling errors. They only affect what is
// logged; the degradation path is the same for every failure.
var quotaMarkers = []string{"quota exceeded", "rate limit", "429"}

func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Result is the outcome of one generation call. Degraded is set when the
// text came from the offline responder rather than the upstream provider.
type Result struct {
	Text     string
	Degraded bool
}

// Client is the rate-limited generation client. Every failure path resolves
// to a fallback response; Generate never returns an error.
type Client struct {
	provider  Provider
	throttle  *Throttle
	responder *fallback.Responder
	log       *logging.Logger
}

// NewClient creates a generation client. The throttle is shared state: pass
// the same instance to every client that must contend for one window.
func NewClient(provider Provider, throttle *Throttle, responder *fallback.Responder, log *logging.Logger) *Client {
	if throttle == nil {
		throttle = NewThrottle(DefaultMinRequestInterval)
	}
	if responder == nil {
		responder = fallback.New()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		provider:  provider,
		throttle:  throttle,
		responder: responder,
		log:       log,
	}
}

// Generate produces a response for the prompt. Calls arriving inside the
// throttle window short-circuit to the fallback responder without touching
// the upstream provider or advancing the window.
func (c *Client) Generate(ctx context.Context, prompt string) Result {
	if !c.throttle.Allow() {
		c.log.Debug("llm", "rate limited, using fallback response", nil)
		return Result{Text: c.responder.Respond(prompt), Degraded: true}
	}

	raw, err := c.provider.Generate(ctx, prompt)
	if err != nil {
		if isQuotaError(err) {
			c.log.Warn("llm", "provider quota exceeded, using fallback response", map[string]interface{}{
				"provider": c.provider.Name(),
			})
		} else {
			c.log.Error("llm", "provider request failed", err, map[string]interface{}{
				"provider": c.provider.Name(),
			})
		}
		return Result{Text: c.responder.Respond(prompt), Degraded: true}
	}

	return Result{Text: CleanResponse(raw)}
}
