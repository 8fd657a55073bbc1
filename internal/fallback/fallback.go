// Package fallback implements the offline responder used when the upstream
// generation provider is throttled or unreachable. It maps an utterance to a
// canned Tamil reply via an ordered first-match category table.
package fallback

import (
	"fmt"
	"strings"
	"time"
)

// GenericReply is returned when no category matches. It doubles as the
// degraded-mode marker downstream consumers can show to the user.
const GenericReply = "மன்னிக்கவும், நான் தற்போது விரிவான பதில்கள் கொடுக்க முடியாது. நீங்கள் பாடல் இசைக்க, நேரம் தெரிந்து கொள்ள, அல்லது எளிய கேள்விகள் கேட்கலாம்."

// matchMode controls how a category's keywords are tested.
type matchMode int

const (
	// matchContains matches when the utterance contains any keyword.
	matchContains matchMode = iota
	// matchExact matches when the whole utterance equals a keyword.
	matchExact
)

// category pairs a keyword set with a reply template. Categories are
// evaluated in declaration order and the first match wins; the order is a
// designed precedence, not incidental.
type category struct {
	name     string
	mode     matchMode
	keywords []string
	reply    func(now time.Time) string
}

func static(s string) func(time.Time) string {
	return func(time.Time) string { return s }
}

// Responder produces deterministic canned replies. The zero value is not
// usable; construct with New.
type Responder struct {
	categories []category
	now        func() time.Time
}

// Option configures a Responder.
type Option func(*Responder)

// WithClock overrides the wall clock used by the time and date categories.
func WithClock(now func() time.Time) Option {
	return func(r *Responder) {
		r.now = now
	}
}

// New creates a Responder with the default category table.
func New(opts ...Option) *Responder {
	r := &Responder{
		categories: defaultCategories(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond maps an utterance to a canned reply. It is total: every input,
// including the empty string, yields a non-empty reply.
func (r *Responder) Respond(utterance string) string {
	lower := strings.ToLower(utterance)

	for _, cat := range r.categories {
		if cat.matches(lower) {
			return cat.reply(r.now())
		}
	}
	return GenericReply
}

func (c category) matches(lower string) bool {
	for _, kw := range c.keywords {
		switch c.mode {
		case matchExact:
			if lower == kw {
				return true
			}
		default:
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func defaultCategories() []category {
	return []category{
		{
			name:     "greeting",
			keywords: []string{"hello", "hi", "வணக்கம்", "ஹலோ", "hey"},
			reply:    static("வணக்கம்! நான் ஜாரா. உங்களுக்கு எப்படி உதவ முடியும்?"),
		},
		{
			name:     "well-being",
			keywords: []string{"how are you", "எப்படி இருக்கிறாய்", "how do you do", "நீ எப்படி இருக்கிறாய்"},
			reply:    static("நான் நன்றாக இருக்கிறேன்! நீங்கள் எப்படி இருக்கிறீர்கள்?"),
		},
		{
			name:     "identity",
			keywords: []string{"what is your name", "உன் பெயர் என்ன", "who are you", "நீ யார்"},
			reply:    static("என் பெயர் ஜாரா. நான் உங்கள் AI உதவியாளர்."),
		},
		{
			name:     "gratitude",
			keywords: []string{"thank you", "thanks", "நன்றி", "மிக்க நன்றி"},
			reply:    static("நன்றி! உங்களுக்கு மேலும் உதவ வேண்டுமா?"),
		},
		{
			name:     "farewell",
			keywords: []string{"bye", "goodbye", "பிரியாவிடை", "சந்திப்போம்", "see you"},
			reply:    static("பிரியாவிடை! மீண்டும் சந்திப்போம்."),
		},
		{
			name:     "music",
			keywords: []string{"play", "music", "song", "பாடல்", "இசை", "spotify"},
			reply:    static("நீங்கள் எந்த பாடலை கேட்க விரும்புகிறீர்கள்? பாடல் பெயரை சொல்லுங்கள்."),
		},
		{
			name:     "time",
			keywords: []string{"time", "clock", "நேரம்", "என்ன நேரம்"},
			reply: func(now time.Time) string {
				return fmt.Sprintf("தற்போதைய நேரம்: %s", now.Format("03:04 PM"))
			},
		},
		{
			name:     "date",
			keywords: []string{"date", "today", "day", "தேதி", "இன்று"},
			reply: func(now time.Time) string {
				return fmt.Sprintf("இன்றைய தேதி: %s", now.Format("January 02, 2006"))
			},
		},
		{
			name:     "weather",
			keywords: []string{"weather", "வானிலை", "climate", "temperature"},
			reply:    static("மன்னிக்கவும், வானிலை தகவல் தற்போது கிடைக்கவில்லை. பிறகு முயற்சிக்கவும்."),
		},
		{
			name:     "help",
			keywords: []string{"help", "what can you do", "capabilities", "உதவி", "என்ன செய்ய முடியும்"},
			reply:    static("நான் உங்களுக்கு பாடல்கள் இசைக்க, நேரம் சொல்ல, உரையாடல் நடத்த முடியும். எது வேண்டும்?"),
		},
		{
			name:     "open-ended",
			keywords: []string{"tell me", "சொல்லு", "what about", "என்ன நினைக்கிறாய்"},
			reply:    static("நீங்கள் என்ன தெரிந்து கொள்ள விரும்புகிறீர்கள்? தயவுசெய்து மேலும் குறிப்பிட்டு சொல்லுங்கள்."),
		},
		{
			name:     "affirmative",
			mode:     matchExact,
			keywords: []string{"yes", "yeah", "ஆம்", "சரி", "ok", "okay"},
			reply:    static("சரி! எது வேண்டும் சொல்லுங்கள்."),
		},
		{
			name:     "negative",
			mode:     matchExact,
			keywords: []string{"no", "nope", "இல்லை", "வேண்டாம்"},
			reply:    static("சரி, வேறு ஏதாவது வேண்டுமா?"),
		},
	}
}
