// Package orchestrator drives one voice command end-to-end: classify, act,
// respond, reset. It owns the shared orb presence state and serializes every
// transition through a single mutex, broadcasting each new state on the bus
// immediately after the mutation.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/normanking/zara/internal/bus"
	"github.com/normanking/zara/internal/convlog"
	"github.com/normanking/zara/internal/fallback"
	"github.com/normanking/zara/internal/llm"
	"github.com/normanking/zara/internal/logging"
	"github.com/normanking/zara/internal/music"
	"github.com/normanking/zara/internal/router"
	"github.com/normanking/zara/internal/speech"
)

// DefaultWelcomeMessage greets new subscribers and opens the startup turn.
const DefaultWelcomeMessage = "வணக்கம்! நான் ஜாரா. இன்று நான் உங்களுக்கு எப்படி உதவ முடியும்?"

// AwaitSongPrompt asks the user for a song title; the next command is
// expected to be the song name.
const AwaitSongPrompt = "எந்த பாடலை கேட்க விரும்புகிறீர்கள்? பாடல் பெயரை சொல்லுங்கள்."

// Config wires the orchestrator's collaborators. Nil collaborators get
// no-op defaults so tests can supply only what they observe.
type Config struct {
	Bus            *bus.Bus
	Router         *router.Router
	Generator      *llm.Client
	Searcher       music.Searcher
	Speaker        speech.Speaker
	Conversation   convlog.Sink
	Log            *logging.Logger
	WelcomeMessage string
}

// Orchestrator owns the presence state and processes commands. HandleCommand
// is invoked concurrently, one goroutine per inbound command; all executions
// contend for the same state mutex and the same generation throttle.
type Orchestrator struct {
	cfg       Config
	responder *fallback.Responder

	// mu guards state. Broadcasts are published while holding it, so every
	// subscriber observes transitions in mutation order. Overlapping
	// commands interleave at transition granularity; the system assumes at
	// most one active human conversation and does not enforce per-command
	// isolation.
	mu    sync.Mutex
	state State
}

// New creates an Orchestrator in the ready state.
func New(cfg Config) *Orchestrator {
	if cfg.Bus == nil {
		cfg.Bus = bus.New()
	}
	if cfg.Router == nil {
		cfg.Router = router.New(nil)
	}
	if cfg.Searcher == nil {
		cfg.Searcher = music.Nop{}
	}
	if cfg.Speaker == nil {
		cfg.Speaker = speech.Nop{}
	}
	if cfg.Conversation == nil {
		cfg.Conversation = convlog.Nop{}
	}
	if cfg.Log == nil {
		cfg.Log = logging.Nop()
	}
	if cfg.WelcomeMessage == "" {
		cfg.WelcomeMessage = DefaultWelcomeMessage
	}

	return &Orchestrator{
		cfg:       cfg,
		responder: fallback.New(),
		state:     StateReady,
	}
}

// CurrentState returns the presence state at this instant.
func (o *Orchestrator) CurrentState() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// WelcomeMessage returns the configured greeting text.
func (o *Orchestrator) WelcomeMessage() string {
	return o.cfg.WelcomeMessage
}

// setState mutates the shared state and broadcasts it. Publishing under the
// lock keeps the broadcast sequence identical to the mutation sequence.
func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.cfg.Bus.Publish(bus.NewStateEvent(s.String()))
	o.mu.Unlock()

	o.cfg.Log.Debug("orchestrator", "orb state changed", map[string]interface{}{"state": s.String()})
}

// ForceState applies a state pushed by a front-end (browser_state event).
// It bypasses the turn logic and is applied as-is.
func (o *Orchestrator) ForceState(s State) error {
	if !s.IsValid() {
		return fmt.Errorf("unknown presence state %q", s)
	}
	o.setState(s)
	return nil
}

// HandleCommand processes one command end-to-end. It never returns an error:
// every failure degrades to a spoken fallback or is logged and swallowed.
func (o *Orchestrator) HandleCommand(ctx context.Context, cmd Command) {
	if strings.TrimSpace(cmd.Text) == "" {
		return
	}

	o.cfg.Log.Info("orchestrator", "command received", map[string]interface{}{
		"id":      cmd.ID,
		"command": cmd.Text,
		"source":  cmd.Source,
	})
	o.cfg.Conversation.Record("User", cmd.Text)

	o.setState(StateProcessing)

	action := o.cfg.Router.Route(cmd.Text)
	switch action.Kind {
	case router.KindAwaitSongName:
		o.setState(StateSpeaking)
		o.emitSpeech(AwaitSongPrompt, false)
		o.cfg.Conversation.Record("Assistant", AwaitSongPrompt)
		o.setState(StateReady)

	case router.KindSearchSong:
		o.setState(StateSpeaking)
		o.speakLocal(music.SpokenMessage(action.Song))
		if err := o.cfg.Searcher.Search(action.Song); err != nil {
			o.cfg.Log.Error("orchestrator", "spotify search failed", err, map[string]interface{}{
				"song": action.Song,
			})
		}
		// The confirmation goes to the front-ends; the searching phrase was
		// already spoken locally.
		o.cfg.Bus.Publish(bus.NewSpeechEvent(music.ConfirmationMessage(action.Song), false))
		o.cfg.Conversation.Record("Assistant", fmt.Sprintf("Searched Spotify for: %s", action.Song))
		o.setState(StateReady)

	case router.KindScriptedTask:
		o.cfg.Conversation.Record("Assistant", "Executed scripted task command.")
		o.setState(StateReady)

	case router.KindGeneralQuery:
		res := o.generate(ctx, action.Query)
		o.cfg.Conversation.Record("Assistant", res.Text)
		o.setState(StateSpeaking)
		o.emitSpeech(res.Text, res.Degraded)
		o.setState(StateReady)

	default:
		// KindNone is unreachable past the empty check above.
		return
	}

	o.cfg.Log.Info("orchestrator", "command handled", map[string]interface{}{
		"id":     cmd.ID,
		"action": action.Kind.String(),
	})
}

// generate calls the generation client, or goes straight to the offline
// responder when no client is configured.
func (o *Orchestrator) generate(ctx context.Context, query string) llm.Result {
	if o.cfg.Generator == nil {
		return llm.Result{Text: o.responder.Respond(query), Degraded: true}
	}
	return o.cfg.Generator.Generate(ctx, query)
}

// emitSpeech broadcasts a spoken response and best-effort plays it locally.
// Local playback fails in headless containers; that is expected and only
// logged, the browser's own text-to-speech carries the voice.
func (o *Orchestrator) emitSpeech(text string, degraded bool) {
	o.cfg.Bus.Publish(bus.NewSpeechEvent(text, degraded))
	o.speakLocal(text)
}

func (o *Orchestrator) speakLocal(text string) {
	if err := o.cfg.Speaker.Speak(text); err != nil {
		o.cfg.Log.Warn("orchestrator", "local audio playback failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Greet replays the current state and the welcome message to one subscriber
// via send, without touching the shared state. Used when a new front-end
// connects mid-session.
func (o *Orchestrator) Greet(send func(bus.Event)) {
	send(bus.NewStateEvent(o.CurrentState().String()))
	send(bus.NewSpeechEvent(o.cfg.WelcomeMessage, false))
}

// StartupGreeting runs the opening turn: announce the welcome message, then
// settle into the ready state.
func (o *Orchestrator) StartupGreeting() {
	o.setState(StateSpeaking)
	o.emitSpeech(o.cfg.WelcomeMessage, false)
	o.cfg.Conversation.Record("Assistant", o.cfg.WelcomeMessage)
	o.setState(StateReady)
}
