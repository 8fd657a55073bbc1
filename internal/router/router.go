// Package router classifies an incoming command among competing handlers.
// Classification is an ordered rule list evaluated first-match, so the
// precedence between music requests, scripted tasks and general queries is
// explicit and testable in isolation.
package router

import (
	"strings"

	"github.com/normanking/zara/internal/tasks"
)

// Kind is the classification outcome for one command.
type Kind int

const (
	// KindNone means the command was empty and produced no action.
	KindNone Kind = iota
	// KindAwaitSongName means the user asked for music without naming a
	// song; the next command is expected to be the song name.
	KindAwaitSongName
	// KindSearchSong means a song name was supplied and should be searched.
	KindSearchSong
	// KindScriptedTask means the scripted-task handler claimed the command.
	KindScriptedTask
	// KindGeneralQuery means the command goes to the generation client.
	KindGeneralQuery
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAwaitSongName:
		return "await_song_name"
	case KindSearchSong:
		return "search_song"
	case KindScriptedTask:
		return "scripted_task"
	case KindGeneralQuery:
		return "general_query"
	default:
		return "unknown"
	}
}

// Action is the routed outcome: a tagged variant whose payload fields are
// meaningful only for the matching Kind.
type Action struct {
	Kind Kind

	// Song is the song name for KindSearchSong.
	Song string

	// Query is the verbatim command for KindGeneralQuery.
	Query string
}

// musicPhrases are the music-intent phrases that request a song without
// naming one. The multilingual set comes from the voice front-end's prompt
// vocabulary.
var musicPhrases = []string{
	"play song", "play music", "spotify",
	"பாடல் இசை", "இசை இசை",
	"song play", "music play",
}

// rule pairs a name with a matcher. Matchers receive the raw command and its
// lower-cased form and return the action plus whether they claimed it.
type rule struct {
	name  string
	match func(command, lower string) (Action, bool)
}

// Router routes one command to its handler classification.
type Router struct {
	rules []rule
}

// New creates a Router. exec is the scripted-task collaborator; pass
// tasks.Nop{} when no scripted tasks are configured.
func New(exec tasks.Executor) *Router {
	if exec == nil {
		exec = tasks.Nop{}
	}

	return &Router{
		rules: []rule{
			{
				name: "await-song-name",
				match: func(_, lower string) (Action, bool) {
					for _, phrase := range musicPhrases {
						if strings.Contains(lower, phrase) {
							return Action{Kind: KindAwaitSongName}, true
						}
					}
					return Action{}, false
				},
			},
			{
				name: "search-song",
				match: func(command, lower string) (Action, bool) {
					if !strings.Contains(lower, "play") || len(strings.Fields(command)) <= 1 {
						return Action{}, false
					}
					_, rest, found := strings.Cut(lower, "play")
					if !found {
						return Action{}, false
					}
					song := strings.TrimSpace(rest)
					if song == "" {
						return Action{}, false
					}
					return Action{Kind: KindSearchSong, Song: song}, true
				},
			},
			{
				name: "scripted-task",
				match: func(command, _ string) (Action, bool) {
					if exec.Execute(command) {
						return Action{Kind: KindScriptedTask}, true
					}
					return Action{}, false
				},
			},
			{
				name: "general-query",
				match: func(command, _ string) (Action, bool) {
					return Action{Kind: KindGeneralQuery, Query: command}, true
				},
			},
		},
	}
}

// Route classifies a command. Empty or whitespace-only commands short-circuit
// before any rule runs: no handler is invoked and no action is produced.
func (r *Router) Route(command string) Action {
	if strings.TrimSpace(command) == "" {
		return Action{Kind: KindNone}
	}

	lower := strings.ToLower(command)
	for _, rule := range r.rules {
		if action, ok := rule.match(command, lower); ok {
			return action
		}
	}

	// The general-query rule always claims; we never reach here.
	return Action{Kind: KindGeneralQuery, Query: command}
}
