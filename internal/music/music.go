// Package music implements the music-search action: a fire-and-forget
// redirect to a Spotify search URL.
package music

import (
	"fmt"
	"strings"

	"github.com/pkg/browser"

	"github.com/normanking/zara/internal/logging"
)

const searchBaseURL = "https://open.spotify.com/search/"

// SearchURL builds the Spotify search URL for a song query.
func SearchURL(song string) string {
	return searchBaseURL + strings.ReplaceAll(song, " ", "%20")
}

// ConfirmationMessage is the reply announced after a search is launched.
func ConfirmationMessage(song string) string {
	return fmt.Sprintf("%s Spotify இல் தேடப்பட்டது!", song)
}

// SpokenMessage is the phrase spoken while the search opens.
func SpokenMessage(song string) string {
	return fmt.Sprintf("%s Spotify இல் தேடுகிறேன்.", song)
}

// Searcher launches a music search for a song name.
type Searcher interface {
	Search(song string) error
}

// BrowserSearcher opens the search URL in the default browser.
type BrowserSearcher struct {
	log *logging.Logger
}

// NewBrowserSearcher creates a BrowserSearcher.
func NewBrowserSearcher(log *logging.Logger) *BrowserSearcher {
	if log == nil {
		log = logging.Nop()
	}
	return &BrowserSearcher{log: log}
}

// Search opens the Spotify search page for the song.
func (s *BrowserSearcher) Search(song string) error {
	url := SearchURL(song)
	s.log.Info("music", "opening spotify search", map[string]interface{}{"url": url})

	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("open search url: %w", err)
	}
	return nil
}

// Nop is a Searcher that does nothing. Useful in tests and headless runs.
type Nop struct{}

// Search does nothing.
func (Nop) Search(string) error {
	return nil
}
