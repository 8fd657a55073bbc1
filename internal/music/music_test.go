package music

import "testing"

func TestSearchURL(t *testing.T) {
	tests := []struct {
		song     string
		expected string
	}{
		{"believer", "https://open.spotify.com/search/believer"},
		{"shape of you", "https://open.spotify.com/search/shape%20of%20you"},
		{"", "https://open.spotify.com/search/"},
	}

	for _, tt := range tests {
		if got := SearchURL(tt.song); got != tt.expected {
			t.Errorf("SearchURL(%q) = %q, want %q", tt.song, got, tt.expected)
		}
	}
}

func TestMessages(t *testing.T) {
	if got := ConfirmationMessage("believer"); got != "believer Spotify இல் தேடப்பட்டது!" {
		t.Errorf("unexpected confirmation message: %q", got)
	}
	if got := SpokenMessage("believer"); got != "believer Spotify இல் தேடுகிறேன்." {
		t.Errorf("unexpected spoken message: %q", got)
	}
}
