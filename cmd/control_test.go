package cmd

import (
	"testing"

	"github.com/zmb3/spotify"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected spotify.URI
		wantErr  bool
	}{
		{
			name:     "track uri",
			input:    "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			expected: "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "surrounding whitespace",
			input:    "  spotify:album:1  ",
			expected: "spotify:album:1",
		},
		{
			name:     "user playlist uri",
			input:    "spotify:user:someone:playlist:37i9",
			expected: "spotify:user:someone:playlist:37i9",
		},
		{
			name:     "open link",
			input:    "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			expected: "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "open link with query",
			input:    "https://open.spotify.com/playlist/37i9?si=abc",
			expected: "spotify:playlist:37i9",
		},
		{
			name:    "missing id",
			input:   "spotify:track:",
			wantErr: true,
		},
		{
			name:    "link without id",
			input:   "https://open.spotify.com/track/",
			wantErr: true,
		},
		{
			name:    "other host",
			input:   "https://example.com/track/1",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := parseURI(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseURI(%q) = %q, expected error", tt.input, uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseURI(%q) unexpected error: %v", tt.input, err)
			}
			if uri != tt.expected {
				t.Errorf("parseURI(%q) = %q, expected %q", tt.input, uri, tt.expected)
			}
		})
	}
}
