package cmd

import (
	"testing"
	"time"

	"github.com/jfmyers9/spotilocal/internal/music"
	"github.com/mattn/go-runewidth"
	"github.com/zmb3/spotify"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Hello",
			width:    0,
			expected: "Hello",
		},
		{
			name:     "no padding when width is negative",
			input:    "Hello",
			width:    -1,
			expected: "Hello",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    10,
			expected: "Hi        ",
		},
		{
			name:     "exact width unchanged",
			input:    "Hello",
			width:    5,
			expected: "Hello",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "This is a very long string that needs truncation",
			width:    20,
			expected: "This is a very lo...",
		},
		{
			name:     "handle emoji correctly",
			input:    "🎵 Music",
			width:    15,
			expected: "🎵 Music       ", // emoji is 2 chars wide, so 8 total + 7 spaces
		},
		{
			name:     "truncate emoji text",
			input:    "🎵 This is a very long song title",
			width:    15,
			expected: "🎵 This is a...",
		},
		{
			name:     "handle unicode characters",
			input:    "日本語",
			width:    10,
			expected: "日本語    ",
		},
		{
			name:     "truncate unicode text",
			input:    "日本語とても長いテキスト",
			width:    10,
			expected: "日本語... ", // 日本語 is 6 chars, ... is 3, need 1 space
		},
		{
			name:     "empty string padding",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "single character padding",
			input:    "A",
			width:    5,
			expected: "A    ",
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			// Verify the result has the expected display width (if width > 0)
			if tt.width > 0 {
				resultWidth := runewidth.StringWidth(result)
				if resultWidth != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d, expected %d",
						tt.input, tt.width, resultWidth, tt.width)
				}
			}
		})
	}
}

func TestFormatTrack(t *testing.T) {
	track := &music.Track{
		Name:     "Song A",
		Artist:   "Artist A",
		Album:    "Album A",
		URI:      spotify.URI("spotify:track:1"),
		Duration: 3*time.Minute + 5*time.Second,
		State:    music.StatePlaying,
		Volume:   0.5,
	}

	tests := []struct {
		name     string
		format   string
		expected string
		wantErr  bool
	}{
		{
			name:     "default format",
			format:   "{{.Artist}} - {{.Name}}",
			expected: "Artist A - Song A",
		},
		{
			name:     "uri and state",
			format:   "{{.URI}} [{{.State}}]",
			expected: "spotify:track:1 [playing]",
		},
		{
			name:     "duration",
			format:   "{{.Album}} ({{.Duration}})",
			expected: "Album A (3m5s)",
		},
		{
			name:    "invalid template",
			format:  "{{.Name",
			wantErr: true,
		},
		{
			name:    "unknown field",
			format:  "{{.Genre}}",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := formatTrack(track, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", result)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("formatTrack(%q) = %q, expected %q", tt.format, result, tt.expected)
			}
		})
	}
}

func TestMarqueeText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		speed    int
		at       int64
		expected string
	}{
		{
			name:     "disabled width returns text",
			text:     "Hello",
			width:    0,
			speed:    1,
			expected: "Hello",
		},
		{
			name:     "short text is padded",
			text:     "Hi",
			width:    5,
			speed:    1,
			at:       7,
			expected: "Hi   ",
		},
		{
			name:     "window at start",
			text:     "abcdefgh",
			width:    4,
			speed:    1,
			at:       0,
			expected: "abcd",
		},
		{
			name:     "window advances with time",
			text:     "abcdefgh",
			width:    4,
			speed:    2,
			at:       1,
			expected: "cdef",
		},
		{
			name:     "window wraps through separator",
			text:     "abcdefgh",
			width:    4,
			speed:    1,
			at:       6,
			expected: "gh|a",
		},
		{
			name:     "full loop returns to start",
			text:     "abcdefgh",
			width:    4,
			speed:    1,
			at:       9,
			expected: "abcd",
		},
		{
			name:     "wide runes never overflow",
			text:     "日本語テキスト",
			width:    5,
			speed:    1,
			at:       0,
			expected: "日本 ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := marqueeText(tt.text, tt.width, tt.speed, "|", time.Unix(tt.at, 0))
			if result != tt.expected {
				t.Errorf("marqueeText(%q, %d) at %d = %q, expected %q",
					tt.text, tt.width, tt.at, result, tt.expected)
			}
			if tt.width > 0 && runewidth.StringWidth(result) != tt.width {
				t.Errorf("marqueeText produced width %d, expected %d",
					runewidth.StringWidth(result), tt.width)
			}
		})
	}
}
