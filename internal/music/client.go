package music

import (
	"context"
	"time"

	"github.com/zmb3/spotify"
)

// Track represents a music track with its metadata and current state
type Track struct {
	Name     string        // Track name/title
	Artist   string        // Artist name
	Album    string        // Album name
	URI      spotify.URI   // Track locator, empty for local files without one
	Duration time.Duration // Total track duration
	Position time.Duration // Current playback position
	State    PlayState     // Current playback state

	Volume  float64 // Player volume, 0.0-1.0
	Shuffle bool
	Repeat  bool
	Online  bool
}

// PlayState represents the current playback state of the music player
type PlayState int

const (
	StateStopped PlayState = iota // No track playing
	StatePlaying                  // Track is currently playing
	StatePaused                   // Track is paused
)

// String returns a human-readable representation of the PlayState
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Client defines the interface for interacting with a music player
type Client interface {
	// GetCurrentTrack returns the currently playing/paused track, or nil if stopped
	GetCurrentTrack(ctx context.Context) (*Track, error)

	// IsRunning checks if the music player application is running
	IsRunning(ctx context.Context) (bool, error)

	// Play resumes playback
	Play(ctx context.Context) error

	// Pause pauses playback
	Pause(ctx context.Context) error

	// PlayPause toggles between play and pause
	PlayPause(ctx context.Context) error

	// PlayURI starts playing a track, album or playlist
	PlayURI(ctx context.Context, uri spotify.URI) error

	// Queue appends a track to the play queue
	Queue(ctx context.Context, uri spotify.URI) error
}
