package music

import (
	"context"
	"fmt"

	"github.com/jfmyers9/spotilocal/pkg/spotilocal"
	"github.com/zmb3/spotify"
)

// Remote is the subset of *spotilocal.Client that LocalClient needs.
type Remote interface {
	spotilocal.StatusFetcher
	Play(ctx context.Context, uri spotify.URI) error
	Queue(ctx context.Context, uri spotify.URI) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

var _ Remote = (*spotilocal.Client)(nil)

// LocalClient implements the Client interface on top of the desktop
// client's local endpoint.
type LocalClient struct {
	remote Remote
}

var _ Client = (*LocalClient)(nil)

// NewLocalClient creates a new LocalClient instance
func NewLocalClient(remote Remote) *LocalClient {
	return &LocalClient{remote: remote}
}

// GetCurrentTrack returns the track the desktop client holds, or nil when
// nothing is loaded.
func (c *LocalClient) GetCurrentTrack(ctx context.Context) (*Track, error) {
	status, err := c.remote.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return FromStatus(status), nil
}

// IsRunning reports whether the desktop client is running. The process
// table is checked first; the endpoint is only asked when that fails.
func (c *LocalClient) IsRunning(ctx context.Context) (bool, error) {
	if running, err := DesktopRunning(); err == nil {
		return running, nil
	}

	status, err := c.remote.Status(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	return status.Running, nil
}

// Play resumes playback
func (c *LocalClient) Play(ctx context.Context) error {
	if err := c.remote.Resume(ctx); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}
	return nil
}

// Pause pauses playback
func (c *LocalClient) Pause(ctx context.Context) error {
	if err := c.remote.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}
	return nil
}

// PlayPause toggles between play and pause. The endpoint has no toggle, so
// the current state is fetched first.
func (c *LocalClient) PlayPause(ctx context.Context) error {
	status, err := c.remote.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if status.Playing {
		return c.Pause(ctx)
	}
	return c.Play(ctx)
}

// PlayURI starts playing uri
func (c *LocalClient) PlayURI(ctx context.Context, uri spotify.URI) error {
	if err := c.remote.Play(ctx, uri); err != nil {
		return fmt.Errorf("failed to play %s: %w", uri, err)
	}
	return nil
}

// Queue appends uri to the play queue
func (c *LocalClient) Queue(ctx context.Context, uri spotify.URI) error {
	if err := c.remote.Queue(ctx, uri); err != nil {
		return fmt.Errorf("failed to queue %s: %w", uri, err)
	}
	return nil
}

// FromStatus converts a status snapshot into a Track. It returns nil when
// the snapshot holds no track.
func FromStatus(s *spotilocal.Status) *Track {
	if s == nil || s.Track == nil {
		return nil
	}

	state := StatePaused
	switch {
	case !s.Running:
		state = StateStopped
	case s.Playing:
		state = StatePlaying
	}

	t := &Track{
		Name:     s.Track.Name(),
		Artist:   s.Track.Artist(),
		Album:    s.Track.Album(),
		Duration: s.Track.Length,
		Position: s.PlayingPosition,
		State:    state,
		Volume:   s.Volume,
		Shuffle:  s.Shuffle,
		Repeat:   s.Repeat,
		Online:   s.Online,
	}
	if s.Track.TrackResource != nil {
		t.URI = s.Track.TrackResource.URI
	}
	if t.Duration > 0 && t.Position > t.Duration {
		t.Position = t.Duration
	}
	return t
}
