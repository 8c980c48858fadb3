// Package discord publishes the current track as Discord Rich Presence.
package discord

import (
	"errors"
	"sync"
	"time"

	"github.com/jfmyers9/spotilocal/internal/daemon"
	"github.com/jfmyers9/spotilocal/internal/music"
	"github.com/rs/zerolog"
)

const (
	activityListening = 2

	// Position drift beyond this is treated as a seek.
	seekTolerance = 2 * time.Second

	// Minimum wait between connection attempts while Discord is unavailable.
	reconnectDelay = 15 * time.Second
)

var errDialPending = errors.New("waiting to reconnect to discord")

type rpcClient interface {
	SetActivity(*Activity) error
	Close() error
}

// Presence is a daemon.Listener that mirrors playback into Discord.
// It connects lazily on the first playing track and reconnects after
// any IPC failure.
type Presence struct {
	appID   string
	logger  zerolog.Logger
	connect func(appID string) (rpcClient, error)
	now     func() time.Time

	mu        sync.Mutex
	client    rpcClient
	last      lastActivity
	nextDial  time.Time
	dialFails int
}

type lastActivity struct {
	name, artist, album string
	start               time.Time
	playing             bool
}

// New creates a Presence for the given Discord application.
func New(appID string, logger zerolog.Logger) *Presence {
	return &Presence{
		appID:   appID,
		logger:  logger.With().Str("component", "discord").Logger(),
		connect: ipcConnect,
		now:     time.Now,
	}
}

// OnEvent implements daemon.Listener. Every poll carries the full
// snapshot, so only Updated events are consumed.
func (p *Presence) OnEvent(e daemon.Event) {
	ev, ok := e.(daemon.Updated)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handleTrack(music.FromStatus(ev.Current))
}

// Close clears the presence and drops the connection.
func (p *Presence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last.playing {
		p.clearActivity()
		p.last = lastActivity{}
	}
	p.close()
	return nil
}

func (p *Presence) handleTrack(track *music.Track) {
	if track == nil || track.State != music.StatePlaying {
		if p.last.playing {
			p.clearActivity()
			p.last = lastActivity{}
		}
		return
	}

	now := p.now()
	cur := lastActivity{
		name:    track.Name,
		artist:  track.Artist,
		album:   track.Album,
		start:   now.Add(-track.Position),
		playing: true,
	}
	if p.last.sameTrack(cur) && absDuration(cur.start.Sub(p.last.start)) <= seekTolerance {
		return
	}

	if err := p.ensureConnected(now); err != nil {
		p.logger.Debug().Err(err).Msg("Discord not available")
		return
	}

	if err := p.client.SetActivity(newActivity(track, cur.start)); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to set activity")
		p.close()
		return
	}
	p.logger.Debug().
		Str("track", track.Name).
		Str("artist", track.Artist).
		Msg("Presence updated")
	p.last = cur
}

func newActivity(track *music.Track, start time.Time) *Activity {
	a := &Activity{
		Type:    activityListening,
		Name:    "Spotify",
		Details: track.Name,
	}
	if track.Artist != "" {
		a.State = "by " + track.Artist
	}
	if track.Album != "" {
		a.Assets = &Assets{LargeText: track.Album}
	}
	if track.Duration > 0 {
		startMs := start.UnixMilli()
		endMs := start.Add(track.Duration).UnixMilli()
		a.Timestamps = &Timestamps{Start: &startMs, End: &endMs}
	}
	return a
}

func (p *Presence) ensureConnected(now time.Time) error {
	if p.client != nil {
		return nil
	}
	if now.Before(p.nextDial) {
		return errDialPending
	}
	client, err := p.connect(p.appID)
	if err != nil {
		p.dialFails++
		p.nextDial = now.Add(reconnectDelay)
		if p.dialFails == 1 {
			p.logger.Info().Err(err).Msg("Discord not reachable, will retry")
		}
		return err
	}
	p.logger.Info().Msg("Connected to Discord")
	p.client = client
	p.dialFails = 0
	p.nextDial = time.Time{}
	return nil
}

func (p *Presence) clearActivity() {
	if p.client == nil {
		return
	}
	if err := p.client.SetActivity(nil); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to clear activity")
		p.close()
	}
}

func (p *Presence) close() {
	if p.client == nil {
		return
	}
	if err := p.client.Close(); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to close Discord connection")
	}
	p.client = nil
}

func (l lastActivity) sameTrack(o lastActivity) bool {
	return l.playing && o.playing &&
		l.name == o.name && l.artist == o.artist && l.album == o.album
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
