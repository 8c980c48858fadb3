// Package notify shows desktop notifications for playback changes.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/jfmyers9/spotilocal/internal/daemon"
	"github.com/jfmyers9/spotilocal/pkg/spotilocal"
	"github.com/rs/zerolog"
)

// Config holds notifier configuration
type Config struct {
	PlayState bool   // Also notify when playback is paused or resumed
	AppIcon   string // Optional: path to an icon file
}

// Notifier is a daemon.Listener that raises a desktop notification when the
// track changes. Identical consecutive notifications are suppressed.
type Notifier struct {
	config Config
	logger zerolog.Logger
	notify func(title, message, appIcon string) error

	mu      sync.Mutex
	current *spotilocal.Track
	last    string
}

// New creates a new Notifier instance
func New(cfg Config, logger zerolog.Logger) *Notifier {
	return &Notifier{
		config: cfg,
		logger: logger.With().Str("component", "notifier").Logger(),
		notify: beeep.Notify,
	}
}

// OnEvent implements daemon.Listener.
func (n *Notifier) OnEvent(e daemon.Event) {
	switch ev := e.(type) {
	case daemon.Updated:
		n.mu.Lock()
		if ev.Current != nil {
			n.current = ev.Current.Track
		}
		n.mu.Unlock()
	case daemon.TrackChanged:
		if ev.Current == nil || ev.Current.TrackResource == nil {
			return
		}
		n.send("Now Playing", trackMessage(ev.Current))
	case daemon.PlayStateChanged:
		if !n.config.PlayState {
			return
		}
		n.mu.Lock()
		track := n.current
		n.mu.Unlock()

		title := "Paused"
		if ev.Playing {
			title = "Playing"
		}
		n.send(title, trackMessage(track))
	}
}

func (n *Notifier) send(title, message string) {
	key := title + "\x00" + message

	n.mu.Lock()
	if key == n.last {
		n.mu.Unlock()
		return
	}
	n.last = key
	n.mu.Unlock()

	n.logger.Debug().Str("title", title).Str("message", message).Msg("Sending notification")
	if err := n.notify(title, message, n.config.AppIcon); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to send notification")
	}
}

func trackMessage(t *spotilocal.Track) string {
	if t == nil {
		return ""
	}
	switch {
	case t.Artist() != "" && t.Album() != "":
		return fmt.Sprintf("%s\n%s (%s)", t.Name(), t.Artist(), t.Album())
	case t.Artist() != "":
		return fmt.Sprintf("%s\n%s", t.Name(), t.Artist())
	default:
		return t.Name()
	}
}
