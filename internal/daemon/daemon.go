package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jfmyers9/spotilocal/pkg/spotilocal"
	"github.com/rs/zerolog"
)

// Config holds daemon configuration
type Config struct {
	PollInterval time.Duration // How often to poll the local endpoint
	FetchTimeout time.Duration // Upper bound on a single status request
	MaxBackoff   time.Duration // Cap for the delay after repeated failures (0 = no backoff)
}

// Daemon coordinates the poller and the listeners that react to its events.
// Listeners run on a dedicated queue goroutine so a slow listener never
// delays the next poll.
type Daemon struct {
	config Config
	poller *Poller
	queue  *Queue
	logger zerolog.Logger

	mu     sync.Mutex
	faults int64
}

// New creates a new Daemon instance. Every listener is subscribed in the
// order given, after the daemon's own logging listener.
func New(cfg Config, fetcher spotilocal.StatusFetcher, logger zerolog.Logger, listeners ...Listener) *Daemon {
	d := &Daemon{
		config: cfg,
		queue:  NewQueue(),
		logger: logger.With().Str("component", "daemon").Logger(),
	}

	d.poller = NewPoller(fetcher, PollerConfig{
		Interval:     cfg.PollInterval,
		FetchTimeout: cfg.FetchTimeout,
		MaxBackoff:   cfg.MaxBackoff,
		Dispatcher:   d.queue,
		OnFault:      d.handleFault,
	}, logger)

	d.poller.Subscribe(ListenerFunc(d.handleEvent))
	for _, l := range listeners {
		d.poller.Subscribe(l)
	}

	return d
}

// Poller returns the daemon's poller, e.g. to adjust its interval.
func (d *Daemon) Poller() *Poller {
	return d.poller
}

// Faults returns the number of failed poll cycles so far.
func (d *Daemon) Faults() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.faults
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return d.RunContext(ctx)
}

// RunContext runs the daemon until ctx is cancelled.
func (d *Daemon) RunContext(ctx context.Context) error {
	d.logger.Info().
		Dur("interval", d.config.PollInterval).
		Msg("Starting daemon")

	var wg sync.WaitGroup

	// Start listener queue
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.queue.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("Listener queue error")
		}
	}()

	// Start poller
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("Poller error")
		}
	}()

	wg.Wait()

	d.logger.Info().Msg("Daemon stopped")
	return nil
}

// Shutdown stops polling and drops undelivered events.
func (d *Daemon) Shutdown() error {
	d.logger.Info().Msg("Shutting down daemon")
	err := d.poller.Close()
	d.queue.Close()
	return err
}

func (d *Daemon) handleFault(err error) {
	d.mu.Lock()
	d.faults++
	d.mu.Unlock()

	var remote *spotilocal.RemoteError
	if errors.As(err, &remote) {
		d.logger.Debug().
			Str("type", remote.Type).
			Str("message", remote.Message).
			Msg("Local endpoint reported an error")
	}
}

// handleEvent logs every change the poller reports.
func (d *Daemon) handleEvent(e Event) {
	switch ev := e.(type) {
	case Updated:
		if ev.Current != nil && ev.Previous == nil {
			d.logger.Info().
				Bool("running", ev.Current.Running).
				Str("client_version", ev.Current.ClientVersion).
				Msg("Connected to Spotify")
		}
	case TrackChanged:
		if ev.Current == nil {
			d.logger.Info().Msg("Track cleared")
			return
		}
		// Tracks without identity (ads) compare unequal on every poll.
		if ev.Current.TrackResource == nil {
			d.logger.Debug().
				Dur("length", ev.Current.Length).
				Str("type", ev.Current.Type).
				Msg("Playing track without identity")
			return
		}
		d.logger.Info().
			Str("track", ev.Current.Name()).
			Str("artist", ev.Current.Artist()).
			Str("album", ev.Current.Album()).
			Dur("length", ev.Current.Length).
			Msg("Track changed")
	case VolumeChanged:
		d.logger.Debug().
			Float64("from", ev.Previous).
			Float64("to", ev.Current).
			Msg("Volume changed")
	case PlayStateChanged:
		if ev.Playing {
			d.logger.Info().Msg("Playback started")
		} else {
			d.logger.Info().Msg("Playback paused")
		}
	}
}
