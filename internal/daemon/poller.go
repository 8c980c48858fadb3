package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jfmyers9/spotilocal/pkg/spotilocal"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is used when PollerConfig.Interval is not set.
const DefaultPollInterval = time.Second

// ErrDisposed is returned when a closed Poller is enabled again.
var ErrDisposed = errors.New("poller is closed")

// PollerConfig holds poller configuration
type PollerConfig struct {
	Interval     time.Duration // Delay between the end of one cycle and the start of the next
	FetchTimeout time.Duration // Optional: bound on a single fetch (0 = no bound beyond the client's own)
	MaxBackoff   time.Duration // Optional: double the delay after each failed cycle up to this cap (0 = constant interval)
	Dispatcher   Dispatcher    // Optional: where listeners run (nil = synchronously on the polling goroutine)
	OnFault      func(error)   // Optional: called with the error of every failed cycle
}

type pollerState int

const (
	stateIdle pollerState = iota
	statePolling
	stateDisposed
)

type subscription struct {
	id       uint64
	listener Listener
}

// Poller fetches a status snapshot on a fixed schedule, diffs it against the
// previous one and delivers the resulting events to its listeners.
//
// The schedule is a one-shot timer that is only re-armed once a cycle has
// finished, so at most one fetch is ever outstanding. mu is never held while
// fetching or while listeners run.
type Poller struct {
	fetcher spotilocal.StatusFetcher
	config  PollerConfig
	logger  zerolog.Logger

	mu        sync.Mutex
	state     pollerState
	enabled   bool
	interval  time.Duration
	timer     *time.Timer
	gen       uint64 // bumped whenever the armed timer is replaced or stopped
	cancel    context.CancelFunc
	last      *spotilocal.Status
	failures  int
	listeners []subscription
	nextID    uint64
}

// NewPoller creates a new Poller instance. The poller starts disabled.
func NewPoller(fetcher spotilocal.StatusFetcher, cfg PollerConfig, logger zerolog.Logger) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		fetcher:  fetcher,
		config:   cfg,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Subscribe registers l and returns a function that removes it again.
func (p *Poller) Subscribe(l Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, subscription{id: id, listener: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, s := range p.listeners {
				if s.id == id {
					p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Enable starts polling. The first cycle runs immediately. Enabling an
// already enabled poller is a no-op.
func (p *Poller) Enable() error {
	return p.SetEnabled(true)
}

// Disable stops polling. A cycle already in flight completes but does not
// schedule another one.
func (p *Poller) Disable() {
	_ = p.SetEnabled(false)
}

// SetEnabled enables or disables polling.
func (p *Poller) SetEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateDisposed {
		if enabled {
			return ErrDisposed
		}
		return nil
	}
	if p.enabled == enabled {
		return nil
	}
	p.enabled = enabled

	if !enabled {
		p.stopTimerLocked()
		p.logger.Debug().Msg("Polling disabled")
		return nil
	}

	// An in-flight cycle re-arms on its own when it finishes.
	if p.state == stateIdle && p.timer == nil {
		p.armLocked(0)
	}
	p.logger.Debug().Dur("interval", p.interval).Msg("Polling enabled")
	return nil
}

// Enabled reports whether polling is enabled.
func (p *Poller) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetInterval changes the delay used when the next cycle is armed.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultPollInterval
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
}

// Interval returns the configured delay between cycles.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Status returns the last snapshot fetched successfully, or nil.
func (p *Poller) Status() *spotilocal.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Close disposes the poller: the timer is stopped, an in-flight fetch is
// cancelled and batches not yet delivered are dropped. Close is idempotent.
func (p *Poller) Close() error {
	p.mu.Lock()
	if p.state == stateDisposed {
		p.mu.Unlock()
		return nil
	}
	p.state = stateDisposed
	p.enabled = false
	p.stopTimerLocked()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.listeners = nil
	p.mu.Unlock()

	if c, ok := p.fetcher.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}

	p.logger.Info().Msg("Poller stopped")
	return nil
}

// Run enables the poller and blocks until ctx is cancelled, then closes it.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().
		Dur("interval", p.Interval()).
		Msg("Starting poller")

	if err := p.Enable(); err != nil {
		return err
	}
	<-ctx.Done()
	_ = p.Close()
	return ctx.Err()
}

// armLocked schedules the next cycle. p.mu must be held.
func (p *Poller) armLocked(delay time.Duration) {
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(delay, func() { p.cycle(gen) })
}

func (p *Poller) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
}

// nextDelayLocked returns the delay before the next cycle, applying backoff
// after consecutive failures. A cap at or below the interval disables
// backoff; failures never shorten the delay.
func (p *Poller) nextDelayLocked() time.Duration {
	delay := p.interval
	maxDelay := p.config.MaxBackoff
	if p.failures == 0 || maxDelay <= delay {
		return delay
	}
	for i := 1; i < p.failures && delay < maxDelay; i++ {
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// cycle runs one fetch, diff and dispatch round.
func (p *Poller) cycle(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.state != stateIdle || !p.enabled {
		p.mu.Unlock()
		return
	}
	p.state = statePolling
	p.timer = nil

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if p.config.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), p.config.FetchTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	p.cancel = cancel
	previous := p.last
	p.mu.Unlock()

	current, err := p.fetcher.Status(ctx)
	cancel()

	p.mu.Lock()
	p.cancel = nil
	if p.state == stateDisposed {
		p.mu.Unlock()
		return
	}

	var events []Event
	if err != nil {
		p.failures++
	} else {
		p.failures = 0
		p.last = current
		events = Diff(previous, current)
	}
	failures := p.failures
	p.mu.Unlock()

	if err != nil {
		p.fault(err, failures)
	} else {
		p.deliver(events)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == stateDisposed {
		return
	}
	p.state = stateIdle
	if p.enabled {
		p.armLocked(p.nextDelayLocked())
	}
}

func (p *Poller) fault(err error, failures int) {
	p.logger.Warn().
		Err(err).
		Int("consecutive_failures", failures).
		Msg("Poll failed")
	if p.config.OnFault != nil {
		p.config.OnFault(err)
	}
}

// deliver hands the whole batch to the dispatcher as one callback. The
// callback checks for disposal before it runs any listener.
func (p *Poller) deliver(events []Event) {
	batch := func() {
		p.mu.Lock()
		if p.state == stateDisposed {
			p.mu.Unlock()
			return
		}
		listeners := make([]Listener, len(p.listeners))
		for i, s := range p.listeners {
			listeners[i] = s.listener
		}
		p.mu.Unlock()

		for _, e := range events {
			for _, l := range listeners {
				l.OnEvent(e)
			}
		}
	}

	if p.config.Dispatcher != nil {
		p.config.Dispatcher.Dispatch(batch)
		return
	}
	batch()
}
