package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jfmyers9/spotilocal/internal/daemon"
	"github.com/jfmyers9/spotilocal/internal/music"
	"github.com/jfmyers9/spotilocal/pkg/spotilocal"
	"github.com/rivo/tview"
)

const maxRecentTracks = 5

const helpText = "[gray]q:quit  space:play/pause[-]"

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to advance the progress bar between polls
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 500 * time.Millisecond,
	}
}

// RecentTrack stores info about a recently played track
type RecentTrack struct {
	Name     string
	Artist   string
	PlayedAt time.Time
}

// App is the TUI application for displaying playback. It is a
// daemon.Listener; events must be delivered through Dispatcher so that all
// state is only touched on the tview event loop.
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	flags      *tview.TextView
	recent     *tview.TextView
	status     *tview.TextView

	config Config

	// Music client for controls
	musicClient music.Client

	// Current state, owned by the event loop
	current      *spotilocal.Status
	receivedAt   time.Time
	sessionStart time.Time
	tracksPlayed int
	faults       int
	lastFault    string

	// Ring buffer for recent tracks
	recentBuf   [maxRecentTracks]RecentTrack
	recentCount int // total tracks added (recentCount % maxRecentTracks = next write index)

	// Cached progress bar width to stabilize redraws.
	lastBarWidth int

	now func() time.Time

	// Updates from other goroutines go through queue so callers never wait
	// on the event loop. stopped is closed once the event loop has exited.
	queue    *daemon.Queue
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a new TUI application with default config
func New() *App {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(cfg Config) *App {
	a := &App{
		app:          tview.NewApplication(),
		config:       cfg,
		sessionStart: time.Now(),
		now:          time.Now,
		queue:        daemon.NewQueue(),
		stopped:      make(chan struct{}),
	}
	a.setupUI()
	return a
}

// SetMusicClient sets the music client for playback controls
func (a *App) SetMusicClient(client music.Client) {
	a.musicClient = client
}

// Dispatcher returns a dispatcher that runs poller deliveries on the tview
// event loop and redraws afterwards. Dispatch only enqueues; batches reach
// the event loop in FIFO order and are dropped once the UI has stopped.
func (a *App) Dispatcher() daemon.Dispatcher {
	return daemon.DispatcherFunc(a.post)
}

// post enqueues fn for the event loop without waiting for it to run.
func (a *App) post(fn func()) {
	a.queue.Dispatch(func() { a.draw(fn) })
}

// draw runs fn on the event loop and redraws. QueueUpdateDraw waits for the
// event loop, so draw gives up once the loop has exited.
func (a *App) draw(fn func()) {
	select {
	case <-a.stopped:
		return
	default:
	}

	done := make(chan struct{})
	go func() {
		a.app.QueueUpdateDraw(fn)
		close(done)
	}()

	select {
	case <-done:
	case <-a.stopped:
	}
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	a.flags = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.flags.SetBorder(true).
		SetTitle(" Player ").
		SetTitleAlign(tview.AlignLeft)

	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(" Recent ").
		SetTitleAlign(tview.AlignLeft)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText(helpText)

	// Top: now playing, then progress, then player flags | recent tracks,
	// then the status bar.
	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.flags, 0, 1, false).
		AddItem(a.recent, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 3, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, 8, 1, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(flex, true)

	a.render()
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.app.Stop()
		return nil
	case ' ':
		if a.musicClient != nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := a.musicClient.PlayPause(ctx); err != nil {
					a.ReportFault(err)
				}
			}()
		}
		return nil
	}
	return event
}

// OnEvent implements daemon.Listener. It must run on the event loop.
func (a *App) OnEvent(e daemon.Event) {
	switch ev := e.(type) {
	case daemon.Updated:
		a.current = ev.Current
		a.receivedAt = a.now()
		a.lastFault = ""
	case daemon.TrackChanged:
		if ev.Previous != nil && ev.Previous.TrackResource != nil {
			a.addToRecentTracks(ev.Previous)
			a.tracksPlayed++
		}
	}
	a.render()
}

// ReportFault shows err in the status bar until the next successful poll.
// It is safe to call from any goroutine.
func (a *App) ReportFault(err error) {
	a.post(func() {
		a.faults++
		a.lastFault = err.Error()
		a.render()
	})
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.tick(ctx)
	go func() {
		_ = a.queue.Run(ctx)
	}()

	err := a.app.Run()
	a.stopOnce.Do(func() { close(a.stopped) })
	a.queue.Close()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// tick advances the progress bar between polls.
func (a *App) tick(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = DefaultConfig().RefreshRate
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-a.stopped:
			return
		case <-ticker.C:
			a.draw(a.render)
		}
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	a.app.Stop()
}

// addToRecentTracks adds a track to the ring buffer of recent tracks.
func (a *App) addToRecentTracks(track *spotilocal.Track) {
	idx := a.recentCount % maxRecentTracks
	a.recentBuf[idx] = RecentTrack{
		Name:     track.Name(),
		Artist:   track.Artist(),
		PlayedAt: a.now(),
	}
	a.recentCount++
}

// getRecentTracks returns recent tracks in most-recent-first order.
func (a *App) getRecentTracks() []RecentTrack {
	n := a.recentCount
	if n > maxRecentTracks {
		n = maxRecentTracks
	}
	result := make([]RecentTrack, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recently written slot
		idx := (a.recentCount - 1 - i) % maxRecentTracks
		result[i] = a.recentBuf[idx]
	}
	return result
}

// track returns the current track with its position advanced by the time
// elapsed since the snapshot arrived.
func (a *App) track() *music.Track {
	t := music.FromStatus(a.current)
	if t == nil || t.State != music.StatePlaying {
		return t
	}
	t.Position += a.now().Sub(a.receivedAt)
	if t.Duration > 0 && t.Position > t.Duration {
		t.Position = t.Duration
	}
	return t
}

func (a *App) render() {
	track := a.track()
	a.nowPlaying.SetText(nowPlayingText(track))
	a.progress.SetText(a.progressText(track))
	a.flags.SetText(a.flagsText(track))
	a.recent.SetText(recentText(a.getRecentTracks()))

	if a.lastFault != "" {
		a.status.SetText(fmt.Sprintf("[red]%s[-]  %s", tview.Escape(a.lastFault), helpText))
	} else {
		a.status.SetText(helpText)
	}
}

func nowPlayingText(track *music.Track) string {
	if track == nil || track.State == music.StateStopped {
		return "\n\n[gray]No track playing[-]"
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(track.Name)))
	sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(track.Artist)))
	sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(track.Album)))

	stateIcon := "[green]▶[-]" // Play triangle
	if track.State == music.StatePaused {
		stateIcon = "[yellow]⏸[-]" // Pause icon
	}
	sb.WriteString(fmt.Sprintf("\n\n%s", stateIcon))
	return sb.String()
}

func (a *App) progressText(track *music.Track) string {
	if track == nil || track.State == music.StateStopped {
		return ""
	}

	_, _, width, _ := a.progress.GetInnerRect()
	barWidth := width - 14 // Account for time display
	if barWidth > 0 {
		a.lastBarWidth = barWidth
	}
	if a.lastBarWidth < 10 {
		a.lastBarWidth = 10
	}

	bar := buildProgressBar(track.Position, track.Duration, a.lastBarWidth)
	return fmt.Sprintf("%s %s %s", formatDuration(track.Position), bar, formatDuration(track.Duration))
}

func (a *App) flagsText(track *music.Track) string {
	var sb strings.Builder

	if track == nil {
		online := a.current != nil && a.current.Online
		sb.WriteString(fmt.Sprintf("Online:  %s\n", onOff(online)))
	} else {
		sb.WriteString(fmt.Sprintf("Volume:  %3.0f%%\n", track.Volume*100))
		sb.WriteString(fmt.Sprintf("Shuffle: %s\n", onOff(track.Shuffle)))
		sb.WriteString(fmt.Sprintf("Repeat:  %s\n", onOff(track.Repeat)))
		sb.WriteString(fmt.Sprintf("Online:  %s\n", onOff(track.Online)))
	}

	sb.WriteString(fmt.Sprintf("Played:  %d  Faults: %d\n", a.tracksPlayed, a.faults))
	sb.WriteString(fmt.Sprintf("Session: %s", formatDuration(a.now().Sub(a.sessionStart))))
	return sb.String()
}

func recentText(tracks []RecentTrack) string {
	if len(tracks) == 0 {
		return "[gray]No recent tracks[-]"
	}

	var sb strings.Builder
	for i, track := range tracks {
		if i > 0 {
			sb.WriteString("\n")
		}
		name := []rune(track.Name)
		if len(name) > 20 {
			name = append(name[:17], []rune("...")...)
		}
		sb.WriteString(fmt.Sprintf("[white]%s[-] [gray]%s[-]", tview.Escape(string(name)), tview.Escape(track.Artist)))
	}
	return sb.String()
}

func onOff(b bool) string {
	if b {
		return "[green]on[-]"
	}
	return "[gray]off[-]"
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration == 0 || width <= 0 {
		return strings.Repeat("-", width)
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	return "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
