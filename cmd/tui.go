package cmd

import (
	"context"
	"fmt"

	"github.com/jfmyers9/spotilocal/internal/config"
	"github.com/jfmyers9/spotilocal/internal/daemon"
	"github.com/jfmyers9/spotilocal/internal/music"
	"github.com/jfmyers9/spotilocal/internal/tui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Display a terminal UI for now playing",
	Long: `Display a terminal-based user interface showing the track Spotify is
playing, updated from the local endpoint in real time.

The TUI includes:
- Now playing display with track name, artist and album
- Progress bar showing playback position
- Volume, shuffle, repeat and connection state
- Recently played tracks

Press space to toggle playback and 'q' to quit.
Logs are discarded unless --log-file is given.`,
	RunE: runTUI,
}

var tuiLaunch bool

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().BoolVar(&tuiLaunch, "launch", false, "Start Spotify first if it is not running")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The terminal belongs to the UI.
	logger := zerolog.Nop()
	if logFile != "" {
		logger = setupLogger(logFile, logLevel)
	}

	// Create music client
	client, err := connect(context.Background(), cfg, logger, tuiLaunch)
	if err != nil {
		return err
	}

	// Create TUI app
	app := tui.New()
	app.SetMusicClient(music.NewLocalClient(client))

	poller := daemon.NewPoller(client, daemon.PollerConfig{
		Interval:     cfg.PollInterval,
		FetchTimeout: cfg.FetchTimeout,
		MaxBackoff:   cfg.MaxBackoff,
		Dispatcher:   app.Dispatcher(),
		OnFault:      app.ReportFault,
	}, logger)
	poller.Subscribe(app)
	defer poller.Close()

	cfg.Watch(func(updated *config.Config) {
		poller.SetInterval(updated.PollInterval)
	})

	if err := poller.Enable(); err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	return app.Run(ctx)
}
