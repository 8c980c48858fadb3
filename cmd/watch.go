package cmd

import (
	"context"
	"fmt"

	"github.com/jfmyers9/spotilocal/internal/config"
	"github.com/jfmyers9/spotilocal/internal/daemon"
	"github.com/spf13/cobra"
)

var (
	watchNotify bool
	watchLaunch bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch playback and report changes",
	Long: `Watch the Spotify desktop client and report playback changes.

The watcher will:
- Bootstrap a session with the local endpoint
- Poll the playback status on a fixed interval
- Log track, volume and play state changes
- Optionally show desktop notifications for new tracks
- Optionally mirror the current track into Discord Rich Presence
- Pick up poll interval changes from the config file without restarting
- Handle graceful shutdown on SIGINT/SIGTERM

The watcher runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for launchd).`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchNotify, "notify", false, "Show desktop notifications (overrides config)")
	watchCmd.Flags().BoolVar(&watchLaunch, "launch", false, "Start Spotify first if it is not running")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("notify") {
		cfg.Notify.Enabled = watchNotify
	}

	// Set up logging
	logger := setupLogger(logFile, logLevel)

	logger.Info().
		Str("version", version).
		Str("config", cfg.File()).
		Msg("Starting spotilocal watcher")

	// Create music client
	client, err := connect(context.Background(), cfg, logger, watchLaunch)
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	logger.Info().
		Str("client_version", client.Session().ClientVersion).
		Bool("running", client.Session().Running).
		Msg("Session established")

	// Create daemon
	listeners, closeListeners := outputListeners(cfg, logger)
	defer closeListeners()

	d := daemon.New(daemon.Config{
		PollInterval: cfg.PollInterval,
		FetchTimeout: cfg.FetchTimeout,
		MaxBackoff:   cfg.MaxBackoff,
	}, client, logger, listeners...)

	cfg.Watch(func(updated *config.Config) {
		logger.Info().
			Dur("poll_interval", updated.PollInterval).
			Msg("Configuration reloaded")
		d.Poller().SetInterval(updated.PollInterval)
	})

	// Run daemon (blocks until shutdown signal)
	if err := d.Run(); err != nil {
		return fmt.Errorf("watcher error: %w", err)
	}

	if err := d.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	logger.Info().
		Int64("faults", d.Faults()).
		Msg("Watcher stopped")
	return nil
}
