/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jfmyers9/spotilocal/internal/config"
	"github.com/jfmyers9/spotilocal/internal/daemon"
	"github.com/jfmyers9/spotilocal/internal/discord"
	"github.com/jfmyers9/spotilocal/internal/music"
	"github.com/jfmyers9/spotilocal/internal/notify"
	"github.com/jfmyers9/spotilocal/pkg/spotilocal"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	logFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spotilocal",
	Short: "Watch and control the Spotify desktop client over its local endpoint",
	Long: `spotilocal talks to the HTTP endpoint the Spotify desktop client
exposes on the loopback interface.

It can print the current track for status bars, send playback commands,
watch playback in the background and publish changes as desktop
notifications, a terminal UI or a websocket feed.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// setupLogger creates a logger writing to logFile, or to the console when empty
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}

// zerologAdapter routes the client's debug output into zerolog.
type zerologAdapter struct {
	logger zerolog.Logger
}

func (a zerologAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug().Msgf(format, args...)
}

// clientConfig maps the application configuration onto the client's.
func clientConfig(cfg *config.Config, logger zerolog.Logger) spotilocal.Config {
	return spotilocal.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		TokenURL:          cfg.TokenURL,
		OAuthToken:        cfg.OAuthToken,
		TrustLoopbackCert: cfg.TrustLoopbackCert,
		Logger:            zerologAdapter{logger: logger.With().Str("component", "client").Logger()},
	}
}

// newClient bootstraps a session against the local endpoint. The bootstrap
// is bounded by the configured fetch timeout.
func newClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*spotilocal.Client, error) {
	if cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.FetchTimeout)
		defer cancel()
	}

	client, err := spotilocal.NewClient(ctx, clientConfig(cfg, logger))
	if err != nil {
		if hint := processHint(); hint != "" {
			return nil, fmt.Errorf("failed to connect to Spotify (%s): %w", hint, err)
		}
		return nil, fmt.Errorf("failed to connect to Spotify: %w", err)
	}
	return client, nil
}

// launchWait bounds how long connect retries after starting Spotify.
const launchWait = 30 * time.Second

// connect is newClient with an optional launch of the desktop client (and
// the web helper where it is a separate program). After a launch the
// bootstrap is retried until the endpoint answers or launchWait passes.
func connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger, launch bool) (*spotilocal.Client, error) {
	if !launch {
		return newClient(ctx, cfg, logger)
	}

	started, err := music.LaunchDesktop()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Spotify: %w", err)
	}
	if started {
		logger.Info().Msg("Launched Spotify desktop client")
	}

	helperStarted, err := music.LaunchHelper()
	switch {
	case errors.Is(err, music.ErrLaunchUnsupported):
	case err != nil:
		logger.Warn().Err(err).Msg("Failed to launch web helper")
	case helperStarted:
		logger.Info().Msg("Launched Spotify web helper")
	}

	ctx, cancel := context.WithTimeout(ctx, launchWait)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		client, err := newClient(ctx, cfg, logger)
		if err == nil {
			return client, nil
		}
		logger.Debug().Err(err).Msg("Waiting for Spotify to come up")

		select {
		case <-ctx.Done():
			return nil, err
		case <-ticker.C:
		}
	}
}

// processHint explains a failed bootstrap from the process table, or
// returns "" when nothing useful is known.
func processHint() string {
	desktop, err := music.DesktopRunning()
	if err != nil {
		return ""
	}
	if !desktop {
		return "the desktop client is not running"
	}
	if helper, err := music.HelperRunning(); err == nil && !helper {
		return "no web helper process found"
	}
	return ""
}

// outputListeners builds the optional daemon listeners enabled in cfg.
// The returned func releases them after the daemon has stopped.
func outputListeners(cfg *config.Config, logger zerolog.Logger) ([]daemon.Listener, func()) {
	var listeners []daemon.Listener
	cleanup := func() {}

	if cfg.Notify.Enabled {
		listeners = append(listeners, notify.New(notify.Config{PlayState: cfg.Notify.PlayState}, logger))
	}

	if cfg.Discord.Enabled {
		if cfg.Discord.AppID == "" {
			logger.Warn().Msg("discord.enabled is set without discord.app_id, skipping Rich Presence")
		} else {
			presence := discord.New(cfg.Discord.AppID, logger)
			listeners = append(listeners, presence)
			cleanup = func() { _ = presence.Close() }
		}
	}

	return listeners, cleanup
}
