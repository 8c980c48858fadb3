package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jfmyers9/spotilocal/internal/config"
	"github.com/jfmyers9/spotilocal/internal/daemon"
	"github.com/jfmyers9/spotilocal/internal/hub"
	"github.com/jfmyers9/spotilocal/pkg/spotilocal"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Publish playback changes over a websocket",
	Long: `Watch the Spotify desktop client and publish every change to websocket
clients.

Endpoints:
  /        websocket feed; each message is {"type": ..., "data": ...}
  /status  last snapshot as JSON (204 before the first poll)
  /health  liveness check

New websocket clients receive the last snapshot right away.
Allowed origins are set with serve.origins in the config file.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}

	// Set up logging
	logger := setupLogger(logFile, logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create music client
	client, err := newClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Create hub and daemon
	h := hub.New(cfg.Serve.Origins, logger)
	extra, closeListeners := outputListeners(cfg, logger)
	defer closeListeners()
	listeners := append([]daemon.Listener{h}, extra...)

	d := daemon.New(daemon.Config{
		PollInterval: cfg.PollInterval,
		FetchTimeout: cfg.FetchTimeout,
		MaxBackoff:   cfg.MaxBackoff,
	}, client, logger, listeners...)

	cfg.Watch(func(updated *config.Config) {
		d.Poller().SetInterval(updated.PollInterval)
	})

	server := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           newServeMux(h, d.Poller().Status, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start polling in background
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.RunContext(ctx)
	}()

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Shutdown signal received, stopping http server")

		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}()

	// Start HTTP server (blocks until shutdown)
	logger.Info().Str("addr", cfg.Serve.Addr).Msg("HTTP server listening")
	serveErr := server.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	stop()
	wg.Wait()
	if err := d.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}

	if serveErr != nil {
		return fmt.Errorf("http server error: %w", serveErr)
	}
	return nil
}

// newServeMux routes websocket upgrades to h and serves the last snapshot
// returned by status on /status.
func newServeMux(h http.Handler, status func() *spotilocal.Status, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Warn().Err(err).Msg("Failed to write health response")
		}
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		current := status()
		if current == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(current); err != nil {
			logger.Warn().Err(err).Msg("Failed to write status response")
		}
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		isWebSocket := strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
			strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")

		if isWebSocket {
			h.ServeHTTP(w, r)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Upgrade", "websocket")
		w.Header().Set("Connection", "Upgrade")
		w.WriteHeader(http.StatusUpgradeRequired)
		if _, err := w.Write([]byte("426 Upgrade Required")); err != nil {
			logger.Warn().Err(err).Msg("Failed to write upgrade response")
		}
	})

	return mux
}
