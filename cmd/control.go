package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jfmyers9/spotilocal/internal/config"
	"github.com/jfmyers9/spotilocal/internal/music"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zmb3/spotify"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play [uri]",
	Short: "Resume playback or play a Spotify URI",
	Long: `Without arguments, resume playback of the current track.

With a Spotify URI (spotify:track:..., spotify:album:..., spotify:playlist:...)
or an open.spotify.com link, start playing it immediately.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

// pauseCmd represents the pause command
var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Args:  cobra.NoArgs,
	RunE:  runPause,
}

// playpauseCmd represents the playpause command
var playpauseCmd = &cobra.Command{
	Use:   "playpause",
	Short: "Toggle between play and pause",
	Long:  `Toggle between play and pause. If playing, pauses. If paused, resumes.`,
	Args:  cobra.NoArgs,
	RunE:  runPlayPause,
}

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue <uri>",
	Short: "Add a Spotify URI to the play queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueue,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(playpauseCmd)
	rootCmd.AddCommand(queueCmd)
}

// withLocalClient bootstraps a session and hands a LocalClient to fn.
func withLocalClient(fn func(ctx context.Context, client *music.LocalClient) error) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(logFile, logLevel)

	// Create music client
	remote, err := newClient(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer remote.CloseIdleConnections()

	ctx := context.Background()
	if cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.FetchTimeout)
		defer cancel()
	}

	return fn(logger.WithContext(ctx), music.NewLocalClient(remote))
}

func runPlay(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return withLocalClient(func(ctx context.Context, client *music.LocalClient) error {
			return client.Play(ctx)
		})
	}

	uri, err := parseURI(args[0])
	if err != nil {
		return err
	}
	return withLocalClient(func(ctx context.Context, client *music.LocalClient) error {
		zerolog.Ctx(ctx).Debug().Str("uri", string(uri)).Msg("Playing URI")
		return client.PlayURI(ctx, uri)
	})
}

func runPause(cmd *cobra.Command, args []string) error {
	return withLocalClient(func(ctx context.Context, client *music.LocalClient) error {
		return client.Pause(ctx)
	})
}

func runPlayPause(cmd *cobra.Command, args []string) error {
	return withLocalClient(func(ctx context.Context, client *music.LocalClient) error {
		return client.PlayPause(ctx)
	})
}

func runQueue(cmd *cobra.Command, args []string) error {
	uri, err := parseURI(args[0])
	if err != nil {
		return err
	}
	return withLocalClient(func(ctx context.Context, client *music.LocalClient) error {
		zerolog.Ctx(ctx).Debug().Str("uri", string(uri)).Msg("Queueing URI")
		return client.Queue(ctx, uri)
	})
}

// parseURI accepts a spotify: URI or an open.spotify.com link and returns
// the URI form.
func parseURI(arg string) (spotify.URI, error) {
	arg = strings.TrimSpace(arg)

	if strings.HasPrefix(arg, "spotify:") {
		parts := strings.Split(arg, ":")
		if len(parts) < 3 || parts[len(parts)-1] == "" {
			return "", fmt.Errorf("invalid Spotify URI: %s", arg)
		}
		return spotify.URI(arg), nil
	}

	for _, prefix := range []string{"https://open.spotify.com/", "http://open.spotify.com/"} {
		if !strings.HasPrefix(arg, prefix) {
			continue
		}
		path := strings.TrimPrefix(arg, prefix)
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) < 2 || parts[0] == "" || parts[len(parts)-1] == "" {
			return "", fmt.Errorf("invalid Spotify link: %s", arg)
		}
		return spotify.URI("spotify:" + strings.Join(parts, ":")), nil
	}

	return "", fmt.Errorf("not a Spotify URI or link: %s", arg)
}
