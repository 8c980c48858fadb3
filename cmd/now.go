/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jfmyers9/spotilocal/internal/config"
	"github.com/jfmyers9/spotilocal/internal/music"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const ellipsis = "..."

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the track Spotify is playing",
	Long: `Query the Spotify desktop client and display the currently playing track.

The output format can be customized in ~/.config/spotilocal/config.yaml
using a Go template. Available fields: .Name, .Artist, .Album, .URI,
.Duration, .Position, .State, .Volume, .Shuffle, .Repeat, .Online

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or Spotify not reachable`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
}

func runNow(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Check for format flag override
	if formatFlag, _ := cmd.Flags().GetString("format"); formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	logger := setupLogger(logFile, logLevel)

	// Leave quietly when the desktop client is not running; status bars
	// call this every few seconds.
	if running, err := music.DesktopRunning(); err == nil && !running {
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.FetchTimeout+time.Second)
	defer cancel()

	// Create music client
	remote, err := newClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer remote.CloseIdleConnections()

	// Get current track
	track, err := music.NewLocalClient(remote).GetCurrentTrack(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}

	// If not playing, exit with code 1
	if track == nil || track.State != music.StatePlaying {
		os.Exit(1)
		return nil
	}

	// Format and print output
	output, err := formatTrack(track, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	// Apply width padding/marquee if requested
	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	marquee := cfg.MarqueeEnabled
	if cmd.Flags().Changed("marquee") {
		marquee, _ = cmd.Flags().GetBool("marquee")
	}

	if width > 0 {
		if marquee {
			output = marqueeText(output, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator, time.Now())
		} else {
			output = padToWidth(output, width)
		}
	}

	fmt.Println(output)
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(track *music.Track, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to exactly width display columns.
// Truncated text ends in "...". A width <= 0 leaves text unchanged.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	if runewidth.StringWidth(text) > width {
		if width <= len(ellipsis) {
			return ellipsis[:width]
		}
		text = runewidth.Truncate(text, width-len(ellipsis), "") + ellipsis
	}

	return runewidth.FillRight(text, width)
}

// marqueeText scrolls text that does not fit in width. The window position
// is derived from the wall clock, so repeated invocations (e.g. from a tmux
// status line) advance by speed characters per second without any state.
// Text that fits is padded like padToWidth.
func marqueeText(text string, width, speed int, separator string, now time.Time) string {
	if width <= 0 {
		return text
	}
	if runewidth.StringWidth(text) <= width {
		return padToWidth(text, width)
	}

	loop := []rune(text + separator)
	offset := int(now.Unix()*int64(speed)) % len(loop)
	if offset < 0 {
		offset += len(loop)
	}

	var b strings.Builder
	used := 0
	for i := 0; ; i++ {
		r := loop[(offset+i)%len(loop)]
		rw := runewidth.RuneWidth(r)
		if used+rw > width {
			break
		}
		b.WriteRune(r)
		used += rw
	}

	return runewidth.FillRight(b.String(), width)
}
