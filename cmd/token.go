package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jfmyers9/spotilocal/internal/config"
	"github.com/spf13/cobra"
)

var tokenJSON bool

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Bootstrap a session and print its tokens",
	Long: `Bootstrap a session with the Spotify desktop client and print the
credentials every request carries.

The OAuth token comes from the public token endpoint (or oauth_token in the
config), the CSRF token from the local endpoint. This is useful to check
that the desktop client is reachable, or to reuse the tokens with curl.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().BoolVar(&tokenJSON, "json", false, "Print the session as JSON")
}

type tokenOutput struct {
	Host          string `json:"host"`
	OAuthToken    string `json:"oauth_token"`
	CSRFToken     string `json:"csrf_token"`
	Version       string `json:"version,omitempty"`
	ClientVersion string `json:"client_version,omitempty"`
	Running       bool   `json:"running"`
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(logFile, logLevel)

	// Create music client
	client, err := newClient(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	session := client.Session()
	out := tokenOutput{
		Host:          session.Host,
		OAuthToken:    session.OAuthToken,
		CSRFToken:     session.CSRFToken,
		Version:       session.Version,
		ClientVersion: session.ClientVersion,
		Running:       session.Running,
	}

	if tokenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		return nil
	}

	fmt.Printf("Host:           %s\n", out.Host)
	fmt.Printf("OAuth token:    %s\n", out.OAuthToken)
	fmt.Printf("CSRF token:     %s\n", out.CSRFToken)
	if out.ClientVersion != "" {
		fmt.Printf("Client version: %s\n", out.ClientVersion)
	}
	fmt.Printf("Running:        %t\n", out.Running)
	return nil
}
