package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jfmyers9/spotilocal/internal/daemon"
	"github.com/spf13/cobra"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the watcher login service",
	Long: `Stop the watcher and remove the service installed by 'spotilocal install'.

The config file and logs are left in place.`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	var (
		path string
		err  error
	)
	if runtime.GOOS == "darwin" {
		path, err = daemon.GetPlistPath()
	} else {
		path, err = daemon.GetUnitPath()
	}
	if err != nil {
		return fmt.Errorf("failed to get service path: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("Watcher is not installed")
		return nil
	}

	fmt.Println("Stopping watcher...")
	if runtime.GOOS == "darwin" {
		unloadLaunchd()
	} else if err := systemctl("disable", "--now", filepath.Base(path)); err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("Continuing with service file removal...")
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove service file: %w", err)
	}
	fmt.Printf("✓ Removed %s\n", path)

	if runtime.GOOS != "darwin" {
		if err := systemctl("daemon-reload"); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}

	fmt.Println("\nThe spotilocal watcher has been uninstalled.")
	return nil
}
