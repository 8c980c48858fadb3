package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jfmyers9/spotilocal/internal/config"
	"github.com/jfmyers9/spotilocal/internal/daemon"
	"github.com/spf13/cobra"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the watcher as a login service",
	Long: `Install 'spotilocal watch' as a service that starts automatically on login.

On macOS this generates a launchd plist in ~/Library/LaunchAgents/ and loads
it with launchctl. Elsewhere it writes a systemd user unit and enables it
with systemctl --user.

A default config file is written to ~/.config/spotilocal/config.yaml when
none exists yet.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	binaryPath, err = filepath.EvalSymlinks(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	logPath, err := daemon.GetDefaultLogPath()
	if err != nil {
		return fmt.Errorf("failed to get log path: %w", err)
	}
	if err := os.MkdirAll(logPath, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if err := ensureConfig(); err != nil {
		return err
	}

	svc := daemon.ServiceConfig{
		BinaryPath:       binaryPath,
		LogPath:          logPath,
		WorkingDirectory: home,
	}

	if runtime.GOOS == "darwin" {
		err = installLaunchd(svc)
	} else {
		err = installSystemd(svc)
	}
	if err != nil {
		return err
	}

	fmt.Printf("✓ Logs will be written to %s\n", logPath)
	fmt.Println("\nThe spotilocal watcher is now running and will start automatically on login.")
	fmt.Println("\nTo uninstall, run:")
	fmt.Println("  spotilocal uninstall")
	return nil
}

// ensureConfig writes the defaults to the config directory unless a config
// file is already in use.
func ensureConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.File() != "" {
		return nil
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote default config to %s\n", filepath.Join(config.GetConfigDir(), "config.yaml"))
	return nil
}

func installLaunchd(svc daemon.ServiceConfig) error {
	plistContent, err := daemon.GeneratePlist(svc)
	if err != nil {
		return fmt.Errorf("failed to generate plist: %w", err)
	}

	plistPath, err := daemon.GetPlistPath()
	if err != nil {
		return fmt.Errorf("failed to get plist path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}

	if _, err := os.Stat(plistPath); err == nil {
		fmt.Println("Watcher is already installed. Reinstalling...")
		unloadLaunchd()
	}

	if err := os.WriteFile(plistPath, []byte(plistContent), 0644); err != nil {
		return fmt.Errorf("failed to write plist file: %w", err)
	}
	fmt.Printf("✓ Installed plist to %s\n", plistPath)

	out, err := exec.Command("launchctl", "bootstrap", launchdDomain(), plistPath).CombinedOutput()
	if err != nil {
		return fmt.Errorf("launchctl bootstrap failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	fmt.Println("✓ Watcher loaded and started")
	return nil
}

func installSystemd(svc daemon.ServiceConfig) error {
	unit, err := daemon.GenerateUnit(svc)
	if err != nil {
		return fmt.Errorf("failed to generate unit: %w", err)
	}

	unitPath, err := daemon.GetUnitPath()
	if err != nil {
		return fmt.Errorf("failed to get unit path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("failed to create systemd user directory: %w", err)
	}

	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	fmt.Printf("✓ Installed unit to %s\n", unitPath)

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	if err := systemctl("enable", "--now", filepath.Base(unitPath)); err != nil {
		return err
	}
	fmt.Println("✓ Watcher enabled and started")
	return nil
}

func launchdDomain() string {
	return fmt.Sprintf("gui/%d", os.Getuid())
}

// unloadLaunchd boots the agent out. Failures are reported but not fatal;
// the agent may simply not be loaded.
func unloadLaunchd() {
	service := fmt.Sprintf("%s/%s", launchdDomain(), daemon.ServiceLabel)
	out, err := exec.Command("launchctl", "bootout", service).CombinedOutput()
	if err != nil && len(out) > 0 {
		fmt.Printf("Warning: %s\n", strings.TrimSpace(string(out)))
	}
}

func systemctl(args ...string) error {
	args = append([]string{"--user"}, args...)
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s failed: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}
