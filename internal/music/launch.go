package music

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrLaunchUnsupported is returned when there is no known way to start a
// program on this platform.
var ErrLaunchUnsupported = errors.New("launching is not supported on this platform")

// Swapped out in tests.
var (
	goos         = runtime.GOOS
	startCommand = startDetached
)

// LaunchDesktop starts the Spotify desktop client unless it is already
// running. It reports whether a process was started.
func LaunchDesktop() (bool, error) {
	running, err := DesktopRunning()
	if err != nil {
		return false, err
	}
	if running {
		return false, nil
	}

	var name string
	var args []string
	switch goos {
	case "darwin":
		name, args = "open", []string{"-a", "Spotify"}
	case "windows":
		dir, err := appDataDir()
		if err != nil {
			return false, err
		}
		name = filepath.Join(dir, "Spotify", "Spotify.exe")
	default:
		name = "spotify"
	}

	if err := startCommand(name, args...); err != nil {
		return false, fmt.Errorf("failed to start Spotify: %w", err)
	}
	return true, nil
}

// LaunchHelper starts the local web helper unless it is already running.
// Only Windows installs ship it as a separate program; elsewhere it returns
// ErrLaunchUnsupported.
func LaunchHelper() (bool, error) {
	if goos != "windows" {
		return false, ErrLaunchUnsupported
	}

	running, err := HelperRunning()
	if err != nil {
		return false, err
	}
	if running {
		return false, nil
	}

	dir, err := appDataDir()
	if err != nil {
		return false, err
	}
	if err := startCommand(filepath.Join(dir, "Spotify", "Data", "SpotifyWebHelper.exe")); err != nil {
		return false, fmt.Errorf("failed to start web helper: %w", err)
	}
	return true, nil
}

func appDataDir() (string, error) {
	dir := os.Getenv("APPDATA")
	if dir == "" {
		return "", errors.New("APPDATA is not set")
	}
	return dir, nil
}

// startDetached starts name without waiting for it to exit. The process is
// reaped in the background.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
