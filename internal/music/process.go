package music

import (
	"fmt"
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// Executable names of the desktop client and its local web helper across
// platforms, compared case-insensitively without an ".exe" suffix.
var (
	desktopProcessNames = []string{"spotify"}
	helperProcessNames  = []string{"spotifywebhelper"}
)

// listProcesses is swapped out in tests.
var listProcesses = ps.Processes

// IsProcessRunning reports whether a process with one of the given
// executable names is running.
func IsProcessRunning(names ...string) (bool, error) {
	procs, err := listProcesses()
	if err != nil {
		return false, fmt.Errorf("failed to list processes: %w", err)
	}

	for _, p := range procs {
		exe := normalizeProcessName(p.Executable())
		for _, name := range names {
			if exe == normalizeProcessName(name) {
				return true, nil
			}
		}
	}
	return false, nil
}

// DesktopRunning reports whether the Spotify desktop client is running.
func DesktopRunning() (bool, error) {
	return IsProcessRunning(desktopProcessNames...)
}

// HelperRunning reports whether the local web helper is running. Newer
// clients serve the endpoint from the main process, so callers usually
// check DesktopRunning as well.
func HelperRunning() (bool, error) {
	return IsProcessRunning(helperProcessNames...)
}

func normalizeProcessName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}
