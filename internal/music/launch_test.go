package music

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type startCall struct {
	name string
	args []string
}

func withLauncher(t *testing.T, platform string, err error) *[]startCall {
	t.Helper()
	origGOOS, origStart := goos, startCommand
	t.Cleanup(func() { goos, startCommand = origGOOS, origStart })

	var calls []startCall
	goos = platform
	startCommand = func(name string, args ...string) error {
		calls = append(calls, startCall{name: name, args: args})
		return err
	}
	return &calls
}

func TestLaunchDesktop(t *testing.T) {
	tests := []struct {
		name     string
		platform string
		expected startCall
	}{
		{name: "macos", platform: "darwin", expected: startCall{name: "open", args: []string{"-a", "Spotify"}}},
		{name: "linux", platform: "linux", expected: startCall{name: "spotify"}},
		{name: "windows", platform: "windows", expected: startCall{name: filepath.Join(`C:\Users\me\AppData\Roaming`, "Spotify", "Spotify.exe")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APPDATA", `C:\Users\me\AppData\Roaming`)
			withProcesses(t, []string{"bash"}, nil)
			calls := withLauncher(t, tt.platform, nil)

			started, err := LaunchDesktop()
			require.NoError(t, err)
			assert.True(t, started)
			require.Len(t, *calls, 1)
			assert.Equal(t, tt.expected.name, (*calls)[0].name)
			assert.Equal(t, tt.expected.args, (*calls)[0].args)
		})
	}
}

func TestLaunchDesktop_AlreadyRunning(t *testing.T) {
	withProcesses(t, []string{"Spotify"}, nil)
	calls := withLauncher(t, "darwin", nil)

	started, err := LaunchDesktop()
	require.NoError(t, err)
	assert.False(t, started)
	assert.Empty(t, *calls)
}

func TestLaunchDesktop_Errors(t *testing.T) {
	t.Run("process listing fails", func(t *testing.T) {
		withProcesses(t, nil, errors.New("permission denied"))
		calls := withLauncher(t, "linux", nil)

		_, err := LaunchDesktop()
		assert.Error(t, err)
		assert.Empty(t, *calls)
	})

	t.Run("start fails", func(t *testing.T) {
		withProcesses(t, nil, nil)
		withLauncher(t, "linux", errors.New("executable file not found"))

		started, err := LaunchDesktop()
		assert.Error(t, err)
		assert.False(t, started)
	})

	t.Run("windows without APPDATA", func(t *testing.T) {
		t.Setenv("APPDATA", "")
		withProcesses(t, nil, nil)
		calls := withLauncher(t, "windows", nil)

		_, err := LaunchDesktop()
		assert.Error(t, err)
		assert.Empty(t, *calls)
	})
}

func TestLaunchHelper(t *testing.T) {
	t.Run("windows starts the helper", func(t *testing.T) {
		t.Setenv("APPDATA", `C:\AppData`)
		// The desktop client running must not stop the helper launch.
		withProcesses(t, []string{"Spotify.exe"}, nil)
		calls := withLauncher(t, "windows", nil)

		started, err := LaunchHelper()
		require.NoError(t, err)
		assert.True(t, started)
		require.Len(t, *calls, 1)
		assert.Equal(t, filepath.Join(`C:\AppData`, "Spotify", "Data", "SpotifyWebHelper.exe"), (*calls)[0].name)
	})

	t.Run("windows helper already running", func(t *testing.T) {
		withProcesses(t, []string{"SpotifyWebHelper.exe"}, nil)
		calls := withLauncher(t, "windows", nil)

		started, err := LaunchHelper()
		require.NoError(t, err)
		assert.False(t, started)
		assert.Empty(t, *calls)
	})

	t.Run("other platforms", func(t *testing.T) {
		calls := withLauncher(t, "linux", nil)

		_, err := LaunchHelper()
		assert.ErrorIs(t, err, ErrLaunchUnsupported)
		assert.Empty(t, *calls)
	})
}
