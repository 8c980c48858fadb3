package daemon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// ServiceLabel identifies the background watcher to launchd and systemd.
const ServiceLabel = "com.spotilocal.watch"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinaryPath}}</string>
{{- range .Args}}
		<string>{{.}}</string>
{{- end}}
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.LogPath}}/spotilocal.log</string>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}/spotilocal.err</string>
	<key>WorkingDirectory</key>
	<string>{{.WorkingDirectory}}</string>
</dict>
</plist>
`

const unitTemplate = `[Unit]
Description=spotilocal playback watcher
After=graphical-session.target

[Service]
ExecStart={{.BinaryPath}}{{range .Args}} {{.}}{{end}}
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
RestartSec=5
StandardOutput=append:{{.LogPath}}/spotilocal.log
StandardError=append:{{.LogPath}}/spotilocal.err

[Install]
WantedBy=default.target
`

// ServiceConfig holds the values substituted into a service definition
type ServiceConfig struct {
	Label            string   // Defaults to ServiceLabel
	BinaryPath       string   // Absolute path of the spotilocal binary
	Args             []string // Defaults to ["watch"]
	LogPath          string   // Directory for stdout/stderr logs
	WorkingDirectory string
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.Label == "" {
		c.Label = ServiceLabel
	}
	if len(c.Args) == 0 {
		c.Args = []string{"watch"}
	}
	return c
}

// GeneratePlist generates a launchd plist that runs the watcher at login
func GeneratePlist(config ServiceConfig) (string, error) {
	return render("plist", plistTemplate, config.withDefaults())
}

// GenerateUnit generates a systemd user unit that runs the watcher
func GenerateUnit(config ServiceConfig) (string, error) {
	return render("unit", unitTemplate, config.withDefaults())
}

func render(name, text string, config ServiceConfig) (string, error) {
	if config.BinaryPath == "" {
		return "", fmt.Errorf("failed to render %s: binary path is required", name)
	}

	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}

	return buf.String(), nil
}

// GetPlistPath returns the path where the plist should be installed
func GetPlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, "Library", "LaunchAgents", ServiceLabel+".plist"), nil
}

// GetUnitPath returns the path where the systemd user unit should be installed
func GetUnitPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	return filepath.Join(dir, "systemd", "user", "spotilocal.service"), nil
}

// GetDefaultLogPath returns the default path for daemon logs
func GetDefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "spotilocal", "logs"), nil
}
