package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// SPOTILOCAL_POLL_INTERVAL=2s or SPOTILOCAL_NOTIFY_ENABLED=true.
const EnvPrefix = "SPOTILOCAL"

// Config holds application configuration
type Config struct {
	// Local endpoint
	Host              string // Default: localhost.spotilocal.com
	Port              int    // Default: 4371
	TokenURL          string // Public OAuth token endpoint
	OAuthToken        string // Optional: preset OAuth token, skips the token endpoint
	TrustLoopbackCert bool   // Skip certificate verification for loopback hosts

	// Poller
	PollInterval time.Duration // Default: 1s
	FetchTimeout time.Duration // Default: 5s
	MaxBackoff   time.Duration // Default: 0 (constant interval)

	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Name}}"
	OutputFormat     string
	OutputWidth      int    // Fixed output width (0 = disabled)
	MarqueeEnabled   bool   // Scroll text longer than OutputWidth
	MarqueeSpeed     int    // Characters per second
	MarqueeSeparator string // Placed between repetitions while scrolling

	Notify  NotifyConfig
	Serve   ServeConfig
	Discord DiscordConfig

	v *viper.Viper
}

// NotifyConfig holds desktop notification settings
type NotifyConfig struct {
	Enabled   bool
	PlayState bool // Also notify on pause/resume
}

// DiscordConfig holds Discord Rich Presence settings
type DiscordConfig struct {
	Enabled bool
	AppID   string // Required: Discord application that owns the presence
}

// ServeConfig holds websocket server settings
type ServeConfig struct {
	Addr    string   // Listen address, default 127.0.0.1:4380
	Origins []string // Allowed Origin headers ("*" for any)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost.spotilocal.com")
	v.SetDefault("port", 4371)
	v.SetDefault("token_url", "https://open.spotify.com/token")
	v.SetDefault("oauth_token", "")
	v.SetDefault("trust_loopback_cert", false)
	v.SetDefault("poll_interval", time.Second)
	v.SetDefault("fetch_timeout", 5*time.Second)
	v.SetDefault("max_backoff", time.Duration(0))
	v.SetDefault("output_format", "{{.Artist}} - {{.Name}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", " • ")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.play_state", false)
	v.SetDefault("serve.addr", "127.0.0.1:4380")
	v.SetDefault("serve.origins", []string{})
	v.SetDefault("discord.enabled", false)
	v.SetDefault("discord.app_id", "")
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	return LoadFrom(getConfigDir())
}

// LoadFrom reads configuration from dir/config.yaml, a .env file in the
// working directory or dir, and the environment. Missing files are fine.
func LoadFrom(dir string) (*Config, error) {
	if err := loadDotEnv(".env", filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	setDefaults(v)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v), nil
}

// loadDotEnv loads the first .env file that exists. Variables already set
// in the environment win.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Host:              v.GetString("host"),
		Port:              v.GetInt("port"),
		TokenURL:          v.GetString("token_url"),
		OAuthToken:        v.GetString("oauth_token"),
		TrustLoopbackCert: v.GetBool("trust_loopback_cert"),
		PollInterval:      v.GetDuration("poll_interval"),
		FetchTimeout:      v.GetDuration("fetch_timeout"),
		MaxBackoff:        v.GetDuration("max_backoff"),
		OutputFormat:      v.GetString("output_format"),
		OutputWidth:       v.GetInt("output_width"),
		MarqueeEnabled:    v.GetBool("marquee_enabled"),
		MarqueeSpeed:      v.GetInt("marquee_speed"),
		MarqueeSeparator:  v.GetString("marquee_separator"),
		Notify: NotifyConfig{
			Enabled:   v.GetBool("notify.enabled"),
			PlayState: v.GetBool("notify.play_state"),
		},
		Serve: ServeConfig{
			Addr:    v.GetString("serve.addr"),
			Origins: v.GetStringSlice("serve.origins"),
		},
		Discord: DiscordConfig{
			Enabled: v.GetBool("discord.enabled"),
			AppID:   v.GetString("discord.app_id"),
		},
		v: v,
	}
}

// File returns the config file in use, or "" when running on defaults.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch calls onChange with the reloaded configuration whenever the config
// file is written. It is a no-op when no config file was found.
func (c *Config) Watch(onChange func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}

	var mu sync.Mutex
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onChange(fromViper(c.v))
	})
	c.v.WatchConfig()
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "spotilocal")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// SaveTo writes the connection settings to dir/config.yaml.
func (c *Config) SaveTo(dir string) error {
	v := viper.New()

	v.Set("host", c.Host)
	v.Set("port", c.Port)
	v.Set("token_url", c.TokenURL)
	v.Set("trust_loopback_cert", c.TrustLoopbackCert)
	v.Set("poll_interval", c.PollInterval.String())
	v.Set("fetch_timeout", c.FetchTimeout.String())
	v.Set("max_backoff", c.MaxBackoff.String())
	v.Set("output_format", c.OutputFormat)
	v.Set("notify.enabled", c.Notify.Enabled)
	v.Set("notify.play_state", c.Notify.PlayState)
	v.Set("serve.addr", c.Serve.Addr)
	v.Set("discord.enabled", c.Discord.Enabled)
	v.Set("discord.app_id", c.Discord.AppID)

	if err := v.WriteConfigAs(filepath.Join(dir, "config.yaml")); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Save writes configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(getConfigDir())
}
