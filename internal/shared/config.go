package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Session     SessionConfig     `toml:"session"`
	Gateway     GatewayConfig     `toml:"gateway"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
}

// ServerConfig contains the OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig locates the credential and device-cache database.
//
// An empty Dir resolves to the per-user configuration directory.
type StorageConfig struct {
	Dir      string `toml:"dir"`
	Database string `toml:"database"`
	LogFile  string `toml:"log_file"`
}

// SessionConfig holds the live-session timings. Durations are in milliseconds.
type SessionConfig struct {
	TickMs          int `toml:"tick_ms"`
	StaleAfterMs    int `toml:"stale_after_ms"`
	SettleDelayMs   int `toml:"settle_delay_ms"`
	MinRenderMs     int `toml:"min_render_ms"`
	ExpiryMarginSec int `toml:"expiry_margin_sec"`
	QueueLength     int `toml:"queue_length"`
}

// GatewayConfig contains Spotify endpoint and client behaviour settings.
type GatewayConfig struct {
	APIBaseURL        string  `toml:"api_base_url"`
	AuthURL           string  `toml:"auth_url"`
	TokenURL          string  `toml:"token_url"`
	MaxRetries        int     `toml:"max_retries"`
	RetryBackoffMs    int     `toml:"retry_backoff_ms"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutMs         int     `toml:"timeout_ms"`
}

func (s SessionConfig) Tick() time.Duration         { return ms(s.TickMs) }
func (s SessionConfig) StaleAfter() time.Duration   { return ms(s.StaleAfterMs) }
func (s SessionConfig) SettleDelay() time.Duration  { return ms(s.SettleDelayMs) }
func (s SessionConfig) MinRender() time.Duration    { return ms(s.MinRenderMs) }
func (s SessionConfig) ExpiryMargin() time.Duration { return time.Duration(s.ExpiryMarginSec) * time.Second }

func (g GatewayConfig) RetryBackoff() time.Duration { return ms(g.RetryBackoffMs) }
func (g GatewayConfig) Timeout() time.Duration      { return ms(g.TimeoutMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// StorageDir resolves the directory holding persisted state.
func (c *Config) StorageDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, "spotx"), nil
}

// DatabasePath returns the sqlite file path, creating the storage directory if needed.
func (c *Config) DatabasePath() (string, error) {
	dir, err := c.StorageDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: failed to create storage directory: %v", ErrStorage, err)
	}
	name := c.Storage.Database
	if name == "" {
		name = "spotx.db"
	}
	return filepath.Join(dir, name), nil
}

// LogPath returns the file the session view logs to.
func (c *Config) LogPath() (string, error) {
	if c.Storage.LogFile != "" {
		return c.Storage.LogFile, nil
	}
	dir, err := c.StorageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "spotx.log"), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
