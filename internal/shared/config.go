package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Drive   DriveConfig   `toml:"drive"`
	Storage StorageConfig `toml:"storage"`
	Library LibraryConfig `toml:"library"`
	Bucket  BucketConfig  `toml:"bucket"`
	Player  PlayerConfig  `toml:"player"`
	Log     LogConfig     `toml:"log"`
}

// DriveConfig contains Google Drive OAuth client settings.
type DriveConfig struct {
	ClientID     string `toml:"client_id"`
	AllowedEmail string `toml:"allowed_email"`
	RedirectAddr string `toml:"redirect_addr"`
}

// StorageConfig selects and configures the durable key-value store.
type StorageConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	RedisAddr    string `toml:"redis_addr"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LibraryConfig selects the remote library source.
type LibraryConfig struct {
	Source string `toml:"source"`
}

// BucketConfig contains S3-compatible bucket settings.
type BucketConfig struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// PlayerConfig contains playback and visualizer settings.
type PlayerConfig struct {
	Volume          float64 `toml:"volume"`
	FFTSize         int     `toml:"fft_size"`
	ExpandedFFTSize int     `toml:"expanded_fft_size"`
	FPS             int     `toml:"fps"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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
		return fmt.Errorf("config file already exists at %s: %w", path, os.ErrExist)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets and identity settings from the environment.
//
// Values usually come from a .env file loaded at startup.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("NOVA_CLIENT_ID"); v != "" {
		c.Drive.ClientID = v
	}
	if v := getenv("NOVA_ALLOWED_EMAIL"); v != "" {
		c.Drive.AllowedEmail = v
	}
	if v := getenv("NOVA_BUCKET_ACCESS_KEY"); v != "" {
		c.Bucket.AccessKey = v
	}
	if v := getenv("NOVA_BUCKET_SECRET_KEY"); v != "" {
		c.Bucket.SecretKey = v
	}
}
