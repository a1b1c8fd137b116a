// Package config loads sampic configuration from a .env file, SAMPIC_*
// environment variables and the user's config.yaml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	appName    = "sampic"
	envPrefix  = "SAMPIC"
	configName = "config"
	configType = "yaml"
)

// ErrInvalidKey is returned when setting a key that does not exist.
var ErrInvalidKey = errors.New("invalid configuration key")

// ErrAPIKeyNotDefined is returned when object storage needs an access key and none is set.
var ErrAPIKeyNotDefined = errors.New("api_key is not defined")

// ErrAPISecretKeyNotDefined is returned when object storage needs a secret key and none is set.
var ErrAPISecretKeyNotDefined = errors.New("api_secret_key is not defined")

// Config holds all runtime configuration. A loaded Config is never mutated;
// backends keep their own copy.
type Config struct {
	// Object storage (any S3-compatible provider)
	APIKey       string `mapstructure:"api_key"`
	APISecretKey string `mapstructure:"api_secret_key"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"` // e.g. "https://s3.fr-par.scw.cloud"
	Bucket       string `mapstructure:"bucket"`

	LocalPath      string `mapstructure:"local_path"`      // directory for local captures
	SampicEndpoint string `mapstructure:"sampic_endpoint"` // relay upload URL

	// Upload server
	Port        string `mapstructure:"port"`
	AppEnv      string `mapstructure:"app_env"`
	UploadLimit int64  `mapstructure:"upload_limit"` // bytes
	DatabaseURL string `mapstructure:"database_url"` // empty disables the object catalog
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"api_key",
	"api_secret_key",
	"region",
	"endpoint",
	"bucket",
	"local_path",
	"sampic_endpoint",
	"port",
	"app_env",
	"upload_limit",
	"database_url",
}

var defaults = map[string]any{
	"api_key":         "",
	"api_secret_key":  "",
	"region":          "fr-par",
	"endpoint":        "https://s3.fr-par.scw.cloud",
	"bucket":          "sampic-store",
	"local_path":      "/tmp/",
	"sampic_endpoint": "https://sampic.xyz/upload",
	"port":            "8000",
	"app_env":         "development",
	"upload_limit":    int64(50 << 20),
	"database_url":    "",
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *Config {
	return &Config{
		Region:         defaults["region"].(string),
		Endpoint:       defaults["endpoint"].(string),
		Bucket:         defaults["bucket"].(string),
		LocalPath:      defaults["local_path"].(string),
		SampicEndpoint: defaults["sampic_endpoint"].(string),
		Port:           defaults["port"].(string),
		AppEnv:         defaults["app_env"].(string),
		UploadLimit:    defaults["upload_limit"].(int64),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RequireCredentials checks that both object storage keys are set.
func (c *Config) RequireCredentials() error {
	if c.APIKey == "" {
		return ErrAPIKeyNotDefined
	}
	if c.APISecretKey == "" {
		return ErrAPISecretKeyNotDefined
	}
	return nil
}

// Store reads and writes the config file on a filesystem.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a Store whose config.yaml lives in dir on fs.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// DefaultStore returns the Store for the user's config directory.
func DefaultStore() *Store {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return NewStore(afero.NewOsFs(), filepath.Join(dir, appName))
}

// Path returns the location of the config file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, configName+"."+configType)
}

// Load reads configuration from a .env file (if present), the config file (if
// present) and SAMPIC_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, reading from environment")
	}
	return DefaultStore().Load()
}

// Load reads the config file and environment on top of the defaults.
func (s *Store) Load() (*Config, error) {
	v, err := s.viper()
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Set validates key and persists value to the config file.
func (s *Store) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	// Only the file's own contents are written back: no defaults, no environment.
	v, err := s.fileViper()
	if err != nil {
		return err
	}
	v.Set(key, value)

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := v.WriteConfigAs(s.Path()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Entry is one key and its effective value.
type Entry struct {
	Key   string
	Value string
}

// Entries returns the effective value of every key in Keys order.
func (s *Store) Entries() ([]Entry, error) {
	v, err := s.viper()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(Keys))
	for _, k := range Keys {
		entries = append(entries, Entry{Key: k, Value: v.GetString(k)})
	}
	return entries, nil
}

// List renders every key as a "key=value" line.
func (s *Store) List() (string, error) {
	entries, err := s.Entries()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s=%s\n", e.Key, e.Value)
	}
	return b.String(), nil
}

// viper returns the effective settings: defaults, then the file, then SAMPIC_* variables.
func (s *Store) viper() (*viper.Viper, error) {
	v, err := s.fileViper()
	if err != nil {
		return nil, err
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v, nil
}

// fileViper holds only what config.yaml contains.
func (s *Store) fileViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetFs(s.fs)
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(s.dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", s.Path(), err)
		}
	}
	return v, nil
}
