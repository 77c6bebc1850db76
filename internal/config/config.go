package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks a missing or invalid setting. It is returned before
// any network call is attempted.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Graph   GraphConfig   `mapstructure:"graph" yaml:"graph"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Keyring KeyringConfig `mapstructure:"keyring" yaml:"keyring"`
}

type GraphConfig struct {
	TenantID          string        `mapstructure:"tenant_id" yaml:"tenant_id"`
	ClientID          string        `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret" yaml:"client_secret,omitempty"`
	Mailbox           string        `mapstructure:"mailbox" yaml:"mailbox"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Authority         string        `mapstructure:"authority" yaml:"authority"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`

	// SecretSource records where ClientSecret came from: env, config or keyring.
	SecretSource string `mapstructure:"-" yaml:"-"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// KeyringConfig selects the secret store backend: auto, keychain,
// secret-service, wincred or file.
type KeyringConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

func DefaultConfig() Config {
	return Config{
		Graph: GraphConfig{
			BaseURL:           "https://graph.microsoft.com/v1.0",
			Authority:         "login.microsoftonline.com",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             15,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Keyring: KeyringConfig{
			Backend: "auto",
		},
	}
}

func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GRAPHMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func Save(cfg Config) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := EnsureDir(); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}

func Redact(cfg Config) Config {
	masked := cfg
	if masked.Graph.ClientSecret != "" {
		masked.Graph.ClientSecret = "****"
	}
	return masked
}

// setDefaults registers every key so AutomaticEnv can override keys that are
// absent from the file.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("graph.tenant_id", cfg.Graph.TenantID)
	v.SetDefault("graph.client_id", cfg.Graph.ClientID)
	v.SetDefault("graph.client_secret", cfg.Graph.ClientSecret)
	v.SetDefault("graph.mailbox", cfg.Graph.Mailbox)
	v.SetDefault("graph.base_url", cfg.Graph.BaseURL)
	v.SetDefault("graph.authority", cfg.Graph.Authority)
	v.SetDefault("graph.timeout", cfg.Graph.Timeout)
	v.SetDefault("graph.requests_per_second", cfg.Graph.RequestsPerSecond)
	v.SetDefault("graph.burst", cfg.Graph.Burst)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("keyring.backend", cfg.Keyring.Backend)
}

// Validate checks the four settings every Graph call needs.
func Validate(cfg Config) error {
	if err := ValidateCredentials(cfg); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Graph.Mailbox) == "" {
		return fmt.Errorf("%w: graph.mailbox is required", ErrConfiguration)
	}
	return nil
}

func ValidateCredentials(cfg Config) error {
	if strings.TrimSpace(cfg.Graph.TenantID) == "" {
		return fmt.Errorf("%w: graph.tenant_id is required", ErrConfiguration)
	}
	if strings.TrimSpace(cfg.Graph.ClientID) == "" {
		return fmt.Errorf("%w: graph.client_id is required", ErrConfiguration)
	}
	if cfg.Graph.ClientSecret == "" {
		return fmt.Errorf("%w: graph.client_secret is required", ErrConfiguration)
	}
	return nil
}
