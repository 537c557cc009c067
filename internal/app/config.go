package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/pandal-client/internal/session"
	"github.com/florianilch/pandal-client/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogExporter selects where log records go.
type LogExporter string

const (
	LogExporterStderr   LogExporter = "stderr"
	LogExporterStdout   LogExporter = "stdout"
	LogExporterOTLPHTTP LogExporter = "otlp-http"
	LogExporterOTLPGRPC LogExporter = "otlp-grpc"
)

// TokenStorageType represents the different storage types supported for stored tokens.
type TokenStorageType string

const (
	TokenStorageTypeKeyring TokenStorageType = "keyring"
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeMemory  TokenStorageType = "memory"
)

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigLogExporter     = LogExporterStderr
	DefaultConfigAPIBaseURL      = "http://localhost:8080/api/v1"
	DefaultConfigAPITimeout      = 10 * time.Second
	DefaultConfigStorageBackend  = TokenStorageTypeKeyring
	DefaultConfigKeyringService  = "pandal-client"
	DefaultConfigEnvPrefix       = "PANDAL_"
	DefaultConfigRefreshMode     = session.RefreshCoalesced
	DefaultConfigRefreshTimeout  = 10 * time.Second
	defaultConfigStorageFileName = "tokens.json"
)

// APIConfig holds API endpoint configuration.
type APIConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
	// Timeout bounds one call, including a token refresh and replay.
	Timeout time.Duration `json:"timeout" validate:"gte=0"`
}

// StorageConfig describes how to construct the TokenStore.
type StorageConfig struct {
	Backend TokenStorageType `json:"backend" validate:"required,oneof=keyring file env memory"`

	// Backend-specific settings
	File           string `json:"file,omitempty"`            // For file storage: path to token file
	KeyringService string `json:"keyring_service,omitempty"` // For keyring storage: service name
	EnvPrefix      string `json:"env_prefix,omitempty"`      // For env storage: variable prefix
}

// NewTokenStore creates a TokenStore from the storage configuration.
func (s *StorageConfig) NewTokenStore() (tokenstore.TokenStore, error) {
	switch s.Backend {
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyringStore(s.KeyringService)
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(s.File)
	case TokenStorageTypeEnv:
		return tokenstore.NewEnvStore(s.EnvPrefix)
	case TokenStorageTypeMemory:
		return tokenstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", s.Backend)
	}
}

// RefreshConfig holds token refresh behavior.
type RefreshConfig struct {
	Mode    session.RefreshMode `json:"mode" validate:"required,oneof=coalesced independent"`
	Timeout time.Duration       `json:"timeout" validate:"gte=0"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel    slog.Level    `json:"log_level"`
	LogFormat   LogFormat     `json:"log_format" validate:"oneof=text json"`
	LogExporter LogExporter   `json:"log_exporter" validate:"oneof=stderr stdout otlp-http otlp-grpc"`
	API         APIConfig     `json:"api"`
	Storage     StorageConfig `json:"storage"`
	Refresh     RefreshConfig `json:"refresh"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.LogExporter == "" {
		c.LogExporter = DefaultConfigLogExporter
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultConfigAPITimeout
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultConfigStorageBackend
	}
	if c.Refresh.Mode == "" {
		c.Refresh.Mode = DefaultConfigRefreshMode
	}
	if c.Refresh.Timeout == 0 {
		c.Refresh.Timeout = DefaultConfigRefreshTimeout
	}

	// Dynamic defaults based on storage type
	switch c.Storage.Backend {
	case TokenStorageTypeFile:
		if c.Storage.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("storage.file required (auto-detect failed: %w)", err)
			}
			c.Storage.File = filepath.Join(configDir, "pandal-client", defaultConfigStorageFileName)
		}
	case TokenStorageTypeKeyring:
		if c.Storage.KeyringService == "" {
			c.Storage.KeyringService = DefaultConfigKeyringService
		}
	case TokenStorageTypeEnv:
		if c.Storage.EnvPrefix == "" {
			c.Storage.EnvPrefix = DefaultConfigEnvPrefix
		}
	case TokenStorageTypeMemory:
		// nothing to configure
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case TokenStorageTypeFile:
		if c.Storage.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeKeyring:
		if c.Storage.KeyringService == "" {
			return errors.New("keyring_service required for keyring storage")
		}
	case TokenStorageTypeEnv:
		if c.Storage.EnvPrefix == "" {
			return errors.New("env_prefix required for env storage")
		}
	}

	return nil
}
