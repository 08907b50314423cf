package fileloader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ahrav/prover-cli/internal/config"
)

// databaseURLEnv is the conventional connection string variable, honored
// when no prefixed override is set.
const databaseURLEnv = "DATABASE_URL"

// FileLoader loads configuration from an optional YAML file on disk, layered
// over defaults and under environment overrides.
type FileLoader struct {
	// path is the filesystem path to the configuration file. Empty means
	// defaults and environment only.
	path string
	// overrides run after the file and environment are merged and before
	// validation, so a flag can replace an otherwise invalid value.
	overrides []func(*config.Config)
}

// Option configures a FileLoader.
type Option func(*FileLoader)

// WithOverride registers a function that adjusts the merged configuration
// before it is validated.
func WithOverride(fn func(*config.Config)) Option {
	return func(l *FileLoader) { l.overrides = append(l.overrides, fn) }
}

// NewFileLoader creates a new FileLoader that will load configuration from the
// specified file path.
func NewFileLoader(path string, opts ...Option) *FileLoader {
	l := &FileLoader{path: path}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ config.Loader = (*FileLoader)(nil)

// Load reads the configuration file, if any, applies environment and
// registered overrides, then validates the result once.
func (l *FileLoader) Load(ctx context.Context) (*config.Config, error) {
	v := config.NewViper()

	if l.path != "" {
		v.SetConfigFile(l.path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.path, err)
		}
	}

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Fallback env alias for the connection string.
	if _, ok := os.LookupEnv(config.EnvPrefix + "_DATABASE_URL"); !ok {
		if url := strings.TrimSpace(os.Getenv(databaseURLEnv)); url != "" {
			cfg.Database.URL = url
		}
	}

	for _, override := range l.overrides {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
