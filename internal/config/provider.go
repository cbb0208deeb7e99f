// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider reading CUE files.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source. A configuration that
// migrated legacy settings is written back to its source file; failing to
// do so is not an error, the migrated values are used either way.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	if cfg.ShouldSaveAfterLoad() && cfg.Source() != "" {
		if err := Save(cfg, cfg.Source()); err == nil {
			cfg.shouldSaveAfterLoad = false
		}
	}

	return cfg, nil
}
