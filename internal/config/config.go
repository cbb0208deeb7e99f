// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/codebutton/codebutton/internal/cueutil"
	"github.com/codebutton/codebutton/internal/issue"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "codebutton"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. CODEBUTTON_TIMEOUT or
	// CODEBUTTON_UI_VERBOSE.
	EnvPrefix = "CODEBUTTON"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the configuration directory using platform conventions:
// %APPDATA% on Windows, ~/Library/Application Support on macOS and
// $XDG_CONFIG_HOME (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DefaultPath returns the path of the config file in ConfigDir.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions loads configuration without touching package-level state.
// The lookup order is: opts.ConfigFilePath exclusively when set, otherwise
// the config directory, then ./config.cue, then defaults only.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("modules_root", defaults.ModulesRoot)
	v.SetDefault("invocable_scripts_folder", defaults.InvocableScriptsFolder)
	v.SetDefault("invocable_scripts_directory", "")
	v.SetDefault("startup_script_path", defaults.StartupScriptPath)
	v.SetDefault("artifact_dir", defaults.ArtifactDir)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.render", defaults.UI.Render)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.polling_interval", defaults.Watch.PollingInterval)
	v.SetDefault("watch.force_polling", defaults.Watch.ForcePolling)

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestions(
					"Check that the file contains valid CUE syntax",
					"Verify the configuration values match the expected schema",
					"See 'codebutton config --help' for configuration options",
				).
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.source = resolvedPath
	cfg.migrateLegacy()

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Durations use Go syntax such as \"30s\" or \"1m30s\"").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, nil
}

// resolveConfigPath returns the config file to load, or "" when none exists.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestions(
					"Verify the file path is correct",
					"Use 'codebutton config show' to see the default configuration",
				).
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	for _, candidate := range []string{
		filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		ConfigFileName + "." + ConfigFileExt,
	} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// Viper, preserving defaults for omitted fields.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.DecodeMap(configSchema, data, "#Config", path)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to path unless a file
// already exists there. It reports whether a file was written.
func CreateDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := Save(DefaultConfig(), path); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes cfg to path as CUE, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg in the config file format. The legacy
// invocable_scripts_directory key is never written.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// codebutton configuration file\n\n")

	fmt.Fprintf(&sb, "modules_root: %q\n", cfg.ModulesRoot)
	fmt.Fprintf(&sb, "invocable_scripts_folder: %q\n", cfg.InvocableScriptsFolder)
	fmt.Fprintf(&sb, "startup_script_path: %q\n", cfg.StartupScriptPath)
	fmt.Fprintf(&sb, "artifact_dir: %q\n", cfg.ArtifactDir)
	fmt.Fprintf(&sb, "timeout: %q\n", cfg.Timeout)

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\trender: %q\n", cfg.UI.Render)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce)
	fmt.Fprintf(&sb, "\tpolling_interval: %q\n", cfg.Watch.PollingInterval)
	fmt.Fprintf(&sb, "\tforce_polling: %v\n", cfg.Watch.ForcePolling)
	sb.WriteString("}\n")

	return sb.String()
}
