// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// RenderAuto renders Markdown on a terminal and plain text otherwise.
	RenderAuto RenderMode = "auto"
	// RenderMarkdown always renders the document view through glamour.
	RenderMarkdown RenderMode = "markdown"
	// RenderPlain always prints the annotated document text.
	RenderPlain RenderMode = "plain"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidRenderMode is returned when a RenderMode value is not recognized.
	ErrInvalidRenderMode = errors.New("invalid render mode")
	// ErrInvalidDuration is the sentinel error wrapped by InvalidDurationError.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// RenderMode selects how documents are printed after a run.
	RenderMode string

	// InvalidRenderModeError is returned when a RenderMode value is not recognized.
	InvalidRenderModeError struct {
		Value RenderMode
	}

	// Duration is a Go duration string such as "30s" or "1m30s".
	Duration string

	// InvalidDurationError is returned when a Duration does not parse or is
	// negative.
	InvalidDurationError struct {
		Field string
		Value Duration
		Err   error
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ModulesRoot is the base that InvocableScriptsFolder and
		// StartupScriptPath resolve against.
		ModulesRoot string `json:"modules_root" mapstructure:"modules_root"`
		// InvocableScriptsFolder is searched by require() for bare module names.
		InvocableScriptsFolder string `json:"invocable_scripts_folder" mapstructure:"invocable_scripts_folder"`
		// InvocableScriptsDirectory is the legacy name of InvocableScriptsFolder.
		// It is migrated on load and never written back.
		InvocableScriptsDirectory string `json:"invocable_scripts_directory,omitempty" mapstructure:"invocable_scripts_directory"`
		// StartupScriptPath names a script run once before the first pass.
		StartupScriptPath string `json:"startup_script_path" mapstructure:"startup_script_path"`
		// ArtifactDir overrides where artifacts are written; empty means next
		// to the document.
		ArtifactDir string `json:"artifact_dir" mapstructure:"artifact_dir"`
		// Timeout bounds each block run; "0s" disables the deadline.
		Timeout Duration `json:"timeout" mapstructure:"timeout"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
		// Watch configures the watch command
		Watch WatchConfig `json:"watch" mapstructure:"watch"`

		shouldSaveAfterLoad bool
		source              string
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and full error chains
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// ColorScheme sets the color scheme of rendered Markdown
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Render selects how the document view is printed
		Render RenderMode `json:"render" mapstructure:"render"`
	}

	// WatchConfig configures the watch command.
	WatchConfig struct {
		// Debounce is the quiet period after the last change before re-running.
		Debounce Duration `json:"debounce" mapstructure:"debounce"`
		// PollingInterval is how often the document is checked when file
		// system events are unavailable or ForcePolling is set.
		PollingInterval Duration `json:"polling_interval" mapstructure:"polling_interval"`
		// ForcePolling skips file system events entirely.
		ForcePolling bool `json:"force_polling" mapstructure:"force_polling"`
	}
)

// ShouldSaveAfterLoad reports whether loading migrated a legacy setting, so
// the file should be rewritten in the current format.
func (c *Config) ShouldSaveAfterLoad() bool {
	return c.shouldSaveAfterLoad
}

// Source returns the file the configuration was loaded from, or "" when only
// defaults apply.
func (c *Config) Source() string {
	return c.source
}

// ResolveInvocableScriptsFolder returns the invocable scripts folder relative
// to ModulesRoot, or "" when unset.
func (c *Config) ResolveInvocableScriptsFolder() string {
	return c.relativeToModulesRoot(c.InvocableScriptsFolder)
}

// ResolveStartupScriptPath returns the startup script path relative to
// ModulesRoot, or "" when unset.
func (c *Config) ResolveStartupScriptPath() string {
	return c.relativeToModulesRoot(c.StartupScriptPath)
}

func (c *Config) relativeToModulesRoot(path string) string {
	if path == "" {
		return ""
	}
	if c.ModulesRoot == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ModulesRoot, path)
}

// migrateLegacy moves invocable_scripts_directory into
// invocable_scripts_folder.
func (c *Config) migrateLegacy() {
	if c.InvocableScriptsDirectory == "" {
		return
	}
	c.InvocableScriptsFolder = c.InvocableScriptsDirectory
	c.InvocableScriptsDirectory = ""
	c.shouldSaveAfterLoad = true
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if _, err := c.Timeout.parse("timeout"); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.Render.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if _, err := c.Watch.Debounce.parse("watch.debounce"); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Watch.PollingInterval.parse("watch.polling_interval"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// TimeoutDuration returns the parsed Timeout.
func (c Config) TimeoutDuration() (time.Duration, error) {
	return c.Timeout.parse("timeout")
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid config: " + e.FieldErrors[0].Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so both the
// sentinel and field-level types match errors.Is and errors.As.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// String returns the string representation of the Duration.
func (d Duration) String() string { return string(d) }

// Parse converts the Duration. The empty string parses as zero.
func (d Duration) Parse() (time.Duration, error) {
	return d.parse("")
}

func (d Duration) parse(field string) (time.Duration, error) {
	if d == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(string(d))
	if err == nil && parsed < 0 {
		err = errors.New("must not be negative")
	}
	if err != nil {
		return 0, &InvalidDurationError{Field: field, Value: d, Err: err}
	}
	return parsed, nil
}

// Error implements the error interface for InvalidDurationError.
func (e *InvalidDurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid duration %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("%s: invalid duration %q: %v", e.Field, e.Value, e.Err)
}

// Unwrap returns ErrInvalidDuration for errors.Is() compatibility.
func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidRenderModeError.
func (e *InvalidRenderModeError) Error() string {
	return fmt.Sprintf("invalid render mode %q (valid: auto, markdown, plain)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidRenderModeError) Unwrap() error {
	return ErrInvalidRenderMode
}

// String returns the string representation of the RenderMode.
func (m RenderMode) String() string { return string(m) }

// IsValid returns whether the RenderMode is known.
func (m RenderMode) IsValid() (bool, []error) {
	switch m {
	case RenderAuto, RenderMarkdown, RenderPlain:
		return true, nil
	default:
		return false, []error{&InvalidRenderModeError{Value: m}}
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout: "60s",
		UI: UIConfig{
			Verbose:     false,
			ColorScheme: ColorSchemeAuto,
			Render:      RenderAuto,
		},
		Watch: WatchConfig{
			Debounce:        "500ms",
			PollingInterval: "30s",
			ForcePolling:    false,
		},
	}
}
