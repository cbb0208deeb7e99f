// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/codebutton/codebutton/internal/app/execute"
	"github.com/codebutton/codebutton/internal/config"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer: every Cobra handler receives an App and builds its
	// execution session through it.
	App struct {
		Config     ConfigProvider
		Fs         afero.Fs
		stdout     io.Writer
		stderr     io.Writer
		isTerminal func() bool
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Fs     afero.Fs
		Stdout io.Writer
		Stderr io.Writer
		// IsTerminal reports whether stdout is a terminal. It decides the
		// "auto" render mode.
		IsTerminal func() bool
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.IsTerminal == nil {
		deps.IsTerminal = func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		}
	}

	return &App{
		Config:     deps.Config,
		Fs:         deps.Fs,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		isTerminal: deps.IsTerminal,
	}, nil
}

// loadConfig loads configuration honoring the --config flag.
func (a *App) loadConfig(ctx context.Context, rootFlags *rootFlagValues) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: rootFlags.configPath})
}

// logger returns the CLI logger writing to stderr.
func (a *App) logger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newSession builds an execution session from cfg. The --verbose flag wins
// over ui.verbose when set.
func (a *App) newSession(cfg *config.Config, rootFlags *rootFlagValues) (*execute.Session, error) {
	opts, err := execute.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts.Verbose = opts.Verbose || rootFlags.verbose
	opts.Logger = a.logger(opts.Verbose)
	return execute.NewSession(a.Fs, opts), nil
}
