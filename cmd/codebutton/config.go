// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/codebutton/codebutton/internal/config"
	"github.com/codebutton/codebutton/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `codebutton config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage codebutton configuration",
		Long: `Manage codebutton configuration.

Configuration is stored in:
  - Linux: ~/.config/codebutton/config.cue
  - macOS: ~/Library/Application Support/codebutton/config.cue
  - Windows: %APPDATA%\codebutton\config.cue

Any value can be overridden through the environment, e.g.
CODEBUTTON_TIMEOUT=2m or CODEBUTTON_UI_VERBOSE=true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app.stdout, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app.stdout)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, rootFlags *rootFlagValues) error {
	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render("auto"); renderErr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
		return err
	}

	w := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if src := cfg.Source(); src != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), src)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	orNone := func(s string) string {
		if s == "" {
			return SubtitleStyle.Render("(none)")
		}
		return valueStyle.Render(s)
	}

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("modules_root"), orNone(cfg.ModulesRoot))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("invocable_scripts_folder"), orNone(cfg.ResolveInvocableScriptsFolder()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("startup_script_path"), orNone(cfg.ResolveStartupScriptPath()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("artifact_dir"), orNone(cfg.ArtifactDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("timeout"), valueStyle.Render(cfg.Timeout.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  render: %s\n", valueStyle.Render(cfg.UI.Render.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("watch"))
	fmt.Fprintf(w, "  debounce: %s\n", valueStyle.Render(cfg.Watch.Debounce.String()))
	fmt.Fprintf(w, "  polling_interval: %s\n", valueStyle.Render(cfg.Watch.PollingInterval.String()))
	fmt.Fprintf(w, "  force_polling: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Watch.ForcePolling)))

	return nil
}

func initConfig(w io.Writer, rootFlags *rootFlagValues) error {
	path := rootFlags.configPath
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	created, err := config.CreateDefaultConfig(path)
	if err != nil {
		return issue.WrapWithContext(err, "create default configuration", path)
	}
	if !created {
		fmt.Fprintf(w, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}

	fmt.Fprintf(w, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(w io.Writer) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(w, "Config file: %s\n", cfgPath)
	return nil
}
