// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/typesreg/typesreg/internal/config"
)

// Output formats of "config show".
const (
	formatCUE  = "cue"
	formatJSON = "json"
	formatTOML = "toml"
)

// newConfigCommand creates the `typesreg config` command tree.
func newConfigCommand(app *App, flags *runFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage typesreg configuration",
		Long: `Manage typesreg configuration.

Configuration is read from the --config file, else from:
  - Linux: ~/.config/typesreg/config.cue
  - macOS: ~/Library/Application Support/typesreg/config.cue
  - Windows: %APPDATA%\typesreg\config.cue
  - ./config.cue

Every key can be overridden by a TYPESREG_ environment variable, for
example TYPESREG_REGISTRY_URL or TYPESREG_PATHS_OUTPUT_DIR.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, flags, format)
		},
	}
	showCmd.Flags().StringVar(&format, "format", formatCUE, "output format: cue, json or toml")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app, flags)
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *runFlags, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	res, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return app.fail(err, nil, flags.verbose)
	}

	source := SubtitleStyle.Render("(defaults and environment only)")
	if res.Path != "" {
		source = res.Path
	}
	fmt.Fprintf(app.stderr, "%s %s\n", CmdStyle.Render("Config file:"), source)

	return writeConfig(app.stdout, res.Config, format)
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case formatCUE:
		_, err := io.WriteString(w, config.GenerateCUE(cfg))
		return err
	case formatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding config as JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatTOML:
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding config as TOML: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return checkFormat(format)
	}
}

func checkFormat(format string) error {
	switch format {
	case formatCUE, formatJSON, formatTOML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, formatCUE, formatJSON, formatTOML)
	}
}

func initConfig(app *App, flags *runFlags) error {
	path := flags.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}

	created, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s %s already exists, left unchanged\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
