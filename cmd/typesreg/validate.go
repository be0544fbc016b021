// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typesreg/typesreg/internal/runlog"
	"github.com/typesreg/typesreg/internal/validate"
)

func newValidateCommand(app *App, flags *runFlags) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the published package against the output directory",
		Long: `Install the published registry package into the validation directory and
compare its files with the output directory. package.json is not compared.

Run "typesreg generate" first if the output directory is empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), app, flags, version)
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "version to install (default: the one tagged latest)")
	return cmd
}

func runValidate(ctx context.Context, app *App, flags *runFlags, version string) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return app.fail(err, nil, flags.verbose)
	}
	logger := app.newLogger(flags.verbose)

	backend, err := app.backendFor(cfg, logger)
	if err != nil {
		return app.fail(err, nil, flags.verbose)
	}

	rl := runlog.New(fmt.Sprintf("Validating %s", cfg.Registry.PackageName), logger)
	v := validate.New(backend, cfg.Registry.PackageName, cfg.Paths.ValidateDir)
	if err := v.Validate(ctx, cfg.Paths.OutputDir, version, rl); err != nil {
		return app.fail(err, nil, flags.verbose)
	}

	fmt.Fprintf(app.stdout, "%s %s matches %s\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(v.InstalledDir()), cfg.Paths.OutputDir)
	return nil
}
