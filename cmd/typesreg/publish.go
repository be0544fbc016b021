// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/typesreg/typesreg/internal/config"
	"github.com/typesreg/typesreg/internal/publish"
	"github.com/typesreg/typesreg/internal/typings"
	"github.com/typesreg/typesreg/internal/validate"
)

func newGenerateCommand(app *App, flags *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Write the registry package to the output directory without publishing",
		Long: `Fetch the latest published version, regenerate the listing and write
package.json, index.json and README.md to the output directory.

Nothing is published, tagged or installed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), app, flags)
		},
	}
}

// workflowFor wires a publish.Workflow from configuration.
func (a *App) workflowFor(cfg *config.Config, logger *log.Logger) (*publish.Workflow, error) {
	backend, err := a.backendFor(cfg, logger)
	if err != nil {
		return nil, err
	}
	source := typings.NewFileSource(cfg.Paths.DataDir)
	validator := validate.New(backend, cfg.Registry.PackageName, cfg.Paths.ValidateDir)
	return publish.NewWorkflow(source, backend, validator, publish.WithLogger(logger)), nil
}

func workflowOptions(cfg *config.Config, dry bool) publish.Options {
	return publish.Options{
		PackageName: cfg.Registry.PackageName,
		OutputDir:   cfg.Paths.OutputDir,
		LogDir:      cfg.Paths.LogDir,
		Dry:         dry,
	}
}

func runPublish(ctx context.Context, app *App, flags *runFlags, dry bool) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return app.fail(err, nil, flags.verbose)
	}
	logger := app.newLogger(flags.verbose)

	wf, err := app.workflowFor(cfg, logger)
	if err != nil {
		return app.fail(err, nil, flags.verbose)
	}

	res, err := wf.Run(ctx, workflowOptions(cfg, dry))
	if flags.verbose && res != nil {
		app.printRunLog(res)
	}
	if err != nil {
		return app.fail(err, res, flags.verbose)
	}

	spec := fmt.Sprintf("%s@%s", cfg.Registry.PackageName, res.NewVersion)
	switch {
	case res.Changed && dry:
		fmt.Fprintf(app.stdout, "%s Would publish %s (%d packages)\n", WarningStyle.Render("~"), CmdStyle.Render(spec), res.Registry.Len())
	case res.Changed:
		fmt.Fprintf(app.stdout, "%s Published %s (%d packages)\n", SuccessStyle.Render("✓"), CmdStyle.Render(spec), res.Registry.Len())
	default:
		prev := fmt.Sprintf("%s@%s", cfg.Registry.PackageName, res.PreviousVersion)
		fmt.Fprintf(app.stdout, "%s Unchanged; validated %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(prev))
	}
	if res.LogPath != "" {
		fmt.Fprintf(app.stdout, "%s\n", SubtitleStyle.Render("Run log: "+res.LogPath))
	}
	return nil
}

func runGenerate(ctx context.Context, app *App, flags *runFlags) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return app.fail(err, nil, flags.verbose)
	}
	logger := app.newLogger(flags.verbose)

	wf, err := app.workflowFor(cfg, logger)
	if err != nil {
		return app.fail(err, nil, flags.verbose)
	}

	res, err := wf.Generate(ctx, workflowOptions(cfg, false))
	if err != nil {
		return app.fail(err, res, flags.verbose)
	}

	state := "unchanged"
	if res.Changed {
		state = "changed"
	}
	fmt.Fprintf(app.stdout, "%s Wrote %s %s to %s (%d packages, content %s)\n",
		SuccessStyle.Render("✓"),
		cfg.Registry.PackageName, CmdStyle.Render(res.NewVersion),
		cfg.Paths.OutputDir, res.Registry.Len(), state)
	return nil
}

// printRunLog renders the markdown run log, falling back to plain markdown.
func (a *App) printRunLog(res *publish.Result) {
	if res.Log == nil {
		return
	}
	rendered, err := res.Log.Render("auto")
	if err != nil {
		rendered = res.Log.Markdown()
	}
	fmt.Fprint(a.stdout, rendered)
}
