// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the typesreg CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app. Running the root command
// without a subcommand executes the publish workflow.
func NewRootCommand(app *App) *cobra.Command {
	flags := &runFlags{}
	var dry bool

	rootCmd := &cobra.Command{
		Use:   "typesreg",
		Short: "Regenerate and publish the types-registry package",
		Long: TitleStyle.Render("typesreg") + SubtitleStyle.Render(" - keeps the types-registry npm package current") + `

typesreg lists every type-declaration package in the typings data, compares
the listing with the content hash of the latest published types-registry and
either publishes a new 0.1.x version or validates the published one.

` + SubtitleStyle.Render("Examples:") + `
  typesreg                  Publish if the listing changed, validate otherwise
  typesreg --dry            Show what a run would publish and tag
  typesreg generate         Only write the output directory
  typesreg validate         Check the published package against the output
  typesreg config show      Show the effective configuration`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd.Context(), app, flags, dry)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging and print the rendered run log")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/typesreg/config.cue)")
	rootCmd.Flags().BoolVar(&dry, "dry", false, "do not publish or tag; only report what would happen")

	rootCmd.AddCommand(newGenerateCommand(app, flags))
	rootCmd.AddCommand(newValidateCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code carried by an *ExitError.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
