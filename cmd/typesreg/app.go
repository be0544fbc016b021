// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/typesreg/typesreg/internal/config"
	"github.com/typesreg/typesreg/internal/issue"
	"github.com/typesreg/typesreg/internal/npm"
)

type (
	// Backend is everything the CLI needs from a registry: metadata, publish,
	// tag and install.
	Backend interface {
		npm.Registry
		npm.Installer
	}

	// BackendFactory builds a Backend for a loaded configuration.
	BackendFactory func(cfg *config.Config, logger *log.Logger) (Backend, error)

	// App wires CLI services and shared dependencies. Command handlers receive
	// an App and reach configuration and the registry only through it.
	App struct {
		Config  config.Provider
		Backend BackendFactory
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  config.Provider
		Backend BackendFactory
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// runFlags are the global flags shared by every command.
	runFlags struct {
		configPath string
		verbose    bool
	}
)

// NewApp creates an App, filling nil dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:  deps.Config,
		Backend: deps.Backend,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Backend == nil {
		app.Backend = newNpmBackend
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads configuration honoring --config and resolves verbosity
// from the flag or ui.verbose.
func (a *App) loadConfig(ctx context.Context, flags *runFlags) (*config.Config, error) {
	res, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, err
	}
	if !flags.verbose {
		flags.verbose = res.Config.UI.Verbose
	}
	return res.Config, nil
}

// backendFor builds the registry backend. Factory failures come from bad
// configuration values and are reported as such.
func (a *App) backendFor(cfg *config.Config, logger *log.Logger) (Backend, error) {
	backend, err := a.Backend(cfg, logger)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("configure the npm client").
			WithSuggestion("Check npm.install_flags and registry.timeout in 'typesreg config show'").
			Wrap(err).
			BuildError()
	}
	return backend, nil
}

func (a *App) newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// newNpmBackend is the production BackendFactory.
func newNpmBackend(cfg *config.Config, logger *log.Logger) (Backend, error) {
	flags, err := npm.ParseInstallFlags(cfg.Npm.InstallFlags)
	if err != nil {
		return nil, fmt.Errorf("npm.install_flags: %w", err)
	}
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}

	opts := []npm.ClientOption{
		npm.WithBaseURL(cfg.Registry.URL),
		npm.WithTimeout(timeout),
		npm.WithBinary(cfg.Npm.Binary),
		npm.WithInstallFlags(flags),
		npm.WithUserAgent(config.AppName + "/" + Version),
		npm.WithLogger(logger),
	}
	if cfg.Registry.TokenEnv != "" {
		if token := os.Getenv(cfg.Registry.TokenEnv); token != "" {
			opts = append(opts, npm.WithToken(token))
		}
	}
	return npm.NewClient(opts...), nil
}
