// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/typesreg/typesreg/pkg/types"
)

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config holds the application configuration.
	Config struct {
		Registry RegistryConfig `json:"registry" toml:"registry" mapstructure:"registry"`
		Paths    PathsConfig    `json:"paths" toml:"paths" mapstructure:"paths"`
		Npm      NpmConfig      `json:"npm" toml:"npm" mapstructure:"npm"`
		UI       UIConfig       `json:"ui" toml:"ui" mapstructure:"ui"`
	}

	// RegistryConfig describes the npm registry holding the registry package.
	RegistryConfig struct {
		// URL is the base URL of the registry API.
		URL string `json:"url" toml:"url" mapstructure:"url"`
		// PackageName is the name of the published registry package.
		PackageName types.PackageName `json:"package_name" toml:"package_name" mapstructure:"package_name"`
		// Timeout bounds each metadata request, as a Go duration string.
		Timeout string `json:"timeout" toml:"timeout" mapstructure:"timeout"`
		// TokenEnv names the environment variable holding a bearer token.
		TokenEnv string `json:"token_env" toml:"token_env" mapstructure:"token_env"`
	}

	// PathsConfig holds the directories a run reads from and writes to.
	PathsConfig struct {
		// DataDir holds definitions.json, the typings data the registry is built from.
		DataDir string `json:"data_dir" toml:"data_dir" mapstructure:"data_dir"`
		// OutputDir is cleared and receives package.json, index.json and README.md.
		OutputDir string `json:"output_dir" toml:"output_dir" mapstructure:"output_dir"`
		// ValidateDir is the scratch directory the published package is installed into.
		ValidateDir string `json:"validate_dir" toml:"validate_dir" mapstructure:"validate_dir"`
		// LogDir receives publish-registry.md.
		LogDir string `json:"log_dir" toml:"log_dir" mapstructure:"log_dir"`
	}

	// NpmConfig configures the npm CLI used to publish, tag and install.
	NpmConfig struct {
		Binary string `json:"binary" toml:"binary" mapstructure:"binary"`
		// InstallFlags is a shell-quoted flag string appended to "npm install".
		InstallFlags string `json:"install_flags" toml:"install_flags" mapstructure:"install_flags"`
	}

	// UIConfig configures console output.
	UIConfig struct {
		Verbose bool `json:"verbose" toml:"verbose" mapstructure:"verbose"`
	}

	// InvalidConfigError collects field-level validation errors.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			URL:         "https://registry.npmjs.org",
			PackageName: "types-registry",
			Timeout:     "30s",
			TokenEnv:    "NPM_TOKEN",
		},
		Paths: PathsConfig{
			DataDir:     "data",
			OutputDir:   "output/types-registry",
			ValidateDir: "validateOutput",
			LogDir:      "logs",
		},
		Npm: NpmConfig{
			Binary:       "npm",
			InstallFlags: "--ignore-scripts --no-shrinkwrap --no-package-lock --no-bin-links --no-save",
		},
	}
}

// RequestTimeout parses Registry.Timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Registry.Timeout)
	if err != nil {
		return 0, fmt.Errorf("registry.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("registry.timeout: must be positive (got %s)", c.Registry.Timeout)
	}
	return d, nil
}

// Validate checks the constraints the CUE schema cannot express and returns
// an *InvalidConfigError listing every violation.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Registry.PackageName.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("registry.package_name: %w", err))
	}
	if _, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}
	for _, f := range []struct{ key, value string }{
		{"registry.url", c.Registry.URL},
		{"paths.data_dir", c.Paths.DataDir},
		{"paths.output_dir", c.Paths.OutputDir},
		{"paths.validate_dir", c.Paths.ValidateDir},
		{"paths.log_dir", c.Paths.LogDir},
		{"npm.binary", c.Npm.Binary},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fmt.Errorf("%s: must be non-empty", f.key))
		}
	}
	errs = append(errs, c.Paths.checkClearedDirs()...)

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// checkClearedDirs rejects an output or validation directory whose removal
// would take the working directory or another configured path with it. Both
// are wiped at the start of every run.
func (p PathsConfig) checkClearedDirs() []error {
	wd, err := os.Getwd()
	if err != nil {
		return []error{fmt.Errorf("paths: resolving working directory: %w", err)}
	}
	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return filepath.Clean(dir)
		}
		return filepath.Join(wd, dir)
	}

	dirs := []struct {
		key, value string
		cleared    bool
	}{
		{"paths.data_dir", p.DataDir, false},
		{"paths.output_dir", p.OutputDir, true},
		{"paths.validate_dir", p.ValidateDir, true},
		{"paths.log_dir", p.LogDir, false},
	}

	var errs []error
	for _, c := range dirs {
		if !c.cleared || strings.TrimSpace(c.value) == "" {
			continue
		}
		cleared := resolve(c.value)
		if isWithin(wd, cleared) {
			errs = append(errs, fmt.Errorf("%s: %q is cleared on every run and must not contain the working directory", c.key, c.value))
			continue
		}
		for _, o := range dirs {
			if o.key == c.key || strings.TrimSpace(o.value) == "" {
				continue
			}
			if isWithin(resolve(o.value), cleared) {
				errs = append(errs, fmt.Errorf("%s: %q is cleared on every run and must not contain %s (%q)", c.key, c.value, o.key, o.value))
			}
		}
	}
	return errs
}

// isWithin reports whether path is dir or lies below it.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel))
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
