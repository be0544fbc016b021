// SPDX-License-Identifier: MPL-2.0

package npm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"

	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

const (
	defaultBaseURL   = "https://registry.npmjs.org"
	defaultBinary    = "npm"
	defaultUserAgent = "typesreg/dev"

	manifestFileName = "package.json"
)

var (
	// ErrPackageNotFound is returned when the registry has no such package.
	ErrPackageNotFound = errors.New("package not found")

	// ErrManifestMismatch is returned when the manifest handed to Publish is
	// invalid or does not match the package.json in the package directory.
	ErrManifestMismatch = errors.New("manifest does not match package directory")
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// Tests inject their own to avoid running npm.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Client implements Registry and Installer against a single registry.
	Client struct {
		httpClient   *http.Client
		baseURL      string
		token        string
		userAgent    string
		binary       string
		installFlags []string
		execCommand  ExecCommandFunc
		logger       *log.Logger
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithBaseURL sets the registry URL used for metadata and passed to npm.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets a bearer token for metadata requests.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithBinary sets the npm executable.
func WithBinary(binary string) ClientOption {
	return func(c *Client) {
		c.binary = binary
	}
}

// WithInstallFlags sets the arguments appended to "npm install <name>".
func WithInstallFlags(flags []string) ClientOption {
	return func(c *Client) {
		c.installFlags = flags
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) ClientOption {
	return func(c *Client) {
		c.execCommand = fn
	}
}

// WithLogger sets the logger that dry-run and command output is reported to.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client. Defaults: the public npm registry, the "npm"
// binary on PATH, no install flags and a discarding logger.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  defaultHTTPClient(),
		baseURL:     defaultBaseURL,
		userAgent:   defaultUserAgent,
		binary:      defaultBinary,
		execCommand: exec.CommandContext,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseInstallFlags splits a shell-quoted flag string the way a POSIX shell
// would, without expanding variables or running substitutions.
func ParseInstallFlags(s string) ([]string, error) {
	fields, err := shell.Fields(s, func(string) string { return "" })
	if err != nil {
		return nil, fmt.Errorf("parsing install flags %q: %w", s, err)
	}
	return fields, nil
}

// Publish runs "npm publish <dir> --tag <tag>". The package.json in dir must
// carry the name and version of manifest, in dry runs too.
func (c *Client) Publish(ctx context.Context, dir string, manifest registry.Manifest, tag types.DistTag, dry bool) error {
	if err := tag.Validate(); err != nil {
		return err
	}
	if err := manifest.Name.Validate(); err != nil {
		return err
	}
	if _, err := registry.ParseVersion(manifest.Version); err != nil {
		return fmt.Errorf("%w: %w", ErrManifestMismatch, err)
	}
	if err := checkManifest(dir, manifest); err != nil {
		return err
	}

	spec := string(manifest.Name) + "@" + manifest.Version
	if dry {
		c.logger.Info("dry run: would publish", "package", spec, "dir", dir, "tag", tag)
		return nil
	}

	args := []string{"publish", dir, "--tag", tag.String(), "--registry", c.baseURL}
	if _, err := c.run(ctx, "", args...); err != nil {
		return fmt.Errorf("publishing %s: %w", spec, err)
	}
	c.logger.Info("published", "package", spec, "tag", tag)
	return nil
}

// checkManifest compares the name and version in dir/package.json with manifest.
func checkManifest(dir string, manifest registry.Manifest) error {
	path := filepath.Join(dir, manifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrManifestMismatch, err)
	}
	var onDisk struct {
		Name    types.PackageName `json:"name"`
		Version string            `json:"version"`
	}
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return fmt.Errorf("%w: parsing %s: %w", ErrManifestMismatch, path, err)
	}
	if onDisk.Name != manifest.Name || onDisk.Version != manifest.Version {
		return fmt.Errorf("%w: %s describes %s@%s, publishing %s@%s",
			ErrManifestMismatch, path, onDisk.Name, onDisk.Version, manifest.Name, manifest.Version)
	}
	return nil
}

// Tag runs "npm dist-tag add <name>@<version> <tag>".
func (c *Client) Tag(ctx context.Context, name types.PackageName, version string, tag types.DistTag, dry bool) error {
	if err := tag.Validate(); err != nil {
		return err
	}
	if err := name.Validate(); err != nil {
		return err
	}

	spec := string(name) + "@" + version
	if dry {
		c.logger.Info("dry run: would tag", "package", spec, "tag", tag)
		return nil
	}

	if _, err := c.run(ctx, "", "dist-tag", "add", spec, tag.String(), "--registry", c.baseURL); err != nil {
		return fmt.Errorf("tagging %s as %s: %w", spec, tag, err)
	}
	c.logger.Info("tagged", "package", spec, "tag", tag)
	return nil
}

// Install runs "npm install <name>[@<version>] <flags...>" inside dir.
func (c *Client) Install(ctx context.Context, dir string, name types.PackageName, version string) (string, error) {
	if err := name.Validate(); err != nil {
		return "", err
	}

	spec := string(name)
	if version != "" {
		spec += "@" + version
	}
	args := append([]string{"install", spec}, c.installFlags...)
	args = append(args, "--registry", c.baseURL)
	stderr, err := c.run(ctx, dir, args...)
	if err != nil {
		return stderr, fmt.Errorf("installing %s: %w", spec, err)
	}
	return stderr, nil
}

// run executes the npm binary and returns its stderr. A non-zero exit becomes
// a *CommandError carrying that stderr.
func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := c.execCommand(ctx, c.binary, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("running", "cmd", c.binary, "args", args, "dir", dir)
	err := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		c.logger.Debug(out)
	}
	if err == nil {
		return stderr.String(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stderr.String(), ctxErr
	}

	cmdErr := &CommandError{
		Binary:   c.binary,
		Args:     args,
		ExitCode: -1,
		Stderr:   strings.TrimSpace(stderr.String()),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return stderr.String(), cmdErr
}
