// SPDX-License-Identifier: MPL-2.0

package npm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/typesreg/typesreg/pkg/registry"
	"github.com/typesreg/typesreg/pkg/types"
)

const (
	// maxJSONResponseBytes caps the packument size read into memory (64 MB).
	// Packuments of long-lived packages list every version ever published.
	maxJSONResponseBytes = 64 << 20

	defaultTimeout = 30 * time.Second
)

type (
	// packument is the JSON wire format of GET /<name>, trimmed to what is read.
	packument struct {
		DistTags map[string]string            `json:"dist-tags"`
		Versions map[string]packumentManifest `json:"versions"`
	}

	packumentManifest struct {
		ContentHash registry.ContentHash `json:"contentHash"`
	}
)

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the current HTTP client. Apply it
// after WithHTTPClient to keep a custom client's other settings.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			clone := *c.httpClient
			clone.Timeout = d
			c.httpClient = &clone
		}
	}
}

// FetchLatest reads the packument of name and returns the version behind the
// "latest" dist-tag together with that version's stored content hash.
// Returns ErrPackageNotFound when the registry answers 404.
func (c *Client) FetchLatest(ctx context.Context, name types.PackageName) (PackageMetadata, error) {
	if err := name.Validate(); err != nil {
		return PackageMetadata{}, err
	}

	resp, err := c.doRequest(ctx, c.packageURL(name))
	if err != nil {
		return PackageMetadata{}, fmt.Errorf("fetching %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode == http.StatusNotFound {
		return PackageMetadata{}, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return PackageMetadata{}, fmt.Errorf("fetching %s: unexpected status %d", name, resp.StatusCode)
	}

	var p packument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&p); err != nil {
		return PackageMetadata{}, fmt.Errorf("fetching %s: decoding response: %w", name, err)
	}

	latest := p.DistTags[types.DistTagLatest.String()]
	if latest == "" {
		return PackageMetadata{}, fmt.Errorf("fetching %s: no %q dist-tag", name, types.DistTagLatest)
	}
	manifest, ok := p.Versions[latest]
	if !ok {
		return PackageMetadata{}, fmt.Errorf("fetching %s: %q dist-tag points at unknown version %s", name, types.DistTagLatest, latest)
	}

	return PackageMetadata{Version: latest, ContentHash: manifest.ContentHash}, nil
}

// packageURL escapes the slash of scoped names ("@types%2Fnode").
func (c *Client) packageURL(name types.PackageName) string {
	return c.baseURL + "/" + url.PathEscape(string(name))
}

func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}
