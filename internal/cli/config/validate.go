package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapconsole/internal/codestore"
	"github.com/leapstack-labs/leapconsole/internal/store"
)

var outputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(outputModes, c.OutputFormat) {
		return fmt.Errorf("invalid output %q (expected one of: %s)", c.OutputFormat, strings.Join(outputModes, ", "))
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: expected an http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	if !slices.Contains(codestore.Backends(), c.Auth.CodeStore) {
		return &codestore.UnknownBackendError{Name: c.Auth.CodeStore}
	}

	if _, ok := store.Get(c.Server.Database.Driver); !ok {
		return &store.UnknownDriverError{Name: c.Server.Database.Driver, Available: store.Drivers()}
	}
	if c.Server.RowLimit < 0 {
		return fmt.Errorf("server.row_limit must not be negative")
	}

	switch c.Server.Blob.Backend {
	case BlobBackendDB:
	case BlobBackendS3:
		if c.Server.Blob.S3.Endpoint == "" || c.Server.Blob.S3.Bucket == "" {
			return fmt.Errorf("server.blob.s3 requires endpoint and bucket")
		}
	default:
		return fmt.Errorf("unknown server.blob.backend %q (expected %s or %s)",
			c.Server.Blob.Backend, BlobBackendDB, BlobBackendS3)
	}

	for i, rule := range c.Defaults {
		if len(rule.Match) == 0 {
			return fmt.Errorf("defaults[%d] (%s) needs at least one match substring", i, rule.Name)
		}
	}
	return nil
}
