package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/leapstack-labs/zeus/internal/theme"
)

// OutputModes lists the accepted values of the output key.
var OutputModes = []string{"auto", "text", "markdown", "json", "csv", "yaml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url must be an http(s) URL, got %q\nHint: set api_url in zeus.yaml, ZEUS_API_URL or --api-url", c.APIURL)
	}
	if c.OutputFormat != "" && !slices.Contains(OutputModes, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (expected one of %v)", c.OutputFormat, OutputModes)
	}
	if _, err := theme.ParseMode(c.Theme); err != nil {
		return err
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.RunsRefresh <= 0 {
		return fmt.Errorf("runs_refresh must be positive, got %s", c.RunsRefresh)
	}
	if c.CatalogTTL <= 0 {
		return fmt.Errorf("catalog_ttl must be positive, got %s", c.CatalogTTL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout)
	}
	return nil
}
