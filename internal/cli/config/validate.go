package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}
	if c.OutputFormat != "" && !slices.Contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (valid: %v)", c.OutputFormat, validOutputs)
	}
	if c.UI != nil && (c.UI.Port < 0 || c.UI.Port > 65535) {
		return fmt.Errorf("ui.port must be between 0 and 65535, got %d", c.UI.Port)
	}
	if c.History != nil && c.History.Max < 0 {
		return fmt.Errorf("history.max must not be negative, got %d", c.History.Max)
	}
	if c.Catalog != nil {
		if err := validateCatalog("catalog.context", c.Catalog.Context); err != nil {
			return err
		}
		if err := validateCatalog("catalog.providers", c.Catalog.Providers); err != nil {
			return err
		}
	}
	if c.Host != nil && c.Host.WebhookURL != "" {
		if err := validateWebhookURL(c.Host.WebhookURL); err != nil {
			return err
		}
	}
	return nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid host.webhook_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("host.webhook_url must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("host.webhook_url has no host: %q", raw)
	}
	return nil
}

func validateCatalog(key string, items []core.CatalogItem) error {
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%s[%d]: id is required", key, i)
		}
		if item.Label == "" {
			return fmt.Errorf("%s[%d]: label is required", key, i)
		}
		if seen[item.ID] {
			return fmt.Errorf("%s: duplicate id %q", key, item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}
