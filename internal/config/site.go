package config

import "time"

// SiteConfig holds site-specific configuration for a single domain.
// This allows customizing crawl behavior per archived site.
type SiteConfig struct {
	// Headers are custom HTTP headers to include in requests to this
	// site, for sites that need authentication or content negotiation.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Delay overrides the global crawl delay for this domain.
	// If zero, the global CrawlDelay is used.
	Delay time.Duration `yaml:"delay,omitempty"`

	// Depth overrides the global crawl depth for this domain.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the global page budget for this domain.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`
}

// File represents the structure of the .webarchive configuration file.
type File struct {
	// Sites maps domains to their site-specific configurations.
	// Keys are bare hostnames (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific domain.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(domain string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[domain]; ok {
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if siteConfig.Delay != 0 {
			result.Delay = siteConfig.Delay
		}
		if siteConfig.Depth != 0 {
			result.Depth = siteConfig.Depth
		}
		if siteConfig.MaxPages != 0 {
			result.MaxPages = siteConfig.MaxPages
		}
	}

	return result
}
