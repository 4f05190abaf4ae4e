package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies the constructor sets the documented defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	if c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
	if c.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", c.MaxDepth, DefaultMaxDepth)
	}
	if c.MaxPages != DefaultMaxPages {
		t.Errorf("MaxPages = %d, want %d", c.MaxPages, DefaultMaxPages)
	}
	if c.CrawlDelay != DefaultCrawlDelay {
		t.Errorf("CrawlDelay = %v, want %v", c.CrawlDelay, DefaultCrawlDelay)
	}
	if c.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", c.Concurrency, DefaultConcurrency)
	}
	if c.CheckpointInterval != DefaultCheckpointInterval {
		t.Errorf("CheckpointInterval = %d, want %d", c.CheckpointInterval, DefaultCheckpointInterval)
	}
	if c.UserAgent == "" {
		t.Error("UserAgent should have a default")
	}
	if c.ArchiveDir == "" {
		t.Error("ArchiveDir should have a default")
	}
}

// TestValidate tests configuration validation.
func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		c := NewConfig()
		c.SeedURL = "https://example.com/"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid config passes",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "missing seed",
			mutate:  func(c *Config) { c.SeedURL = "" },
			wantErr: ErrNoSeed,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "negative depth",
			mutate:  func(c *Config) { c.MaxDepth = -1 },
			wantErr: ErrInvalidMaxDepth,
		},
		{
			name:    "zero depth is valid",
			mutate:  func(c *Config) { c.MaxDepth = 0 },
			wantErr: nil,
		},
		{
			name:    "zero page budget",
			mutate:  func(c *Config) { c.MaxPages = 0 },
			wantErr: ErrInvalidMaxPages,
		},
		{
			name:    "negative crawl delay",
			mutate:  func(c *Config) { c.CrawlDelay = -time.Second },
			wantErr: ErrInvalidCrawlDelay,
		},
		{
			name:    "negative body size",
			mutate:  func(c *Config) { c.MaxBodySize = -1 },
			wantErr: ErrInvalidMaxBodySize,
		},
		{
			name:    "zero checkpoint interval",
			mutate:  func(c *Config) { c.CheckpointInterval = 0 },
			wantErr: ErrInvalidCheckpointInterval,
		},
		{
			name:    "conflicting report formats",
			mutate:  func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			wantErr: ErrConflictingReportFormats,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := valid()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfigFile tests YAML config file loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads site configs and merges defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `
defaults:
  delay: 2s
sites:
  example.com:
    depth: 3
    headers:
      Authorization: "Bearer token"
  slow.example:
    delay: 5s
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("write config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile returned error: %v", err)
		}

		sc := cf.GetSiteConfig("example.com")
		if sc.Depth != 3 {
			t.Errorf("Depth = %d, want 3", sc.Depth)
		}
		if sc.Delay != 2*time.Second {
			t.Errorf("Delay = %v, want default 2s", sc.Delay)
		}
		if sc.Headers["Authorization"] != "Bearer token" {
			t.Errorf("Headers = %v", sc.Headers)
		}

		slow := cf.GetSiteConfig("slow.example")
		if slow.Delay != 5*time.Second {
			t.Errorf("Delay = %v, want 5s override", slow.Delay)
		}

		unknown := cf.GetSiteConfig("other.example")
		if unknown.Delay != 2*time.Second || unknown.Depth != 0 {
			t.Errorf("unknown site should get defaults only: %+v", unknown)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("sites: ["), 0600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for malformed yaml")
		}
	})
}

// TestFindConfigFile tests the search order.
func TestFindConfigFile(t *testing.T) {
	t.Run("explicit path wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yml")
		if err := os.WriteFile(path, []byte("sites: {}"), 0600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile = %q, want %q", got, path)
		}
	})

	t.Run("missing explicit path yields empty", func(t *testing.T) {
		if got := FindConfigFile("/no/such/file"); got != "" {
			t.Errorf("FindConfigFile = %q, want empty", got)
		}
	})
}
