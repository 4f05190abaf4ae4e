package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These defaults favor politeness over
// throughput: an unattended archive run should never look like an
// attack to the target site's operator.
const (
	// DefaultTimeout is the per-request timeout for the first fetch
	// attempt. Retry attempts get progressively more headroom.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxDepth bounds link distance from the seed. Five levels
	// reaches essentially all human-navigable content on typical sites.
	DefaultMaxDepth = 5

	// DefaultMaxPages is the page budget per session. Asset fetches and
	// redirect hops do not consume budget; only final page URLs do.
	DefaultMaxPages = 500

	// DefaultCrawlDelay is the per-domain floor between request starts.
	// robots.txt Crawl-Delay can raise it, never lower it.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultConcurrency bounds in-flight fetches. Per-domain pacing
	// means extra workers mostly help when assets come from CDN hosts.
	DefaultConcurrency = 16

	// DefaultCheckpointInterval is how many processed pages pass between
	// checkpoint saves. Small enough that a crash loses under a minute
	// of polite crawling, large enough that saves don't dominate I/O.
	DefaultCheckpointInterval = 50

	// DefaultMaxBodySize limits the response body size to read.
	// 10MB covers any realistic HTML page and most assets.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent identifies the archiver in HTTP requests.
	// A descriptive User-Agent lets site operators identify and, if they
	// wish, block archive traffic.
	DefaultUserAgent = "webarchive/1.0 (+https://github.com/nao1215/webarchive)"

	// AppName is the application name used for XDG directory paths.
	AppName = "webarchive"
)

// Config holds all configuration options for a crawl session.
// This struct is designed to be populated from CLI flags and passed
// through the application via dependency injection rather than global
// state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant
// benefit.
type Config struct {
	// SeedURL is the starting URL; the crawl is confined to its host.
	SeedURL string

	// ArchiveDir is the directory holding the SQLite archive database.
	// Defaults to the XDG data directory.
	ArchiveDir string

	// Timeout is the per-request timeout for the first fetch attempt.
	Timeout time.Duration

	// MaxDepth is the maximum link distance from the seed.
	// Depth 0 means only the seed page.
	MaxDepth int

	// MaxPages is the page budget for the session.
	MaxPages int

	// CrawlDelay is the per-domain floor between request starts.
	CrawlDelay time.Duration

	// Concurrency bounds the number of in-flight fetches.
	Concurrency int

	// CheckpointInterval is how many processed pages pass between
	// checkpoint saves.
	CheckpointInterval int

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request and
	// matched against robots.txt rule groups.
	UserAgent string

	// WallClockBudget bounds the total session duration. Zero means no
	// bound; the page budget is then the only stop condition.
	WallClockBudget time.Duration

	// SkipAssets disables asset archiving; only HTML pages are stored.
	SkipAssets bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of the
	// human-readable format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .webarchive in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the
	// config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, page
// budget). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		ArchiveDir:         XDGDataDir(),
		Timeout:            DefaultTimeout,
		MaxDepth:           DefaultMaxDepth,
		MaxPages:           DefaultMaxPages,
		CrawlDelay:         DefaultCrawlDelay,
		Concurrency:        DefaultConcurrency,
		CheckpointInterval: DefaultCheckpointInterval,
		MaxBodySize:        DefaultMaxBodySize,
		UserAgent:          DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for webarchive.
// On Linux: ~/.local/share/webarchive
// On macOS: ~/Library/Application Support/webarchive
// On Windows: %LOCALAPPDATA%\webarchive
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webarchive.
// On Linux: ~/.config/webarchive
// On macOS: ~/Library/Application Support/webarchive
// On Windows: %APPDATA%\webarchive
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeed
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.CheckpointInterval <= 0 {
		return ErrInvalidCheckpointInterval
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
