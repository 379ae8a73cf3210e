package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/ldcrawl/internal/transport"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ldcrawl"

	// DefaultTimeout bounds a single request including the body read.
	DefaultTimeout = 30 * time.Second

	// DefaultWorkers is the number of fetches allowed in flight at once.
	DefaultWorkers = 8

	// DefaultMaxBodySize limits the response body read into memory.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent identifies ldcrawl in HTTP requests so that server
	// operators can recognize crawler traffic in their logs.
	DefaultUserAgent = "ldcrawl/1.0 (+https://github.com/nao1215/ldcrawl)"

	// DefaultMaxDepth is how many links away from a seed the crawl goes.
	DefaultMaxDepth = 2

	// DefaultMaxResources caps the number of fetches one crawl schedules.
	DefaultMaxResources = 100
)

// Config holds all configuration options for ldcrawl.
// This struct is populated from CLI flags and passed through the
// application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Workers bounds concurrent fetches.
	Workers int

	// MaxBodySize is the maximum response body size in bytes.
	// Set to 0 to use the default (10MB).
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ProxyAddress routes every request through a SOCKS5 proxy when set.
	ProxyAddress string

	// MaxDepth is the link distance from a seed that is still followed.
	// Depth 0 fetches only the seeds.
	MaxDepth int

	// MaxResources caps the number of resources scheduled per crawl,
	// seeds included. 0 uses DefaultMaxResources.
	MaxResources int

	// SameHost restricts link following to the hosts of the seeds.
	SameHost bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .ldcrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-host configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output. Mutually exclusive
	// with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the SQLite history database.
	// Defaults to XDG data directory (~/.local/share/ldcrawl on Linux).
	DBDir string

	// SaveToDB records every delivered resource in the history database.
	SaveToDB bool

	// MetricsAddr serves Prometheus metrics on this address when set.
	MetricsAddr string

	// Targets are the seed URIs.
	Targets []string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, workers).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeout,
		Workers:      DefaultWorkers,
		MaxBodySize:  DefaultMaxBodySize,
		UserAgent:    DefaultUserAgent,
		MaxDepth:     DefaultMaxDepth,
		MaxResources: DefaultMaxResources,
		SameHost:     true,
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// XDGDataDir returns the XDG data directory for ldcrawl.
// On Linux: ~/.local/share/ldcrawl
// On macOS: ~/Library/Application Support/ldcrawl
// On Windows: %LOCALAPPDATA%\ldcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ldcrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxResources < 0 {
		return ErrInvalidMaxResources
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.ProxyAddress != "" && !transport.IsValidProxyAddress(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}
	return nil
}

// TransportOptions translates the fetch settings into HTTPTransport options.
// Per-host cookies and headers from the config file are included when a
// file was loaded.
func (c *Config) TransportOptions() []transport.Option {
	opts := []transport.Option{
		transport.WithTimeout(c.Timeout),
		transport.WithUserAgent(c.UserAgent),
	}
	if c.MaxBodySize > 0 {
		opts = append(opts, transport.WithMaxBodySize(c.MaxBodySize))
	}
	if c.ProxyAddress != "" {
		opts = append(opts, transport.WithSOCKS5Proxy(c.ProxyAddress))
	}
	if c.SiteConfigs != nil {
		opts = append(opts, transport.WithSiteResolver(c.SiteConfigs.Resolve))
	}
	return opts
}

// SiteFor returns the effective crawl settings for a host: the global
// values overridden by the config file's defaults and then by the host's
// own block.
func (c *Config) SiteFor(host string) SiteConfig {
	site := SiteConfig{Depth: c.MaxDepth}
	if c.SiteConfigs == nil {
		return site
	}
	merged := c.SiteConfigs.GetSiteConfig(host)
	if merged.Depth == 0 {
		merged.Depth = c.MaxDepth
	}
	return merged
}
