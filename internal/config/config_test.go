package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/ldcrawl/internal/transport"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Tests fail if defaults change unexpectedly, so changes stay intentional.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default Workers is 8", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 8 {
			t.Errorf("expected Workers to be 8, got %d", cfg.Workers)
		}
	})

	t.Run("default MaxBodySize is 10MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 10*1024*1024 {
			t.Errorf("expected MaxBodySize to be 10MB, got %d", cfg.MaxBodySize)
		}
	})

	t.Run("default crawl limits", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxDepth != 2 {
			t.Errorf("expected MaxDepth to be 2, got %d", cfg.MaxDepth)
		}
		if cfg.MaxResources != 100 {
			t.Errorf("expected MaxResources to be 100, got %d", cfg.MaxResources)
		}
		if !cfg.SameHost {
			t.Error("expected SameHost to be true")
		}
	})

	t.Run("default UserAgent names ldcrawl", func(t *testing.T) {
		t.Parallel()
		if cfg.UserAgent != "ldcrawl/1.0 (+https://github.com/nao1215/ldcrawl)" {
			t.Errorf("unexpected UserAgent %q", cfg.UserAgent)
		}
	})

	t.Run("history is saved to the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("no proxy by default", func(t *testing.T) {
		t.Parallel()
		if cfg.ProxyAddress != "" {
			t.Errorf("expected empty ProxyAddress, got %q", cfg.ProxyAddress)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// validConfig returns a minimal valid configuration.
	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"http://example.com/"}
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected nil error, got: %v", err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"empty targets", func(c *Config) { c.Targets = []string{} }, ErrNoTarget},
		{"nil targets", func(c *Config) { c.Targets = nil }, ErrNoTarget},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, ErrInvalidTimeout},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, ErrInvalidMaxDepth},
		{"negative resource limit", func(c *Config) { c.MaxResources = -1 }, ErrInvalidMaxResources},
		{"json and markdown", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"proxy without port", func(c *Config) { c.ProxyAddress = "localhost" }, ErrInvalidProxyAddress},
		{"proxy port out of range", func(c *Config) { c.ProxyAddress = "127.0.0.1:70000" }, ErrInvalidProxyAddress},
		{"zero body size uses default", func(c *Config) { c.MaxBodySize = 0 }, nil},
		{"zero depth fetches seeds only", func(c *Config) { c.MaxDepth = 0 }, nil},
		{"valid proxy", func(c *Config) { c.ProxyAddress = "127.0.0.1:9050" }, nil},
		{"json only", func(c *Config) { c.JSONReport = true }, nil},
		{"markdown only", func(c *Config) { c.MarkdownReport = true }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected nil error, got: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

// TestConfigTransportOptions checks that the options build a transport.
func TestConfigTransportOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		if _, err := transport.New(NewConfig().TransportOptions()...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("proxy and site configs", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ProxyAddress = "127.0.0.1:9050"
		cfg.SiteConfigs = &File{}
		if got := len(cfg.TransportOptions()); got != 5 {
			t.Errorf("expected 5 options, got %d", got)
		}
		if _, err := transport.New(cfg.TransportOptions()...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// TestConfigSiteFor tests the merge of global and per-host crawl settings.
func TestConfigSiteFor(t *testing.T) {
	t.Parallel()

	t.Run("without file uses global depth", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if got := cfg.SiteFor("example.com"); got.Depth != DefaultMaxDepth {
			t.Errorf("expected depth %d, got %d", DefaultMaxDepth, got.Depth)
		}
	})

	t.Run("file overrides depth and patterns", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = &File{
			Defaults: SiteConfig{IgnorePatterns: []string{"*.pdf"}},
			Sites: map[string]SiteConfig{
				"example.com": {Depth: 5},
			},
		}

		got := cfg.SiteFor("example.com")
		if got.Depth != 5 {
			t.Errorf("expected depth 5, got %d", got.Depth)
		}
		if len(got.IgnorePatterns) != 1 {
			t.Errorf("expected default ignore pattern, got %v", got.IgnorePatterns)
		}
		if other := cfg.SiteFor("other.example"); other.Depth != DefaultMaxDepth {
			t.Errorf("expected global depth for unknown host, got %d", other.Depth)
		}
	})
}

// TestFileGetSiteConfig tests merging of defaults and per-host blocks.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Depth: 3, Cookie: "default_cookie=abc"},
			Sites:    map[string]SiteConfig{},
		}

		cfg := file.GetSiteConfig("unknown.example")
		if cfg.Depth != 3 {
			t.Errorf("expected depth 3, got %d", cfg.Depth)
		}
		if cfg.Cookie != "default_cookie=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("returns site-specific config", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Depth: 3, Cookie: "default_cookie=abc"},
			Sites: map[string]SiteConfig{
				"data.example.org": {Depth: 4, Cookie: "session=xyz"},
			},
		}

		cfg := file.GetSiteConfig("data.example.org")
		if cfg.Depth != 4 {
			t.Errorf("expected depth 4, got %d", cfg.Depth)
		}
		if cfg.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("lookup ignores case and port", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Sites: map[string]SiteConfig{
				"Data.Example.org":     {Cookie: "host"},
				"api.example.org:8443": {Cookie: "origin"},
			},
		}

		if got := file.GetSiteConfig("data.example.org:8080").Cookie; got != "host" {
			t.Errorf("expected host cookie, got %q", got)
		}
		if got := file.GetSiteConfig("api.example.org:8443").Cookie; got != "origin" {
			t.Errorf("expected origin cookie, got %q", got)
		}
		if got := file.GetSiteConfig("api.example.org").Cookie; got != "" {
			t.Errorf("expected no cookie for other origin, got %q", got)
		}
	})

	t.Run("merges headers without mutating defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Headers: map[string]string{"X-Default": "value1", "X-Shared": "default"}},
			Sites: map[string]SiteConfig{
				"data.example.org": {Headers: map[string]string{"X-Site": "value2", "X-Shared": "site"}},
			},
		}

		cfg := file.GetSiteConfig("data.example.org")
		if cfg.Headers["X-Default"] != "value1" || cfg.Headers["X-Site"] != "value2" {
			t.Errorf("expected merged headers, got %v", cfg.Headers)
		}
		if cfg.Headers["X-Shared"] != "site" {
			t.Errorf("expected site header to win, got %q", cfg.Headers["X-Shared"])
		}
		if file.Defaults.Headers["X-Shared"] != "default" {
			t.Error("defaults were mutated by the merge")
		}
		if _, ok := file.Defaults.Headers["X-Site"]; ok {
			t.Error("site header leaked into defaults")
		}
	})

	t.Run("site patterns override defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				IgnorePatterns: []string{"/default/*"},
				FollowPatterns: []string{"/follow/*"},
			},
			Sites: map[string]SiteConfig{
				"data.example.org": {IgnorePatterns: []string{"/site/*"}},
			},
		}

		cfg := file.GetSiteConfig("data.example.org")
		if len(cfg.IgnorePatterns) != 1 || cfg.IgnorePatterns[0] != "/site/*" {
			t.Errorf("expected site ignore patterns, got %v", cfg.IgnorePatterns)
		}
		if len(cfg.FollowPatterns) != 1 || cfg.FollowPatterns[0] != "/follow/*" {
			t.Errorf("expected default follow patterns, got %v", cfg.FollowPatterns)
		}
	})

	t.Run("nil file", func(t *testing.T) {
		t.Parallel()

		var file *File
		cookie, headers := file.Resolve("data.example.org")
		if cookie != "" || headers != nil {
			t.Errorf("expected empty resolution, got %q %v", cookie, headers)
		}
	})

	t.Run("resolve returns cookie and headers", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Sites: map[string]SiteConfig{
				"data.example.org": {Cookie: "a=b", Headers: map[string]string{"Authorization": "Bearer x"}},
			},
		}
		var resolver transport.SiteResolver = file.Resolve
		cookie, headers := resolver("data.example.org")
		if cookie != "a=b" || headers["Authorization"] != "Bearer x" {
			t.Errorf("unexpected resolution %q %v", cookie, headers)
		}
	})
}

// TestReadFile tests parsing one configuration file.
func TestReadFile(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), ".ldcrawl")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		return path
	}

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := ReadFile("/nonexistent/path/.ldcrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		path := write(t, `defaults:
  depth: 3
  cookie: "default=abc"
sites:
  data.example.org:
    depth: 5
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/admin/*"
    followPatterns:
      - "/api/*"
`)
		cfg, err := ReadFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Defaults.Depth != 3 {
			t.Errorf("expected default depth 3, got %d", cfg.Defaults.Depth)
		}
		site, ok := cfg.Sites["data.example.org"]
		if !ok {
			t.Fatal("expected data.example.org in sites")
		}
		if site.Depth != 5 {
			t.Errorf("expected site depth 5, got %d", site.Depth)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
		if len(site.IgnorePatterns) != 1 || len(site.FollowPatterns) != 1 {
			t.Errorf("expected one pattern of each kind, got %+v", site)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		if _, err := ReadFile(write(t, `invalid: yaml: content: [}`)); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("rejects malformed patterns", func(t *testing.T) {
		t.Parallel()

		_, err := ReadFile(write(t, "defaults:\n  ignorePatterns:\n    - \"[\"\n"))
		if err == nil {
			t.Fatal("expected error for malformed pattern")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		cfg, err := ReadFile(write(t, "defaults:\n  depth: 1\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestLoad tests resolving the configuration file to use.
func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("explicit path is read", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults:\n  depth: 2\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		cf, path, err := Load(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if path != configPath {
			t.Errorf("expected %q, got %q", configPath, path)
		}
		if cf.Defaults.Depth != 2 {
			t.Errorf("expected depth 2, got %d", cf.Defaults.Depth)
		}
	})

	t.Run("missing explicit path is an error", func(t *testing.T) {
		t.Parallel()

		cf, _, err := Load("/nonexistent/path/config.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got %v", err)
		}
		if cf != nil {
			t.Error("expected nil config")
		}
	})

	t.Run("invalid explicit file is an error", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "broken.yaml")
		if err := os.WriteFile(configPath, []byte("sites: [}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, _, err := Load(configPath); err == nil || errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected a parse error, got %v", err)
		}
	})
}

// TestSearchPaths tests the lookup order.
func TestSearchPaths(t *testing.T) {
	t.Parallel()

	paths := SearchPaths()
	if len(paths) < 2 {
		t.Fatalf("expected at least two search paths, got %v", paths)
	}
	if filepath.Base(paths[0]) != DefaultConfigFile {
		t.Errorf("expected %s first, got %q", DefaultConfigFile, paths[0])
	}

	xdgPath := filepath.Join(XDGConfigDir(), xdgConfigFile)
	found := false
	for _, p := range paths {
		if p == xdgPath {
			found = true
		}
		if found && filepath.Base(p) == DefaultConfigFile {
			t.Errorf("dot files must come before XDG paths: %v", paths)
		}
	}
	if !found {
		t.Errorf("expected %q in %v", xdgPath, paths)
	}
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("unexpected data dir %q", XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("unexpected config dir %q", XDGConfigDir())
	}
}
