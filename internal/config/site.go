package config

import (
	"fmt"
	"maps"
	"net"
	"path"
	"strings"
)

// SiteConfig holds per-host settings from the .ldcrawl file.
type SiteConfig struct {
	// Cookie is sent with every request to the host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for requests to the host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global link depth for crawls seeded on the host.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are glob patterns on the URI path that are never
	// followed.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict following to paths matching one of them.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .ldcrawl configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys are host names as they appear in URIs (e.g., "data.example.org").
	// A port may be included to target one origin only.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merged over the
// defaults. Lookup is case-insensitive; "host:port" falls back to "host".
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	siteConfig, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(siteConfig.Headers))
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	return result
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	for key, sc := range cf.Sites {
		if strings.ToLower(key) == host {
			return sc, true
		}
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return cf.lookup(h)
	}
	return SiteConfig{}, false
}

// Resolve returns the cookie and headers for a host. It matches the
// transport's per-host resolver signature.
func (cf *File) Resolve(host string) (string, map[string]string) {
	sc := cf.GetSiteConfig(host)
	return sc.Cookie, sc.Headers
}

// Validate reports the first malformed glob pattern in the file.
func (cf *File) Validate() error {
	if cf == nil {
		return nil
	}
	check := func(where string, sc SiteConfig) error {
		for _, p := range append(append([]string(nil), sc.IgnorePatterns...), sc.FollowPatterns...) {
			if _, err := path.Match(p, "a"); err != nil {
				return fmt.Errorf("%s: pattern %q: %w", where, p, err)
			}
		}
		return nil
	}
	if err := check("defaults", cf.Defaults); err != nil {
		return err
	}
	for host, sc := range cf.Sites {
		if err := check("sites."+host, sc); err != nil {
			return err
		}
	}
	return nil
}
