// Package config provides configuration structures and utilities for ldcrawl.
// It defines the fetch, crawl, and report options populated from CLI flags,
// plus the optional .ldcrawl YAML file with per-host settings.
package config
