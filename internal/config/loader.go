package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the name of a per-directory configuration file.
const DefaultConfigFile = ".ldcrawl"

// xdgConfigFile is the file name inside an XDG config directory.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when an explicitly named configuration file
// does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// SearchPaths lists where Load looks for a configuration file when none is
// named: the working directory, the home directory, then the user and
// system XDG config directories.
func SearchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	paths = append(paths, filepath.Join(XDGConfigDir(), xdgConfigFile))
	for _, dir := range xdg.ConfigDirs {
		paths = append(paths, filepath.Join(dir, AppName, xdgConfigFile))
	}
	return paths
}

// Load returns the site configuration and the path it was read from.
//
// A non-empty explicit path must exist. Otherwise the first existing entry
// of SearchPaths is used, and finding none is not an error: Load returns a
// nil File and an empty path.
func Load(explicit string) (*File, string, error) {
	if explicit != "" {
		cf, err := ReadFile(explicit)
		return cf, explicit, err
	}
	for _, path := range SearchPaths() {
		cf, err := ReadFile(path)
		if errors.Is(err, ErrConfigNotFound) {
			continue
		}
		return cf, path, err
	}
	return nil, "", nil
}

// ReadFile parses and validates one configuration file.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // reading user configuration is the point
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	cf := &File{}
	if err := yaml.Unmarshal(data, cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return cf, nil
}
