package crawler

import (
	"errors"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nao1215/ldcrawl/internal/representation"
)

// Default limits for a Follower.
const (
	DefaultMaxDepth     = 2
	DefaultMaxResources = 100
)

// Getter submits fetches. *Crawler satisfies it.
type Getter interface {
	Get(uri string) error
}

// Follower is a listener that follows links found in successfully parsed
// resources by calling Get on the crawler again.
//
// Design decision: Follower, not the crawler, remembers visited URIs
// because:
//  1. Some applications legitimately re-fetch the same URI
//  2. Different traversals need different notions of "same resource"
//  3. Depth and scope limits belong with the traversal policy
type Follower struct {
	getter Getter
	logger *slog.Logger

	// maxDepth limits link hops from a seed. 0 fetches only the seeds.
	maxDepth int

	// maxResources caps the total number of URIs submitted, seeds included.
	maxResources int

	// sameHost restricts following to the hosts of the seeds.
	sameHost bool

	// ignorePatterns are URL path globs never followed.
	ignorePatterns []string

	// followPatterns, when set, are the only URL path globs followed.
	followPatterns []string

	mu sync.Mutex
	// depth maps a normalized URI to the hop count at which it was
	// submitted. Presence means the URI was visited.
	depth map[string]int
	hosts map[string]bool
}

// FollowerOption configures a Follower.
type FollowerOption func(*Follower)

// WithMaxDepth sets the maximum number of link hops from a seed.
func WithMaxDepth(depth int) FollowerOption {
	return func(f *Follower) {
		if depth >= 0 {
			f.maxDepth = depth
		}
	}
}

// WithMaxResources caps the number of URIs submitted.
func WithMaxResources(n int) FollowerOption {
	return func(f *Follower) {
		if n > 0 {
			f.maxResources = n
		}
	}
}

// WithSameHost restricts following to the seeds' hosts.
func WithSameHost(same bool) FollowerOption {
	return func(f *Follower) {
		f.sameHost = same
	}
}

// WithIgnorePatterns sets URL path globs to skip, such as "/admin/*" or
// "*.pdf".
func WithIgnorePatterns(patterns []string) FollowerOption {
	return func(f *Follower) {
		f.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path globs to follow exclusively.
func WithFollowPatterns(patterns []string) FollowerOption {
	return func(f *Follower) {
		f.followPatterns = patterns
	}
}

// WithFollowerLogger sets the logger.
func WithFollowerLogger(l *slog.Logger) FollowerOption {
	return func(f *Follower) {
		f.logger = l
	}
}

// NewFollower creates a Follower that submits links through g.
func NewFollower(g Getter, opts ...FollowerOption) *Follower {
	f := &Follower{
		getter:       g,
		maxDepth:     DefaultMaxDepth,
		maxResources: DefaultMaxResources,
		sameHost:     true,
		depth:        make(map[string]int),
		hosts:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Seed submits a starting URI at depth 0. Seeding a URI that was already
// visited is a no-op.
func (f *Follower) Seed(uri string) error {
	u, err := url.Parse(uri)
	if err != nil || !u.IsAbs() {
		// Let the crawler produce its usual error.
		return f.getter.Get(uri)
	}

	f.mu.Lock()
	key := normalizeURL(uri)
	if _, seen := f.depth[key]; seen {
		f.mu.Unlock()
		return nil
	}
	f.depth[key] = 0
	f.hosts[strings.ToLower(u.Host)] = true
	f.mu.Unlock()

	return f.getter.Get(uri)
}

// Notify implements Listener.
func (f *Follower) Notify(res Resource) error {
	if !res.OK() {
		return nil
	}

	f.mu.Lock()
	d, known := f.depth[normalizeURL(res.URI)]
	if !known || d >= f.maxDepth {
		f.mu.Unlock()
		return nil
	}

	next := make([]string, 0)
	for _, link := range representation.Links(res.Representation) {
		if len(f.depth) >= f.maxResources {
			break
		}
		key := normalizeURL(link)
		if _, seen := f.depth[key]; seen {
			continue
		}
		if f.sameHost && !f.isSeedHost(link) {
			continue
		}
		if !f.shouldCrawl(link) {
			continue
		}
		f.depth[key] = d + 1
		next = append(next, link)
	}
	f.mu.Unlock()

	var errs []error
	for _, link := range next {
		if err := f.getter.Get(link); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			errs = append(errs, err)
		}
	}
	if len(next) > 0 {
		f.logger.Debug("following links", "from", res.URI, "count", len(next), "depth", d+1)
	}
	return errors.Join(errs...)
}

// Visited returns the number of distinct URIs submitted so far.
func (f *Follower) Visited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.depth)
}

// isSeedHost reports whether link is on one of the seed hosts.
// Callers must hold f.mu.
func (f *Follower) isSeedHost(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return f.hosts[strings.ToLower(u.Host)]
}

// shouldCrawl checks a URL against the ignore and follow patterns.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and none matches, skip it
//  3. Otherwise, follow it
func (f *Follower) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.followPatterns) > 0 {
		for _, pattern := range f.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	// "/admin/*" also matches anything deeper below /admin/
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without a slash also apply to the last path segment
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}

// normalizeURL normalizes a URL for visited-set lookups. The fragment is
// dropped, scheme and host are lower-cased and an empty path becomes "/".
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

var _ Listener = (*Follower)(nil)
