package report

import (
	"sort"
	"time"

	"github.com/nao1215/ldcrawl/internal/crawler"
)

// Summary is the format-independent view of a finished crawl.
type Summary struct {
	// SessionID identifies the crawl. It matches the history database.
	SessionID string `json:"session_id"`

	// Seeds are the URIs the crawl started from.
	Seeds []string `json:"seeds"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Total is the number of delivered resources.
	Total int `json:"total"`

	// StatusCounts maps every status name to its count, zeros included.
	StatusCounts map[string]int `json:"status_counts"`

	// TagCounts maps a representation tag to the number of OK resources
	// carrying it. Resources with an empty representation are counted
	// under "".
	TagCounts map[string]int `json:"tag_counts"`

	// Facts is the total number of facts across all representations.
	Facts int `json:"facts"`

	// Resources lists every resource sorted by URI.
	Resources []ResourceSummary `json:"resources"`
}

// ResourceSummary is one row of a Summary.
type ResourceSummary struct {
	URI         string `json:"uri"`
	Status      string `json:"status"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Tag         string `json:"tag,omitempty"`
	Facts       int    `json:"facts"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

// OK reports whether the row describes a successfully fetched resource.
func (r ResourceSummary) OK() bool {
	return r.Status == crawler.StatusOK.String()
}

// NewSummary aggregates the given resources. The input slice is not
// modified.
func NewSummary(sessionID string, seeds []string, startedAt, finishedAt time.Time, resources []crawler.Resource) *Summary {
	s := &Summary{
		SessionID:    sessionID,
		Seeds:        append([]string(nil), seeds...),
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
		Total:        len(resources),
		StatusCounts: make(map[string]int, len(crawler.AllStatuses())),
		TagCounts:    make(map[string]int),
		Resources:    make([]ResourceSummary, 0, len(resources)),
	}
	for _, st := range crawler.AllStatuses() {
		s.StatusCounts[st.String()] = 0
	}

	for _, res := range resources {
		row := ResourceSummary{
			URI:         res.URI,
			Status:      res.Status.String(),
			StatusCode:  res.StatusCode,
			ContentType: res.ContentType,
			Tag:         res.Representation.Tag(),
			Facts:       len(res.Representation),
			DurationMS:  res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}

		s.StatusCounts[row.Status]++
		s.Facts += row.Facts
		if res.OK() {
			s.TagCounts[row.Tag]++
		}
		s.Resources = append(s.Resources, row)
	}

	sort.SliceStable(s.Resources, func(i, j int) bool {
		return s.Resources[i].URI < s.Resources[j].URI
	})
	return s
}

// Count returns the number of resources with the given status.
func (s *Summary) Count(status crawler.Status) int {
	return s.StatusCounts[status.String()]
}

// Failures returns the rows whose status is not OK, in URI order.
func (s *Summary) Failures() []ResourceSummary {
	var out []ResourceSummary
	for _, r := range s.Resources {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// HasFailures reports whether any resource failed.
func (s *Summary) HasFailures() bool {
	return s.Total > s.Count(crawler.StatusOK)
}

// Elapsed is the wall-clock duration of the crawl.
func (s *Summary) Elapsed() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Tags returns the keys of TagCounts sorted by descending count, then name.
func (s *Summary) Tags() []string {
	tags := make([]string, 0, len(s.TagCounts))
	for tag := range s.TagCounts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		ci, cj := s.TagCounts[tags[i]], s.TagCounts[tags[j]]
		if ci != cj {
			return ci > cj
		}
		return tags[i] < tags[j]
	})
	return tags
}
