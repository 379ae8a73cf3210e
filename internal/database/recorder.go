package database

import (
	"context"
	"time"

	"github.com/nao1215/ldcrawl/internal/crawler"
)

// recordTimeout bounds a single insert so a locked database cannot stall
// the notifying goroutine forever.
const recordTimeout = 10 * time.Second

// Recorder is a crawler listener that stores every delivered resource.
type Recorder struct {
	db      *ResourceDB
	crawlID string
}

// NewRecorder creates a Recorder writing under crawlID. The crawl row must
// already exist; see BeginCrawl.
func NewRecorder(db *ResourceDB, crawlID string) *Recorder {
	return &Recorder{db: db, crawlID: crawlID}
}

// Notify implements crawler.Listener.
func (r *Recorder) Notify(res crawler.Resource) error {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	return r.db.InsertResource(ctx, r.crawlID, res)
}

var _ crawler.Listener = (*Recorder)(nil)
