package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/ldcrawl/internal/fact"
	"github.com/nao1215/ldcrawl/internal/operation"
	"github.com/nao1215/ldcrawl/internal/representation"
	"github.com/nao1215/ldcrawl/internal/transport"
)

// DefaultWorkers is the number of fetches that may run at once.
const DefaultWorkers = 8

var (
	// ErrMalformedURI is returned by Get for a URI that does not parse or
	// is not absolute.
	ErrMalformedURI = errors.New("malformed URI")

	// ErrClosed is returned by Get after Close.
	ErrClosed = errors.New("crawler is closed")
)

// Metrics receives crawler lifecycle events. Implementations must be safe
// for concurrent use.
//
// FetchStarted and FetchFinished bracket the time a request holds a worker
// slot. ResourceDelivered is called once per accepted request, including
// requests aborted before they got a slot.
type Metrics interface {
	FetchStarted()
	FetchFinished(status string, d time.Duration)
	ResourceDelivered(status string)
	ListenerFault()
}

// Stats is a point-in-time view of request states.
type Stats struct {
	// Submitted counts every accepted Get.
	Submitted int64
	// Fetching counts requests currently holding a worker slot.
	Fetching int64
	// Completed counts resources delivered with StatusOK.
	Completed int64
	// Failed counts resources delivered with any other status.
	Failed int64
}

// Pending returns the number of requests not yet delivered.
func (s Stats) Pending() int64 {
	return s.Submitted - s.Completed - s.Failed
}

// Crawler fetches resources asynchronously and notifies listeners.
//
// Design decision: Each Get runs in its own goroutine gated by a weighted
// semaphore rather than feeding a fixed set of worker goroutines because:
//  1. Get must never block, even when every worker is busy
//  2. A listener calling Get from inside Notify cannot deadlock on a queue
//     that only the notifying worker would drain
//  3. Idle crawlers hold no goroutines
type Crawler struct {
	transport transport.Transport
	registry  *representation.Registry
	logger    *slog.Logger
	metrics   Metrics
	headers   map[string]string
	sessionID string
	workers   int64

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	// listeners is replaced wholesale on every AddListener, so a
	// notification iterates a snapshot that later additions cannot touch.
	listeners atomic.Pointer[[]Listener]
	listenMu  sync.Mutex

	// pending counts accepted requests whose notification has not finished.
	// idle is closed whenever pending drops to zero.
	pendMu  sync.Mutex
	pending int64
	idle    chan struct{}

	submitted atomic.Int64
	fetching  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithRegistry sets the registry used to convert response bodies.
func WithRegistry(r *representation.Registry) Option {
	return func(c *Crawler) {
		c.registry = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = l
	}
}

// WithWorkers sets how many fetches may run at once.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = int64(n)
		}
	}
}

// WithMetrics sets the receiver of lifecycle events.
func WithMetrics(m Metrics) Option {
	return func(c *Crawler) {
		c.metrics = m
	}
}

// WithHeaders adds header fields to every GET request.
func WithHeaders(h map[string]string) Option {
	return func(c *Crawler) {
		c.headers = h
	}
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(c *Crawler) {
		if id != "" {
			c.sessionID = id
		}
	}
}

// New creates a Crawler that fetches through t.
func New(t transport.Transport, opts ...Option) *Crawler {
	c := &Crawler{
		transport: t,
		workers:   DefaultWorkers,
		sessionID: uuid.NewString(),
		idle:      make(chan struct{}),
	}
	close(c.idle)

	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = representation.Default()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("crawl_id", c.sessionID)

	c.sem = semaphore.NewWeighted(c.workers)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	empty := make([]Listener, 0)
	c.listeners.Store(&empty)
	return c
}

// SessionID returns the identifier attached to every log line of this
// crawler.
func (c *Crawler) SessionID() string {
	return c.sessionID
}

// AddListener registers a listener. Adding a listener that is already
// registered has no effect; listeners whose values cannot be compared,
// such as a ListenerFunc, are always added.
func (c *Crawler) AddListener(l Listener) {
	if l == nil {
		return
	}

	c.listenMu.Lock()
	defer c.listenMu.Unlock()

	current := *c.listeners.Load()
	if reflect.ValueOf(l).Comparable() {
		for _, existing := range current {
			// A comparable type can still hold a func in an interface
			// field, so both dynamic values are checked before ==.
			if reflect.ValueOf(existing).Comparable() && existing == l {
				return
			}
		}
	}

	next := make([]Listener, len(current), len(current)+1)
	copy(next, current)
	next = append(next, l)
	c.listeners.Store(&next)
}

// Get schedules an asynchronous GET of uri and returns immediately.
// It fails with ErrMalformedURI when uri is not an absolute URI and with
// ErrClosed after Close. Otherwise exactly one Resource for this call is
// eventually delivered to the listeners.
func (c *Crawler) Get(uri string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedURI, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("%w: %q is not absolute", ErrMalformedURI, uri)
	}

	requestID := uuid.NewString()
	c.begin()
	c.submitted.Add(1)
	c.logger.Debug("request submitted", "uri", uri, "request_id", requestID)

	go c.run(uri, requestID)
	return nil
}

// Wait blocks until every accepted request has been delivered, including
// requests listeners submit while being notified, or until ctx is done.
func (c *Crawler) Wait(ctx context.Context) error {
	for {
		c.pendMu.Lock()
		if c.pending == 0 {
			c.pendMu.Unlock()
			return nil
		}
		idle := c.idle
		c.pendMu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting requests and aborts fetches in progress. Aborted
// fetches are still delivered, as TRANSPORT_ERROR resources. Close does
// not wait; call Wait for that. Calling Close more than once is safe.
func (c *Crawler) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.cancel()
	}
	return nil
}

// Stats returns the current request counters.
func (c *Crawler) Stats() Stats {
	return Stats{
		Submitted: c.submitted.Load(),
		Fetching:  c.fetching.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
	}
}

func (c *Crawler) begin() {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	if c.pending == 0 {
		c.idle = make(chan struct{})
	}
	c.pending++
}

func (c *Crawler) end() {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	c.pending--
	if c.pending == 0 {
		close(c.idle)
	}
}

// run performs one request and delivers its resource.
func (c *Crawler) run(uri, requestID string) {
	defer c.end()

	logger := c.logger.With("request_id", requestID)
	res := c.fetch(uri, requestID, logger)

	if res.OK() {
		c.completed.Add(1)
	} else {
		c.failed.Add(1)
	}
	if c.metrics != nil {
		c.metrics.ResourceDelivered(res.Status.String())
	}
	logger.Debug("resource completed",
		"uri", res.URI,
		"status", res.Status.String(),
		"code", res.StatusCode,
		"facts", len(res.Representation),
		"duration", res.Duration,
	)

	c.notify(res, logger)
}

// fetch acquires a worker slot, performs the request and builds the
// Resource. The slot is released before returning.
func (c *Crawler) fetch(uri, requestID string, logger *slog.Logger) (res Resource) {
	res = Resource{
		URI:            uri,
		Representation: fact.Empty(),
		RequestID:      requestID,
	}

	if err := c.sem.Acquire(c.ctx, 1); err != nil {
		res.Status = StatusTransportError
		res.Err = fmt.Errorf("request aborted before fetching: %w", err)
		res.FetchedAt = time.Now()
		return res
	}
	defer c.sem.Release(1)

	c.fetching.Add(1)
	defer c.fetching.Add(-1)
	if c.metrics != nil {
		c.metrics.FetchStarted()
	}

	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if c.metrics != nil {
			c.metrics.FetchFinished(res.Status.String(), res.Duration)
		}
	}()

	op, err := operation.New(uri, operation.Fields{
		Method:  http.MethodGet,
		Headers: c.headers,
	},
		operation.WithTransport(c.transport),
		operation.WithRegistry(c.registry),
		operation.WithLogger(logger),
	)
	if err == nil {
		err = op.SendRequest(c.ctx)
	}
	res.FetchedAt = time.Now()
	if err != nil {
		res.Status = StatusTransportError
		res.Err = err
		return res
	}

	resp, err := op.Response()
	if err != nil {
		res.Status = StatusTransportError
		res.Err = err
		return res
	}

	res.Status = fromOperation(resp.Status)
	res.StatusCode = resp.StatusCode
	res.ContentType = resp.ContentType
	res.Err = resp.Err

	if res.Status == StatusOK {
		if resp.PayloadErr != nil {
			res.Status = StatusUnsupportedRepresentation
			res.Err = resp.PayloadErr
		} else {
			res.Representation = resp.Payload
		}
	}
	return res
}

// notify delivers res to a snapshot of the listeners, in registration
// order. Each listener is isolated from the failures of the others.
func (c *Crawler) notify(res Resource, logger *slog.Logger) {
	snapshot := *c.listeners.Load()
	for i, l := range snapshot {
		if err := c.notifyOne(l, res); err != nil {
			if c.metrics != nil {
				c.metrics.ListenerFault()
			}
			logger.Warn("listener failed",
				"uri", res.URI,
				"listener", i,
				"error", err,
			)
		}
	}
}

func (c *Crawler) notifyOne(l Listener, res Resource) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l.Notify(res)
}
