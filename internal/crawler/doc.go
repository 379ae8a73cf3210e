// Package crawler fetches linked-data resources and delivers each completed
// fetch to registered listeners.
//
// # Architecture
//
// The Crawler is a thin facade over a bounded pool of fetch workers. Get
// validates a URI and returns at once; a goroutine then waits for a worker
// slot, performs one HTTP operation, converts the body into facts through a
// representation registry and notifies every listener with the resulting
// Resource.
//
// Design decision: The crawler never decides what to fetch next because:
//  1. Link-following policy differs per application
//  2. Listeners already see every resource and can call Get themselves
//  3. Keeping the crawler policy-free lets one crawler serve many strategies
//
// Repeated Get calls for the same URI produce independent fetches and
// independent notifications. Cycle avoidance is the job of a listener such
// as Follower.
//
// # Request lifecycle
//
//	SUBMITTED -> FETCHING -> COMPLETED | FAILED
//
// A request is SUBMITTED once Get returns, FETCHING while it holds a worker
// slot, and COMPLETED (status OK) or FAILED (any other status) once its
// Resource is built. Every accepted Get produces exactly one Resource.
//
// # Notification
//
// Listeners are notified one after another in registration order, from a
// snapshot of the listener set taken when the resource completed. The worker
// slot is released before notification and no crawler lock is held, so a
// listener may call Get or AddListener re-entrantly. A listener that returns
// an error or panics is logged and skipped; the others are still notified.
//
// # Components
//
//   - Crawler: request lifecycle and notification
//   - Listener, ListenerFunc: the observer capability
//   - Follower: link-following listener with depth, size and scope limits
//   - Collector: listener that keeps every delivered resource
//
// # Usage
//
//	c := crawler.New(tr, crawler.WithWorkers(4))
//	f := crawler.NewFollower(c, crawler.WithMaxDepth(2))
//	c.AddListener(f)
//	if err := f.Seed("https://example.org/data.ttl"); err != nil {
//		return err
//	}
//	err := c.Wait(ctx)
package crawler
