package crawler

import "sync"

// Collector is a listener that keeps every delivered resource in arrival
// order.
type Collector struct {
	mu        sync.Mutex
	resources []Resource
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{resources: make([]Resource, 0)}
}

// Notify implements Listener.
func (c *Collector) Notify(res Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = append(c.resources, res)
	return nil
}

// Resources returns a copy of the collected resources.
func (c *Collector) Resources() []Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// Len returns the number of collected resources.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resources)
}

var _ Listener = (*Collector)(nil)
