// Package annotations reports what a group-by run is doing: when it starts,
// each new group, skipped records, and the final tally.
package annotations

import (
	"sync"
	"time"
)

// Event names, hierarchical like "groupby/invoked"
const (
	GroupByInvoked  = "groupby/invoked"
	GroupCreated    = "groupby/group.created"
	RecordSkipped   = "groupby/record.skipped"
	GroupByComplete = "groupby/completed"
)

// MaxHistory bounds the events a Collector retains. Group tracing on a
// high-cardinality stream emits one event per key; the handler still sees
// all of them.
const MaxHistory = 1024

// Event is a single annotation emitted during a run.
type Event struct {
	Name    string
	Start   time.Time
	End     time.Time
	Latency time.Duration
	Data    map[string]interface{}
}

// Handler processes events as they occur.
type Handler func(event Event)

// Collector keeps a bounded history of events plus per-name counts and
// forwards each event to an optional handler. A nil *Collector drops
// everything.
type Collector struct {
	mu      sync.Mutex
	handler Handler
	history []Event
	counts  map[string]int
}

// NewCollector creates a collector. handler may be nil when the caller only
// reads Events and Count afterwards.
func NewCollector(handler Handler) *Collector {
	return &Collector{handler: handler, counts: make(map[string]int)}
}

// Enabled reports whether events are recorded. Callers check it before
// building event data.
func (c *Collector) Enabled() bool {
	return c != nil
}

// Add records event and passes it to the handler.
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	c.counts[event.Name]++
	if len(c.history) < MaxHistory {
		c.history = append(c.history, event)
	}
	c.mu.Unlock()

	// handler runs unlocked so it may call back into the collector
	if c.handler != nil {
		c.handler(event)
	}
}

// Mark records an instantaneous event.
func (c *Collector) Mark(name string, data map[string]interface{}) {
	now := time.Now()
	c.Add(Event{Name: name, Start: now, End: now, Data: data})
}

// AddTiming records an event spanning start until now.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	end := time.Now()
	c.Add(Event{Name: name, Start: start, End: end, Latency: end.Sub(start), Data: data})
}

// Events returns the retained events in emission order.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.history...)
}

// Count returns how many events named name were added, retained or not.
func (c *Collector) Count(name string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}
