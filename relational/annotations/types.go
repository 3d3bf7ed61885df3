// Package annotations provides a clean, low-overhead annotation system for
// tracking join planning and execution metrics.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Planning
	CostEstimated = "cost/estimated"
	PlanChosen    = "plan/chosen"

	// Join execution phases
	JoinBegin    = "join/begin"
	JoinBuild    = "join/build"
	JoinProbe    = "join/probe"
	JoinFlush    = "join/flush"
	JoinComplete = "join/complete"

	// Errors
	ErrorJoin    = "error/join"
	ErrorStorage = "error/storage"
)

// Event represents a single annotation event.
type Event struct {
	Name    string                 // Event name using hierarchical constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // Duration (End - Start)
	Data    map[string]interface{} // Additional event-specific data
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events.
type Collector struct {
	enabled bool
	handler Handler
	events  []Event
	mu      sync.Mutex
}

// NewCollector creates a new annotation collector.
// A nil handler yields a disabled collector that drops every event.
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 16),
	}
}

// Enabled reports whether events are being recorded.
func (c *Collector) Enabled() bool {
	return c != nil && c.enabled
}

// Handler returns the underlying event handler.
func (c *Collector) Handler() Handler {
	if c == nil {
		return nil
	}
	return c.handler
}

// Add records a new event.
// Thread-safe for concurrent access.
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Call handler outside the lock to avoid deadlocks
	c.handler(event)
}

// AddTiming records an event that started at start and ends now.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}

	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// Events returns a copy of all collected events.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	eventsCopy := make([]Event, len(c.events))
	copy(eventsCopy, c.events)
	return eventsCopy
}

// Reset clears the collector for reuse.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
