package executor

import (
	"time"

	"github.com/wbrown/janus-relational/relational"
	"github.com/wbrown/janus-relational/relational/annotations"
)

// Context provides annotation points for join execution tracking.
// It is unrelated to context.Context, which carries cancellation.
type Context interface {
	// JoinBegin is called once the spec has been validated
	JoinBegin(id string, spec relational.JoinSpec)

	// BuildPhase wraps the build of the hash table
	BuildPhase(id string, fn func() (BuildStats, error)) error

	// ProbeComplete is called when the probe input is exhausted
	ProbeComplete(id string, start time.Time, probed, matched, emitted int)

	// FlushComplete is called after unmatched build rows were emitted
	FlushComplete(id string, start time.Time, flushed int)

	// JoinComplete is called exactly once when the iterator finishes,
	// fails or is closed early
	JoinComplete(id string, start time.Time, emitted int, err error)

	// Collector returns the underlying collector, nil for BaseContext
	Collector() *annotations.Collector
}

// BuildStats summarizes a finished build phase.
type BuildStats struct {
	Rows     int
	Buckets  int
	NullKeys int
}

// BaseContext provides a no-op implementation with zero overhead.
type BaseContext struct{}

// NewContext creates an appropriate context based on whether annotations are needed.
func NewContext(handler annotations.Handler) Context {
	if handler == nil {
		return BaseContext{}
	}
	return &AnnotatedContext{
		collector: annotations.NewCollector(handler),
	}
}

func (BaseContext) JoinBegin(id string, spec relational.JoinSpec) {}

func (BaseContext) BuildPhase(id string, fn func() (BuildStats, error)) error {
	_, err := fn()
	return err
}

func (BaseContext) ProbeComplete(id string, start time.Time, probed, matched, emitted int) {}

func (BaseContext) FlushComplete(id string, start time.Time, flushed int) {}

func (BaseContext) JoinComplete(id string, start time.Time, emitted int, err error) {}

func (BaseContext) Collector() *annotations.Collector {
	return nil
}

// AnnotatedContext records every join phase as an annotation event.
type AnnotatedContext struct {
	collector *annotations.Collector
}

func (c *AnnotatedContext) JoinBegin(id string, spec relational.JoinSpec) {
	c.collector.Add(annotations.Event{
		Name:  annotations.JoinBegin,
		Start: time.Now(),
		End:   time.Now(),
		Data: map[string]interface{}{
			"join.id":   id,
			"join.kind": spec.Kind.String(),
			"join.spec": spec.String(),
		},
	})
}

func (c *AnnotatedContext) BuildPhase(id string, fn func() (BuildStats, error)) error {
	start := time.Now()
	stats, err := fn()

	data := map[string]interface{}{
		"join.id": id,
	}
	if err != nil {
		data["error"] = err
		c.collector.AddTiming(annotations.ErrorJoin, start, data)
		return err
	}
	data["build.rows"] = stats.Rows
	data["build.buckets"] = stats.Buckets
	data["build.null-keys"] = stats.NullKeys
	c.collector.AddTiming(annotations.JoinBuild, start, data)
	return nil
}

func (c *AnnotatedContext) ProbeComplete(id string, start time.Time, probed, matched, emitted int) {
	c.collector.AddTiming(annotations.JoinProbe, start, map[string]interface{}{
		"join.id":       id,
		"probe.rows":    probed,
		"probe.matched": matched,
		"result.rows":   emitted,
	})
}

func (c *AnnotatedContext) FlushComplete(id string, start time.Time, flushed int) {
	c.collector.AddTiming(annotations.JoinFlush, start, map[string]interface{}{
		"join.id":    id,
		"flush.rows": flushed,
	})
}

func (c *AnnotatedContext) JoinComplete(id string, start time.Time, emitted int, err error) {
	data := map[string]interface{}{
		"join.id":     id,
		"result.rows": emitted,
	}
	if err != nil {
		data["error"] = err
	}
	c.collector.AddTiming(annotations.JoinComplete, start, data)
}

func (c *AnnotatedContext) Collector() *annotations.Collector {
	return c.collector
}
