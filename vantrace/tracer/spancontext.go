// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"

	"github.com/vantrace/vantrace-go/internal/log"
	"github.com/vantrace/vantrace-go/vantrace"
)

var _ vantrace.SpanContext = (*spanContext)(nil)

// spanContext represents a span state that can propagate to descendant spans
// and across process boundaries. It contains all the information needed to
// spawn a direct descendant of the span that it belongs to. It can be used
// to create distributed tracing by propagating it using the provided interfaces.
type spanContext struct {
	// the below group should propagate only locally

	trace *trace // reference to the trace that this span belongs too
	span  *span  // reference to the span that hosts this context

	// the below group should propagate cross-process

	traceID uint64
	spanID  uint64

	mu         sync.RWMutex // guards below fields
	baggage    map[string]string
	hasBaggage uint32 // atomic int for quick checking presence of baggage. 0 indicates no baggage, otherwise baggage exists.
	origin     string // e.g. "synthetics"
}

// newSpanContext creates a new SpanContext to serve as context for the given
// span. If the provided parent is not nil, the context will inherit the trace,
// baggage and other values from it. This method also pushes the span into the
// new context's trace and as a result, it should not be called multiple times
// for the same span.
func newSpanContext(span *span, parent *spanContext) *spanContext {
	context := &spanContext{
		traceID: span.TraceID,
		spanID:  span.SpanID,
		span:    span,
	}
	if parent != nil {
		context.trace = parent.trace
		context.origin = parent.origin
		parent.ForeachBaggageItem(func(k, v string) bool {
			context.setBaggageItem(k, v)
			return true
		})
	}
	if context.trace == nil {
		context.trace = newTrace()
	}
	// put span in context's trace
	context.trace.push(span)
	return context
}

// SpanID implements SpanContext.
func (c *spanContext) SpanID() uint64 { return c.spanID }

// TraceID implements SpanContext.
func (c *spanContext) TraceID() uint64 { return c.traceID }

// ForeachBaggageItem implements SpanContext.
func (c *spanContext) ForeachBaggageItem(handler func(k, v string) bool) {
	if atomic.LoadUint32(&c.hasBaggage) == 0 {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.baggage {
		if !handler(k, v) {
			break
		}
	}
}

func (c *spanContext) setSamplingPriority(p int) {
	if c.trace == nil {
		c.trace = newTrace()
	}
	c.trace.setSamplingPriority(float64(p))
}

func (c *spanContext) samplingPriority() (p int, ok bool) {
	if c.trace == nil {
		return 0, false
	}
	return c.trace.samplingPriority()
}

func (c *spanContext) setBaggageItem(key, val string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.baggage == nil {
		atomic.StoreUint32(&c.hasBaggage, 1)
		c.baggage = make(map[string]string, 1)
	}
	c.baggage[key] = val
}

func (c *spanContext) baggageItem(key string) string {
	if atomic.LoadUint32(&c.hasBaggage) == 0 {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baggage[key]
}

// finish marks this span as finished in the trace. It is called exactly once
// per span, from within the span's Finish critical section.
func (c *spanContext) finish() { c.trace.finishedOne(c.span) }

// trace holds the shared state of all spans belonging to one trace: the
// sampling priority, the root reference and a buffer of the spans which are
// part of the trace.
type trace struct {
	mu       sync.RWMutex // guards below fields
	spans    []*span      // all the spans that are part of this trace
	finished int          // the number of finished spans
	full     bool         // signifies that the span buffer is full
	priority *float64     // sampling priority; nil means unset
	locked   bool         // specifies if the sampling priority can be altered
	clock    clockz.Clock // time source shared by all spans of the trace

	// root specifies the root of the trace, assigned to the first span pushed
	// and never reassigned; it is nil when a span context is extracted from a
	// carrier, at which point there are no spans in the trace yet.
	root *span
}

var (
	// traceStartSize is the initial size of our trace buffer,
	// by default we allocate for a handful of spans within the trace,
	// reasonable as span is actually way bigger, and avoids re-allocating
	// over and over. Could be fine-tuned at runtime.
	traceStartSize = 10
	// traceMaxSize is the maximum number of spans we keep in memory.
	// This is to avoid memory leaks. If more spans than this
	// are added to a trace, then the trace is dropped and the spans are
	// discarded. Adding additional spans after a trace is dropped does
	// nothing.
	traceMaxSize = int(1e5)
)

// newTrace creates a new trace. The clock is assigned when the first span is
// pushed by the tracer that created it.
func newTrace() *trace {
	return &trace{spans: make([]*span, 0, traceStartSize)}
}

func (t *trace) samplingPriority() (p int, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.priority == nil {
		return 0, false
	}
	return int(*t.priority), true
}

func (t *trace) setSamplingPriority(p float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setSamplingPriorityLocked(p)
}

func (t *trace) setSamplingPriorityLocked(p float64) {
	if t.locked {
		return
	}
	if t.priority == nil {
		t.priority = new(float64)
	}
	*t.priority = p
}

// clockSource returns the time source shared by the spans of this trace. It
// is nil until the first span is pushed.
func (t *trace) clockSource() clockz.Clock {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clock
}

// openSpans returns the number of spans in this trace that have been created
// but not yet finished.
func (t *trace) openSpans() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.spans) - t.finished
}

// push pushes a new span into the trace. If the buffer is full, the trace is
// dropped and all spans are discarded.
func (t *trace) push(sp *span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.full {
		return
	}
	if len(t.spans) >= traceMaxSize {
		// capacity is reached, we will not be able to complete this trace.
		t.full = true
		t.spans = nil // allow our spans to be collected by GC.
		log.Error("trace_buffer", "trace buffer full (%d spans), dropping trace", traceMaxSize)
		if tr, ok := vantrace.GetGlobalTracer().(*tracer); ok {
			atomic.AddInt64(&tr.tracesDropped, 1)
		}
		return
	}
	if t.root == nil {
		// first span pushed into the trace is its root
		t.root = sp
	}
	if t.clock == nil {
		t.clock = sp.clock
	}
	if v, ok := sp.Metrics[keySamplingPriority]; ok {
		t.setSamplingPriorityLocked(v)
	}
	t.spans = append(t.spans, sp)
	if tr, ok := vantrace.GetGlobalTracer().(*tracer); ok {
		atomic.AddInt64(&tr.spansStarted, 1)
	}
}

// finishedOne acknowledges that another span in the trace has finished, and
// checks if the trace is complete, in which case the whole trace is enqueued
// onto the tracer. The increment and the zero-open-spans test form a single
// critical section so a trace can neither flush twice nor miss its flush.
// The provided span must be locked by the caller.
func (t *trace) finishedOne(s *span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.full {
		// capacity has been reached, the buffer is no longer tracking
		// all the spans in the trace, so the below conditions will not
		// be accurate and would trigger a pre-mature flush, exposing us
		// to a race condition where spans can be modified while flushing.
		return
	}
	t.finished++
	if s == t.root && t.priority != nil {
		// after the root has finished we lock down the priority;
		// we won't be able to make changes to a span after finishing
		// without causing a race condition.
		t.root.setMetricLocked(keySamplingPriority, *t.priority)
		t.locked = true
	}
	if len(t.spans) != t.finished {
		return
	}
	// every span in this trace has finished; hand the complete trace over to
	// the writer.
	if tr, ok := vantrace.GetGlobalTracer().(*tracer); ok {
		atomic.AddInt64(&tr.spansFinished, int64(t.finished))
		tr.pushTrace(t.spans)
	}
	t.spans = nil
	t.finished = 0 // important, because a buffer can be used for several flushes
}
