// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package vantrace

import (
	"sync/atomic"
)

var (
	// globalTracer stores the current tracer as *Tracer (pointer to interface). The
	// atomic.Value type requires types to be consistent, which requires using *Tracer.
	globalTracer atomic.Value
)

func init() {
	var tracer Tracer = &NoopTracer{}
	globalTracer.Store(&tracer)
}

// SetGlobalTracer sets the global tracer to t.
func SetGlobalTracer(t Tracer) {
	old := *globalTracer.Swap(&t).(*Tracer)
	if !Testing {
		old.Stop()
	}
}

// GetGlobalTracer returns the currently active tracer.
func GetGlobalTracer() Tracer {
	return *globalTracer.Load().(*Tracer)
}

// Testing is set to true when a test tracer is active. It usually signifies that we are in a test
// environment. This value is used by tracer.Start to prevent overriding the GlobalTracer in tests.
var Testing = false

var _ Tracer = (*NoopTracer)(nil)

// NoopTracer is an implementation of Tracer that is a no-op.
type NoopTracer struct{}

// StartSpan implements Tracer.
func (NoopTracer) StartSpan(_ string, _ ...StartSpanOption) Span {
	return NoopSpan{}
}

// StartActive implements Tracer.
func (NoopTracer) StartActive(_ string, _ ...StartSpanOption) Scope {
	return NoopScope{}
}

// ActiveScope implements Tracer.
func (NoopTracer) ActiveScope() Scope { return nil }

// Extract implements Tracer.
func (NoopTracer) Extract(_ interface{}) (SpanContext, error) {
	return NoopSpanContext{}, nil
}

// Inject implements Tracer.
func (NoopTracer) Inject(_ SpanContext, _ interface{}) error { return nil }

// Stop implements Tracer.
func (NoopTracer) Stop() {}

var _ SpanContext = (*NoopSpanContext)(nil)

// NoopSpanContext is an implementation of SpanContext that is a no-op.
type NoopSpanContext struct{}

// SpanID implements SpanContext.
func (NoopSpanContext) SpanID() uint64 { return 0 }

// TraceID implements SpanContext.
func (NoopSpanContext) TraceID() uint64 { return 0 }

// ForeachBaggageItem implements SpanContext.
func (NoopSpanContext) ForeachBaggageItem(_ func(k, v string) bool) {}

var _ Span = (*NoopSpan)(nil)

// NoopSpan is an implementation of Span that is a no-op.
type NoopSpan struct{}

// SetTag implements Span.
func (NoopSpan) SetTag(_ string, _ interface{}) {}

// SetMetric implements Span.
func (NoopSpan) SetMetric(_ string, _ float64) {}

// SetError implements Span.
func (NoopSpan) SetError(_ error) {}

// SetOperationName implements Span.
func (NoopSpan) SetOperationName(_ string) {}

// Tag implements Span.
func (NoopSpan) Tag(_ string) (string, bool) { return "", false }

// Metric implements Span.
func (NoopSpan) Metric(_ string) (float64, bool) { return 0, false }

// BaggageItem implements Span.
func (NoopSpan) BaggageItem(_ string) string { return "" }

// SetBaggageItem implements Span.
func (NoopSpan) SetBaggageItem(_, _ string) {}

// Finish implements Span.
func (NoopSpan) Finish(_ ...FinishOption) {}

// Context implements Span.
func (NoopSpan) Context() SpanContext { return NoopSpanContext{} }

var _ Scope = (*NoopScope)(nil)

// NoopScope is an implementation of Scope that is a no-op.
type NoopScope struct{}

// Span implements Scope.
func (NoopScope) Span() Span { return NoopSpan{} }

// Close implements Scope.
func (NoopScope) Close() {}
