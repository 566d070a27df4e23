// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

// Package vantrace contains the interfaces that specify the implementations of
// Vantrace's tracing library, as well as a set of sub-packages containing various
// implementations: our native implementation ("tracer") and the package "ext"
// which provides a set of tag names and values specific to Vantrace APM.
//
// To get started, visit the documentation for any of the packages you'd like
// to begin with by accessing the subdirectories of this package.
package vantrace

import (
	"time"

	"github.com/vantrace/vantrace-go/internal/log"
)

// Tracer specifies an implementation of the Vantrace tracer which allows starting
// and propagating spans. The official implementation is exposed as functions
// within the "tracer" package.
type Tracer interface {
	// StartSpan starts a span with the given operation name and options.
	StartSpan(operationName string, opts ...StartSpanOption) Span

	// StartActive starts a span and binds it to the ambient logical flow by
	// wrapping it in a Scope. The new scope becomes the active scope and
	// remembers the scope it replaced. Unless the ChildOf option says
	// otherwise, the span is a child of the previously active scope's span.
	StartActive(operationName string, opts ...StartSpanOption) Scope

	// ActiveScope returns the scope bound to the current logical flow, or nil
	// when no scope is active.
	ActiveScope() Scope

	// Extract extracts a span context from a given carrier. Note that baggage item
	// keys will always be lower-cased to maintain consistency. It is impossible to
	// maintain the original casing due to MIME header canonicalization standards.
	Extract(carrier interface{}) (SpanContext, error)

	// Inject injects a span context into the given carrier.
	Inject(context SpanContext, carrier interface{}) error

	// Stop stops the tracer. Calls to Stop should be idempotent.
	Stop()
}

// Span represents a chunk of computation time. Spans have names, durations,
// timestamps and other metadata. A Tracer is used to create hierarchies of
// spans in a request, buffer and submit them to the server.
type Span interface {
	// SetTag sets a key/value pair as metadata on the span. A nil value
	// removes the key. A handful of keys carry trace-level directives; see
	// the ext package.
	SetTag(key string, value interface{})

	// SetMetric sets a numeric metric on the span, overwriting any previous
	// value under the same key.
	SetMetric(key string, value float64)

	// SetError marks the span as errored. When err is non-nil, its message,
	// type and stack trace are recorded; for errors joining multiple causes
	// only the first cause is reported.
	SetError(err error)

	// SetOperationName sets the operation name for this span. An operation name should
	// be a representative name for a group of spans (e.g. "grpc.server" or "http.request").
	SetOperationName(operationName string)

	// Tag returns the string tag stored under the given key on this span.
	Tag(key string) (string, bool)

	// Metric returns the metric stored under the given key on this span.
	Metric(key string) (float64, bool)

	// BaggageItem returns the baggage item held by the given key.
	BaggageItem(key string) string

	// SetBaggageItem sets a new baggage item at the given key. The baggage
	// item should propagate to all descendant spans, both in- and cross-process.
	SetBaggageItem(key, val string)

	// Finish finishes the current span with the given options. Finish calls should be idempotent.
	Finish(opts ...FinishOption)

	// Context returns the SpanContext of this Span.
	Context() SpanContext
}

// SpanContext represents a span state that can propagate to descendant spans
// and across process boundaries. It contains all the information needed to
// spawn a direct descendant of the span that it belongs to. It can be used
// to create distributed tracing by propagating it using the provided interfaces.
type SpanContext interface {
	// SpanID returns the span ID that this context is carrying.
	SpanID() uint64

	// TraceID returns the trace ID that this context is carrying.
	TraceID() uint64

	// ForeachBaggageItem provides an iterator over the key/value pairs set as
	// baggage within this context. Iteration stops when the handler returns
	// false.
	ForeachBaggageItem(handler func(k, v string) bool)
}

// Scope is an ambient handle binding one Span to the currently executing
// logical flow. Closing a scope restores the scope that was active when it
// was opened and, by default, finishes the wrapped span.
type Scope interface {
	// Span returns the span wrapped by this scope.
	Span() Span

	// Close closes the scope. Close is idempotent.
	Close()
}

// StartSpanOption is a configuration option that can be used with a Tracer's StartSpan method.
type StartSpanOption func(cfg *StartSpanConfig)

// FinishOption is a configuration option that can be used with a Span's Finish method.
type FinishOption func(cfg *FinishConfig)

// FinishConfig holds the configuration for finishing a span. It is usually passed around by
// reference to one or more FinishOption functions which shape it into its final form.
type FinishConfig struct {
	// FinishTime represents the time that should be set as finishing time for the
	// span. Implementations should use the current time when FinishTime.IsZero().
	FinishTime time.Time

	// Error holds an optional error that should be set on the span before
	// finishing.
	Error error

	// NoDebugStack will prevent any set errors from generating an attached stack trace tag.
	NoDebugStack bool
}

// StartSpanConfig holds the configuration for starting a new span. It is usually passed
// around by reference to one or more StartSpanOption functions which shape it into its
// final form.
type StartSpanConfig struct {
	// Parent holds the SpanContext that should be used as a parent for the
	// new span. If nil, implementations should return a root span.
	Parent SpanContext

	// StartTime holds the time that should be used as the start time of the span.
	// Implementations should use the current time when StartTime.IsZero().
	StartTime time.Time

	// Tags holds a set of key/value pairs that should be set as metadata on the
	// new span.
	Tags map[string]interface{}

	// SpanID will be the SpanID of the Span, overriding the random number that would
	// be generated. If no Parent SpanContext is present, then this will also set the
	// TraceID to the same value.
	SpanID uint64

	// NoFinishOnClose prevents the scope returned by StartActive from
	// finishing its span when the scope is closed.
	NoFinishOnClose bool
}

// Logger implementations are able to log given messages that the tracer might output.
type Logger interface {
	// Log prints the given message.
	Log(msg string)
}

// UseLogger sets l as the logger for all tracer logs.
func UseLogger(l Logger) {
	log.UseLogger(l)
}
