// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"context"

	"github.com/vantrace/vantrace-go/internal"
	"github.com/vantrace/vantrace-go/vantrace"
)

// ContextWithSpan returns a copy of the given context which includes the span s.
// Use it to carry the active span across goroutines and API boundaries, where
// the tracer's ambient scope cannot follow.
func ContextWithSpan(ctx context.Context, s vantrace.Span) context.Context {
	return context.WithValue(ctx, internal.ActiveSpanKey, s)
}

// SpanFromContext returns the span contained in the given context. A second
// return value indicates if a span was found in the context. If no span is
// found, a no-op span is returned.
func SpanFromContext(ctx context.Context) (vantrace.Span, bool) {
	if ctx == nil {
		return vantrace.NoopSpan{}, false
	}
	v := ctx.Value(internal.ActiveSpanKey)
	if s, ok := v.(vantrace.Span); ok {
		return s, true
	}
	return vantrace.NoopSpan{}, false
}

// StartSpanFromContext returns a new span with the given operation name and
// options. If a span is found in the context, it will be used as the parent
// of the resulting span. The resulting context holds the newly created span.
func StartSpanFromContext(ctx context.Context, operationName string, opts ...vantrace.StartSpanOption) (vantrace.Span, context.Context) {
	if ctx == nil {
		// default to context.Background() to avoid panics on Go >= 1.8
		ctx = context.Background()
	}
	if s, ok := SpanFromContext(ctx); ok {
		opts = append(opts, ChildOf(s.Context()))
	}
	s := StartSpan(operationName, opts...)
	return s, ContextWithSpan(ctx, s)
}
