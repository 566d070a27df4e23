// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantrace/vantrace-go/vantrace/ext"
)

func TestTextMapCarrierSet(t *testing.T) {
	m := map[string]string{}
	c := TextMapCarrier(m)
	c.Set("a", "b")
	assert.Equal(t, "b", m["a"])
}

func TestTextMapCarrierForeachKey(t *testing.T) {
	want := map[string]string{"A": "x", "B": "y"}
	got := map[string]string{}
	err := TextMapCarrier(want).ForeachKey(func(k, v string) error {
		got[k] = v
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHTTPHeadersCarrierSet(t *testing.T) {
	h := http.Header{}
	c := HTTPHeadersCarrier(h)
	c.Set("A", "x")
	assert.Equal(t, "x", h.Get("A"))
}

func TestPropagatorInject(t *testing.T) {
	assert := assert.New(t)
	_, _, _ = startTestTracer(t)

	root := StartSpan("web.request").(*span)
	root.SetTag(ext.SamplingPriority, ext.PriorityAutoKeep)
	root.SetBaggageItem("item", "x")

	carrier := TextMapCarrier{}
	err := Inject(root.Context(), carrier)
	require.NoError(t, err)

	assert.Equal(strconv.FormatUint(root.TraceID, 10), carrier[DefaultTraceIDHeader])
	assert.Equal(strconv.FormatUint(root.SpanID, 10), carrier[DefaultParentIDHeader])
	assert.Equal("1", carrier[DefaultPriorityHeader])
	assert.Equal("x", carrier[DefaultBaggageHeaderPrefix+"item"])
}

func TestPropagatorInjectNoPriority(t *testing.T) {
	_, _, _ = startTestTracer(t)

	root := StartSpan("web.request")
	carrier := TextMapCarrier{}
	require.NoError(t, Inject(root.Context(), carrier))
	// unset priority must not be written as AutoReject
	assert.NotContains(t, carrier, DefaultPriorityHeader)
}

func TestPropagatorInjectErrors(t *testing.T) {
	assert := assert.New(t)
	_, _, _ = startTestTracer(t)

	// carrier that does not implement TextMapWriter
	err := Inject(StartSpan("op").Context(), "not a carrier")
	assert.Equal(ErrInvalidCarrier, err)

	// foreign or empty span contexts cannot be injected
	err = Inject(&spanContext{}, TextMapCarrier{})
	assert.Equal(ErrInvalidSpanContext, err)
}

func TestPropagatorExtract(t *testing.T) {
	assert := assert.New(t)
	_, _, _ = startTestTracer(t)

	carrier := TextMapCarrier{
		DefaultTraceIDHeader:              "1234",
		DefaultParentIDHeader:             "5678",
		DefaultPriorityHeader:             "-1",
		DefaultBaggageHeaderPrefix + "k":  "v",
		DefaultBaggageHeaderPrefix + "k2": "v2",
	}
	sctx, err := Extract(carrier)
	require.NoError(t, err)
	ctx := sctx.(*spanContext)
	assert.Equal(uint64(1234), ctx.TraceID())
	assert.Equal(uint64(5678), ctx.SpanID())
	p, ok := ctx.samplingPriority()
	assert.True(ok)
	assert.Equal(ext.PriorityUserReject, p)
	assert.Equal("v", ctx.baggageItem("k"))
	assert.Equal("v2", ctx.baggageItem("k2"))
}

func TestPropagatorExtractCaseInsensitive(t *testing.T) {
	assert := assert.New(t)
	_, _, _ = startTestTracer(t)

	carrier := TextMapCarrier{
		"X-Vantrace-Trace-Id":  "1234",
		"X-VANTRACE-PARENT-ID": "5678",
		"VT-Baggage-User":      "x42",
	}
	sctx, err := Extract(carrier)
	require.NoError(t, err)
	ctx := sctx.(*spanContext)
	assert.Equal(uint64(1234), ctx.TraceID())
	assert.Equal(uint64(5678), ctx.SpanID())
	assert.Equal("x42", ctx.baggageItem("user"))
}

func TestPropagatorExtractFirstValueWins(t *testing.T) {
	assert := assert.New(t)
	_, _, _ = startTestTracer(t)

	h := http.Header{}
	h["X-Vantrace-Trace-Id"] = []string{"1111", "2222"}
	h["X-Vantrace-Parent-Id"] = []string{"3333", "4444"}
	sctx, err := Extract(HTTPHeadersCarrier(h))
	require.NoError(t, err)
	assert.Equal(uint64(1111), sctx.TraceID())
	assert.Equal(uint64(3333), sctx.SpanID())
}

func TestPropagatorExtractErrors(t *testing.T) {
	for name, tt := range map[string]struct {
		carrier TextMapCarrier
		err     error
	}{
		"empty": {
			carrier: TextMapCarrier{},
			err:     ErrSpanContextNotFound,
		},
		"missing trace id": {
			carrier: TextMapCarrier{DefaultParentIDHeader: "1"},
			err:     ErrSpanContextNotFound,
		},
		"unparseable trace id": {
			carrier: TextMapCarrier{DefaultTraceIDHeader: "zzz", DefaultParentIDHeader: "1"},
			err:     ErrSpanContextNotFound,
		},
		"missing parent id": {
			carrier: TextMapCarrier{DefaultTraceIDHeader: "1"},
			err:     ErrSpanContextCorrupted,
		},
		"unparseable parent id": {
			carrier: TextMapCarrier{DefaultTraceIDHeader: "1", DefaultParentIDHeader: "zzz"},
			err:     ErrSpanContextCorrupted,
		},
		"unparseable priority": {
			carrier: TextMapCarrier{DefaultTraceIDHeader: "1", DefaultParentIDHeader: "2", DefaultPriorityHeader: "high"},
			err:     ErrSpanContextCorrupted,
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, _ = startTestTracer(t)
			_, err := Extract(tt.carrier)
			assert.Equal(t, tt.err, err)
		})
	}

	t.Run("invalid carrier", func(t *testing.T) {
		_, _, _ = startTestTracer(t)
		_, err := Extract(1234)
		assert.Equal(t, ErrInvalidCarrier, err)
	})
}

func TestPropagatorRoundTrip(t *testing.T) {
	assert := assert.New(t)
	_, _, _ = startTestTracer(t)

	root := StartSpan("web.request", WithSpanID(99)).(*span)
	root.SetTag(ext.SamplingPriority, ext.PriorityUserKeep)
	root.SetBaggageItem("user", "x42")

	carrier := TextMapCarrier{}
	require.NoError(t, Inject(root.Context(), carrier))
	sctx, err := Extract(carrier)
	require.NoError(t, err)

	assert.Equal(root.Context().TraceID(), sctx.TraceID())
	assert.Equal(root.Context().SpanID(), sctx.SpanID())
	p, ok := sctx.(*spanContext).samplingPriority()
	assert.True(ok)
	assert.Equal(ext.PriorityUserKeep, p)
	assert.Equal("x42", sctx.(*spanContext).baggageItem("user"))
}

func TestPropagatorCustomConfig(t *testing.T) {
	assert := assert.New(t)
	prop := NewPropagator(&PropagatorConfig{
		TraceHeader:    "tid",
		ParentHeader:   "pid",
		PriorityHeader: "prio",
		BaggagePrefix:  "bg-",
	})
	_, _, _ = startTestTracer(t, WithPropagator(prop))

	root := StartSpan("web.request").(*span)
	root.SetBaggageItem("k", "v")
	carrier := TextMapCarrier{}
	require.NoError(t, Inject(root.Context(), carrier))
	assert.Contains(carrier, "tid")
	assert.Contains(carrier, "pid")
	assert.Equal("v", carrier["bg-k"])

	sctx, err := Extract(carrier)
	require.NoError(t, err)
	assert.Equal(root.TraceID, sctx.TraceID())
}

func TestPropagatorCustomConfigUppercase(t *testing.T) {
	assert := assert.New(t)
	prop := NewPropagator(&PropagatorConfig{
		TraceHeader:   "X-Custom-Trace",
		ParentHeader:  "X-Custom-Parent",
		BaggagePrefix: "X-Custom-Baggage-",
	})
	_, _, _ = startTestTracer(t, WithPropagator(prop))

	root := StartSpan("web.request").(*span)
	root.SetBaggageItem("k", "v")
	carrier := TextMapCarrier{}
	require.NoError(t, Inject(root.Context(), carrier))

	sctx, err := Extract(carrier)
	require.NoError(t, err)
	assert.Equal(root.TraceID, sctx.TraceID())
	assert.Equal(root.SpanID, sctx.SpanID())
	assert.Equal("v", sctx.(*spanContext).baggageItem("k"))

	// mixed-case carrier keys extract against the same config
	mixed := TextMapCarrier{
		"x-cusTOM-trace":  "1234",
		"X-CUSTOM-PARENT": "5678",
	}
	sctx, err = Extract(mixed)
	require.NoError(t, err)
	assert.Equal(uint64(1234), sctx.TraceID())
	assert.Equal(uint64(5678), sctx.SpanID())
}
