// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/vantrace/vantrace-go/vantrace/ext"
)

// newBasicSpan returns a span with no tracer behind it, usable for tests that
// exercise span behavior in isolation.
func newBasicSpan(operationName string) *span {
	s := &span{
		Name:    operationName,
		Service: "basic.service",
		Meta:    map[string]string{},
		Metrics: map[string]float64{},
		SpanID:  1,
		TraceID: 1,
		Start:   time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC).UnixNano(),
		clock:   clockz.RealClock,
	}
	s.context = newSpanContext(s, nil)
	return s
}

func TestSpanFinish(t *testing.T) {
	assert := assert.New(t)
	_, _, clock := startTestTracer(t)

	s := StartSpan("web.request").(*span)
	clock.Advance(150 * time.Millisecond)
	s.Finish()
	assert.True(s.finished)
	assert.Equal((150 * time.Millisecond).Nanoseconds(), s.Duration)
}

func TestSpanFinishTwice(t *testing.T) {
	assert := assert.New(t)
	_, _, clock := startTestTracer(t)

	s := StartSpan("web.request").(*span)
	clock.Advance(100 * time.Millisecond)
	s.Finish()
	want := s.Duration
	clock.Advance(time.Hour)
	s.Finish()
	assert.Equal(want, s.Duration, "second Finish must not recompute the duration")
}

func TestSpanFinishWithTime(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")
	finish := time.Unix(0, s.Start).Add(10 * time.Second)
	s.Finish(FinishTime(finish))
	assert.Equal((10 * time.Second).Nanoseconds(), s.Duration)
}

func TestSpanFinishNegativeDuration(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")
	s.Finish(FinishTime(time.Unix(0, s.Start).Add(-time.Second)))
	assert.Zero(s.Duration, "durations must clamp to zero")
}

func TestSpanFinishResourceFallback(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")
	s.Resource = ""
	s.Finish()
	assert.Equal("web.request", s.Resource)
}

func TestSpanFinishWithError(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")
	err := errors.New("test error")
	s.Finish(WithError(err))
	assert.Equal(int32(1), s.Error)
	assert.Equal("test error", s.Meta[ext.ErrorMsg])
	assert.Equal("*errors.errorString", s.Meta[ext.ErrorType])
	assert.NotEmpty(s.Meta[ext.ErrorStack])
}

func TestSpanFinishWithErrorNoDebugStack(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")
	s.Finish(WithError(errors.New("test error")), NoDebugStack())
	assert.Equal(int32(1), s.Error)
	assert.NotContains(s.Meta, ext.ErrorStack)
}

func TestSpanSetTag(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")

	s.SetTag("component", "db")
	assert.Equal("db", s.Meta["component"])

	// numeric values are stored as metrics
	s.SetTag("rows", 42)
	assert.Equal(float64(42), s.Metrics["rows"])

	// stringers and other values go through fmt
	s.SetTag("latency", time.Second)
	assert.Equal("1s", s.Meta["latency"])

	// nil removes both tag and metric
	s.SetTag("component", nil)
	s.SetTag("rows", nil)
	assert.NotContains(s.Meta, "component")
	assert.NotContains(s.Metrics, "rows")

	// removing an absent key is a no-op
	s.SetTag("ghost", nil)
	assert.NotContains(s.Meta, "ghost")
}

func TestSpanSetTagFieldRouting(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")

	s.SetTag(ext.ServiceName, "billing")
	s.SetTag(ext.ResourceName, "GET /users")
	s.SetTag(ext.SpanType, ext.AppTypeWeb)
	assert.Equal("billing", s.Service)
	assert.Equal("GET /users", s.Resource)
	assert.Equal(ext.AppTypeWeb, s.Type)
}

func TestSpanSetTagError(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")

	s.SetTag(ext.Error, true)
	assert.Equal(int32(1), s.Error)
	s.SetTag(ext.Error, false)
	assert.Equal(int32(0), s.Error)
	s.SetTag(ext.Error, errors.New("boom"))
	assert.Equal(int32(1), s.Error)
	assert.Equal("boom", s.Meta[ext.ErrorMsg])
	s.SetTag(ext.Error, nil)
	assert.Equal(int32(0), s.Error)
}

func TestSpanSetTagAfterFinish(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")
	s.Finish()
	s.SetTag("key", "value")
	s.SetMetric("metric", 1)
	s.SetError(errors.New("late"))
	s.SetOperationName("renamed")
	assert.NotContains(s.Meta, "key")
	assert.NotContains(s.Metrics, "metric")
	assert.Equal(int32(0), s.Error)
	assert.Equal("web.request", s.Name)
}

func TestSpanSamplingPriorityDirective(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert := assert.New(t)
		for _, p := range []int{
			ext.PriorityUserReject,
			ext.PriorityAutoReject,
			ext.PriorityAutoKeep,
			ext.PriorityUserKeep,
		} {
			s := newBasicSpan("web.request")
			s.SetTag(ext.SamplingPriority, p)
			assert.Equal(float64(p), s.Metrics[keySamplingPriority])
			got, ok := s.context.samplingPriority()
			assert.True(ok)
			assert.Equal(p, got)
		}
	})

	t.Run("string", func(t *testing.T) {
		assert := assert.New(t)
		s := newBasicSpan("web.request")
		s.SetTag(ext.SamplingPriority, "2")
		got, ok := s.context.samplingPriority()
		assert.True(ok)
		assert.Equal(ext.PriorityUserKeep, got)
	})

	t.Run("invalid", func(t *testing.T) {
		assert := assert.New(t)
		for _, v := range []interface{}{3, -2, 1.5, "abc", true} {
			s := newBasicSpan("web.request")
			s.SetTag(ext.SamplingPriority, v)
			assert.NotContains(s.Metrics, keySamplingPriority, fmt.Sprintf("%v", v))
			_, ok := s.context.samplingPriority()
			assert.False(ok, fmt.Sprintf("%v", v))
		}
	})
}

func TestSpanManualKeepDrop(t *testing.T) {
	assert := assert.New(t)

	s := newBasicSpan("web.request")
	s.SetTag(ext.ManualKeep, true)
	p, ok := s.context.samplingPriority()
	assert.True(ok)
	assert.Equal(ext.PriorityUserKeep, p)

	s.SetTag(ext.ManualDrop, true)
	p, _ = s.context.samplingPriority()
	assert.Equal(ext.PriorityUserReject, p)

	// falsy values are ignored
	s2 := newBasicSpan("web.request")
	s2.SetTag(ext.ManualKeep, false)
	_, ok = s2.context.samplingPriority()
	assert.False(ok)
}

func TestSpanAnalyticsEvent(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")

	s.SetTag(ext.AnalyticsEvent, true)
	assert.Equal(1.0, s.Metrics[ext.EventSampleRate])

	s.SetTag(ext.AnalyticsEvent, false)
	assert.NotContains(s.Metrics, ext.EventSampleRate)

	s.SetTag(ext.AnalyticsEvent, 0.5)
	assert.Equal(0.5, s.Metrics[ext.EventSampleRate])

	s.SetTag(ext.AnalyticsEvent, "0.25")
	assert.Equal(0.25, s.Metrics[ext.EventSampleRate])

	s.SetTag(ext.AnalyticsEvent, "true")
	assert.Equal(1.0, s.Metrics[ext.EventSampleRate])
}

func TestSpanSetError(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		assert := assert.New(t)
		s := newBasicSpan("web.request")
		s.SetError(errors.New("boom"))
		assert.Equal(int32(1), s.Error)
		assert.Equal("boom", s.Meta[ext.ErrorMsg])
		assert.Equal("*errors.errorString", s.Meta[ext.ErrorType])
		assert.NotEmpty(s.Meta[ext.ErrorStack])
	})

	t.Run("nil", func(t *testing.T) {
		assert := assert.New(t)
		s := newBasicSpan("web.request")
		s.SetError(nil)
		assert.Equal(int32(1), s.Error)
		assert.NotContains(s.Meta, ext.ErrorMsg)
	})

	t.Run("joined", func(t *testing.T) {
		assert := assert.New(t)
		s := newBasicSpan("web.request")
		first := errors.New("first cause")
		s.SetError(errors.Join(first, errors.New("second cause")))
		assert.Equal("first cause", s.Meta[ext.ErrorMsg])
	})
}

func TestSpanGetters(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")
	s.SetTag("component", "db")
	s.SetMetric("rows", 10)

	v, ok := s.Tag("component")
	assert.True(ok)
	assert.Equal("db", v)
	_, ok = s.Tag("absent")
	assert.False(ok)

	m, ok := s.Metric("rows")
	assert.True(ok)
	assert.Equal(float64(10), m)
	_, ok = s.Metric("absent")
	assert.False(ok)
}

func TestSpanSetOperationName(t *testing.T) {
	assert := assert.New(t)
	s := newBasicSpan("web.request")
	s.SetOperationName("http.request")
	assert.Equal("http.request", s.Name)
}

func TestSpanBaggage(t *testing.T) {
	assert := assert.New(t)
	_, _, _ = startTestTracer(t)

	parent := StartSpan("web.request")
	parent.SetBaggageItem("user", "x42")
	assert.Equal("x42", parent.BaggageItem("user"))
	assert.Empty(parent.BaggageItem("absent"))

	child := StartSpan("db.query", ChildOf(parent.Context()))
	assert.Equal("x42", child.BaggageItem("user"))
}

func TestSpanString(t *testing.T) {
	s := newBasicSpan("web.request")
	s.SetTag("component", "db")
	s.Finish()
	str := s.String()
	require.Contains(t, str, "Name: web.request")
	require.Contains(t, str, "component:db")
}
