// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

//go:generate msgp -unexported -marshal=false -o=span_msgp.go -tests=false

package tracer

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zoobzio/clockz"

	"github.com/vantrace/vantrace-go/internal/log"
	"github.com/vantrace/vantrace-go/vantrace"
	"github.com/vantrace/vantrace-go/vantrace/ext"
)

var _ vantrace.Span = (*span)(nil)

// spanList implements msgp.Encodable on top of a slice of spans.
type spanList []*span

// spanLists implements msgp.Decodable on top of a slice of spanList.
// This type is only used in tests.
type spanLists []spanList

// span represents a computation. Callers must call Finish when a span is
// complete to ensure it's submitted.
//
//	span := tracer.StartSpan("web.request")
//	defer span.Finish()
//
// In general, spans should be created with the tracer.StartSpan* functions,
// so they will be submitted on completion.
type span struct {
	sync.RWMutex `msg:"-"`

	Name     string             `msg:"name"`              // operation name
	Service  string             `msg:"service"`           // service name (i.e. "grpc.server")
	Resource string             `msg:"resource"`          // resource name (i.e. "/user?id=123")
	Type     string             `msg:"type"`              // protocol associated with the span (i.e. "web", "db", "cache")
	Start    int64              `msg:"start"`             // span start time expressed in nanoseconds since epoch
	Duration int64              `msg:"duration"`          // duration of the span expressed in nanoseconds
	Meta     map[string]string  `msg:"meta,omitempty"`    // arbitrary map of metadata
	Metrics  map[string]float64 `msg:"metrics,omitempty"` // arbitrary map of numeric metrics
	SpanID   uint64             `msg:"span_id"`           // identifier of this span
	TraceID  uint64             `msg:"trace_id"`          // lower 64-bits of the root span identifier
	ParentID uint64             `msg:"parent_id"`         // identifier of the span's direct parent
	Error    int32              `msg:"error"`             // error status of the span; 0 means no errors

	noDebugStack bool         `msg:"-"` // disables debug stack traces
	finished     bool         `msg:"-"` // true if the span has been submitted to a tracer.
	context      *spanContext `msg:"-"` // span propagation context
	clock        clockz.Clock `msg:"-"` // fallback time source when the trace has none yet
}

// Context yields the SpanContext for this Span. Note that the return
// value of Context() is still valid after a call to Finish().
func (s *span) Context() vantrace.SpanContext { return s.context }

// SetBaggageItem sets a key/value pair as baggage on the span. Baggage items
// are propagated down to descendant spans and injected cross-process. Use with
// care as it adds extra load onto your tracing layer.
func (s *span) SetBaggageItem(key, val string) {
	s.context.setBaggageItem(key, val)
}

// BaggageItem gets the value for a baggage item given its key. Returns the
// empty string if the value isn't found in this Span.
func (s *span) BaggageItem(key string) string {
	return s.context.baggageItem(key)
}

// mutationWarnLimiter caps diagnostics about writes to finished spans, which
// tend to come from hot loops in misbehaving instrumentation.
var mutationWarnLimiter = rate.NewLimiter(rate.Every(time.Minute), 10)

// reportFinishedMutation must be called with the span lock held.
func (s *span) reportFinishedMutation(key string) {
	if mutationWarnLimiter.Allow() {
		log.Warn("attempted to set %q on finished span %d; ignoring", key, s.SpanID)
	}
}

// tagDirectives routes the tag keys that carry trace-level directives to their
// handlers. Directives are applied before the generic tag bag and run with the
// span lock held.
var tagDirectives = map[string]func(s *span, value interface{}){
	ext.SamplingPriority: directiveSamplingPriority,
	ext.ManualKeep:       directiveManualKeep,
	ext.ManualDrop:       directiveManualDrop,
	ext.AnalyticsEvent:   directiveAnalyticsEvent,
}

// SetTag adds a tag to the span, overwriting pre-existing values for
// the given key. Setting a nil value removes the key from the span's
// tags and metrics.
func (s *span) SetTag(key string, value interface{}) {
	s.Lock()
	defer s.Unlock()
	// We don't lock spans when flushing, so we could have a data race when
	// modifying a span as it's being flushed. This protects us against that
	// race, since spans are marked `finished` before we flush them.
	if s.finished {
		s.reportFinishedMutation(key)
		return
	}
	if directive, ok := tagDirectives[key]; ok {
		directive(s, value)
		return
	}
	if key == ext.Error {
		// the error path owns nil: it clears the flag instead of removing a tag
		s.setTagErrorLocked(value, false)
		return
	}
	if value == nil {
		delete(s.Meta, key)
		delete(s.Metrics, key)
		return
	}
	switch key {
	case ext.ServiceName:
		s.Service = fmt.Sprint(value)
		return
	case ext.ResourceName:
		s.Resource = fmt.Sprint(value)
		return
	case ext.SpanType:
		s.Type = fmt.Sprint(value)
		return
	}
	if v, ok := toFloat64(value); ok {
		// sent as numeric value, so we can store it as a metric
		s.setMetricLocked(key, v)
		return
	}
	// regular string tag, last write wins
	s.setMetaLocked(key, fmt.Sprint(value))
}

// directiveSamplingPriority parses a sampling priority enum value and records
// it on the shared trace, making it immediately visible to every span of the
// trace. Values outside the enum are dropped.
func directiveSamplingPriority(s *span, value interface{}) {
	p, ok := parsePriority(value)
	if !ok {
		log.Debug("invalid sampling priority %v on span %d; ignoring", value, s.SpanID)
		return
	}
	s.setSamplingPriorityLocked(p)
}

// directiveManualKeep forces the trace's sampling priority to PriorityUserKeep
// when given a truthy value.
func directiveManualKeep(s *span, value interface{}) {
	if isTruthy(value) {
		s.setSamplingPriorityLocked(ext.PriorityUserKeep)
	}
}

// directiveManualDrop forces the trace's sampling priority to
// PriorityUserReject when given a truthy value.
func directiveManualDrop(s *span, value interface{}) {
	if isTruthy(value) {
		s.setSamplingPriorityLocked(ext.PriorityUserReject)
	}
}

// directiveAnalyticsEvent records the span as an analytics event. A boolean
// marks (or unmarks) the span with the full sample rate; a numeric value is
// stored as the event sample rate itself.
func directiveAnalyticsEvent(s *span, value interface{}) {
	switch v := value.(type) {
	case bool:
		if v {
			s.setMetricLocked(ext.EventSampleRate, 1.0)
		} else {
			delete(s.Metrics, ext.EventSampleRate)
		}
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			directiveAnalyticsEvent(s, b)
			return
		}
		if sampleRate, err := strconv.ParseFloat(v, 64); err == nil {
			s.setMetricLocked(ext.EventSampleRate, sampleRate)
			return
		}
		log.Debug("invalid analytics event value %q on span %d; ignoring", v, s.SpanID)
	default:
		if sampleRate, ok := toFloat64(value); ok {
			s.setMetricLocked(ext.EventSampleRate, sampleRate)
			return
		}
		log.Debug("invalid analytics event value %v on span %d; ignoring", value, s.SpanID)
	}
}

// parsePriority converts value into one of the sampling priority enum values.
func parsePriority(value interface{}) (int, bool) {
	var p float64
	switch v := value.(type) {
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		p = float64(n)
	default:
		f, ok := toFloat64(value)
		if !ok {
			return 0, false
		}
		p = f
	}
	n := int(p)
	if float64(n) != p {
		return 0, false
	}
	switch n {
	case ext.PriorityUserReject, ext.PriorityAutoReject, ext.PriorityAutoKeep, ext.PriorityUserKeep:
		return n, true
	}
	return 0, false
}

// isTruthy reports whether value reads as true: a true boolean, a non-zero
// number or a string that parses as true.
func isTruthy(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		f, ok := toFloat64(value)
		return ok && f != 0
	}
}

// setSamplingPriorityLocked must be called with the span lock held.
func (s *span) setSamplingPriorityLocked(priority int) {
	s.setMetricLocked(keySamplingPriority, float64(priority))
	s.context.setSamplingPriority(priority)
}

// setTagErrorLocked sets the error status of the span. It must be called with
// the span lock held.
func (s *span) setTagErrorLocked(value interface{}, noDebugStack bool) {
	switch v := value.(type) {
	case bool:
		// bool value as per Opentracing spec.
		if !v {
			s.Error = 0
		} else {
			s.Error = 1
		}
	case error:
		s.setErrorLocked(v, noDebugStack)
	case nil:
		// no error
		s.Error = 0
	default:
		// in all other cases, let's assume that setting this tag
		// is the result of an error.
		s.Error = 1
	}
}

// setErrorLocked marks the span as errored and, when err is non-nil, records
// its message, type and stack trace. Errors that aggregate multiple causes are
// reported through their first cause only. It must be called with the span
// lock held.
func (s *span) setErrorLocked(err error, noDebugStack bool) {
	s.Error = 1
	if err == nil {
		return
	}
	cause := firstCause(err)
	s.setMetaLocked(ext.ErrorMsg, cause.Error())
	s.setMetaLocked(ext.ErrorType, reflect.TypeOf(cause).String())
	if !noDebugStack && !s.noDebugStack {
		s.setMetaLocked(ext.ErrorStack, string(debug.Stack()))
	}
}

// SetError marks the span as errored. When err is non-nil its first cause's
// message, type name and a stack trace are recorded as tags.
func (s *span) SetError(err error) {
	s.Lock()
	defer s.Unlock()
	if s.finished {
		s.reportFinishedMutation(ext.Error)
		return
	}
	s.setErrorLocked(err, false)
}

// SetMetric sets a numeric metric on the span, overwriting any previous value
// stored under the same key.
func (s *span) SetMetric(key string, value float64) {
	s.Lock()
	defer s.Unlock()
	if s.finished {
		s.reportFinishedMutation(key)
		return
	}
	s.setMetricLocked(key, value)
}

// setMetric is like SetMetric but skips the finished-span diagnostic; it is
// used internally when decorating spans.
func (s *span) setMetric(key string, value float64) {
	s.Lock()
	defer s.Unlock()
	if s.finished {
		return
	}
	s.setMetricLocked(key, value)
}

// setMetricLocked must be called with the span lock held.
func (s *span) setMetricLocked(key string, value float64) {
	if s.Metrics == nil {
		s.Metrics = make(map[string]float64, 1)
	}
	s.Metrics[key] = value
}

// setMeta is like setMetricLocked's counterpart for string tags, locking the span.
func (s *span) setMeta(key, value string) {
	s.Lock()
	defer s.Unlock()
	if s.finished {
		return
	}
	s.setMetaLocked(key, value)
}

// setMetaLocked must be called with the span lock held.
func (s *span) setMetaLocked(key, value string) {
	if s.Meta == nil {
		s.Meta = make(map[string]string, 1)
	}
	s.Meta[key] = value
}

// Tag returns the string tag stored under key on this span.
func (s *span) Tag(key string) (string, bool) {
	s.RLock()
	defer s.RUnlock()
	v, ok := s.Meta[key]
	return v, ok
}

// Metric returns the metric stored under key on this span.
func (s *span) Metric(key string) (float64, bool) {
	s.RLock()
	defer s.RUnlock()
	v, ok := s.Metrics[key]
	return v, ok
}

// SetOperationName sets or changes the operation name.
func (s *span) SetOperationName(operationName string) {
	s.Lock()
	defer s.Unlock()
	if s.finished {
		s.reportFinishedMutation("operation name")
		return
	}
	s.Name = operationName
}

// Finish closes this Span (but not its children) providing the duration
// of this part of the tracing session. This method is idempotent so
// calling this method multiple times is safe and doesn't update the
// current Span. Once a Span has been finished, methods that modify the Span
// will become no-ops.
func (s *span) Finish(opts ...vantrace.FinishOption) {
	var cfg vantrace.FinishConfig
	for _, fn := range opts {
		fn(&cfg)
	}
	var t int64
	if cfg.FinishTime.IsZero() {
		t = s.nowNano()
	} else {
		t = cfg.FinishTime.UnixNano()
	}
	if cfg.Error != nil {
		s.Lock()
		if !s.finished {
			s.setErrorLocked(cfg.Error, cfg.NoDebugStack)
		}
		s.Unlock()
	}
	s.finish(t)
}

// nowNano returns the current time in nanoseconds from the trace's clock.
func (s *span) nowNano() int64 {
	if c := s.context.trace.clockSource(); c != nil {
		return c.Now().UnixNano()
	}
	return s.clock.Now().UnixNano()
}

// finish closes the span at the given timestamp. Only the first caller
// computes the duration and notifies the trace; all later calls are no-ops.
func (s *span) finish(finishTime int64) {
	s.Lock()
	defer s.Unlock()
	if s.finished {
		// already finished
		return
	}
	s.Duration = finishTime - s.Start
	if s.Duration < 0 {
		s.Duration = 0
	}
	if s.Resource == "" {
		s.Resource = s.Name
	}
	s.finished = true
	s.context.finish()
}

// String returns a human readable representation of the span. Not for
// production, just debugging.
func (s *span) String() string {
	s.RLock()
	defer s.RUnlock()
	lines := []string{
		fmt.Sprintf("Name: %s", s.Name),
		fmt.Sprintf("Service: %s", s.Service),
		fmt.Sprintf("Resource: %s", s.Resource),
		fmt.Sprintf("TraceID: %d", s.TraceID),
		fmt.Sprintf("SpanID: %d", s.SpanID),
		fmt.Sprintf("ParentID: %d", s.ParentID),
		fmt.Sprintf("Start: %s", time.Unix(0, s.Start)),
		fmt.Sprintf("Duration: %s", time.Duration(s.Duration)),
		fmt.Sprintf("Error: %d", s.Error),
		fmt.Sprintf("Type: %s", s.Type),
		"Tags:",
	}
	for key, val := range s.Meta {
		lines = append(lines, fmt.Sprintf("\t%s:%s", key, val))
	}
	lines = append(lines, "Metrics:")
	for key, val := range s.Metrics {
		lines = append(lines, fmt.Sprintf("\t%s:%f", key, val))
	}
	return strings.Join(lines, "\n")
}

const (
	// keySamplingPriority is the metric key propagating the trace's sampling
	// priority on the wire format. Has to be understood by the agent.
	keySamplingPriority = "_sampling_priority_v1"

	// keyOrigin marks the origin of the trace, e.g. "synthetics".
	keyOrigin = "_vt.origin"

	// keyTopLevel marks service entry spans.
	keyTopLevel = "_vt.top_level"
)
