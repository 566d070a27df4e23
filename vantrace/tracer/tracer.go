// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vantrace/vantrace-go/internal/log"
	"github.com/vantrace/vantrace-go/vantrace"
	"github.com/vantrace/vantrace-go/vantrace/ext"
)

var _ vantrace.Tracer = (*tracer)(nil)

// tracer creates, buffers and submits spans which are used to time blocks of
// computation. They are accumulated into traces and submitted to the writer
// once the last span of a trace finishes.
type tracer struct {
	config *config

	// transport delivers assembled payloads to the agent.
	transport transport

	// traceWriter buffers finished traces and sends them on.
	traceWriter traceWriter

	// out receives traces to be added to the payload.
	out chan []*span

	// flush receives a channel onto which it will confirm after a flush has been
	// triggered and completed.
	flush chan chan<- struct{}

	// stop causes the tracer to shut down when closed.
	stop chan struct{}

	// stopOnce ensures the tracer is stopped exactly once.
	stopOnce sync.Once

	// wg waits for all goroutines to exit when stopping.
	wg sync.WaitGroup

	// scopes tracks the ambient active scope stack.
	scopes *scopeManager

	// These integers track metrics about spans and traces as they are started,
	// finished, and dropped. Accessed atomically.
	spansStarted, spansFinished, tracesDropped, queueDropped int64
}

const (
	// payloadQueueSize is the buffer size of the trace queue between the
	// instrumented application and the writer goroutine.
	payloadQueueSize = 1000
)

// Start starts the tracer with the given set of options. It will stop and
// replace any running tracer, meaning that calling it several times will
// result in a restart of the tracer by replacing the current instance with a
// new one.
func Start(opts ...StartOption) {
	t := newTracer(opts...)
	vantrace.SetGlobalTracer(t)
	if t.config.logStartup {
		logStartup(t)
	}
}

// Stop stops the started tracer. Subsequent calls are valid but become no-op.
func Stop() {
	vantrace.SetGlobalTracer(&vantrace.NoopTracer{})
	log.Flush()
}

// StartSpan starts a new span with the given operation name and set of options.
// If the tracer is not started, calling this function is a no-op.
func StartSpan(operationName string, opts ...vantrace.StartSpanOption) vantrace.Span {
	return vantrace.GetGlobalTracer().StartSpan(operationName, opts...)
}

// StartActive starts a new span and activates it as the ambient active scope
// for the current flow. If the tracer is not started, calling this function is
// a no-op.
func StartActive(operationName string, opts ...vantrace.StartSpanOption) vantrace.Scope {
	return vantrace.GetGlobalTracer().StartActive(operationName, opts...)
}

// ActiveScope returns the ambient active scope, or nil if no scope is active.
func ActiveScope() vantrace.Scope {
	return vantrace.GetGlobalTracer().ActiveScope()
}

// Extract extracts a SpanContext from the carrier. The carrier is expected
// to implement TextMapReader, otherwise an error is returned.
// If the tracer is not started, calling this function is a no-op.
func Extract(carrier interface{}) (vantrace.SpanContext, error) {
	return vantrace.GetGlobalTracer().Extract(carrier)
}

// Inject injects the given SpanContext carrier using the tracer's propagator.
// If the tracer is not started, calling this function is a no-op.
func Inject(ctx vantrace.SpanContext, carrier interface{}) error {
	return vantrace.GetGlobalTracer().Inject(ctx, carrier)
}

// Flush flushes any buffered traces. Flush is in effect only if a tracer
// is started. Users do not have to call Flush in order to ensure that traces
// reach the agent on shutdown, as Stop does this automatically.
func Flush() {
	if t, ok := vantrace.GetGlobalTracer().(*tracer); ok {
		t.flushSync()
	}
}

// flushSync triggers a flush and waits for it to complete. On a stopped
// tracer it returns immediately; Stop already flushed everything.
func (t *tracer) flushSync() {
	// buffered so the worker's ack never blocks if we give up on t.stop below
	done := make(chan struct{}, 1)
	select {
	case t.flush <- done:
	case <-t.stop:
		return
	}
	select {
	case <-done:
	case <-t.stop:
	}
}

// newTracer creates a new started tracer with the given options.
func newTracer(opts ...StartOption) *tracer {
	c := newConfig(opts...)
	tport := newHTTPTransport(c.agentAddr, c.httpClient)
	var writer traceWriter
	if c.logToStdout {
		writer = newLogTraceWriter(c)
	} else {
		writer = newAgentTraceWriter(c, tport)
	}
	t := &tracer{
		config:      c,
		transport:   tport,
		traceWriter: writer,
		out:         make(chan []*span, payloadQueueSize),
		flush:       make(chan chan<- struct{}),
		stop:        make(chan struct{}),
		scopes:      newScopeManager(),
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		tick := t.config.tickChan
		if tick == nil {
			ticker := time.NewTicker(flushInterval)
			defer ticker.Stop()
			tick = ticker.C
		}
		t.worker(tick)
	}()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.reportRuntimeMetrics(defaultMetricsReportInterval)
	}()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.reportHealthMetrics(statsInterval)
	}()
	return t
}

// flushInterval is the interval at which the payload contents will be flushed
// to the transport.
const flushInterval = 2 * time.Second

// statsInterval is the interval at which health metrics will be sent to the
// statsd client.
const statsInterval = 10 * time.Second

// worker receives finished traces to be added into the payload, as well
// as periodically flushes traces to the transport.
func (t *tracer) worker(tick <-chan time.Time) {
	for {
		select {
		case trace := <-t.out:
			t.traceWriter.add(trace)

		case <-tick:
			t.config.statsd.Incr("vantrace.tracer.flush_triggered", []string{"reason:scheduled"}, 1)
			t.traceWriter.flush()

		case done := <-t.flush:
			t.config.statsd.Incr("vantrace.tracer.flush_triggered", []string{"reason:invoked"}, 1)
			t.traceWriter.flush()
			t.statsdFlush()
			done <- struct{}{}

		case <-t.stop:
		loop:
			// the loop ensures that the payload channel is fully drained
			// before the final flush to ensure no traces are lost
			for {
				select {
				case trace := <-t.out:
					t.traceWriter.add(trace)
				default:
					break loop
				}
			}
			return
		}
	}
}

func (t *tracer) statsdFlush() {
	if err := t.config.statsd.Flush(); err != nil {
		log.Error("statsd_flush", "statsd flush failed: %v", err)
	}
}

// pushTrace enqueues a finished trace towards the writer goroutine. It never
// blocks the instrumentation call site: when the queue is full the oldest
// buffered trace is evicted to make room for the newest one.
func (t *tracer) pushTrace(trace []*span) {
	select {
	case <-t.stop:
		return
	default:
	}
	select {
	case t.out <- trace:
		return
	default:
	}
	// Queue is full. Prefer keeping recent traces: evict the oldest buffered
	// one, then retry once. If producers raced us and refilled the queue, the
	// new trace is dropped instead of blocking.
	select {
	case <-t.out:
		atomic.AddInt64(&t.queueDropped, 1)
		log.Error("payload_queue", "payload queue full, evicting oldest trace")
	default:
	}
	select {
	case t.out <- trace:
	default:
		atomic.AddInt64(&t.queueDropped, 1)
		log.Error("payload_queue", "payload queue full, dropping trace")
	}
}

// StartSpan creates, starts, and returns a new Span with the given operation
// name and options. If no parent is provided through the options, the span
// starts a new trace.
func (t *tracer) StartSpan(operationName string, options ...vantrace.StartSpanOption) vantrace.Span {
	var opts vantrace.StartSpanConfig
	for _, fn := range options {
		fn(&opts)
	}
	var startTime int64
	if opts.StartTime.IsZero() {
		startTime = t.config.clock.Now().UnixNano()
	} else {
		startTime = opts.StartTime.UnixNano()
	}
	var context *spanContext
	if opts.Parent != nil {
		if ctx, ok := opts.Parent.(*spanContext); ok {
			context = ctx
		}
	}
	id := opts.SpanID
	if id == 0 {
		id = random.Uint64()
	}
	// span defaults
	span := &span{
		Name:     operationName,
		Service:  t.config.serviceName,
		Resource: operationName,
		Meta:     map[string]string{},
		Metrics:  map[string]float64{},
		SpanID:   id,
		TraceID:  id,
		ParentID: 0,
		Start:    startTime,

		noDebugStack: t.config.noDebugStack,
		clock:        t.config.clock,
	}
	if context != nil {
		// this is a child span
		span.TraceID = context.traceID
		span.ParentID = context.spanID
		if p, ok := context.samplingPriority(); ok {
			span.Metrics[keySamplingPriority] = float64(p)
		}
		if context.span != nil {
			// local parent, inherit service
			context.span.RLock()
			span.Service = context.span.Service
			context.span.RUnlock()
		} else {
			// remote parent
			if context.origin != "" {
				// mark origin
				span.Meta[keyOrigin] = context.origin
			}
		}
	}
	span.context = newSpanContext(span, context)
	if context == nil || context.span == nil {
		// this is either a root span or it has a remote parent; add process info.
		span.setMeta(ext.Pid, strconv.Itoa(os.Getpid()))
	}
	// add tags from options
	for k, v := range opts.Tags {
		span.SetTag(k, v)
	}
	// add global tags
	for k, v := range t.config.globalTags {
		span.SetTag(k, v)
	}
	if t.config.version != "" && span.Service == t.config.serviceName {
		span.setMeta(ext.Version, t.config.version)
	}
	if t.config.env != "" {
		span.setMeta(ext.Environment, t.config.env)
	}
	if t.isServiceEntry(span, context) {
		span.setMetric(keyTopLevel, 1)
	}
	if log.DebugEnabled() {
		// avoid allocating the ...interface{} argument if debug logging is disabled
		log.Debug("Started Span: %v", span)
	}
	return span
}

// isServiceEntry reports whether sp is the entry point into its service: a
// root, a continuation of a remote parent or a child whose service differs
// from its local parent's.
func (t *tracer) isServiceEntry(sp *span, parent *spanContext) bool {
	if parent == nil || parent.span == nil {
		return true
	}
	parent.span.RLock()
	defer parent.span.RUnlock()
	return parent.span.Service != sp.Service
}

// StartActive creates a new span and activates it as the ambient active scope.
// If no parent is provided through the options, the currently active scope, if
// any, becomes the parent.
func (t *tracer) StartActive(operationName string, options ...vantrace.StartSpanOption) vantrace.Scope {
	var opts vantrace.StartSpanConfig
	for _, fn := range options {
		fn(&opts)
	}
	if opts.Parent == nil {
		if active := t.scopes.activeSpan(); active != nil {
			options = append(options, ChildOf(active.Context()))
		}
	}
	span := t.StartSpan(operationName, options...)
	return t.scopes.activate(span, !opts.NoFinishOnClose)
}

// ActiveScope returns the ambient active scope, or nil if no scope is active.
func (t *tracer) ActiveScope() vantrace.Scope {
	return t.scopes.activeScope()
}

// ActiveSpan returns the span of the ambient active scope, or nil if no scope
// is active.
func (t *tracer) ActiveSpan() vantrace.Span {
	return t.scopes.activeSpan()
}

// Stop stops the tracer, flushing any remaining traces.
func (t *tracer) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
		t.config.statsd.Incr("vantrace.tracer.stopped", nil, 1)
	})
	t.wg.Wait()
	t.traceWriter.stop()
	t.statsdFlush()
	t.config.statsd.Close()
}

// Inject uses the configured or default TextMap Propagator.
func (t *tracer) Inject(ctx vantrace.SpanContext, carrier interface{}) error {
	return t.config.propagator.Inject(ctx, carrier)
}

// Extract uses the configured or default TextMap Propagator.
func (t *tracer) Extract(carrier interface{}) (vantrace.SpanContext, error) {
	return t.config.propagator.Extract(carrier)
}
