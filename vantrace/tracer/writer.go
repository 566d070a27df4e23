// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/vantrace/vantrace-go/internal"
	"github.com/vantrace/vantrace-go/internal/log"
)

// traceWriter buffers completed traces and delivers them to their destination,
// either the trace agent or the application logs.
type traceWriter interface {
	// add adds a trace to the payload being constructed.
	add([]*span)

	// flush causes the writer to send any buffered traces.
	flush()

	// stop gracefully shuts down the writer.
	stop()
}

// agentPayloadAPIMax specifies the maximum payload size that the trace agent
// accepts. Request bodies larger than this will be rejected.
const agentPayloadAPIMax = int(1e7) // 10MB

// payloadSizeLimit specifies the maximum allowed size of the payload before
// sending it to the agent.
var payloadSizeLimit = agentPayloadAPIMax / 2

type agentTraceWriter struct {
	// config holds the tracer configuration.
	config *config

	// transport sends the assembled payloads to the agent.
	transport transport

	// payload encodes and buffers traces in msgpack format.
	payload *payload

	// climit limits the number of concurrent outgoing connections.
	climit chan struct{}

	// wg waits for all uploads to finish.
	wg sync.WaitGroup

	// statsd is used to send health metrics.
	statsd internal.StatsdClient
}

func newAgentTraceWriter(c *config, t transport) *agentTraceWriter {
	return &agentTraceWriter{
		config:    c,
		transport: t,
		payload:   newPayload(),
		climit:    make(chan struct{}, concurrentConnectionLimit),
		statsd:    c.statsd,
	}
}

// concurrentConnectionLimit specifies the maximum number of concurrent outgoing
// connections allowed.
const concurrentConnectionLimit = 100

func (h *agentTraceWriter) add(trace []*span) {
	if err := h.payload.push(trace); err != nil {
		h.statsd.Incr("vantrace.tracer.traces_dropped", []string{"reason:encoding_error"}, 1)
		log.Error("msgpack_encoding", "error encoding msgpack: %v", err)
	}
	if h.payload.size() > payloadSizeLimit {
		h.statsd.Incr("vantrace.tracer.flush_triggered", []string{"reason:size"}, 1)
		h.flush()
	}
}

func (h *agentTraceWriter) stop() {
	h.statsd.Incr("vantrace.tracer.flush_triggered", []string{"reason:shutdown"}, 1)
	h.flush()
	h.wg.Wait()
}

// flush will push any currently buffered traces to the agent.
func (h *agentTraceWriter) flush() {
	if h.payload.itemCount() == 0 {
		return
	}
	h.wg.Add(1)
	h.climit <- struct{}{}
	oldp := h.payload
	h.payload = newPayload()
	go func(p *payload) {
		defer func(start time.Time) {
			<-h.climit
			h.wg.Done()
			h.statsd.Timing("vantrace.tracer.flush_duration", time.Since(start), nil, 1)
		}(time.Now())
		size, count := p.size(), p.itemCount()
		log.Debug("sending payload: size: %d traces: %d", size, count)
		rc, err := h.transport.send(p)
		if err != nil {
			h.statsd.Count("vantrace.tracer.traces_dropped", int64(count), []string{"reason:send_failed"}, 1)
			log.Error("payload_send", "lost %d traces: %v", count, err)
			return
		}
		rc.Close()
		h.statsd.Count("vantrace.tracer.flush_bytes", int64(size), nil, 1)
		h.statsd.Count("vantrace.tracer.flush_traces", int64(count), nil, 1)
	}(oldp)
}

// logTraceWriter writes completed traces to the application logs as one JSON
// object per line, for environments like AWS Lambda where a log forwarder
// replaces the agent.
type logTraceWriter struct {
	config    *config
	buf       bytes.Buffer
	hasTraces bool
	w         io.Writer
	statsd    internal.StatsdClient
}

func newLogTraceWriter(c *config) *logTraceWriter {
	w := &logTraceWriter{
		config: c,
		w:      os.Stdout,
		statsd: c.statsd,
	}
	w.resetBuffer()
	return w
}

const (
	// maxFloatLength is the maximum length that a string encoded by encodeFloat will be.
	maxFloatLength = 24

	// logBufferSuffix is the final string that the trace writer has to append to a buffer to close
	// the JSON.
	logBufferSuffix = "]}\n"

	// logBufferLimit is the maximum size log line allowed by cloudwatch.
	logBufferLimit = 65 * 1024
)

func (h *logTraceWriter) resetBuffer() {
	h.buf.Reset()
	h.buf.WriteString(`{"traces": [`)
	h.hasTraces = false
}

// encodeFloat correctly encodes float64 into the JSON format followed by ES6.
// This function is reproduced from the function used in encoding/json.
func encodeFloat(p []byte, f float64) []byte {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return append(p, "null"...)
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		p = strconv.AppendFloat(p, f, 'e', -1, 64)
		// clean up e-09 to e-9
		n := len(p)
		if n >= 4 && p[n-4] == 'e' && p[n-3] == '-' && p[n-2] == '0' {
			p[n-2] = p[n-1]
			p = p[:n-1]
		}
	} else {
		p = strconv.AppendFloat(p, f, 'f', -1, 64)
	}
	return p
}

func (h *logTraceWriter) encodeSpan(s *span) {
	var scratch [maxFloatLength]byte
	h.buf.WriteString(`{"trace_id":"`)
	h.buf.Write(strconv.AppendUint(scratch[:0], s.TraceID, 16))
	h.buf.WriteString(`","span_id":"`)
	h.buf.Write(strconv.AppendUint(scratch[:0], s.SpanID, 16))
	h.buf.WriteString(`","parent_id":"`)
	h.buf.Write(strconv.AppendUint(scratch[:0], s.ParentID, 16))
	h.buf.WriteString(`","name":`)
	h.marshalString(s.Name)
	h.buf.WriteString(`,"resource":`)
	h.marshalString(s.Resource)
	h.buf.WriteString(`,"error":`)
	h.buf.Write(strconv.AppendInt(scratch[:0], int64(s.Error), 10))
	h.buf.WriteString(`,"meta":{`)
	first := true
	for k, v := range s.Meta {
		if first {
			first = false
		} else {
			h.buf.WriteString(`,`)
		}
		h.marshalString(k)
		h.buf.WriteString(":")
		h.marshalString(v)
	}
	h.buf.WriteString(`},"metrics":{`)
	first = true
	for k, v := range s.Metrics {
		if first {
			first = false
		} else {
			h.buf.WriteString(`,`)
		}
		h.marshalString(k)
		h.buf.WriteString(":")
		h.buf.Write(encodeFloat(scratch[:0], v))
	}
	h.buf.WriteString(`},"start":`)
	h.buf.Write(strconv.AppendInt(scratch[:0], s.Start, 10))
	h.buf.WriteString(`,"duration":`)
	h.buf.Write(strconv.AppendInt(scratch[:0], s.Duration, 10))
	h.buf.WriteString(`,"service":`)
	h.marshalString(s.Service)
	h.buf.WriteString(`}`)
}

// marshalString marshals the string str as JSON into the writer's buffer.
// It should be used whenever writing non-constant string data to ensure
// correct sanitization.
func (h *logTraceWriter) marshalString(str string) {
	m, err := json.Marshal(str)
	if err != nil {
		h.buf.WriteString(`"error marshaling string"`)
	} else {
		h.buf.Write(m)
	}
}

type encodingError struct {
	cause      error
	dropReason string
}

// writeTrace makes an effort to write the trace into the current buffer. It
// returns the number of spans (n) that it wrote and an error (err), if one
// occurred. n may be less than len(trace), meaning that only the first n spans
// of the trace fit into the current buffer. Once the buffer is flushed, the
// remaining spans from the trace can be retried.
// An error, if one is returned, indicates that a span in the trace is too
// large to fit in one buffer, and the trace cannot be written.
func (h *logTraceWriter) writeTrace(trace []*span) (n int, err *encodingError) {
	startn := h.buf.Len()
	if !h.hasTraces {
		h.buf.WriteByte('[')
	} else {
		h.buf.WriteString(", [")
	}
	written := 0
	for i, s := range trace {
		n := h.buf.Len()
		if i > 0 {
			h.buf.WriteByte(',')
		}
		h.encodeSpan(s)
		if h.buf.Len() > logBufferLimit-len(logBufferSuffix) {
			// This span is too big to fit in the current buffer.
			if i == 0 {
				// This was the first span in this trace. This means we should
				// truncate everything we wrote in writeTrace.
				h.buf.Truncate(startn)
				if !h.hasTraces {
					// This is the first trace in the buffer, so this span is
					// too large to ever fit.
					return 0, &encodingError{cause: errors.New("span too large for buffer"), dropReason: "trace_too_large"}
				}
				return 0, nil
			}
			// This span was too big to fit in the current buffer, but spans
			// before it fit. Truncate the one that didn't fit and retry it in
			// the next buffer.
			h.buf.Truncate(n)
			written = i
			break
		}
		written = i + 1
	}
	h.buf.WriteByte(']')
	h.hasTraces = true
	return written, nil
}

// add adds a trace to the writer's buffer.
func (h *logTraceWriter) add(trace []*span) {
	// Try adding traces to the buffer until we flush them all or encounter an error.
	for len(trace) > 0 {
		n, err := h.writeTrace(trace)
		if err != nil {
			log.Error("trace_encoding", "lost a trace: %s", err.cause)
			h.statsd.Count("vantrace.tracer.traces_dropped", 1, []string{"reason:" + err.dropReason}, 1)
			return
		}
		trace = trace[n:]
		// If there are spans left in the trace, that means we just filled the
		// buffer, so we can flush and try again.
		if len(trace) > 0 {
			h.flush()
		}
	}
}

func (h *logTraceWriter) stop() {
	h.flush()
}

// flush will write any buffered traces to the writer's destination.
func (h *logTraceWriter) flush() {
	if !h.hasTraces {
		return
	}
	h.buf.WriteString(logBufferSuffix)
	h.w.Write(h.buf.Bytes())
	h.resetBuffer()
}
