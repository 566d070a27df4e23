// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImplementsTraceWriter(t *testing.T) {
	assert.Implements(t, (*traceWriter)(nil), &agentTraceWriter{})
	assert.Implements(t, (*traceWriter)(nil), &logTraceWriter{})
}

// makeSpan returns a span with n entries added to meta and metrics each.
func makeSpan(n int) *span {
	s := &span{
		Name:     "encodeName",
		Service:  "encodeService",
		Resource: "encodeResource",
		SpanID:   random.Uint64(),
		TraceID:  random.Uint64(),
		ParentID: random.Uint64(),
		Meta:     map[string]string{},
		Metrics:  map[string]float64{},
	}
	for i := 0; i < n; i++ {
		istr := fmt.Sprintf("%0.10d", i)
		s.Meta[istr] = istr
		s.Metrics[istr] = float64(i)
	}
	return s
}

func TestEncodeFloat(t *testing.T) {
	for _, tt := range []struct {
		f      float64
		expect string
	}{
		{9.9999999999999990e20, "999999999999999900000"},
		{9.9999999999999999e20, "1e+21"},
		{-9.9999999999999990e20, "-999999999999999900000"},
		{-9.9999999999999999e20, "-1e+21"},
		{0.000001, "0.000001"},
		{0.0000009, "9e-7"},
		{-0.000001, "-0.000001"},
		{-0.0000009, "-9e-7"},
		{math.NaN(), "null"},
		{math.Inf(-1), "null"},
		{math.Inf(1), "null"},
	} {
		t.Run(tt.expect, func(t *testing.T) {
			assert.Equal(t, tt.expect, string(encodeFloat(nil, tt.f)))
		})
	}
}

func newTestLogWriter() (*logTraceWriter, *bytes.Buffer) {
	cfg := &config{statsd: &statsd.NoOpClient{}}
	h := newLogTraceWriter(cfg)
	var buf bytes.Buffer
	h.w = &buf
	return h, &buf
}

func TestLogWriter(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		assert := assert.New(t)
		h, buf := newTestLogWriter()
		s := makeSpan(0)
		for i := 0; i < 20; i++ {
			h.add([]*span{s, s})
		}
		h.flush()
		v := struct{ Traces [][]map[string]interface{} }{}
		d := json.NewDecoder(buf)
		err := d.Decode(&v)
		require.NoError(t, err, buf.String())
		assert.Len(v.Traces, 20, "Expected 20 traces, but have %d", len(v.Traces))
		for _, trace := range v.Traces {
			assert.Len(trace, 2, "Expected 2 spans, but have %d", len(trace))
		}
		err = d.Decode(&v)
		assert.Equal(io.EOF, err)
	})

	t.Run("invalid-characters", func(t *testing.T) {
		assert := assert.New(t)
		s := makeSpan(0)
		s.Resource = "resource\nwith\tslashes \\ \" quotes"
		s.Meta["name\n"] = "val\n"
		h, buf := newTestLogWriter()
		h.add([]*span{s})
		h.flush()

		str := buf.String()
		assert.Equal(strings.Count(str, "\n"), 1)
		assert.Equal(strings.Index(str, "\n"), len(str)-1)
		v := struct{ Traces [][]map[string]interface{} }{}
		err := json.Unmarshal(buf.Bytes(), &v)
		assert.NoError(err)
	})

	t.Run("fill-the-buffer", func(t *testing.T) {
		assert := assert.New(t)
		h, buf := newTestLogWriter()
		type jsonSpan struct {
			Name string `json:"name"`
		}
		type jsonPayload struct {
			Traces [][]jsonSpan `json:"traces"`
		}
		s := makeSpan(10)
		expectedn := 0
		for buf.Len() == 0 {
			h.add([]*span{s})
			expectedn++
		}
		// the writer flushed on its own because the buffer filled up; flush the
		// remainder and count everything that was written
		h.flush()
		var got jsonPayload
		lines := strings.SplitAfter(buf.String(), "\n")
		n := 0
		for _, line := range lines {
			if line == "" {
				continue
			}
			require.NoError(t, json.Unmarshal([]byte(line), &got))
			n += len(got.Traces)
		}
		assert.Equal(expectedn, n)
	})

	t.Run("span-too-large", func(t *testing.T) {
		assert := assert.New(t)
		h, buf := newTestLogWriter()
		s := makeSpan(10000) // single span larger than the whole buffer
		h.add([]*span{s})
		h.flush()
		assert.Empty(buf.String(), "an oversized span is dropped, not written")
	})
}

// dummyTransport captures payloads instead of posting them.
type dummyTransport struct {
	mu       sync.Mutex
	payloads [][]byte
	counts   []int
	err      error
}

func (t *dummyTransport) send(p *payload) (io.ReadCloser, error) {
	data, err := io.ReadAll(p)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.payloads = append(t.payloads, data)
	t.counts = append(t.counts, p.itemCount())
	err = t.err
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader("OK")), nil
}

func (t *dummyTransport) endpoint() string { return "http://localhost:8136/v0.4/traces" }

func (t *dummyTransport) sent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.payloads)
}

func TestAgentWriterFlush(t *testing.T) {
	assert := assert.New(t)
	cfg := &config{statsd: &statsd.NoOpClient{}}
	transport := &dummyTransport{}
	h := newAgentTraceWriter(cfg, transport)

	h.add([]*span{makeSpan(0)})
	h.add([]*span{makeSpan(0), makeSpan(0)})
	assert.Zero(transport.sent())

	h.flush()
	h.wg.Wait()
	assert.Equal(1, transport.sent())
	transport.mu.Lock()
	assert.Equal([]int{2}, transport.counts)
	transport.mu.Unlock()

	// flushing an empty payload is a no-op
	h.flush()
	h.wg.Wait()
	assert.Equal(1, transport.sent())
}

func TestAgentWriterFlushOnSizeThreshold(t *testing.T) {
	defer func(old int) { payloadSizeLimit = old }(payloadSizeLimit)
	payloadSizeLimit = 1024

	assert := assert.New(t)
	cfg := &config{statsd: &statsd.NoOpClient{}}
	transport := &dummyTransport{}
	h := newAgentTraceWriter(cfg, transport)

	for i := 0; i < 10; i++ {
		h.add([]*span{makeSpan(10)})
	}
	h.wg.Wait()
	assert.Greater(transport.sent(), 0, "exceeding the size threshold must trigger a flush")
}

func TestAgentWriterStop(t *testing.T) {
	assert := assert.New(t)
	cfg := &config{statsd: &statsd.NoOpClient{}}
	transport := &dummyTransport{}
	h := newAgentTraceWriter(cfg, transport)
	h.add([]*span{makeSpan(0)})
	h.stop()
	assert.Equal(1, transport.sent())
}
