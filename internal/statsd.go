// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package internal

import "time"

// StatsdClient describes the subset of a statsd client used by the tracer to
// report its own health. It is implemented by the datadog-go statsd client.
type StatsdClient interface {
	Incr(name string, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
	Timing(name string, value time.Duration, tags []string, rate float64) error
	Flush() error
	Close() error
}
