// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/zoobzio/clockz"

	"github.com/vantrace/vantrace-go/internal"
	"github.com/vantrace/vantrace-go/internal/log"
	"github.com/vantrace/vantrace-go/vantrace"
	"github.com/vantrace/vantrace-go/vantrace/ext"
)

// config holds the tracer configuration.
type config struct {
	// debug, when true, writes details to logs.
	debug bool

	// serviceName specifies the name of this application.
	serviceName string

	// version specifies the version of this application.
	version string

	// env contains the environment that this application will run under.
	env string

	// agentAddr specifies the hostname and port of the agent where the traces
	// are sent to.
	agentAddr string

	// globalTags holds a set of tags that will be automatically applied to
	// all spans.
	globalTags map[string]interface{}

	// propagator propagates span context cross-process.
	propagator Propagator

	// httpClient specifies the HTTP client to be used by the agent's transport.
	httpClient *http.Client

	// logToStdout reports whether we should log all traces to the standard
	// output instead of shipping them to the agent, as in serverless
	// environments where no agent runs alongside the application.
	logToStdout bool

	// logStartup, when true, causes various startup info to be written
	// when the tracer starts.
	logStartup bool

	// statsd is used for tracking metrics associated with the runtime and the tracer.
	statsd internal.StatsdClient

	// statsdAddr specifies the address for the statsd client.
	statsdAddr string

	// clock provides the time source for span start and finish timestamps.
	// It is replaceable for deterministic tests.
	clock clockz.Clock

	// tickChan specifies a channel which will receive the time every time the
	// tracer must flush. It defaults to time.Ticker; replaced in tests.
	tickChan <-chan time.Time

	// noDebugStack disables the collection of debug stack traces globally. No traces
	// reporting errors will record a stack trace when this option is set.
	noDebugStack bool
}

const (
	// defaultAgentPort is the port the trace agent listens on.
	defaultAgentPort = "8136"

	// defaultStatsdPort specifies the default port to use for statsd.
	defaultStatsdPort = "8125"
)

// StartOption represents a function that can be provided as a parameter to Start.
type StartOption func(*config)

// newConfig renders the tracer configuration based on defaults, environment variables
// and passed user opts.
func newConfig(opts ...StartOption) *config {
	c := new(config)
	c.serviceName = os.Getenv("VANTRACE_SERVICE")
	c.env = os.Getenv("VANTRACE_ENV")
	c.version = os.Getenv("VANTRACE_VERSION")
	if v := os.Getenv("VANTRACE_TRACE_DEBUG"); v == "true" || v == "1" {
		c.debug = true
	}
	c.agentAddr = resolveAgentAddr("VANTRACE_AGENT_HOST", "VANTRACE_TRACE_AGENT_PORT", defaultAgentPort)
	c.statsdAddr = resolveAgentAddr("VANTRACE_AGENT_HOST", "VANTRACE_STATSD_PORT", defaultStatsdPort)
	c.logStartup = true
	if v := os.Getenv("VANTRACE_TRACE_STARTUP_LOGS"); v == "false" || v == "0" {
		c.logStartup = false
	}
	for _, fn := range opts {
		fn(c)
	}
	if c.serviceName == "" {
		c.serviceName = filepath.Base(os.Args[0])
	}
	if c.clock == nil {
		c.clock = clockz.RealClock
	}
	if c.propagator == nil {
		c.propagator = NewPropagator(nil)
	}
	if c.httpClient == nil {
		c.httpClient = defaultHTTPClient()
	}
	if c.statsd == nil {
		client, err := statsd.New(c.statsdAddr, statsd.WithMaxMessagesPerPayload(40))
		if err != nil {
			log.Warn("unable to create statsd client: %v; health metrics disabled", err)
			c.statsd = &statsd.NoOpClient{}
		} else {
			c.statsd = client
		}
	}
	return c
}

// resolveAgentAddr resolves the given host and port environment variables into
// an address, filling in defaults where unset.
func resolveAgentAddr(hostEnv, portEnv, defaultPort string) string {
	host := "localhost"
	if v := os.Getenv(hostEnv); v != "" {
		host = v
	}
	port := defaultPort
	if v := os.Getenv(portEnv); v != "" {
		port = v
	}
	return net.JoinHostPort(host, port)
}

// WithDebugMode enables debug mode on the tracer, resulting in more verbose logging.
func WithDebugMode(enabled bool) StartOption {
	return func(c *config) {
		c.debug = enabled
	}
}

// WithService sets the default service name for the program.
func WithService(name string) StartOption {
	return func(c *config) {
		c.serviceName = name
	}
}

// WithEnv sets the environment to which all traces started by the tracer will be submitted.
func WithEnv(env string) StartOption {
	return func(c *config) {
		c.env = env
	}
}

// WithServiceVersion specifies the version of the service that is running. This will
// be included in spans from this service in the "version" tag.
func WithServiceVersion(version string) StartOption {
	return func(c *config) {
		c.version = version
	}
}

// WithAgentAddr sets the address where the agent is located. The default is
// localhost:8136. It should contain both host and port.
func WithAgentAddr(addr string) StartOption {
	return func(c *config) {
		c.agentAddr = addr
	}
}

// WithGlobalTag sets a key/value pair which will be set as a tag on all spans
// created by tracer. This option may be used multiple times.
func WithGlobalTag(k string, v interface{}) StartOption {
	return func(c *config) {
		if c.globalTags == nil {
			c.globalTags = make(map[string]interface{})
		}
		c.globalTags[k] = v
	}
}

// WithPropagator sets an alternative propagator to be used by the tracer.
func WithPropagator(p Propagator) StartOption {
	return func(c *config) {
		c.propagator = p
	}
}

// WithHTTPClient specifies the HTTP client to use when emitting spans to the agent.
func WithHTTPClient(client *http.Client) StartOption {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithLogger sets logger as the tracer's error printer.
func WithLogger(logger vantrace.Logger) StartOption {
	return func(_ *config) {
		log.UseLogger(logger)
	}
}

// WithLambdaMode enables lambda mode on the tracer, for use with AWS Lambda.
// Completed traces are written to the application logs instead of being sent
// to the agent.
func WithLambdaMode(enabled bool) StartOption {
	return func(c *config) {
		c.logToStdout = enabled
	}
}

// WithClock replaces the tracer's time source. It is intended for tests that
// need deterministic span timestamps.
func WithClock(clock clockz.Clock) StartOption {
	return func(c *config) {
		c.clock = clock
	}
}

// WithStatsdClient sets a custom statsd client for reporting the tracer's
// health metrics.
func WithStatsdClient(client internal.StatsdClient) StartOption {
	return func(c *config) {
		c.statsd = client
	}
}

// WithStatsdAddress sets the address for the statsd client used to report the
// tracer's health metrics. The default is localhost:8125.
func WithStatsdAddress(addr string) StartOption {
	return func(c *config) {
		c.statsdAddr = addr
	}
}

// WithStartupLogs allows enabling or disabling the startup logs.
func WithStartupLogs(enabled bool) StartOption {
	return func(c *config) {
		c.logStartup = enabled
	}
}

// WithNoDebugStack prevents the tracer from collecting a stack trace when an
// error is set on a span.
func WithNoDebugStack() StartOption {
	return func(c *config) {
		c.noDebugStack = true
	}
}

// StartTime sets a custom time as the start time for the created span. By
// default a span is started using the creation time.
func StartTime(t time.Time) vantrace.StartSpanOption {
	return func(cfg *vantrace.StartSpanConfig) {
		cfg.StartTime = t
	}
}

// ChildOf tells StartSpan to use the given span context as a parent for the
// created span.
func ChildOf(ctx vantrace.SpanContext) vantrace.StartSpanOption {
	return func(cfg *vantrace.StartSpanConfig) {
		cfg.Parent = ctx
	}
}

// Tag sets the given key/value pair as a tag on the started Span.
func Tag(k string, v interface{}) vantrace.StartSpanOption {
	return func(cfg *vantrace.StartSpanConfig) {
		if cfg.Tags == nil {
			cfg.Tags = map[string]interface{}{}
		}
		cfg.Tags[k] = v
	}
}

// ServiceName sets the given service name on the started span. For example "http.server".
func ServiceName(name string) vantrace.StartSpanOption {
	return Tag(ext.ServiceName, name)
}

// ResourceName sets the given resource name on the started span. A resource could
// be an SQL query, a URL, an RPC method or something else.
func ResourceName(name string) vantrace.StartSpanOption {
	return Tag(ext.ResourceName, name)
}

// SpanType sets the given span type on the started span. Some examples in the case of
// the Vantrace APM product could be "web", "db" or "cache".
func SpanType(name string) vantrace.StartSpanOption {
	return Tag(ext.SpanType, name)
}

// WithSpanID sets the SpanID on the started span, instead of using a random number.
// If there is no parent Span (eg from ChildOf), then the TraceID will also be set to the
// value given here.
func WithSpanID(id uint64) vantrace.StartSpanOption {
	return func(cfg *vantrace.StartSpanConfig) {
		cfg.SpanID = id
	}
}

// NoFinishOnClose prevents the scope returned by StartActive from finishing
// its span when the scope is closed.
func NoFinishOnClose() vantrace.StartSpanOption {
	return func(cfg *vantrace.StartSpanConfig) {
		cfg.NoFinishOnClose = true
	}
}

// FinishTime sets the given time as the finishing time for the span. By default,
// the current time is used.
func FinishTime(t time.Time) vantrace.FinishOption {
	return func(cfg *vantrace.FinishConfig) {
		cfg.FinishTime = t
	}
}

// WithError marks the span as having had an error. It uses the information from
// err to set tags such as the error message, error type and stack trace.
func WithError(err error) vantrace.FinishOption {
	return func(cfg *vantrace.FinishConfig) {
		cfg.Error = err
	}
}

// NoDebugStack prevents any error presented using the WithError finishing option
// from generating a stack trace. This is useful in situations where errors are frequent
// and performance is critical.
func NoDebugStack() vantrace.FinishOption {
	return func(cfg *vantrace.FinishConfig) {
		cfg.NoDebugStack = true
	}
}

// defaultHTTPClient returns the default HTTP client used by the tracer's transport.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: defaultHTTPTimeout,
	}
}

// defaultHTTPTimeout specifies the timeout for the HTTP requests made by the transport.
const defaultHTTPTimeout = 10 * time.Second
