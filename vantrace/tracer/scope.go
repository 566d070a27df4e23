// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Vantrace (https://www.vantrace.io/).
// Copyright 2024 Vantrace, Inc.

package tracer

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vantrace/vantrace-go/internal/log"
	"github.com/vantrace/vantrace-go/vantrace"
)

var _ vantrace.Scope = (*scope)(nil)

// scope delimits the section of code during which its span is the active span.
// Scopes form a stack: each StartActive call pushes a new scope referencing the
// one it displaced, and Close pops it, restoring the previous scope as active.
type scope struct {
	span vantrace.Span
	prev *scope
	mgr  *scopeManager

	// finishOnClose makes Close also finish the span. It is the default; spans
	// whose lifetime outlives their activation opt out at StartActive time.
	finishOnClose bool

	mu     sync.Mutex
	closed bool
}

// Span returns the span activated by this scope.
func (s *scope) Span() vantrace.Span { return s.span }

// Close deactivates the scope, restoring the scope it displaced as the active
// one, and finishes the span unless the scope was started with
// NoFinishOnClose. Closing a scope twice is a no-op, as is closing scopes out
// of activation order; both are reported as diagnostics.
func (s *scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.mgr.reportMisuse("scope for span %d closed more than once", s.span)
		return
	}
	s.closed = true
	s.mu.Unlock()
	if !s.mgr.deactivate(s) {
		s.mgr.reportMisuse("scope for span %d closed out of order; active scope left untouched", s.span)
	}
	if s.finishOnClose {
		s.span.Finish()
	}
}

// scopeManager tracks the active scope of the tracer. Access is synchronized
// so that concurrent flows sharing a tracer never observe a torn stack;
// flows that need their own activation chain should carry spans in a
// context.Context instead (see ContextWithSpan).
type scopeManager struct {
	mu     sync.Mutex
	active *scope

	// misuseLimiter caps the rate of scope misuse diagnostics; a leaked or
	// misordered Close typically repeats on every request.
	misuseLimiter *rate.Limiter
}

func newScopeManager() *scopeManager {
	return &scopeManager{
		misuseLimiter: rate.NewLimiter(rate.Every(time.Minute), 10),
	}
}

// activate makes span the active span, returning the scope that controls the
// activation.
func (m *scopeManager) activate(span vantrace.Span, finishOnClose bool) *scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &scope{
		span:          span,
		prev:          m.active,
		mgr:           m,
		finishOnClose: finishOnClose,
	}
	m.active = s
	return s
}

// deactivate pops s off the scope stack. It reports whether s was the active
// scope; when it is not, the stack is left untouched so that an out-of-order
// Close cannot corrupt the activation chain.
func (m *scopeManager) deactivate(s *scope) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != s {
		return false
	}
	m.active = s.prev
	return true
}

// activeSpan returns the span of the active scope, or nil if no scope is active.
func (m *scopeManager) activeSpan() vantrace.Span {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	return m.active.span
}

// activeScope returns the active scope, or nil if there is none.
func (m *scopeManager) activeScope() vantrace.Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	return m.active
}

func (m *scopeManager) reportMisuse(format string, span vantrace.Span) {
	if m.misuseLimiter.Allow() {
		log.Warn(format, span.Context().SpanID())
	}
}
