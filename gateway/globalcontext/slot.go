package globalcontext

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Mode selects where resolved values are published.
type Mode string

const (
	// ModeRequest isolates every request in its own scope.
	ModeRequest Mode = "request"
	// ModeGlobal shares one process-wide slot. Concurrent requests overwrite each other,
	// so it is only correct when the host serves one request at a time.
	ModeGlobal Mode = "global"
)

// ParseMode accepts "request" and "global", case-insensitively. Empty means ModeRequest.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRequest:
		return ModeRequest, nil
	case ModeGlobal:
		return ModeGlobal, nil
	}
	return "", fmt.Errorf("unknown context mode %q", s)
}

// Slot receives the values resolved for the current request.
type Slot interface {
	// Publish stores v and reports whether a destination existed.
	Publish(ctx context.Context, v Values) bool
	// Load returns the last published values visible from ctx.
	Load(ctx context.Context) (Values, bool)
}

// GlobalSlot is a single process-wide slot. Last writer wins.
type GlobalSlot struct {
	mu     sync.RWMutex
	values Values
	set    bool
}

var global = &GlobalSlot{}

// Global returns the process-wide slot.
func Global() *GlobalSlot {
	return global
}

func (s *GlobalSlot) Publish(_ context.Context, v Values) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = v
	s.set = true
	return true
}

func (s *GlobalSlot) Load(context.Context) (Values, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values, s.set
}

// Reset clears the slot.
func (s *GlobalSlot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = nil
	s.set = false
}

type scopeCtxKey struct{}

type scope struct {
	mu     sync.RWMutex
	mode   Mode
	values Values
}

// WithScope opens the scope of one inbound request. In ModeRequest it holds a fresh
// empty map; in ModeGlobal reads from it go through to the global slot.
func WithScope(ctx context.Context, mode Mode) context.Context {
	if mode == "" {
		mode = ModeRequest
	}
	return context.WithValue(ctx, scopeCtxKey{}, &scope{mode: mode, values: Values{}})
}

// WithRequestScope opens an isolated scope holding a fresh empty map.
// The transport calls it once per inbound request before invoking the handler.
func WithRequestScope(ctx context.Context) context.Context {
	return WithScope(ctx, ModeRequest)
}

// HasRequestScope reports whether ctx carries an isolated request scope.
func HasRequestScope(ctx context.Context) bool {
	_, ok := requestScope(ctx)
	return ok
}

func scopeFrom(ctx context.Context) (*scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeCtxKey{}).(*scope)
	return s, ok
}

// requestScope returns the scope in ctx unless it reads through to the global slot.
func requestScope(ctx context.Context) (*scope, bool) {
	s, ok := scopeFrom(ctx)
	if !ok {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mode != ModeRequest {
		return nil, false
	}
	return s, true
}

// bindGlobal switches the scope in ctx, if any, to read through to the global slot.
func bindGlobal(ctx context.Context) {
	s, ok := scopeFrom(ctx)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeGlobal
	s.values = nil
}

// RequestSlot writes into the request scope active in the context. Without one
// publishing is a no-op.
type RequestSlot struct{}

func (RequestSlot) Publish(ctx context.Context, v Values) bool {
	s, ok := requestScope(ctx)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = v
	return true
}

func (RequestSlot) Load(ctx context.Context) (Values, bool) {
	s, ok := requestScope(ctx)
	if !ok {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values, true
}

// SlotFor returns the slot backing mode.
func SlotFor(mode Mode) Slot {
	if mode == ModeGlobal {
		return global
	}
	return RequestSlot{}
}

// Current returns the values published for the request scope in ctx and falls back
// to the global slot when ctx has no request scope or its scope reads globally.
func Current(ctx context.Context) Values {
	if v, ok := (RequestSlot{}).Load(ctx); ok {
		return v
	}
	v, _ := global.Load(ctx)
	return v
}
