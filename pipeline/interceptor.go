package pipeline

import (
	"context"
	"time"
)

// Invocation describes one stage attempt. A fresh value is passed to
// interceptors for every attempt.
type Invocation struct {
	Pipeline string
	StageID  string
	Order    int
	Attempt  int // 1-based
}

// Interceptor provides cross-cutting hooks around every stage attempt.
//
// Before hooks run in ascending Order; After and OnError run in the reverse
// order. Exactly one of After/OnError fires per attempt: After when the
// attempt completed normally (including short-circuits), OnError when it
// failed. The duration passed to both measures from just before the first
// Before hook until the attempt completed or failed, so it includes time
// spent in Before hooks.
//
// Returning a non-nil Result from Before short-circuits the attempt: the
// stage's Step does not run, the remaining Before hooks are skipped, and the
// returned Result is used in its place.
//
// After and OnError are observational and have no way to fail; keep them
// lightweight, as their time inflates the measured stage duration. Embed
// NopInterceptor to implement only the hooks you need.
type Interceptor interface {
	Before(ctx context.Context, inv Invocation, run *Context) *Result
	After(ctx context.Context, inv Invocation, run *Context, result *Result, d time.Duration)
	OnError(ctx context.Context, inv Invocation, run *Context, err error, d time.Duration)

	// Order defines precedence among interceptors. Lower values run earlier
	// in Before and later in After/OnError.
	Order() int
}

// NopInterceptor implements Interceptor with no-op hooks and Order 0.
// Embed it and override what you need.
type NopInterceptor struct{}

func (NopInterceptor) Before(context.Context, Invocation, *Context) *Result { return nil }

func (NopInterceptor) After(context.Context, Invocation, *Context, *Result, time.Duration) {}

func (NopInterceptor) OnError(context.Context, Invocation, *Context, error, time.Duration) {}

func (NopInterceptor) Order() int { return 0 }
