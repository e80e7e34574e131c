// Package observability contains helpers for running background goroutines
// without losing panics: a panic in a spawned goroutine is reported through
// the belt logger and the error monitor instead of silently killing the
// process out of context.
package observability

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
)

func PanicIfNotNil(ctx context.Context, r any) {
	if r == nil {
		return
	}
	ReportPanicIfNotNil(ctx, r)
	time.Sleep(time.Second)
	panic(fmt.Sprintf("%#+v", r))
}

func ReportPanicIfNotNil(ctx context.Context, r any) bool {
	if r == nil {
		return false
	}
	logger.FromCtx(ctx).
		WithField("error_event_exception_stack_trace", string(debug.Stack())).
		Errorf("got panic: %v", r)
	errmon.ObserveRecoverCtx(ctx, r)
	belt.Flush(ctx)
	return true
}

func Call(ctx context.Context, fn func()) {
	defer func() { PanicIfNotNil(ctx, recover()) }()
	fn()
}

// CallSafe is like Call, but reports the panic and continues instead of
// re-panicking.
func CallSafe(ctx context.Context, fn func()) {
	defer func() { ReportPanicIfNotNil(ctx, recover()) }()
	fn()
}

func Go(ctx context.Context, fn func()) {
	go Call(ctx, fn)
}

func GoSafe(ctx context.Context, fn func()) {
	go CallSafe(ctx, fn)
}
