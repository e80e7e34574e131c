// Package xsync provides context-aware mutexes with lock tracing and a
// watchdog that reports suspected deadlocks through the error monitor.
package xsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
)

type CtxKeyNoLogging struct{}

// WithNoLogging disables the per-lock trace logging; used on hot paths
// (e.g. the pacing loop) where tracing every lock is too expensive.
func WithNoLogging(ctx context.Context, noLogging bool) context.Context {
	return context.WithValue(ctx, CtxKeyNoLogging{}, noLogging)
}

func IsNoLogging(ctx context.Context) bool {
	v, _ := ctx.Value(CtxKeyNoLogging{}).(bool)
	return v
}

func fixCtx(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

type Mutex struct {
	mutex sync.Mutex

	cancelFunc       context.CancelFunc
	deadlockNotifier *time.Timer
}

func (m *Mutex) ManualLock(ctx context.Context) {
	ctx = fixCtx(ctx)
	noLogging := IsNoLogging(ctx)
	if !noLogging {
		logger.FromCtx(ctx).Tracef("locking")
	}
	m.mutex.Lock()

	ctx, m.cancelFunc = context.WithCancel(ctx)
	deadlockNotifier := time.NewTimer(time.Minute)
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-deadlockNotifier.C:
		}
		errmon.ObserveErrorCtx(ctx, fmt.Errorf("got a deadlock"))
	}()
	m.deadlockNotifier = deadlockNotifier

	if !noLogging {
		logger.FromCtx(ctx).Tracef("locked")
	}
}

func (m *Mutex) ManualUnlock(ctx context.Context) {
	ctx = fixCtx(ctx)
	noLogging := IsNoLogging(ctx)
	if !noLogging {
		logger.FromCtx(ctx).Tracef("unlocking")
	}

	m.deadlockNotifier.Stop()
	m.cancelFunc()
	m.deadlockNotifier, m.cancelFunc = nil, nil

	m.mutex.Unlock()
	if !noLogging {
		logger.FromCtx(ctx).Tracef("unlocked")
	}
}

func (m *Mutex) Do(
	ctx context.Context,
	fn func(),
) {
	m.ManualLock(ctx)
	defer m.ManualUnlock(ctx)
	fn()
}

func DoR1[R0 any](
	ctx context.Context,
	m *Mutex,
	fn func() R0,
) R0 {
	var r0 R0
	m.Do(ctx, func() {
		r0 = fn()
	})
	return r0
}
