// Package pacer runs the main output loop: pull the latest captured
// frame, compose it, fan it out to the sinks and keep the configured
// frame rate.
package pacer

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"

	"github.com/xaionaro-go/vcamstudio/pkg/clock"
	"github.com/xaionaro-go/vcamstudio/pkg/frame"
	"github.com/xaionaro-go/vcamstudio/pkg/observability"
	"github.com/xaionaro-go/vcamstudio/pkg/sink"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

const (
	errorBackoff    = 100 * time.Millisecond
	fpsWindow       = time.Second
	stopJoinTimeout = 2 * time.Second
)

// FrameGetter is the pull side of a frame source. A nil frame means
// nothing has been captured yet.
type FrameGetter interface {
	GetFrame(ctx context.Context) *frame.Frame
}

// Composer turns a captured frame (possibly nil) into an output frame.
type Composer interface {
	ComposeFrame(ctx context.Context, source *frame.Frame) (*frame.Frame, error)
}

// EventPublisher is the publish side of an event bus
// (github.com/xaionaro-go/eventbus satisfies it).
type EventPublisher interface {
	Publish(topic string, args ...any)
}

// Loop is the pacing loop. Configure the exported fields before Start;
// they must not be modified while the loop is running.
type Loop struct {
	Source    FrameGetter
	Composer  Composer
	Sinks     []sink.Sink
	TargetFPS float64
	EventBus  EventPublisher

	// OnFrame is invoked for every composed frame, from the loop
	// goroutine. It must be fast.
	OnFrame func(ctx context.Context, f *frame.Frame)
	// OnFPS is invoked about once a second with the measured frame rate.
	OnFPS func(ctx context.Context, fps float64)
	// OnError is invoked when an iteration fails.
	OnError func(ctx context.Context, err error)

	locker   xsync.Mutex
	cancelFn context.CancelFunc
	doneCh   chan struct{}

	measuredFPS atomicFloat64
	latest      atomic.Pointer[frame.Frame]
}

type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Store(v float64) { a.bits.Store(math.Float64bits(v)) }
func (a *atomicFloat64) Load() float64   { return math.Float64frombits(a.bits.Load()) }

// Start launches the loop goroutine. Starting a running loop is a no-op.
func (l *Loop) Start(ctx context.Context) error {
	logger.Debugf(ctx, "Loop.Start")
	defer logger.Debugf(ctx, "/Loop.Start")

	return xsync.DoR1(ctx, &l.locker, func() error {
		if l.doneCh != nil {
			logger.Debugf(ctx, "the pacing loop is already running")
			return nil
		}
		if l.Source == nil || l.Composer == nil {
			return fmt.Errorf("the pacing loop requires a source and a composer")
		}
		if l.TargetFPS <= 0 {
			return fmt.Errorf("invalid target FPS: %f", l.TargetFPS)
		}

		loopCtx, cancelFn := context.WithCancel(context.WithoutCancel(ctx))
		doneCh := make(chan struct{})
		l.cancelFn = cancelFn
		l.doneCh = doneCh

		observability.Go(loopCtx, func() {
			defer close(doneCh)
			l.run(loopCtx)
		})
		l.publishEvent(ctx, EventStarted{})
		return nil
	})
}

func (l *Loop) run(ctx context.Context) {
	logger.Debugf(ctx, "Loop.run")
	defer logger.Debugf(ctx, "/Loop.run")

	interval := time.Duration(float64(time.Second) / l.TargetFPS)
	clk := clock.Get()
	windowStart := clk.Now()
	windowFrames := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		iterStart := clk.Now()
		if err := l.iteration(ctx); err != nil {
			logger.Errorf(ctx, "a pacing iteration failed: %v", err)
			l.reportError(ctx, err)
			if !sleepCtx(ctx, clk, errorBackoff) {
				return
			}
			continue
		}
		windowFrames++

		now := clk.Now()
		if elapsed := now.Sub(windowStart); elapsed >= fpsWindow {
			fps := float64(windowFrames) / elapsed.Seconds()
			l.measuredFPS.Store(fps)
			windowStart = now
			windowFrames = 0
			if l.OnFPS != nil {
				l.OnFPS(ctx, fps)
			}
			l.publishEvent(ctx, EventFPSUpdated{FPS: fps})
		}

		if sleepFor := interval - now.Sub(iterStart); sleepFor > 0 {
			if !sleepCtx(ctx, clk, sleepFor) {
				return
			}
		}
	}
}

// sleepCtx sleeps on the given clock but aborts on ctx cancellation; it
// reports whether the full duration elapsed.
func sleepCtx(ctx context.Context, clk clock.Clock, d time.Duration) bool {
	timer := clk.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (l *Loop) iteration(ctx context.Context) error {
	source := l.Source.GetFrame(ctx)
	composed, err := l.Composer.ComposeFrame(ctx, source)
	if err != nil {
		// the frame is still usable, so only report
		l.reportError(ctx, err)
	}

	l.latest.Store(composed)
	if l.OnFrame != nil {
		l.OnFrame(ctx, composed)
	}

	var result *multierror.Error
	for _, s := range l.Sinks {
		if !s.IsRunning() {
			continue
		}
		if err := s.SendFrame(ctx, composed); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (l *Loop) reportError(ctx context.Context, err error) {
	if l.OnError != nil {
		l.OnError(ctx, err)
	}
	l.publishEvent(ctx, EventError{Err: err})
}

// MeasuredFPS returns the output frame rate over the last measurement
// window, or 0 before the first window completes.
func (l *Loop) MeasuredFPS() float64 {
	return l.measuredFPS.Load()
}

// LatestFrame returns the most recently composed frame, or nil.
func (l *Loop) LatestFrame() *frame.Frame {
	return l.latest.Load()
}

// IsRunning reports whether the loop goroutine is active.
func (l *Loop) IsRunning(ctx context.Context) bool {
	return xsync.DoR1(ctx, &l.locker, func() bool {
		return l.doneCh != nil
	})
}

// Stop terminates the loop and waits for it to exit (bounded). Stopping
// a stopped loop is a no-op.
func (l *Loop) Stop(ctx context.Context) error {
	logger.Debugf(ctx, "Loop.Stop")
	defer logger.Debugf(ctx, "/Loop.Stop")

	var result *multierror.Error
	l.locker.Do(ctx, func() {
		if l.doneCh == nil {
			return
		}
		l.cancelFn()
		select {
		case <-l.doneCh:
		case <-time.After(stopJoinTimeout):
			result = multierror.Append(result, fmt.Errorf("the pacing loop did not finish within %v", stopJoinTimeout))
		}
		l.cancelFn = nil
		l.doneCh = nil
		l.publishEvent(ctx, EventStopped{})
	})
	return result.ErrorOrNil()
}
