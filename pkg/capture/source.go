package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"

	"github.com/xaionaro-go/vcamstudio/pkg/clock"
	"github.com/xaionaro-go/vcamstudio/pkg/frame"
	"github.com/xaionaro-go/vcamstudio/pkg/observability"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

const (
	readFailureBackoff = 10 * time.Millisecond
	stopJoinTimeout    = 2 * time.Second
)

// Source runs the acquisition loop of a single capture device and keeps
// only the most recent frame. Consumers poll GetFrame at their own rate;
// frames arriving between polls are dropped.
type Source struct {
	backend  Backend
	deviceID int
	width    int
	height   int
	fps      float64

	locker   xsync.Mutex
	cancelFn context.CancelFunc
	doneCh   chan struct{}

	slotLocker xsync.Mutex
	latest     *frame.Frame
	seq        uint64
}

// NewSource does not open the device; Start does.
func NewSource(backend Backend, deviceID int, width, height int, fps float64) *Source {
	return &Source{
		backend:  backend,
		deviceID: deviceID,
		width:    width,
		height:   height,
		fps:      fps,
	}
}

// Start opens the device and launches the acquisition loop. Calling Start
// on an already-running Source is a no-op and leaves the loop untouched.
func (s *Source) Start(ctx context.Context) error {
	logger.Debugf(ctx, "Source.Start")
	defer logger.Debugf(ctx, "/Source.Start")

	return xsync.DoR1(ctx, &s.locker, func() error {
		if s.doneCh != nil {
			logger.Debugf(ctx, "the capture source is already running")
			return nil
		}

		dev, err := s.backend.Open(ctx, s.deviceID, s.width, s.height, s.fps)
		if err != nil {
			return fmt.Errorf("unable to open the capture device: %w", err)
		}

		loopCtx, cancelFn := context.WithCancel(context.WithoutCancel(ctx))
		doneCh := make(chan struct{})
		s.cancelFn = cancelFn
		s.doneCh = doneCh

		observability.Go(loopCtx, func() {
			defer close(doneCh)
			defer func() {
				if err := dev.Close(); err != nil {
					logger.Errorf(loopCtx, "unable to close the capture device: %v", err)
				}
			}()
			s.acquisitionLoop(loopCtx, dev)
		})
		return nil
	})
}

func (s *Source) acquisitionLoop(ctx context.Context, dev Device) {
	logger.Debugf(ctx, "acquisitionLoop")
	defer logger.Debugf(ctx, "/acquisitionLoop")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		f, err := dev.ReadFrame(ctx)
		if err != nil {
			logger.Debugf(ctx, "unable to read a frame: %v", err)
			clock.Get().Sleep(readFailureBackoff)
			continue
		}

		s.slotLocker.Do(xsync.WithNoLogging(ctx, true), func() {
			s.seq++
			f.Seq = s.seq
			f.Timestamp = clock.Get().Now()
			s.latest = f
		})
	}
}

// GetFrame returns the most recent frame, or nil when none has arrived
// yet. The returned frame is never mutated afterwards.
func (s *Source) GetFrame(ctx context.Context) *frame.Frame {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &s.slotLocker, func() *frame.Frame {
		return s.latest
	})
}

// PublishFrame injects a frame into the slot directly, bypassing the
// device. Used by synthetic sources and tests.
func (s *Source) PublishFrame(ctx context.Context, f *frame.Frame) {
	s.slotLocker.Do(xsync.WithNoLogging(ctx, true), func() {
		s.seq++
		f.Seq = s.seq
		s.latest = f
	})
}

// IsRunning reports whether the acquisition loop is active.
func (s *Source) IsRunning(ctx context.Context) bool {
	return xsync.DoR1(ctx, &s.locker, func() bool {
		return s.doneCh != nil
	})
}

// Stop terminates the acquisition loop, waits for it to exit (bounded)
// and clears the frame slot. Stopping a stopped Source is a no-op.
func (s *Source) Stop(ctx context.Context) error {
	logger.Debugf(ctx, "Source.Stop")
	defer logger.Debugf(ctx, "/Source.Stop")

	var result *multierror.Error
	s.locker.Do(ctx, func() {
		if s.doneCh == nil {
			return
		}
		s.cancelFn()
		select {
		case <-s.doneCh:
		case <-time.After(stopJoinTimeout):
			result = multierror.Append(result, fmt.Errorf("the acquisition loop did not finish within %v", stopJoinTimeout))
		}
		s.cancelFn = nil
		s.doneCh = nil
	})

	s.slotLocker.Do(ctx, func() {
		s.latest = nil
	})
	return result.ErrorOrNil()
}
