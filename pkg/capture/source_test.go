package capture

import (
	"context"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/vcamstudio/pkg/frame"
)

type fakeDevice struct {
	frames chan *frame.Frame
	closed atomic.Bool
}

func (d *fakeDevice) ReadFrame(ctx context.Context) (*frame.Frame, error) {
	select {
	case f := <-d.frames:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *fakeDevice) Size() (int, int) { return 4, 4 }
func (d *fakeDevice) FPS() float64     { return 30 }
func (d *fakeDevice) Close() error {
	d.closed.Store(true)
	return nil
}

type fakeBackend struct {
	dev     *fakeDevice
	openErr error
	opens   atomic.Int32
}

func (b *fakeBackend) Name() string { return "fake" }
func (b *fakeBackend) Open(ctx context.Context, deviceID int, width, height int, fps float64) (Device, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opens.Add(1)
	return b.dev, nil
}

func waitForSeq(t *testing.T, s *Source, seq uint64) *frame.Frame {
	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f := s.GetFrame(ctx); f != nil && f.Seq >= seq {
			return f
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no frame with seq >= %d arrived", seq)
	return nil
}

func TestSourceLatestWins(t *testing.T) {
	ctx := context.Background()
	dev := &fakeDevice{frames: make(chan *frame.Frame, 16)}
	s := NewSource(&fakeBackend{dev: dev}, 0, 4, 4, 30)

	require.Nil(t, s.GetFrame(ctx))
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() { _ = s.Stop(ctx) })

	dev.frames <- frame.NewFilled(4, 4, color.RGBA{R: 0xff, A: 0xff})
	dev.frames <- frame.NewFilled(4, 4, color.RGBA{G: 0xff, A: 0xff})
	dev.frames <- frame.NewFilled(4, 4, color.RGBA{B: 0xff, A: 0xff})

	f := waitForSeq(t, s, 3)
	require.Equal(t, uint64(3), f.Seq)
	require.Equal(t, color.RGBA{B: 0xff, A: 0xff}, f.Image.RGBAAt(0, 0))
	require.False(t, f.Timestamp.IsZero())
}

func TestSourceStartWhileRunningIsNoOp(t *testing.T) {
	ctx := context.Background()
	dev := &fakeDevice{frames: make(chan *frame.Frame)}
	b := &fakeBackend{dev: dev}
	s := NewSource(b, 0, 4, 4, 30)

	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() { _ = s.Stop(ctx) })
	require.NoError(t, s.Start(ctx))
	require.True(t, s.IsRunning(ctx))
	require.Equal(t, int32(1), b.opens.Load())
}

func TestSourceOpenFailure(t *testing.T) {
	ctx := context.Background()
	s := NewSource(&fakeBackend{openErr: ErrCaptureUnavailable}, 0, 4, 4, 30)
	err := s.Start(ctx)
	require.ErrorIs(t, err, ErrCaptureUnavailable)
	require.False(t, s.IsRunning(ctx))
}

func TestSourceStopIsIdempotentAndClearsSlot(t *testing.T) {
	ctx := context.Background()
	dev := &fakeDevice{frames: make(chan *frame.Frame, 1)}
	s := NewSource(&fakeBackend{dev: dev}, 0, 4, 4, 30)

	require.NoError(t, s.Start(ctx))
	dev.frames <- frame.NewFilled(4, 4, color.RGBA{A: 0xff})
	waitForSeq(t, s, 1)

	require.NoError(t, s.Stop(ctx))
	require.Nil(t, s.GetFrame(ctx))
	require.False(t, s.IsRunning(ctx))
	require.True(t, dev.closed.Load())

	require.NoError(t, s.Stop(ctx))
}
