package compositor

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/vcamstudio/pkg/clock"
)

func withMockClock(t *testing.T) *clock.Mock {
	mock := clock.NewMock()
	clock.Set(mock)
	t.Cleanup(func() { clock.Set(clock.New()) })
	return mock
}

func TestCountdownIdleReportsDuration(t *testing.T) {
	ctx := context.Background()
	withMockClock(t)

	l := NewCountdownLayer(ZOrderCountdown)
	l.SetDuration(ctx, 90*time.Second)
	require.Equal(t, 90*time.Second, l.Remaining(ctx))
	require.False(t, l.Finished(ctx))
}

func TestCountdownRunningAndPauseResume(t *testing.T) {
	ctx := context.Background()
	mock := withMockClock(t)

	l := NewCountdownLayer(ZOrderCountdown)
	l.SetDuration(ctx, time.Minute)
	l.Start(ctx)

	mock.Add(10 * time.Second)
	require.Equal(t, 50*time.Second, l.Remaining(ctx))

	l.Pause(ctx)
	mock.Add(time.Hour)
	require.Equal(t, 50*time.Second, l.Remaining(ctx))

	l.Resume(ctx)
	mock.Add(20 * time.Second)
	require.Equal(t, 30*time.Second, l.Remaining(ctx))
}

func TestCountdownNeverNegativeAndFinishesOnce(t *testing.T) {
	ctx := context.Background()
	mock := withMockClock(t)

	finishes := 0
	l := NewCountdownLayer(ZOrderCountdown)
	l.SetDuration(ctx, 5*time.Second)
	l.SetOnFinished(ctx, func(ctx context.Context) { finishes++ })
	l.Start(ctx)

	mock.Add(time.Hour)
	require.Equal(t, time.Duration(0), l.Remaining(ctx))
	require.True(t, l.Finished(ctx))
	require.Equal(t, time.Duration(0), l.Remaining(ctx))
	require.Equal(t, 1, finishes)
}

func TestCountdownOnFinishedMayReenterLayer(t *testing.T) {
	ctx := context.Background()
	mock := withMockClock(t)

	l := NewCountdownLayer(ZOrderCountdown)
	l.SetDuration(ctx, 5*time.Second)
	var observed time.Duration
	l.SetOnFinished(ctx, func(ctx context.Context) {
		observed = l.Remaining(ctx)
		next := time.Minute
		l.Reset(ctx, &next)
	})
	l.Start(ctx)

	mock.Add(10 * time.Second)
	require.Equal(t, time.Duration(0), l.Remaining(ctx))
	require.Equal(t, time.Duration(0), observed)
	require.False(t, l.Finished(ctx))
	require.Equal(t, time.Minute, l.Remaining(ctx))
}

func TestCountdownReset(t *testing.T) {
	ctx := context.Background()
	mock := withMockClock(t)

	l := NewCountdownLayer(ZOrderCountdown)
	l.SetDuration(ctx, time.Minute)
	l.Start(ctx)
	mock.Add(time.Minute)
	require.True(t, l.Finished(ctx))

	newDuration := 2 * time.Minute
	l.Reset(ctx, &newDuration)
	require.False(t, l.Finished(ctx))
	require.Equal(t, 2*time.Minute, l.Remaining(ctx))
}

func TestCountdownFormatRemaining(t *testing.T) {
	require.Equal(t, "00:05", formatRemaining(5*time.Second))
	require.Equal(t, "01:30", formatRemaining(90*time.Second))
	require.Equal(t, "59:59", formatRemaining(3599*time.Second))
	require.Equal(t, "01:00:00", formatRemaining(time.Hour))
	require.Equal(t, "02:03:04", formatRemaining(2*time.Hour+3*time.Minute+4*time.Second))
}

func TestCountdownRenderWhileHidden(t *testing.T) {
	ctx := context.Background()
	withMockClock(t)

	l := NewCountdownLayer(ZOrderCountdown)
	l.SetVisible(false)
	canvas := image.NewRGBA(image.Rect(0, 0, 64, 64))
	before := append([]byte(nil), canvas.Pix...)
	require.NoError(t, l.Render(ctx, canvas, RenderRequest{CanvasWidth: 64, CanvasHeight: 64}))
	require.Equal(t, before, canvas.Pix)
}
