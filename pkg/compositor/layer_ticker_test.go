package compositor

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tickerRender(t *testing.T, l *TickerLayer, at time.Time) {
	canvas := image.NewRGBA(image.Rect(0, 0, 320, 240))
	err := l.Render(context.Background(), canvas, RenderRequest{
		CanvasWidth:  320,
		CanvasHeight: 240,
		Timestamp:    at,
	})
	require.NoError(t, err)
}

func TestTickerScrollAdvancesPerFrame(t *testing.T) {
	ctx := context.Background()
	l := NewTickerLayer(ZOrderTicker)
	l.SetText(ctx, "breaking news")
	l.SetScrollSpeed(ctx, 2)

	now := time.Now()
	for i := 0; i < 100; i++ {
		tickerRender(t, l, now)
	}
	require.Equal(t, float64(200), l.ScrollOffset(ctx))
}

func TestTickerDoesNotScrollWhileInvisible(t *testing.T) {
	ctx := context.Background()
	l := NewTickerLayer(ZOrderTicker)
	l.SetText(ctx, "breaking news")
	l.SetVisible(false)

	now := time.Now()
	for i := 0; i < 10; i++ {
		tickerRender(t, l, now)
	}
	require.Equal(t, float64(0), l.ScrollOffset(ctx))
}

func TestTickerWallClockScroll(t *testing.T) {
	ctx := context.Background()
	l := NewTickerLayer(ZOrderTicker)
	l.SetText(ctx, "breaking news")
	l.SetScrollMode(ctx, ScrollModeWallClock)
	l.SetScrollSpeed(ctx, 60) // pixels per second

	now := time.Now()
	tickerRender(t, l, now)
	tickerRender(t, l, now.Add(500*time.Millisecond))
	require.InDelta(t, 30, l.ScrollOffset(ctx), 0.001)
}

func TestTickerLoadTextFromFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ticker.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n\n  second  \nthird\n"), 0o644))

	l := NewTickerLayer(ZOrderTicker)
	require.NoError(t, l.LoadTextFromFile(ctx, path))
	require.Equal(t, strings.Join([]string{"first", "second", "third"}, Separator), l.Text(ctx))
}

func TestTickerLoadTextFromMissingFile(t *testing.T) {
	ctx := context.Background()
	l := NewTickerLayer(ZOrderTicker)
	l.SetText(ctx, "keep me")
	err := l.LoadTextFromFile(ctx, filepath.Join(t.TempDir(), "nope.txt"))
	require.ErrorIs(t, err, ErrAssetLoad)
	require.Equal(t, "keep me", l.Text(ctx))
}
