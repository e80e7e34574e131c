package compositor

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/vcamstudio/pkg/clock"
)

func TestParseIndicatorsJSON(t *testing.T) {
	items, err := parseIndicators([]byte(`[
		{"label": "REC", "value": "on", "color": [255, 0, 0]},
		{"label": "MIC", "value": "muted", "color": "#00ff00"},
		{"label": "NET"}
	]`))
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, Indicator{Label: "REC", Value: "on", Color: color.RGBA{R: 0xff, A: 0xff}}, items[0])
	require.Equal(t, color.RGBA{G: 0xff, A: 0xff}, items[1].Color)
	require.Equal(t, "NET", items[2].Label)
}

func TestParseIndicatorsPlainText(t *testing.T) {
	items, err := parseIndicators([]byte("REC: on\n\nMIC: muted\nNET\n"))
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "REC", items[0].Label)
	require.Equal(t, "on", items[0].Value)
	require.Equal(t, "", items[2].Label)
	require.Equal(t, "NET", items[2].Value)
}

func TestIndicatorText(t *testing.T) {
	require.Equal(t, "REC: on", indicatorText(Indicator{Label: "REC", Value: "on"}))
	require.Equal(t, "REC", indicatorText(Indicator{Label: "REC"}))
	require.Equal(t, "just a value", indicatorText(Indicator{Value: "just a value"}))
}

func TestIndicatorEntryColorAppliedToText(t *testing.T) {
	ctx := context.Background()
	l := NewIndicatorLayer(ZOrderIndicator)
	l.SetIndicators(ctx, []Indicator{{Label: "REC", Value: "on", Color: color.RGBA{R: 0xff, A: 0xff}}})

	canvas := image.NewRGBA(image.Rect(0, 0, 320, 240))
	require.NoError(t, l.Render(ctx, canvas, RenderRequest{
		CanvasWidth:  320,
		CanvasHeight: 240,
		Timestamp:    time.Now(),
	}))

	var reddish, whitish int
	for i := 0; i < len(canvas.Pix); i += 4 {
		r, g, b := canvas.Pix[i], canvas.Pix[i+1], canvas.Pix[i+2]
		if r > 0xc0 && g < 0x40 && b < 0x40 {
			reddish++
		}
		if r > 0xc0 && g > 0xc0 && b > 0xc0 {
			whitish++
		}
	}
	require.NotZero(t, reddish)
	require.Zero(t, whitish)

	// an entry without an explicit color falls back to the layer font color
	l.SetIndicators(ctx, []Indicator{{Label: "REC", Value: "on"}})
	canvas = image.NewRGBA(image.Rect(0, 0, 320, 240))
	require.NoError(t, l.Render(ctx, canvas, RenderRequest{
		CanvasWidth:  320,
		CanvasHeight: 240,
		Timestamp:    time.Now(),
	}))
	whitish = 0
	for i := 0; i < len(canvas.Pix); i += 4 {
		r, g, b := canvas.Pix[i], canvas.Pix[i+1], canvas.Pix[i+2]
		if r > 0xc0 && g > 0xc0 && b > 0xc0 {
			whitish++
		}
	}
	require.NotZero(t, whitish)
}

func TestIndicatorAutoReload(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	clock.Set(mock)
	t.Cleanup(func() { clock.Set(clock.New()) })

	path := filepath.Join(t.TempDir(), "indicators.txt")
	require.NoError(t, os.WriteFile(path, []byte("REC: off\n"), 0o644))

	l := NewIndicatorLayer(ZOrderIndicator)
	l.SetReloadInterval(ctx, 5*time.Second)
	require.NoError(t, l.LoadIndicators(ctx, path))

	require.NoError(t, os.WriteFile(path, []byte("REC: on\n"), 0o644))

	render := func(at time.Time) {
		canvas := image.NewRGBA(image.Rect(0, 0, 320, 240))
		require.NoError(t, l.Render(ctx, canvas, RenderRequest{
			CanvasWidth:  320,
			CanvasHeight: 240,
			Timestamp:    at,
		}))
	}

	loadedAt := mock.Now()
	render(loadedAt)
	require.Equal(t, "off", l.Indicators(ctx)[0].Value)
	render(loadedAt.Add(3 * time.Second))
	require.Equal(t, "off", l.Indicators(ctx)[0].Value)
	render(loadedAt.Add(5 * time.Second))
	require.Equal(t, "off", l.Indicators(ctx)[0].Value)
	render(loadedAt.Add(6 * time.Second))
	require.Equal(t, "on", l.Indicators(ctx)[0].Value)
}

func TestLoadIndicatorsMissingFileKeepsState(t *testing.T) {
	ctx := context.Background()
	l := NewIndicatorLayer(ZOrderIndicator)
	l.SetIndicators(ctx, []Indicator{{Label: "REC"}})
	err := l.LoadIndicators(ctx, filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, ErrAssetLoad)
	require.Len(t, l.Indicators(ctx), 1)
}
