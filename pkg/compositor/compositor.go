package compositor

import (
	"context"
	"fmt"
	"image/color"
	"sort"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/vcamstudio/pkg/clock"
	"github.com/xaionaro-go/vcamstudio/pkg/frame"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

// Default z-orders of the built-in layers. Lower values are drawn first.
const (
	ZOrderWebcam    = 0
	ZOrderOverlay   = 10
	ZOrderTicker    = 20
	ZOrderCountdown = 30
	ZOrderIndicator = 40
)

// Compositor renders an ordered stack of layers onto a canvas of a fixed
// size. The canvas starts each composition filled with the background
// color, then every visible layer draws on top of it in ascending z-order.
type Compositor struct {
	locker  xsync.Mutex
	width   int
	height  int
	bgColor color.RGBA
	layers  []Layer

	webcam     *WebcamLayer
	overlay    *ImageOverlayLayer
	ticker     *TickerLayer
	countdown  *CountdownLayer
	indicators *IndicatorLayer
}

// New constructs a Compositor with the standard layer stack: webcam,
// image overlay, ticker, countdown and indicators. The countdown and
// indicator layers start hidden.
func New(width, height int) *Compositor {
	c := &Compositor{
		width:   width,
		height:  height,
		bgColor: color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff},

		webcam:     NewWebcamLayer(ZOrderWebcam),
		overlay:    NewImageOverlayLayer(ZOrderOverlay),
		ticker:     NewTickerLayer(ZOrderTicker),
		countdown:  NewCountdownLayer(ZOrderCountdown),
		indicators: NewIndicatorLayer(ZOrderIndicator),
	}
	c.countdown.SetVisible(false)
	c.indicators.SetVisible(false)
	c.layers = []Layer{c.webcam, c.overlay, c.ticker, c.countdown, c.indicators}
	return c
}

func (c *Compositor) Size() (int, int) {
	return c.width, c.height
}

func (c *Compositor) SetBackgroundColor(ctx context.Context, clr color.RGBA) {
	c.locker.Do(ctx, func() { c.bgColor = clr })
}

func (c *Compositor) Webcam() *WebcamLayer        { return c.webcam }
func (c *Compositor) Overlay() *ImageOverlayLayer { return c.overlay }
func (c *Compositor) Ticker() *TickerLayer        { return c.ticker }
func (c *Compositor) Countdown() *CountdownLayer  { return c.countdown }
func (c *Compositor) Indicators() *IndicatorLayer { return c.indicators }

// AddLayer appends a custom layer to the stack.
func (c *Compositor) AddLayer(ctx context.Context, layer Layer) {
	logger.Debugf(ctx, "AddLayer(%s)", layer.Name())
	c.locker.Do(ctx, func() {
		c.layers = append(c.layers, layer)
	})
}

// RemoveLayer removes the layer by name; it reports whether anything was
// removed.
func (c *Compositor) RemoveLayer(ctx context.Context, name string) bool {
	logger.Debugf(ctx, "RemoveLayer(%s)", name)
	return xsync.DoR1(ctx, &c.locker, func() bool {
		for idx, layer := range c.layers {
			if layer.Name() == name {
				c.layers = append(c.layers[:idx], c.layers[idx+1:]...)
				return true
			}
		}
		return false
	})
}

// Layers returns a snapshot of the stack sorted by ascending z-order.
func (c *Compositor) Layers(ctx context.Context) []Layer {
	return xsync.DoR1(ctx, &c.locker, func() []Layer {
		return c.sortedLayersLocked()
	})
}

func (c *Compositor) sortedLayersLocked() []Layer {
	layers := make([]Layer, len(c.layers))
	copy(layers, c.layers)
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].ZOrder() < layers[j].ZOrder()
	})
	return layers
}

// ComposeFrame renders all layers onto a fresh canvas. A nil source frame
// is allowed: the webcam layer then leaves the background untouched.
//
// A failing layer never prevents the remaining layers from rendering; the
// per-layer errors are aggregated in the returned error, alongside a frame
// that is always usable.
func (c *Compositor) ComposeFrame(ctx context.Context, source *frame.Frame) (*frame.Frame, error) {
	var layers []Layer
	var bgColor color.RGBA
	c.locker.Do(ctx, func() {
		layers = c.sortedLayersLocked()
		bgColor = c.bgColor
	})

	out := frame.NewFilled(c.width, c.height, bgColor)
	out.Timestamp = clock.Get().Now()
	req := RenderRequest{
		CanvasWidth:  c.width,
		CanvasHeight: c.height,
		Timestamp:    out.Timestamp,
		Source:       source,
	}
	if source != nil {
		out.Seq = source.Seq
	}

	var result *multierror.Error
	for _, layer := range layers {
		if err := layer.Render(ctx, out.Image, req); err != nil {
			logger.Errorf(ctx, "unable to render the layer '%s': %v", layer.Name(), err)
			result = multierror.Append(result, fmt.Errorf("layer '%s': %w", layer.Name(), err))
		}
	}
	return out, result.ErrorOrNil()
}
