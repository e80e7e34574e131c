package compositor

import (
	"context"
	"image"
	"math"
	"sync/atomic"
	"time"

	"github.com/xaionaro-go/vcamstudio/pkg/frame"
)

// RenderRequest carries the per-compose inputs shared by all layers. The
// same Timestamp is handed to every layer within one compose call so the
// overlay animations stay synchronized.
type RenderRequest struct {
	CanvasWidth  int
	CanvasHeight int
	Timestamp    time.Time

	// Source is the latest captured camera frame; nil when the camera has
	// not delivered anything yet. Only the webcam layer consumes it.
	Source *frame.Frame
}

// Layer is one overlay unit of the stack. Render must be invisible-safe:
// when the layer is not visible it returns without touching the canvas and
// without advancing any internal state.
type Layer interface {
	Name() string
	ZOrder() int
	SetZOrder(int)
	Visible() bool
	SetVisible(bool)
	Opacity() float64
	SetOpacity(float64)

	Render(ctx context.Context, canvas *image.RGBA, req RenderRequest) error
}

// layerBase carries the properties common to all layers. Visibility,
// opacity and z-order are single atomic fields so UI-triggered setters
// never expose a half-updated state to the pacing goroutine.
type layerBase struct {
	name    string
	visible atomic.Bool
	opacity atomic.Uint64
	zOrder  atomic.Int64
}

func (l *layerBase) init(name string, zOrder int) {
	l.name = name
	l.visible.Store(true)
	l.opacity.Store(math.Float64bits(1))
	l.zOrder.Store(int64(zOrder))
}

func (l *layerBase) Name() string {
	return l.name
}

func (l *layerBase) Visible() bool {
	return l.visible.Load()
}

func (l *layerBase) SetVisible(v bool) {
	l.visible.Store(v)
}

func (l *layerBase) Opacity() float64 {
	return math.Float64frombits(l.opacity.Load())
}

func (l *layerBase) SetOpacity(v float64) {
	l.opacity.Store(math.Float64bits(math.Min(1, math.Max(0, v))))
}

func (l *layerBase) ZOrder() int {
	return int(l.zOrder.Load())
}

func (l *layerBase) SetZOrder(v int) {
	l.zOrder.Store(int64(v))
}
