package compositor

import (
	"context"
	"image"

	"github.com/nfnt/resize"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

// WebcamLayer draws the latest captured camera frame into its configured
// region of the canvas (the full canvas by default).
type WebcamLayer struct {
	layerBase

	locker         xsync.Mutex
	x, y           int
	width, height  int // 0 means "full canvas"
	flipHorizontal bool
}

func NewWebcamLayer(zOrder int) *WebcamLayer {
	l := &WebcamLayer{}
	l.layerBase.init("webcam", zOrder)
	return l
}

// SetRegion restricts the camera image to a sub-rectangle of the canvas.
// A zero width or height restores the full-canvas default.
func (l *WebcamLayer) SetRegion(ctx context.Context, x, y, width, height int) {
	l.locker.Do(ctx, func() {
		l.x, l.y, l.width, l.height = x, y, width, height
	})
}

func (l *WebcamLayer) SetFlipHorizontal(ctx context.Context, flip bool) {
	l.locker.Do(ctx, func() {
		l.flipHorizontal = flip
	})
}

func (l *WebcamLayer) Render(ctx context.Context, canvas *image.RGBA, req RenderRequest) error {
	if !l.Visible() || req.Source == nil || req.Source.Image == nil {
		return nil
	}

	var x, y, w, h int
	var flip bool
	l.locker.Do(ctx, func() {
		x, y, w, h = l.x, l.y, l.width, l.height
		flip = l.flipHorizontal
	})
	if w == 0 {
		w = req.CanvasWidth
	}
	if h == 0 {
		h = req.CanvasHeight
	}

	img := req.Source.Image
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		scaled := resize.Resize(uint(w), uint(h), img, resize.Bilinear)
		img = toRGBA(scaled)
	}
	if flip {
		img = flipHorizontal(img)
	}

	blendRegion(canvas, image.Rect(x, y, x+w, y+h), img, l.Opacity())
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			rgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return rgba
}
