package compositor

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/anthonynsimon/bild/blend"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/nfnt/resize"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

// ImageOverlayLayer draws one static image (e.g. a frame/template with
// transparent regions) stretched over the whole canvas.
type ImageOverlayLayer struct {
	layerBase

	locker     xsync.Mutex
	img        *image.RGBA
	hasAlpha   bool
	loadedPath string

	scaledCache *image.RGBA
	cacheW      int
	cacheH      int
}

func NewImageOverlayLayer(zOrder int) *ImageOverlayLayer {
	l := &ImageOverlayLayer{}
	l.layerBase.init("overlay", zOrder)
	return l
}

// LoadImage decodes the image at path and makes it the layer's content.
// On failure the previous image (if any) is kept.
func (l *ImageOverlayLayer) LoadImage(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: unable to open '%s': %v", ErrAssetLoad, path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("%w: unable to decode '%s': %v", ErrAssetLoad, path, err)
	}

	hasAlpha := true
	if op, ok := img.(interface{ Opaque() bool }); ok && op.Opaque() {
		hasAlpha = false
	}

	rgba := toRGBA(img)
	l.locker.Do(ctx, func() {
		l.img = rgba
		l.hasAlpha = hasAlpha
		l.loadedPath = path
		l.scaledCache = nil
	})
	logger.Infof(ctx, "loaded overlay image '%s' (%s, %dx%d, alpha: %v)",
		path, format, rgba.Bounds().Dx(), rgba.Bounds().Dy(), hasAlpha)
	return nil
}

// Clear drops the current image; the layer becomes a no-op.
func (l *ImageOverlayLayer) Clear(ctx context.Context) {
	l.locker.Do(ctx, func() {
		l.img = nil
		l.loadedPath = ""
		l.scaledCache = nil
	})
}

func (l *ImageOverlayLayer) LoadedPath(ctx context.Context) string {
	return xsync.DoR1(ctx, &l.locker, func() string { return l.loadedPath })
}

func (l *ImageOverlayLayer) Render(ctx context.Context, canvas *image.RGBA, req RenderRequest) error {
	if !l.Visible() {
		return nil
	}

	var overlay *image.RGBA
	var hasAlpha bool
	l.locker.Do(ctx, func() {
		if l.img == nil {
			return
		}
		if l.scaledCache == nil || l.cacheW != req.CanvasWidth || l.cacheH != req.CanvasHeight {
			scaled := resize.Resize(uint(req.CanvasWidth), uint(req.CanvasHeight), l.img, resize.Bilinear)
			l.scaledCache = toRGBA(scaled)
			l.cacheW, l.cacheH = req.CanvasWidth, req.CanvasHeight
		}
		overlay = l.scaledCache
		hasAlpha = l.hasAlpha
	})
	if overlay == nil {
		return nil
	}

	opacity := l.Opacity()
	switch {
	case hasAlpha:
		blendPerPixelAlpha(canvas, overlay, opacity)
	case opacity >= 1:
		draw.Draw(canvas, canvas.Bounds(), overlay, overlay.Bounds().Min, draw.Src)
	default:
		blended := blend.Opacity(canvas, overlay, opacity)
		copy(canvas.Pix, blended.Pix)
	}
	return nil
}
