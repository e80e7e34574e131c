// Package textrender is the process-wide text drawing capability used by the
// overlay layers. It lazily initializes Liberation Sans faces (regular and
// bold) and falls back to a fixed bitmap font when the vector faces cannot
// be constructed, so text overlays keep working in any environment.
package textrender

import (
	"image"
	"image/color"
	"sync"

	"codeberg.org/go-fonts/liberation/liberationsansbold"
	"codeberg.org/go-fonts/liberation/liberationsansregular"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

type faceKey struct {
	size int
	bold bool
}

type Renderer struct {
	regular *sfnt.Font
	bold    *sfnt.Font

	facesLocker sync.Mutex
	faces       map[faceKey]font.Face
}

var (
	initOnce sync.Once
	global   *Renderer
)

// Get returns the process-wide renderer, initializing it on first use.
func Get() *Renderer {
	initOnce.Do(func() {
		global = newRenderer()
	})
	return global
}

func newRenderer() *Renderer {
	r := &Renderer{
		faces: map[faceKey]font.Face{},
	}
	if f, err := opentype.Parse(liberationsansregular.TTF); err == nil {
		r.regular = f
	}
	if f, err := opentype.Parse(liberationsansbold.TTF); err == nil {
		r.bold = f
	} else {
		r.bold = r.regular
	}
	return r
}

// UsingFallback reports whether the bitmap fallback face is in use.
func (r *Renderer) UsingFallback() bool {
	return r.regular == nil
}

// Face returns a cached face for the given pixel size.
func (r *Renderer) Face(size int, bold bool) font.Face {
	if size < 1 {
		size = 1
	}

	r.facesLocker.Lock()
	defer r.facesLocker.Unlock()

	key := faceKey{size: size, bold: bold}
	if face, ok := r.faces[key]; ok {
		return face
	}

	face := r.newFace(size, bold)
	r.faces[key] = face
	return face
}

func (r *Renderer) newFace(size int, bold bool) font.Face {
	fnt := r.regular
	if bold && r.bold != nil {
		fnt = r.bold
	}
	if fnt == nil {
		return basicfont.Face7x13
	}

	// DPI 72 makes the point size equal to the pixel size.
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// Measure returns the advance width and the line height of the text at the
// given pixel size, without drawing it.
func (r *Renderer) Measure(text string, size int, bold bool) (int, int) {
	face := r.Face(size, bold)
	width := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	return width, height
}

// Draw renders the text onto dst with (x, y) being the top-left corner of
// the text box (not the baseline).
func (r *Renderer) Draw(dst *image.RGBA, text string, x, y int, size int, c color.Color, bold bool) {
	face := r.Face(size, bold)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(x),
			Y: fixed.I(y) + face.Metrics().Ascent,
		},
	}
	d.DrawString(text)
}
