package compositor

import (
	"image"
	"image/color"
	"image/draw"
)

// blendRegion linearly blends src over the given rectangle of dst:
// dst = src*alpha + dst*(1-alpha). alpha==1 degrades to a direct copy.
// The parts of rect outside dst's bounds are clipped.
func blendRegion(dst *image.RGBA, rect image.Rectangle, src image.Image, alpha float64) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() || alpha <= 0 {
		return
	}
	if alpha >= 1 {
		draw.Draw(dst, rect, src, src.Bounds().Min, draw.Src)
		return
	}

	a := uint32(alpha * 0xffff)
	srcOrigin := src.Bounds().Min
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			sr, sg, sb, _ := src.At(srcOrigin.X+x-rect.Min.X, srcOrigin.Y+y-rect.Min.Y).RGBA()
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = mix8(dst.Pix[i+0], uint8(sr>>8), a)
			dst.Pix[i+1] = mix8(dst.Pix[i+1], uint8(sg>>8), a)
			dst.Pix[i+2] = mix8(dst.Pix[i+2], uint8(sb>>8), a)
			dst.Pix[i+3] = 0xff
		}
	}
}

// blendColorRect blends a solid color rectangle into dst at the given
// alpha; used for the ticker bar and the countdown/indicator boxes.
func blendColorRect(dst *image.RGBA, rect image.Rectangle, c color.RGBA, alpha float64) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() || alpha <= 0 {
		return
	}
	if alpha >= 1 {
		draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Src)
		return
	}

	a := uint32(alpha * 0xffff)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		i := dst.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Pix[i+0] = mix8(dst.Pix[i+0], c.R, a)
			dst.Pix[i+1] = mix8(dst.Pix[i+1], c.G, a)
			dst.Pix[i+2] = mix8(dst.Pix[i+2], c.B, a)
			dst.Pix[i+3] = 0xff
			i += 4
		}
	}
}

// blendPerPixelAlpha composites an RGBA overlay over dst using the
// overlay's own alpha channel scaled by opacity. Both images must be of
// equal size; dst is written in place.
func blendPerPixelAlpha(dst *image.RGBA, overlay *image.RGBA, opacity float64) {
	rect := dst.Bounds().Intersect(overlay.Bounds())
	if rect.Empty() || opacity <= 0 {
		return
	}

	op := uint32(opacity * 0x100)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		di := dst.PixOffset(rect.Min.X, y)
		si := overlay.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			a := (uint32(overlay.Pix[si+3]) * op) >> 8 // 0..255
			a16 := a * 0x101                           // 0..0xffff
			dst.Pix[di+0] = mix8(dst.Pix[di+0], overlay.Pix[si+0], a16)
			dst.Pix[di+1] = mix8(dst.Pix[di+1], overlay.Pix[si+1], a16)
			dst.Pix[di+2] = mix8(dst.Pix[di+2], overlay.Pix[si+2], a16)
			dst.Pix[di+3] = 0xff
			di += 4
			si += 4
		}
	}
}

// mix8 returns s*a + d*(1-a) with a in [0, 0xffff].
func mix8(d, s uint8, a uint32) uint8 {
	return uint8((uint32(s)*a + uint32(d)*(0xffff-a)) / 0xffff)
}

// flipHorizontal returns a mirrored copy of the image.
func flipHorizontal(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := src.PixOffset(x, y)
			di := dst.PixOffset(b.Max.X-1-(x-b.Min.X), y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}
