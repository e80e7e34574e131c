package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFilled(t *testing.T) {
	f := NewFilled(4, 3, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff})
	require.Equal(t, 4, f.Width())
	require.Equal(t, 3, f.Height())
	require.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, f.Image.RGBAAt(2, 1))
}

func TestFromImageConvertsNonRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 0xff, A: 0xff})

	f := FromImage(src)
	require.Equal(t, 2, f.Width())
	require.Equal(t, image.Point{}, f.Image.Rect.Min)
	require.Equal(t, color.RGBA{R: 0xff, A: 0xff}, f.Image.RGBAAt(0, 0))
}

func TestCloneIsIndependent(t *testing.T) {
	f := NewFilled(2, 2, color.RGBA{A: 0xff})
	c := f.Clone()
	c.Image.SetRGBA(0, 0, color.RGBA{R: 0xff, A: 0xff})
	require.Equal(t, color.RGBA{A: 0xff}, f.Image.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{R: 0xff, A: 0xff}, c.Image.RGBAAt(0, 0))
}

func TestResized(t *testing.T) {
	f := NewFilled(8, 4, color.RGBA{G: 0xff, A: 0xff})
	r := f.Resized(4, 2)
	require.Equal(t, 4, r.Width())
	require.Equal(t, 2, r.Height())
	require.Equal(t, color.RGBA{G: 0xff, A: 0xff}, r.Image.RGBAAt(1, 1))
}
