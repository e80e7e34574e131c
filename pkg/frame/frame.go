// Package frame defines the pixel buffer exchanged between the capture
// source, the compositor and the output sinks.
//
// A Frame is immutable once captured: the component that currently holds it
// owns the buffer exclusively, and cross-component hand-off happens by copy
// (Clone) or by ownership transfer, never by shared mutable access.
package frame

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/nfnt/resize"
)

type Frame struct {
	// Image is the pixel buffer. It MUST NOT be modified after the frame
	// has been handed off to another component.
	Image *image.RGBA

	// Timestamp is the capture (or composition) time of the frame.
	Timestamp time.Time

	// Seq is a monotonically increasing sequence number assigned by the
	// producer. Used for ordering checks and drop diagnostics.
	Seq uint64
}

// New allocates a zeroed (fully transparent black) frame of the given size.
func New(width, height int) *Frame {
	return &Frame{
		Image: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// NewFilled allocates a frame of the given size filled with a color.
func NewFilled(width, height int, c color.Color) *Frame {
	f := New(width, height)
	draw.Draw(f.Image, f.Image.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return f
}

// FromImage wraps an image into a Frame. A *image.RGBA is adopted as-is
// (the caller transfers the ownership of the buffer); any other image type
// is converted into a freshly allocated RGBA buffer.
func FromImage(img image.Image) *Frame {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return &Frame{Image: rgba}
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return &Frame{Image: rgba}
}

// Width reports the buffer width. It is derived from the buffer itself, so
// the declared size can never disagree with the allocation.
func (f *Frame) Width() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

func (f *Frame) Height() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// Clone returns a deep copy of the frame. This is the copy used at every
// cross-goroutine hand-off point.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	dup := &Frame{
		Timestamp: f.Timestamp,
		Seq:       f.Seq,
	}
	if f.Image != nil {
		img := image.NewRGBA(f.Image.Rect)
		copy(img.Pix, f.Image.Pix)
		img.Stride = f.Image.Stride
		dup.Image = img
	}
	return dup
}

// Resized returns the frame scaled to the given size. The receiver is
// returned unchanged when it already has the requested dimensions.
func (f *Frame) Resized(width, height int) *Frame {
	if f == nil || f.Image == nil {
		return f
	}
	if f.Width() == width && f.Height() == height {
		return f
	}
	scaled := resize.Resize(uint(width), uint(height), f.Image, resize.Bilinear)
	out := FromImage(scaled)
	out.Timestamp = f.Timestamp
	out.Seq = f.Seq
	return out
}
