package sink

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/xaionaro-go/vcamstudio/pkg/frame"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

// PixelFormat selects the byte layout WriterSink emits per frame.
type PixelFormat int

const (
	// PixelFormatRGBA writes the frame buffer as-is, 4 bytes per pixel.
	PixelFormatRGBA PixelFormat = iota
	// PixelFormatRGB strips the alpha channel, 3 bytes per pixel.
	PixelFormatRGB
)

// WriterSink streams raw pixel data to an io.Writer, one frame after
// another with no framing. The typical consumer is an ffmpeg process
// reading rawvideo from stdin and feeding a v4l2 loopback device.
type WriterSink struct {
	w         io.Writer
	format    PixelFormat
	outWidth  int
	outHeight int
	locker    xsync.Mutex
	running   atomic.Bool
	rgbBuf    []byte
}

var _ Sink = (*WriterSink)(nil)

func NewWriterSink(w io.Writer, format PixelFormat) *WriterSink {
	return &WriterSink{w: w, format: format}
}

// SetOutputSize declares the frame size the consumer expects. Frames of
// a different size are scaled before being written. Zero disables scaling.
func (s *WriterSink) SetOutputSize(width, height int) {
	s.outWidth, s.outHeight = width, height
}

func (s *WriterSink) Start(ctx context.Context) error {
	logger.Debugf(ctx, "WriterSink.Start")
	s.running.Store(true)
	return nil
}

func (s *WriterSink) Stop(ctx context.Context) error {
	logger.Debugf(ctx, "WriterSink.Stop")
	s.running.Store(false)
	return nil
}

func (s *WriterSink) IsRunning() bool {
	return s.running.Load()
}

func (s *WriterSink) SendFrame(ctx context.Context, f *frame.Frame) error {
	if !s.running.Load() {
		return fmt.Errorf("%w: the writer sink is stopped", ErrSinkUnavailable)
	}
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &s.locker, func() error {
		if s.outWidth > 0 && s.outHeight > 0 {
			f = f.Resized(s.outWidth, s.outHeight)
		}
		var data []byte
		switch s.format {
		case PixelFormatRGB:
			data = s.stripAlpha(f.Image.Pix)
		default:
			data = f.Image.Pix
		}
		if _, err := s.w.Write(data); err != nil {
			return fmt.Errorf("%w: unable to write the frame: %v", ErrSinkUnavailable, err)
		}
		return nil
	})
}

func (s *WriterSink) stripAlpha(pix []byte) []byte {
	need := len(pix) / 4 * 3
	if cap(s.rgbBuf) < need {
		s.rgbBuf = make([]byte, need)
	}
	buf := s.rgbBuf[:need]
	for i, j := 0, 0; i < len(pix); i, j = i+4, j+3 {
		buf[j] = pix[i]
		buf[j+1] = pix[i+1]
		buf[j+2] = pix[i+2]
	}
	return buf
}
