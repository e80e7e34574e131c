package sink

import (
	"bytes"
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/vcamstudio/pkg/frame"
)

func TestWriterSinkRGBA(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	s := NewWriterSink(&buf, PixelFormatRGBA)
	require.NoError(t, s.Start(ctx))

	f := frame.NewFilled(2, 2, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff})
	require.NoError(t, s.SendFrame(ctx, f))
	require.Equal(t, 2*2*4, buf.Len())
	require.Equal(t, []byte{0x11, 0x22, 0x33, 0xff}, buf.Bytes()[:4])
}

func TestWriterSinkRGB(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	s := NewWriterSink(&buf, PixelFormatRGB)
	require.NoError(t, s.Start(ctx))

	f := frame.NewFilled(2, 2, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff})
	require.NoError(t, s.SendFrame(ctx, f))
	require.Equal(t, 2*2*3, buf.Len())
	require.Equal(t, []byte{0x11, 0x22, 0x33, 0x11}, buf.Bytes()[:4])
}

func TestWriterSinkOutputSize(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	s := NewWriterSink(&buf, PixelFormatRGBA)
	s.SetOutputSize(2, 2)
	require.NoError(t, s.Start(ctx))

	f := frame.NewFilled(8, 8, color.RGBA{G: 0xff, A: 0xff})
	require.NoError(t, s.SendFrame(ctx, f))
	require.Equal(t, 2*2*4, buf.Len())
	require.Equal(t, []byte{0x00, 0xff, 0x00, 0xff}, buf.Bytes()[:4])
}

func TestWriterSinkStopped(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	s := NewWriterSink(&buf, PixelFormatRGBA)

	f := frame.New(2, 2)
	require.ErrorIs(t, s.SendFrame(ctx, f), ErrSinkUnavailable)

	require.NoError(t, s.Start(ctx))
	require.True(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))
	require.False(t, s.IsRunning())
	require.ErrorIs(t, s.SendFrame(ctx, f), ErrSinkUnavailable)
}
