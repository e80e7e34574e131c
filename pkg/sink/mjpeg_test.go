package sink

import (
	"bufio"
	"context"
	"fmt"
	"image/color"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/vcamstudio/pkg/frame"
	"github.com/xaionaro-go/vcamstudio/pkg/observability"
)

func startTestServer(t *testing.T) *MJPEGServer {
	ctx := context.Background()
	s := NewMJPEGServer("127.0.0.1:0")
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() { _ = s.Stop(ctx) })
	return s
}

func TestMJPEGServerSnapshot(t *testing.T) {
	ctx := context.Background()
	s := startTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/snapshot.webp", s.Addr()))
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, s.SendFrame(ctx, frame.NewFilled(4, 4, color.RGBA{R: 0xff, A: 0xff})))

	resp, err = http.Get(fmt.Sprintf("http://%s/snapshot.webp", s.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/webp", resp.Header.Get("Content-Type"))
}

func TestMJPEGServerStream(t *testing.T) {
	ctx := context.Background()
	s := startTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/preview.mjpeg", s.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Contains(t, resp.Header.Get("Content-Type"), "multipart/x-mixed-replace")

	stopFeeding := make(chan struct{})
	defer close(stopFeeding)
	observability.Go(ctx, func() {
		f := frame.NewFilled(4, 4, color.RGBA{G: 0xff, A: 0xff})
		for {
			select {
			case <-stopFeeding:
				return
			case <-time.After(10 * time.Millisecond):
				_ = s.SendFrame(ctx, f)
			}
		}
	})

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, mjpegBoundary)
}

func TestMJPEGServerStopWithConnectedClient(t *testing.T) {
	ctx := context.Background()
	s := startTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/preview.mjpeg", s.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the streaming handler never goes idle, so Stop has to force the
	// connection closed; that is still a clean stop
	require.NoError(t, s.Stop(ctx))
	require.False(t, s.IsRunning())

	buf := make([]byte, 1)
	_, err = resp.Body.Read(buf)
	require.Error(t, err)
}

func TestMJPEGServerStoppedRejectsFrames(t *testing.T) {
	ctx := context.Background()
	s := NewMJPEGServer("127.0.0.1:0")
	require.ErrorIs(t, s.SendFrame(ctx, frame.New(2, 2)), ErrSinkUnavailable)

	require.NoError(t, s.Start(ctx))
	require.Error(t, s.Start(ctx))
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
	require.ErrorIs(t, s.SendFrame(ctx, frame.New(2, 2)), ErrSinkUnavailable)
}
