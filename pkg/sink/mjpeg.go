package sink

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/chai2010/webp"
	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/xaionaro-go/vcamstudio/pkg/frame"
	"github.com/xaionaro-go/vcamstudio/pkg/observability"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

const (
	mjpegBoundary       = "vcamstudioframe"
	mjpegJPEGQuality    = 80
	snapshotWebPQuality = 90
	shutdownTimeout     = 2 * time.Second
)

// MJPEGServer serves the composed output over HTTP:
//
//	GET /preview.mjpeg  - multipart MJPEG stream
//	GET /snapshot.webp  - the latest frame as a WebP image
//
// Each connected client has its own one-frame buffer; when a client is
// slower than the pacing loop it just receives fewer frames.
type MJPEGServer struct {
	addr    string
	locker  xsync.Mutex
	srv     *http.Server
	ln      net.Listener
	clients map[chan *frame.Frame]struct{}
	latest  atomic.Pointer[frame.Frame]
	running atomic.Bool
}

var _ Sink = (*MJPEGServer)(nil)

func NewMJPEGServer(addr string) *MJPEGServer {
	return &MJPEGServer{
		addr:    addr,
		clients: make(map[chan *frame.Frame]struct{}),
	}
}

// Addr returns the address the server is listening on. Useful when the
// configured address has port 0.
func (s *MJPEGServer) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *MJPEGServer) Start(ctx context.Context) error {
	logger.Debugf(ctx, "MJPEGServer.Start")
	defer logger.Debugf(ctx, "/MJPEGServer.Start")

	return xsync.DoR1(ctx, &s.locker, func() error {
		if s.running.Load() {
			return fmt.Errorf("the MJPEG server is already running")
		}

		mux := http.NewServeMux()
		mux.HandleFunc("/preview.mjpeg", func(w http.ResponseWriter, r *http.Request) {
			s.handleStream(ctx, w, r)
		})
		mux.HandleFunc("/snapshot.webp", func(w http.ResponseWriter, r *http.Request) {
			s.handleSnapshot(ctx, w, r)
		})

		ln, err := net.Listen("tcp", s.addr)
		if err != nil {
			return fmt.Errorf("%w: unable to listen on '%s': %v", ErrSinkUnavailable, s.addr, err)
		}
		s.ln = ln
		s.srv = &http.Server{Handler: mux}
		s.running.Store(true)

		srv := s.srv
		observability.Go(ctx, func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				logger.Errorf(ctx, "the MJPEG server failed: %v", err)
			}
		})
		logger.Infof(ctx, "the MJPEG preview is available on http://%s/preview.mjpeg", ln.Addr())
		return nil
	})
}

func (s *MJPEGServer) Stop(ctx context.Context) error {
	logger.Debugf(ctx, "MJPEGServer.Stop")
	defer logger.Debugf(ctx, "/MJPEGServer.Stop")

	// do not hold the locker during Shutdown: disconnecting stream
	// clients need it to unsubscribe
	var srv *http.Server
	s.locker.Do(ctx, func() {
		if !s.running.Load() {
			return
		}
		s.running.Store(false)
		srv = s.srv
		s.srv = nil
		s.ln = nil
	})
	if srv == nil {
		return nil
	}

	shutdownCtx, cancelFn := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelFn()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// stream clients never go idle, so a graceful shutdown times out
		// whenever somebody is watching; close their connections instead
		logger.Debugf(ctx, "graceful shutdown of the MJPEG server failed (%v), closing the connections", err)
		if err := srv.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the MJPEG server: %v", err)
		}
	}
	return nil
}

func (s *MJPEGServer) IsRunning() bool {
	return s.running.Load()
}

func (s *MJPEGServer) SendFrame(ctx context.Context, f *frame.Frame) error {
	if !s.running.Load() {
		return fmt.Errorf("%w: the MJPEG server is stopped", ErrSinkUnavailable)
	}
	s.latest.Store(f)

	s.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		for ch := range s.clients {
			select {
			case ch <- f:
			default:
				// the client is still busy with the previous frame
			}
		}
	})
	return nil
}

func (s *MJPEGServer) subscribe(ctx context.Context) chan *frame.Frame {
	ch := make(chan *frame.Frame, 1)
	s.locker.Do(ctx, func() {
		s.clients[ch] = struct{}{}
	})
	return ch
}

func (s *MJPEGServer) unsubscribe(ctx context.Context, ch chan *frame.Frame) {
	s.locker.Do(ctx, func() {
		delete(s.clients, ch)
	})
}

func (s *MJPEGServer) handleStream(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	logger.Debugf(ctx, "a preview client connected: %s", r.RemoteAddr)
	defer logger.Debugf(ctx, "a preview client disconnected: %s", r.RemoteAddr)

	ch := s.subscribe(ctx)
	defer s.unsubscribe(ctx, ch)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		select {
		case <-r.Context().Done():
			return
		case f := <-ch:
			if err := writeMJPEGPart(w, f); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func writeMJPEGPart(w http.ResponseWriter, f *frame.Frame) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: mjpegJPEGQuality}); err != nil {
		return fmt.Errorf("unable to encode the frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, buf.Len()); err != nil {
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}

func (s *MJPEGServer) handleSnapshot(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	f := s.latest.Load()
	if f == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/webp")
	if err := webp.Encode(w, f.Image, &webp.Options{Quality: snapshotWebPQuality}); err != nil {
		logger.Errorf(ctx, "unable to encode the snapshot: %v", err)
	}
}
