// Package sink delivers composed frames to their consumers: a raw byte
// stream (for piping into an external encoder or virtual camera) and an
// MJPEG preview HTTP server.
package sink

import (
	"context"
	"errors"

	"github.com/xaionaro-go/vcamstudio/pkg/frame"
)

// ErrSinkUnavailable is returned when a sink cannot accept frames.
var ErrSinkUnavailable = errors.New("sink unavailable")

// Sink consumes composed frames. SendFrame is called from the pacing
// loop and must not block for long; a slow consumer should drop frames
// instead.
type Sink interface {
	Start(ctx context.Context) error
	SendFrame(ctx context.Context, f *frame.Frame) error
	Stop(ctx context.Context) error
	IsRunning() bool
}
