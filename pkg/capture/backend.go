package capture

import (
	"context"

	"github.com/xaionaro-go/vcamstudio/pkg/frame"
)

// Device is an opened capture device producing frames on demand.
type Device interface {
	// ReadFrame blocks until the next frame is available and returns it.
	ReadFrame(ctx context.Context) (*frame.Frame, error)

	// Size returns the actual resolution the device delivers, which may
	// differ from the requested one.
	Size() (width, height int)

	// FPS returns the frame rate the device reports, or 0 when unknown.
	FPS() float64

	Close() error
}

// Backend opens capture devices by numeric ID.
type Backend interface {
	Name() string
	Open(ctx context.Context, deviceID int, width, height int, fps float64) (Device, error)
}
