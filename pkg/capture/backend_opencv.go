package capture

import (
	"context"
	"fmt"
	"runtime"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"gocv.io/x/gocv"

	"github.com/xaionaro-go/vcamstudio/pkg/frame"
)

// OpenCVBackend opens webcams through OpenCV. On Linux it prefers V4L2,
// on Windows DirectShow, falling back to whatever OpenCV picks by itself.
type OpenCVBackend struct{}

var _ Backend = (*OpenCVBackend)(nil)

func (OpenCVBackend) Name() string { return "opencv" }

func preferredAPIs() []gocv.VideoCaptureAPI {
	switch runtime.GOOS {
	case "windows":
		return []gocv.VideoCaptureAPI{gocv.VideoCaptureDshow, gocv.VideoCaptureAny}
	case "linux":
		return []gocv.VideoCaptureAPI{gocv.VideoCaptureV4L2, gocv.VideoCaptureAny}
	default:
		return []gocv.VideoCaptureAPI{gocv.VideoCaptureAny}
	}
}

func (OpenCVBackend) Open(
	ctx context.Context,
	deviceID int,
	width, height int,
	fps float64,
) (Device, error) {
	logger.Debugf(ctx, "opencv: Open(%d, %dx%d@%f)", deviceID, width, height, fps)

	var vc *gocv.VideoCapture
	var result *multierror.Error
	for _, api := range preferredAPIs() {
		c, err := gocv.OpenVideoCaptureWithAPI(deviceID, api)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("API %d: %w", api, err))
			continue
		}
		if !c.IsOpened() {
			_ = c.Close()
			result = multierror.Append(result, fmt.Errorf("API %d: device %d did not open", api, deviceID))
			continue
		}
		vc = c
		break
	}
	if vc == nil {
		return nil, fmt.Errorf("%w: unable to open device %d: %v", ErrCaptureUnavailable, deviceID, result.ErrorOrNil())
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	if fps > 0 {
		vc.Set(gocv.VideoCaptureFPS, fps)
	}

	dev := &opencvDevice{
		cap:    vc,
		mat:    gocv.NewMat(),
		width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		fps:    vc.Get(gocv.VideoCaptureFPS),
	}
	logger.Infof(ctx, "opened camera %d: %dx%d@%f", deviceID, dev.width, dev.height, dev.fps)
	return dev, nil
}

type opencvDevice struct {
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	width  int
	height int
	fps    float64
}

var _ Device = (*opencvDevice)(nil)

func (d *opencvDevice) Size() (int, int) { return d.width, d.height }
func (d *opencvDevice) FPS() float64     { return d.fps }

func (d *opencvDevice) ReadFrame(ctx context.Context) (*frame.Frame, error) {
	if !d.cap.Read(&d.mat) || d.mat.Empty() {
		return nil, fmt.Errorf("%w: unable to read a frame", ErrCaptureUnavailable)
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("unable to convert the frame: %w", err)
	}
	return frame.FromImage(img), nil
}

func (d *opencvDevice) Close() error {
	if err := d.mat.Close(); err != nil {
		return fmt.Errorf("unable to release the frame buffer: %w", err)
	}
	if err := d.cap.Close(); err != nil {
		return fmt.Errorf("unable to close the capture device: %w", err)
	}
	return nil
}

// ListCameras probes device IDs 0..maxID and returns the ones that open.
func ListCameras(ctx context.Context, maxID int) []int {
	logger.Debugf(ctx, "ListCameras(%d)", maxID)
	var available []int
	for id := 0; id <= maxID; id++ {
		vc, err := gocv.OpenVideoCapture(id)
		if err != nil {
			continue
		}
		if vc.IsOpened() {
			available = append(available, id)
		}
		_ = vc.Close()
	}
	return available
}
