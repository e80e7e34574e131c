package capture

import "errors"

// ErrCaptureUnavailable is returned when a capture device cannot be
// opened or stops producing frames.
var ErrCaptureUnavailable = errors.New("capture device unavailable")
