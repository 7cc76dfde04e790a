package lane

import "errors"

var (
	// ErrNoLaneDetected is returned when a lane without a prior fit
	// yields no pixels in the current frame. Tracker state is unchanged.
	ErrNoLaneDetected = errors.New("no lane detected")

	// ErrDegenerateFit is returned when fewer than three distinct rows are
	// available for a quadratic fit and there is no previous fit to reuse.
	ErrDegenerateFit = errors.New("degenerate lane fit")

	// ErrInvalidFrame is returned for frames too small to search or whose
	// pixel buffer does not match their dimensions.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrFrameSizeChanged is returned when a frame's dimensions differ from
	// the first frame of the session.
	ErrFrameSizeChanged = errors.New("frame size changed within session")
)
