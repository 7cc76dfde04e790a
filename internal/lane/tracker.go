package lane

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/monitoring"
)

// Result describes one identified frame. Left and Right are valid only when
// Identify returns a nil error.
type Result struct {
	Left     LaneFit
	Right    LaneFit
	Strategy Strategy

	// Pixels matched by the scan, before outlier filtering
	LeftPixels  int
	RightPixels int

	// Pixels discarded for straying more than Filter from the previous fit
	LeftRejected  int
	RightRejected int

	// History sizes after the frame
	LeftHistory  int
	RightHistory int

	// Set when the history could not support a fit and the previous fit was kept
	LeftReused  bool
	RightReused bool

	// Sliding windows of a blind search, bottom band first
	Windows []SearchWindow
}

// trackState is everything a session carries from frame to frame.
type trackState struct {
	leftFit      *LaneFit
	rightFit     *LaneFit
	leftHistory  *PixelHistory
	rightHistory *PixelHistory
	leftX        int // Window centres at the end of the last blind search
	rightX       int

	width, height int // Frame size fixed by the first frame
}

func newTrackState(smoothFactor int) *trackState {
	return &trackState{
		leftHistory:  NewPixelHistory(smoothFactor),
		rightHistory: NewPixelHistory(smoothFactor),
	}
}

// Tracker follows the left and right lane boundaries of one video.
// Instances share nothing, so independent streams need their own tracker.
type Tracker struct {
	cfg SearchConfig

	state        *trackState
	frames       int
	lastStrategy Strategy

	mu sync.Mutex
}

// NewTracker creates a tracker with the specified configuration.
func NewTracker(cfg SearchConfig) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}
	return &Tracker{
		cfg:   cfg,
		state: newTrackState(cfg.SmoothFactor),
	}, nil
}

// Identify locates both lanes in frame and refits them. On error the
// tracker state is left exactly as it was before the call. The frame is
// not retained.
func (t *Tracker) Identify(frame *Frame) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.frames++
	res, err := identify(t.cfg, t.state, frame)
	if err != nil {
		monitoring.Debugf("lane: frame %d: %v", t.frames, err)
		return res, err
	}
	if t.frames > 1 && res.Strategy != t.lastStrategy {
		monitoring.Logf("lane: frame %d: switched to %s search", t.frames, res.Strategy)
	}
	t.lastStrategy = res.Strategy
	monitoring.Debugf("lane: frame %d: %s left=%s right=%s px=%d/%d rejected=%d/%d",
		t.frames, res.Strategy, res.Left, res.Right,
		res.LeftPixels, res.RightPixels, res.LeftRejected, res.RightRejected)
	return res, nil
}

// Config returns the search configuration fixed at construction.
func (t *Tracker) Config() SearchConfig {
	return t.cfg
}

// Fits returns copies of the current fits; nil means the lane is unfitted.
func (t *Tracker) Fits() (left, right *LaneFit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyFit(t.state.leftFit), copyFit(t.state.rightFit)
}

// HistoryLen returns the number of pixels held for each lane.
func (t *Tracker) HistoryLen() (left, right int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.leftHistory.Len(), t.state.rightHistory.Len()
}

// Histories returns copies of both pixel histories, oldest first.
func (t *Tracker) Histories() (left, right []Pixel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.leftHistory.Pixels(), t.state.rightHistory.Pixels()
}

// LastStrategy returns the strategy of the most recent successful frame.
func (t *Tracker) LastStrategy() Strategy {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastStrategy
}

// NextStrategy returns the strategy the next frame will use.
func (t *Tracker) NextStrategy() Strategy {
	t.mu.Lock()
	defer t.mu.Unlock()
	return selectStrategy(t.state.leftFit, t.state.rightFit)
}

// Frames returns the number of Identify calls, successful or not.
func (t *Tracker) Frames() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}

// Reset drops all fits and history, returning the tracker to blind search.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = newTrackState(t.cfg.SmoothFactor)
	t.frames = 0
	t.lastStrategy = StrategyBlind
}

func copyFit(f *LaneFit) *LaneFit {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// identify processes one frame against st. st is mutated only when the
// frame succeeds, and then all at once.
func identify(cfg SearchConfig, st *trackState, frame *Frame) (Result, error) {
	if err := frame.Validate(); err != nil {
		return Result{}, err
	}
	if st.width != 0 && (frame.Width != st.width || frame.Height != st.height) {
		return Result{}, fmt.Errorf("%w: got %dx%d, session is %dx%d",
			ErrFrameSizeChanged, frame.Width, frame.Height, st.width, st.height)
	}

	pixels := frame.Nonzero()

	res := Result{Strategy: selectStrategy(st.leftFit, st.rightFit)}
	var leftIdx, rightIdx []int
	leftX, rightX := st.leftX, st.rightX
	switch res.Strategy {
	case StrategyBlind:
		scan := blindSearch(frame, pixels, cfg)
		leftIdx, rightIdx = scan.leftIdx, scan.rightIdx
		leftX, rightX = scan.leftX, scan.rightX
		res.Windows = scan.windows
	case StrategySelective:
		leftIdx, rightIdx = selectiveSearch(pixels, *st.leftFit, *st.rightFit, cfg.Margin)
	}

	leftPix := pixels.Gather(leftIdx)
	rightPix := pixels.Gather(rightIdx)
	res.LeftPixels, res.RightPixels = len(leftPix), len(rightPix)

	if (len(leftPix) == 0 && st.leftFit == nil) || (len(rightPix) == 0 && st.rightFit == nil) {
		return res, fmt.Errorf("%w: %d left, %d right pixels", ErrNoLaneDetected, len(leftPix), len(rightPix))
	}

	// Lanes without a previous fit skip the filter, so the frame that first
	// fits a lane is never filtered.
	leftPix, res.LeftRejected = rejectOutliers(leftPix, st.leftFit, cfg.Filter)
	rightPix, res.RightRejected = rejectOutliers(rightPix, st.rightFit, cfg.Filter)

	leftFit, leftReused, err := refit(st.leftHistory.Window(leftPix), st.leftFit)
	if err != nil {
		return res, fmt.Errorf("left lane: %w", err)
	}
	rightFit, rightReused, err := refit(st.rightHistory.Window(rightPix), st.rightFit)
	if err != nil {
		return res, fmt.Errorf("right lane: %w", err)
	}

	// Commit.
	st.leftHistory.Add(leftPix...)
	st.rightHistory.Add(rightPix...)
	st.leftFit, st.rightFit = &leftFit, &rightFit
	st.leftX, st.rightX = leftX, rightX
	st.width, st.height = frame.Width, frame.Height

	res.Left, res.Right = leftFit, rightFit
	res.LeftReused, res.RightReused = leftReused, rightReused
	res.LeftHistory, res.RightHistory = st.leftHistory.Len(), st.rightHistory.Len()
	return res, nil
}

// rejectOutliers drops pixels further than filter from the trend of prev.
// With no previous fit every pixel is kept.
func rejectOutliers(pixels []Pixel, prev *LaneFit, filter float64) (kept []Pixel, rejected int) {
	if prev == nil {
		return pixels, 0
	}
	kept = make([]Pixel, 0, len(pixels))
	for _, p := range pixels {
		if math.Abs(float64(p.X)-prev.X(float64(p.Y))) > filter {
			rejected++
			continue
		}
		kept = append(kept, p)
	}
	return kept, rejected
}

// refit fits window, falling back to prev when the window is degenerate.
func refit(window []Pixel, prev *LaneFit) (fit LaneFit, reused bool, err error) {
	fit, err = PolyFit2(window)
	if err == nil {
		return fit, false, nil
	}
	if errors.Is(err, ErrDegenerateFit) && prev != nil {
		monitoring.Logf("lane: %v over %d pixels, keeping previous fit", err, len(window))
		return *prev, true, nil
	}
	return LaneFit{}, false, err
}
