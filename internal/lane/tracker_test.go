package lane

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/config"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/monitoring"
)

func newTestTracker(t *testing.T, cfg SearchConfig) *Tracker {
	t.Helper()
	tracker, err := NewTracker(cfg)
	require.NoError(t, err)
	return tracker
}

func assertFitNear(t *testing.T, want, got LaneFit) {
	t.Helper()
	assert.InDelta(t, want.A, got.A, 1e-9, "a")
	assert.InDelta(t, want.B, got.B, 1e-6, "b")
	assert.InDelta(t, want.C, got.C, 1e-6, "c")
}

func TestNewTracker_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SmoothFactor = 2
	_, err := NewTracker(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.NWindows = 0
	_, err = NewTracker(cfg)
	assert.Error(t, err)
}

func TestTracker_ConfigIsFixedAtConstruction(t *testing.T) {
	tracker := newTestTracker(t, testConfig())

	cfg := tracker.Config()
	assert.Equal(t, testConfig(), cfg)
	cfg.NWindows = 0
	cfg.SmoothFactor = 1000
	assert.Equal(t, testConfig(), tracker.Config())

	frame := columnsFrame(1280, 720, 300, 900)
	for i := 0; i < 3; i++ {
		_, err := tracker.Identify(frame)
		require.NoError(t, err)
	}
	left, right := tracker.HistoryLen()
	assert.Equal(t, testConfig().SmoothFactor, left)
	assert.Equal(t, testConfig().SmoothFactor, right)

	tracker.Reset()
	_, err := tracker.Identify(frame)
	require.NoError(t, err)
	left, _ = tracker.HistoryLen()
	assert.Equal(t, testConfig().SmoothFactor, left)
}

func TestSearchConfigFromTuning(t *testing.T) {
	assert.Equal(t, DefaultSearchConfig(), SearchConfigFromTuning(nil))

	tc := config.EmptyTuningConfig()
	margin := 60
	tc.Margin = &margin
	cfg := SearchConfigFromTuning(tc)
	assert.Equal(t, 60, cfg.Margin)
	assert.Equal(t, config.DefaultNWindows, cfg.NWindows)
	assert.NoError(t, cfg.Validate())
}

// End-to-end: blind search on the first frame, selective search on an
// identical second frame, both reproducing the vertical columns.
func TestTracker_EndToEndColumns(t *testing.T) {
	tracker := newTestTracker(t, testConfig())
	frame := columnsFrame(1280, 720, 300, 900)

	assert.Equal(t, StrategyBlind, tracker.NextStrategy())
	res, err := tracker.Identify(frame)
	require.NoError(t, err)
	assert.Equal(t, StrategyBlind, res.Strategy)
	assert.Len(t, res.Windows, 18)
	assert.Equal(t, 720, res.LeftPixels)
	assert.Equal(t, 720, res.RightPixels)
	assertFitNear(t, LaneFit{C: 300}, res.Left)
	assertFitNear(t, LaneFit{C: 900}, res.Right)

	assert.Equal(t, StrategySelective, tracker.NextStrategy())
	res, err = tracker.Identify(frame)
	require.NoError(t, err)
	assert.Equal(t, StrategySelective, res.Strategy)
	assert.Nil(t, res.Windows)
	assertFitNear(t, LaneFit{C: 300}, res.Left)
	assertFitNear(t, LaneFit{C: 900}, res.Right)
	assert.Equal(t, 0, res.LeftRejected)
	assert.Equal(t, 0, res.RightRejected)

	left, right := tracker.Fits()
	require.NotNil(t, left)
	require.NotNil(t, right)
	assertFitNear(t, res.Left, *left)
	assertFitNear(t, res.Right, *right)
	assert.Equal(t, 2, tracker.Frames())
	assert.Equal(t, StrategySelective, tracker.LastStrategy())
}

func TestTracker_IdempotentUnderStableInput(t *testing.T) {
	// Room for two frames of one-pixel-per-row curves.
	cfg := testConfig()
	cfg.SmoothFactor = 1440
	tracker := newTestTracker(t, cfg)
	frame := curveFrame(1280, 720,
		LaneFit{A: 1e-4, B: -0.05, C: 320},
		LaneFit{A: 1e-4, B: -0.05, C: 940},
	)

	_, err := tracker.Identify(frame)
	require.NoError(t, err)

	prev, err := tracker.Identify(frame)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		res, err := tracker.Identify(frame)
		require.NoError(t, err)
		assert.Equal(t, 0, res.LeftRejected)
		assert.Equal(t, 0, res.RightRejected)
		assertFitNear(t, prev.Left, res.Left)
		assertFitNear(t, prev.Right, res.Right)
		prev = res
	}
}

func TestTracker_HistoryBound(t *testing.T) {
	cfg := testConfig()
	cfg.SmoothFactor = 2000
	tracker := newTestTracker(t, cfg)
	frame := columnsFrame(1280, 720, 300, 900)

	wantLens := []int{720, 1440, 2000, 2000, 2000}
	for i, want := range wantLens {
		res, err := tracker.Identify(frame)
		require.NoError(t, err)
		left, right := tracker.HistoryLen()
		assert.Equal(t, want, left, "frame %d", i+1)
		assert.Equal(t, want, right, "frame %d", i+1)
		assert.Equal(t, want, res.LeftHistory)
		assert.Equal(t, want, res.RightHistory)
	}
}

func TestTracker_StrategySwitchObservable(t *testing.T) {
	// Lane at x=300 plus a heavier distractor block at x=100..102 in the
	// bottom half. Blind search is pulled to the block; a selective search
	// around x=300 ignores it.
	distracted := columnsFrame(1280, 720, 300, 900)
	fillRect(distracted, 100, 360, 103, 720)

	fresh := newTestTracker(t, testConfig())
	res, err := fresh.Identify(distracted)
	require.NoError(t, err)
	assert.Equal(t, StrategyBlind, res.Strategy)
	assert.Equal(t, 1080, res.LeftPixels)

	fitted := newTestTracker(t, testConfig())
	_, err = fitted.Identify(columnsFrame(1280, 720, 300, 900))
	require.NoError(t, err)
	res, err = fitted.Identify(distracted)
	require.NoError(t, err)
	assert.Equal(t, StrategySelective, res.Strategy)
	assert.Equal(t, 720, res.LeftPixels)
	assertFitNear(t, LaneFit{C: 300}, res.Left)
}

func TestTracker_OutlierRejection(t *testing.T) {
	cfg := testConfig()
	cfg.Filter = 20
	tracker := newTestTracker(t, cfg)

	_, err := tracker.Identify(columnsFrame(1280, 720, 300, 900))
	require.NoError(t, err)

	// x=350 and x=860 sit inside the search band but beyond the filter.
	res, err := tracker.Identify(columnsFrame(1280, 720, 300, 350, 860, 900))
	require.NoError(t, err)
	assert.Equal(t, 1440, res.LeftPixels)
	assert.Equal(t, 720, res.LeftRejected)
	assert.Equal(t, 1440, res.RightPixels)
	assert.Equal(t, 720, res.RightRejected)
	assertFitNear(t, LaneFit{C: 300}, res.Left)
	assertFitNear(t, LaneFit{C: 900}, res.Right)

	left, right := tracker.Histories()
	for _, p := range left {
		assert.Equal(t, 300, p.X)
	}
	for _, p := range right {
		assert.Equal(t, 900, p.X)
	}
}

func TestTracker_FirstFitIsNotFiltered(t *testing.T) {
	cfg := testConfig()
	cfg.Filter = 1
	cfg.SmoothFactor = 5000
	tracker := newTestTracker(t, cfg)

	// Two parallel columns per lane: with no previous fit nothing is
	// rejected even though the columns are further apart than the filter.
	res, err := tracker.Identify(columnsFrame(1280, 720, 295, 305, 895, 905))
	require.NoError(t, err)
	assert.Equal(t, 0, res.LeftRejected)
	assert.Equal(t, 0, res.RightRejected)
	assert.Equal(t, 1440, res.LeftHistory)
	assertFitNear(t, LaneFit{C: 300}, res.Left)
}

func TestTracker_EmptyFrameWithoutFit(t *testing.T) {
	tracker := newTestTracker(t, testConfig())

	_, err := tracker.Identify(NewFrame(1280, 720))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoLaneDetected))

	left, right := tracker.Fits()
	assert.Nil(t, left)
	assert.Nil(t, right)
	l, r := tracker.HistoryLen()
	assert.Zero(t, l)
	assert.Zero(t, r)
	assert.Equal(t, StrategyBlind, tracker.NextStrategy())
}

func TestTracker_OneLaneMissingWithoutFit(t *testing.T) {
	tracker := newTestTracker(t, testConfig())

	_, err := tracker.Identify(columnsFrame(1280, 720, 300))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoLaneDetected))
	left, _ := tracker.Fits()
	assert.Nil(t, left, "no partial fit is committed")
}

func TestTracker_EmptyFrameWithFitUsesHistory(t *testing.T) {
	tracker := newTestTracker(t, testConfig())
	_, err := tracker.Identify(columnsFrame(1280, 720, 300, 900))
	require.NoError(t, err)

	res, err := tracker.Identify(NewFrame(1280, 720))
	require.NoError(t, err)
	assert.Equal(t, StrategySelective, res.Strategy)
	assert.Zero(t, res.LeftPixels)
	assert.Zero(t, res.RightPixels)
	assert.False(t, res.LeftReused)
	assert.Equal(t, 15, res.LeftHistory)
	assertFitNear(t, LaneFit{C: 300}, res.Left)
	assertFitNear(t, LaneFit{C: 900}, res.Right)
}

func TestTracker_DegenerateHistoryReusesFit(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	var logged int
	monitoring.SetLogger(func(string, ...interface{}) { logged++ })

	tracker := newTestTracker(t, testConfig())
	_, err := tracker.Identify(columnsFrame(1280, 720, 300, 900))
	require.NoError(t, err)

	// A single row of pixels per lane replaces the whole 15-pixel history.
	flat := NewFrame(1280, 720)
	fillRect(flat, 250, 700, 350, 701)
	fillRect(flat, 850, 700, 950, 701)

	res, err := tracker.Identify(flat)
	require.NoError(t, err)
	assert.True(t, res.LeftReused)
	assert.True(t, res.RightReused)
	assertFitNear(t, LaneFit{C: 300}, res.Left)
	assertFitNear(t, LaneFit{C: 900}, res.Right)
	assert.Equal(t, 15, res.LeftHistory)
	assert.Positive(t, logged)

	left, _ := tracker.Histories()
	for _, p := range left {
		assert.Equal(t, 700, p.Y)
	}
}

func TestTracker_DegenerateWithoutFitFailsFrame(t *testing.T) {
	tracker := newTestTracker(t, testConfig())

	frame := columnsFrame(1280, 720, 900)
	fillRect(frame, 250, 700, 350, 702)

	_, err := tracker.Identify(frame)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateFit))

	left, right := tracker.Fits()
	assert.Nil(t, left)
	assert.Nil(t, right)
	l, r := tracker.HistoryLen()
	assert.Zero(t, l)
	assert.Zero(t, r)
}

func TestTracker_FrameSizeChanged(t *testing.T) {
	tracker := newTestTracker(t, testConfig())
	_, err := tracker.Identify(columnsFrame(1280, 720, 300, 900))
	require.NoError(t, err)

	_, err = tracker.Identify(columnsFrame(640, 360, 150, 450))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFrameSizeChanged))

	_, err = tracker.Identify(&Frame{Width: 1, Height: 1, Pix: []uint8{1}})
	assert.True(t, errors.Is(err, ErrInvalidFrame))
}

func TestTracker_Reset(t *testing.T) {
	tracker := newTestTracker(t, testConfig())
	_, err := tracker.Identify(columnsFrame(1280, 720, 300, 900))
	require.NoError(t, err)

	tracker.Reset()
	left, right := tracker.Fits()
	assert.Nil(t, left)
	assert.Nil(t, right)
	assert.Equal(t, 0, tracker.Frames())
	assert.Equal(t, StrategyBlind, tracker.NextStrategy())

	// A different frame size is accepted after a reset.
	res, err := tracker.Identify(columnsFrame(640, 360, 150, 450))
	require.NoError(t, err)
	assert.Equal(t, StrategyBlind, res.Strategy)
	assertFitNear(t, LaneFit{C: 150}, res.Left)
}

func TestTracker_FollowsCurvedLanes(t *testing.T) {
	cfg := testConfig()
	cfg.SmoothFactor = 10000
	tracker := newTestTracker(t, cfg)

	leftTrue := LaneFit{A: 2e-4, B: -0.1, C: 330}
	rightTrue := LaneFit{A: 2e-4, B: -0.1, C: 960}
	res, err := tracker.Identify(curveFrame(1280, 720, leftTrue, rightTrue))
	require.NoError(t, err)

	for _, y := range []float64{0, 360, 719} {
		assert.InDelta(t, leftTrue.X(y), res.Left.X(y), 1.0, "left x(%v)", y)
		assert.InDelta(t, rightTrue.X(y), res.Right.X(y), 1.0, "right x(%v)", y)
	}
}
