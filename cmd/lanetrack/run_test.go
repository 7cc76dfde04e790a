package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/fsutil"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane/storage/sqlite"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/monitoring"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/timeutil"
)

func quietLogs(t *testing.T) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })
}

// writeFrame stores a 320x180 PNG with full-height lines at the given columns.
func writeFrame(t *testing.T, fs fsutil.FileSystem, name string, columns ...int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 320, 180))
	for _, x := range columns {
		for y := 0; y < 180; y++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, fs.WriteFile(name, buf.Bytes(), 0644))
}

func TestRun_TracksAndRecords(t *testing.T) {
	quietLogs(t)
	fs := fsutil.NewMemoryFileSystem()
	for i := 0; i < 4; i++ {
		writeFrame(t, fs, fmt.Sprintf("frames/%04d.png", i), 80, 240)
	}
	dbPath := filepath.Join(t.TempDir(), "lanes.db")

	summary, err := run(context.Background(), Options{
		FramesDir: "frames",
		DBPath:    dbPath,
		PlotsDir:  "plots",
		PlotEvery: 2,
		ChartPath: "plots/chart.html",
		Notes:     "synthetic",
	}, fs, timeutil.NewMockClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Frames)
	assert.Equal(t, 4, summary.OK)
	assert.Zero(t, summary.Failed)
	assert.False(t, summary.Aborted)
	require.NotEmpty(t, summary.SessionID)

	for _, name := range []string{
		"plots/coeff_a.png", "plots/coeff_c.png", "plots/pixels.png",
		"plots/frame_00000.png", "plots/frame_00002.png", "plots/chart.html",
	} {
		assert.True(t, fs.Exists(name), name)
	}
	assert.False(t, fs.Exists("plots/frame_00001.png"))

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	session, err := sqlite.NewSessionStore(db).Get(summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", session.Notes)
	assert.Equal(t, 9, session.NWindows)

	records, err := sqlite.NewFrameStore(db).ListBySession(summary.SessionID)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "blind", records[0].Strategy)
	assert.Equal(t, "selective", records[1].Strategy)
	require.NotNil(t, records[3].Left)
	assert.InDelta(t, 80, records[3].Left.C, 1e-6)
	assert.InDelta(t, 240, records[3].Right.C, 1e-6)
	assert.Equal(t, "frames/0003.png", records[3].SourcePath)
}

func TestRun_AbortsAfterConsecutiveFailures(t *testing.T) {
	quietLogs(t)
	fs := fsutil.NewMemoryFileSystem()
	for i := 0; i < 5; i++ {
		writeFrame(t, fs, fmt.Sprintf("frames/%04d.png", i))
	}

	summary, err := run(context.Background(), Options{
		FramesDir:              "frames",
		MaxConsecutiveFailures: 3,
	}, fs, timeutil.RealClock{})
	require.ErrorIs(t, err, ErrTooManyFailures)

	assert.Equal(t, 3, summary.Frames)
	assert.Equal(t, 3, summary.Failed)
	assert.True(t, summary.Aborted)
}

func TestRun_ZeroFailureLimitNeverAborts(t *testing.T) {
	quietLogs(t)
	fs := fsutil.NewMemoryFileSystem()
	for i := 0; i < 4; i++ {
		writeFrame(t, fs, fmt.Sprintf("frames/%04d.png", i))
	}
	cfgPath := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"max_consecutive_failures": 0}`), 0644))

	summary, err := run(context.Background(), Options{
		FramesDir:  "frames",
		ConfigPath: cfgPath,
	}, fs, timeutil.RealClock{})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Frames)
	assert.Equal(t, 4, summary.Failed)
	assert.False(t, summary.Aborted)
}

func TestRun_FailuresResetOnSuccess(t *testing.T) {
	quietLogs(t)
	fs := fsutil.NewMemoryFileSystem()
	writeFrame(t, fs, "frames/0000.png")
	writeFrame(t, fs, "frames/0001.png", 80, 240)
	writeFrame(t, fs, "frames/0002.png")
	writeFrame(t, fs, "frames/0003.png", 80, 240)

	summary, err := run(context.Background(), Options{
		FramesDir:              "frames",
		MaxConsecutiveFailures: 2,
	}, fs, timeutil.RealClock{})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Frames)
	assert.Equal(t, 3, summary.OK)
	assert.Equal(t, 1, summary.Failed)
}

func TestRun_UndecodableFrameRecordedWithoutStrategy(t *testing.T) {
	quietLogs(t)
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("frames/0000.png", []byte("not a png"), 0644))
	writeFrame(t, fs, "frames/0001.png")
	dbPath := filepath.Join(t.TempDir(), "lanes.db")

	summary, err := run(context.Background(), Options{FramesDir: "frames", DBPath: dbPath}, fs, timeutil.RealClock{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	records, err := sqlite.NewFrameStore(db).ListBySession(summary.SessionID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, sqlite.StrategyNone, records[0].Strategy)
	assert.Equal(t, sqlite.StatusError, records[0].Status)
	assert.Equal(t, "blind", records[1].Strategy)
	assert.Equal(t, sqlite.StatusNoLane, records[1].Status)
}

func TestRun_NoFrames(t *testing.T) {
	quietLogs(t)
	_, err := run(context.Background(), Options{FramesDir: "missing"}, fsutil.NewMemoryFileSystem(), timeutil.RealClock{})
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	quietLogs(t)
	fs := fsutil.NewMemoryFileSystem()
	writeFrame(t, fs, "frames/0000.png", 80, 240)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := run(ctx, Options{FramesDir: "frames"}, fs, timeutil.RealClock{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Frames)
}

func TestSummaryString(t *testing.T) {
	s := Summary{SessionID: "abc", Frames: 3, OK: 2, Failed: 1, Aborted: true}
	assert.Equal(t, "frames=3 ok=2 failed=1 reused=0 session=abc (aborted)", s.String())
}
