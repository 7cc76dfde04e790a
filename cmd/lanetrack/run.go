package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/config"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/fsutil"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane/frames"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane/monitor"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane/storage/sqlite"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/monitoring"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/timeutil"
)

// ErrTooManyFailures is returned when the failure limit is reached.
var ErrTooManyFailures = errors.New("too many consecutive failed frames")

// Options holds the command line configuration.
type Options struct {
	FramesDir              string
	ConfigPath             string
	DBPath                 string
	PlotsDir               string
	PlotEvery              int
	ChartPath              string
	Notes                  string
	Threshold              uint8
	MaxConsecutiveFailures int
	Debug                  bool
}

// Summary counts the outcomes of a run.
type Summary struct {
	SessionID string
	Frames    int
	OK        int
	Failed    int
	Reused    int
	Aborted   bool
}

func (s Summary) String() string {
	out := fmt.Sprintf("frames=%d ok=%d failed=%d reused=%d", s.Frames, s.OK, s.Failed, s.Reused)
	if s.SessionID != "" {
		out += " session=" + s.SessionID
	}
	if s.Aborted {
		out += " (aborted)"
	}
	return out
}

// run tracks every frame of opts.FramesDir through a single tracker.
// Frames and plots go through fs; the database is always on disk.
func run(ctx context.Context, opts Options, fs fsutil.FileSystem, clock timeutil.Clock) (Summary, error) {
	var summary Summary

	tuning := config.DefaultTuningConfig()
	if opts.ConfigPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(opts.ConfigPath); err != nil {
			return summary, err
		}
	}
	cfg := lane.SearchConfigFromTuning(tuning)
	maxFailures := opts.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = tuning.GetMaxConsecutiveFailures()
	}

	tracker, err := lane.NewTracker(cfg)
	if err != nil {
		return summary, err
	}

	src, err := frames.NewDirSource(fs, opts.FramesDir, opts.Threshold)
	if err != nil {
		return summary, err
	}
	monitoring.Logf("lanetrack: %d frames in %s (nwindows=%d margin=%d minpix=%d filter=%g smooth=%d)",
		src.Len(), opts.FramesDir, cfg.NWindows, cfg.Margin, cfg.MinPix, cfg.Filter, cfg.SmoothFactor)

	var frameStore *sqlite.FrameStore
	if opts.DBPath != "" {
		db, err := sqlite.Open(opts.DBPath)
		if err != nil {
			return summary, err
		}
		defer db.Close()

		session := sqlite.NewSession(opts.FramesDir, cfg)
		session.Notes = opts.Notes
		if err := sqlite.NewSessionStoreWithClock(db, clock).Create(session); err != nil {
			return summary, err
		}
		summary.SessionID = session.SessionID
		frameStore = sqlite.NewFrameStoreWithClock(db, clock)
	}

	var plotter *monitor.FitPlotter
	if opts.PlotsDir != "" || opts.ChartPath != "" {
		plotter = monitor.NewFitPlotter(fs)
		dir := opts.PlotsDir
		if dir == "" {
			dir = filepath.Dir(opts.ChartPath)
		}
		if err := plotter.Start(dir); err != nil {
			return summary, err
		}
	}

	consecutive := 0
	var runErr error
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		frame, path, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		summary.Frames++

		var res lane.Result
		var rec *sqlite.FrameRecord
		if err != nil {
			rec = sqlite.RecordFromSourceError(summary.SessionID, idx, path, err)
		} else {
			start := clock.Now()
			res, err = tracker.Identify(frame)
			rec = sqlite.RecordFromResult(summary.SessionID, idx, path, res, clock.Since(start), err)
		}

		if frameStore != nil {
			if dbErr := frameStore.Insert(rec); dbErr != nil {
				runErr = dbErr
				break
			}
		}

		if err != nil {
			summary.Failed++
			consecutive++
			monitoring.Logf("lanetrack: frame %d (%s): %v", idx, path, err)
			if maxFailures > 0 && consecutive >= maxFailures {
				summary.Aborted = true
				runErr = fmt.Errorf("%w: %d in a row", ErrTooManyFailures, consecutive)
				break
			}
			continue
		}

		consecutive = 0
		summary.OK++
		if res.LeftReused || res.RightReused {
			summary.Reused++
		}
		if plotter != nil {
			plotter.Record(idx, res)
			if opts.PlotsDir != "" && opts.PlotEvery > 0 && idx%opts.PlotEvery == 0 {
				name := filepath.Join(opts.PlotsDir, fmt.Sprintf("frame_%05d.png", idx))
				if err := plotter.PlotFrame(frame, res, cfg.Margin, name); err != nil {
					monitoring.Logf("lanetrack: plot frame %d: %v", idx, err)
				}
			}
		}
	}

	if plotter != nil {
		plotter.Stop()
		if err := writeDiagnostics(plotter, fs, opts); err != nil && runErr == nil {
			runErr = err
		}
	}
	return summary, runErr
}

func writeDiagnostics(plotter *monitor.FitPlotter, fs fsutil.FileSystem, opts Options) error {
	if opts.PlotsDir != "" {
		n, err := plotter.GeneratePlots()
		if err != nil {
			return fmt.Errorf("generate plots: %w", err)
		}
		monitoring.Logf("lanetrack: wrote %d plots to %s", n, opts.PlotsDir)
	}

	if opts.ChartPath == "" {
		return nil
	}
	samples := plotter.Samples()
	if len(samples) == 0 {
		monitoring.Logf("lanetrack: no successful frames, skipping chart")
		return nil
	}
	f, err := fs.Create(opts.ChartPath)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if err := monitor.RenderCoefficientChart(f, samples, monitor.ChartOptions{Title: opts.FramesDir}); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}
