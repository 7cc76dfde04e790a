// Command lanetrack runs the lane boundary tracker over a directory of
// bird's-eye binary frames, logging each outcome and optionally recording
// the session to sqlite and rendering diagnostic plots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/fsutil"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/monitoring"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/timeutil"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/version"
)

func main() {
	opts, showVersion := parseFlags()

	if showVersion {
		fmt.Println(version.String("lanetrack"))
		return
	}
	if opts.FramesDir == "" {
		log.Fatal("-frames is required")
	}
	monitoring.SetDebug(opts.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := run(ctx, opts, fsutil.OSFileSystem{}, timeutil.RealClock{})
	fmt.Println(summary)
	if err != nil {
		log.Fatalf("lanetrack: %v", err)
	}
}

func parseFlags() (Options, bool) {
	var opts Options
	var threshold uint
	var showVersion bool

	flag.StringVar(&opts.FramesDir, "frames", "", "Directory of binary bird's-eye frames (png, jpg, gif, bmp)")
	flag.StringVar(&opts.ConfigPath, "config", "", "Tuning config JSON (default: built-in defaults)")
	flag.StringVar(&opts.DBPath, "db", "", "Record the session to this sqlite database")
	flag.StringVar(&opts.PlotsDir, "plots", "", "Write coefficient plots to this directory")
	flag.IntVar(&opts.PlotEvery, "plot-every", 0, "Also plot every Nth frame into -plots (0 disables)")
	flag.StringVar(&opts.ChartPath, "chart", "", "Write an HTML coefficient chart to this file")
	flag.StringVar(&opts.Notes, "notes", "", "Free-form notes stored with the session")
	flag.UintVar(&threshold, "threshold", 0, "Luminance above which a pixel counts as a lane candidate (jpeg default 127)")
	flag.IntVar(&opts.MaxConsecutiveFailures, "max-consecutive-failures", 0, "Abort after this many failed frames in a row (0 uses the config value, where 0 never aborts)")
	flag.BoolVar(&opts.Debug, "debug", false, "Enable per-frame debug logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if threshold > 255 {
		log.Fatalf("-threshold must be at most 255, got %d", threshold)
	}
	opts.Threshold = uint8(threshold)
	return opts, showVersion
}
