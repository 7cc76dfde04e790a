// Package lane owns per-frame lane boundary localization and fitting.
//
// Responsibilities: deriving the nonzero pixel set of a bird's-eye binary
// frame, choosing between the histogram-seeded sliding-window search and
// the band search around previous fits, rejecting pixels that stray from
// the established trend, and refitting x = a·y² + b·y + c over a bounded
// per-lane pixel history.
// Key types: Frame, PixelSet, LaneFit, PixelHistory, Tracker.
//
// Dependency rule: no SQL, plotting or file I/O in this package. Frame
// sources live in lane/frames, persistence in lane/storage/sqlite and
// diagnostics output in lane/monitor.
package lane
