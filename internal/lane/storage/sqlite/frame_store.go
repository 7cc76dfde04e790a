package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/timeutil"
)

// Frame outcome labels stored in lane_frames.status.
const (
	StatusOK         = "ok"
	StatusNoLane     = "no_lane"
	StatusDegenerate = "degenerate"
	StatusError      = "error"
)

// FrameRecord is the persisted outcome of one Identify call.
// Fits are nil when the frame failed.
type FrameRecord struct {
	SessionID     string        `json:"session_id"`
	FrameIndex    int           `json:"frame_index"`
	SourcePath    string        `json:"source_path,omitempty"`
	Status        string        `json:"status"`
	Strategy      string        `json:"strategy"`
	Left          *lane.LaneFit `json:"left,omitempty"`
	Right         *lane.LaneFit `json:"right,omitempty"`
	LeftPixels    int           `json:"left_pixels"`
	RightPixels   int           `json:"right_pixels"`
	LeftRejected  int           `json:"left_rejected"`
	RightRejected int           `json:"right_rejected"`
	LeftReused    bool          `json:"left_reused"`
	RightReused   bool          `json:"right_reused"`
	Error         string        `json:"error,omitempty"`
	ProcessingNs  int64         `json:"processing_ns"`
	ProcessedAt   int64         `json:"processed_at"`
}

// StatusForError maps an Identify error to a stored status label.
func StatusForError(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, lane.ErrNoLaneDetected):
		return StatusNoLane
	case errors.Is(err, lane.ErrDegenerateFit):
		return StatusDegenerate
	default:
		return StatusError
	}
}

// StrategyNone is stored for frames that never reached a search.
const StrategyNone = "none"

// RecordFromResult builds the record for frame idx of a session from the
// values Identify returned. Pixel counts are kept on failed frames.
func RecordFromResult(sessionID string, idx int, path string, res lane.Result, elapsed time.Duration, err error) *FrameRecord {
	rec := &FrameRecord{
		SessionID:     sessionID,
		FrameIndex:    idx,
		SourcePath:    path,
		Status:        StatusForError(err),
		Strategy:      res.Strategy.String(),
		LeftPixels:    res.LeftPixels,
		RightPixels:   res.RightPixels,
		LeftRejected:  res.LeftRejected,
		RightRejected: res.RightRejected,
		ProcessingNs:  elapsed.Nanoseconds(),
	}
	if err != nil {
		// Frame validation fails before a strategy is chosen.
		if errors.Is(err, lane.ErrInvalidFrame) || errors.Is(err, lane.ErrFrameSizeChanged) {
			rec.Strategy = StrategyNone
		}
		rec.Error = err.Error()
		return rec
	}
	left, right := res.Left, res.Right
	rec.Left = &left
	rec.Right = &right
	rec.LeftReused = res.LeftReused
	rec.RightReused = res.RightReused
	return rec
}

// RecordFromSourceError builds the record for a frame that could not be
// read or decoded.
func RecordFromSourceError(sessionID string, idx int, path string, err error) *FrameRecord {
	return &FrameRecord{
		SessionID:  sessionID,
		FrameIndex: idx,
		SourcePath: path,
		Status:     StatusForError(err),
		Strategy:   StrategyNone,
		Error:      err.Error(),
	}
}

// FrameSummary aggregates the frame outcomes of one session.
type FrameSummary struct {
	Frames     int
	OK         int
	NoLane     int
	Degenerate int
	Errors     int
	Blind      int
	Selective  int
	Reused     int
	MeanNs     float64
}

// FrameStore provides persistence for per-frame outcomes.
type FrameStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewFrameStore creates a FrameStore using the wall clock.
func NewFrameStore(db *DB) *FrameStore {
	return NewFrameStoreWithClock(db, timeutil.RealClock{})
}

// NewFrameStoreWithClock creates a FrameStore that stamps rows with clock.
func NewFrameStoreWithClock(db *DB, clock timeutil.Clock) *FrameStore {
	return &FrameStore{db: db.DB, clock: clock}
}

// Insert persists a frame record. The (session, frame index) pair must be new.
func (s *FrameStore) Insert(rec *FrameRecord) error {
	if rec.ProcessedAt == 0 {
		rec.ProcessedAt = s.clock.Now().UnixNano()
	}

	var la, lb, lc, ra, rb, rc interface{}
	if rec.Left != nil {
		la, lb, lc = rec.Left.A, rec.Left.B, rec.Left.C
	}
	if rec.Right != nil {
		ra, rb, rc = rec.Right.A, rec.Right.B, rec.Right.C
	}

	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO lane_frames (
				session_id, frame_index, source_path, status, strategy,
				left_a, left_b, left_c, right_a, right_b, right_c,
				left_pixels, right_pixels, left_rejected, right_rejected,
				left_reused, right_reused, error_message, processing_ns, processed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.SessionID, rec.FrameIndex, nullString(rec.SourcePath), rec.Status, rec.Strategy,
			la, lb, lc, ra, rb, rc,
			rec.LeftPixels, rec.RightPixels, rec.LeftRejected, rec.RightRejected,
			boolToInt(rec.LeftReused), boolToInt(rec.RightReused),
			nullString(rec.Error), rec.ProcessingNs, rec.ProcessedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting frame %d of session %s: %w", rec.FrameIndex, rec.SessionID, err)
	}
	return nil
}

// ListBySession returns the frames of a session in frame order.
func (s *FrameStore) ListBySession(sessionID string) ([]*FrameRecord, error) {
	rows, err := s.db.Query(`
		SELECT session_id, frame_index, source_path, status, strategy,
		       left_a, left_b, left_c, right_a, right_b, right_c,
		       left_pixels, right_pixels, left_rejected, right_rejected,
		       left_reused, right_reused, error_message, processing_ns, processed_at
		FROM lane_frames
		WHERE session_id = ?
		ORDER BY frame_index ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var records []*FrameRecord
	for rows.Next() {
		rec, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summary aggregates the outcomes recorded for a session.
func (s *FrameStore) Summary(sessionID string) (FrameSummary, error) {
	var sum FrameSummary
	var meanNs sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(status = 'ok'), 0),
		       COALESCE(SUM(status = 'no_lane'), 0),
		       COALESCE(SUM(status = 'degenerate'), 0),
		       COALESCE(SUM(status = 'error'), 0),
		       COALESCE(SUM(strategy = 'blind'), 0),
		       COALESCE(SUM(strategy = 'selective'), 0),
		       COALESCE(SUM(left_reused OR right_reused), 0),
		       AVG(processing_ns)
		FROM lane_frames
		WHERE session_id = ?`, sessionID).Scan(
		&sum.Frames, &sum.OK, &sum.NoLane, &sum.Degenerate, &sum.Errors,
		&sum.Blind, &sum.Selective, &sum.Reused, &meanNs,
	)
	if err != nil {
		return FrameSummary{}, fmt.Errorf("summarise session %s: %w", sessionID, err)
	}
	if meanNs.Valid {
		sum.MeanNs = meanNs.Float64
	}
	return sum, nil
}

func scanFrame(row rowScanner) (*FrameRecord, error) {
	var rec FrameRecord
	var sourcePath, errMsg sql.NullString
	var la, lb, lc, ra, rb, rc sql.NullFloat64
	var leftReused, rightReused int
	if err := row.Scan(
		&rec.SessionID, &rec.FrameIndex, &sourcePath, &rec.Status, &rec.Strategy,
		&la, &lb, &lc, &ra, &rb, &rc,
		&rec.LeftPixels, &rec.RightPixels, &rec.LeftRejected, &rec.RightRejected,
		&leftReused, &rightReused, &errMsg, &rec.ProcessingNs, &rec.ProcessedAt,
	); err != nil {
		return nil, err
	}
	rec.SourcePath = sourcePath.String
	rec.Error = errMsg.String
	rec.LeftReused = leftReused != 0
	rec.RightReused = rightReused != 0
	if la.Valid && lb.Valid && lc.Valid {
		rec.Left = &lane.LaneFit{A: la.Float64, B: lb.Float64, C: lc.Float64}
	}
	if ra.Valid && rb.Valid && rc.Valid {
		rec.Right = &lane.LaneFit{A: ra.Float64, B: rb.Float64, C: rc.Float64}
	}
	return &rec, nil
}
