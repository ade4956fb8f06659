// Package scoring keeps the range scoreboard: how many targets were placed,
// how many were destroyed, the points earned, and the endgame summary.
package scoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// numberFormat groups thousands with commas and keeps two decimals.
const numberFormat = "#,###.##"

// Board counts targets and points for one run.
// All methods are safe for concurrent use.
type Board struct {
	mu            sync.Mutex
	total         int
	destroyed     int
	score         int
	missedPenalty float64
	logger        *zap.Logger
}

// NewBoard creates an empty Board charging missedPenalty seconds per target
// left standing.
//
// Precondition: missedPenalty >= 0.
func NewBoard(missedPenalty float64, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{missedPenalty: missedPenalty, logger: logger}
}

// TargetSpawned counts one more target on the range.
func (b *Board) TargetSpawned() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total++
}

// ReportTargetDestroyed records a destroyed target worth points.
func (b *Board) ReportTargetDestroyed(points int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed++
	b.score += points
	b.logger.Debug("score updated",
		zap.Int("destroyed", b.destroyed),
		zap.Int("total", b.total),
		zap.Int("score", b.score),
	)
}

// AllDestroyed reports whether at least one target was placed and every one
// of them has been destroyed.
func (b *Board) AllDestroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total > 0 && b.destroyed >= b.total
}

// Result computes the endgame summary for a run that took elapsed.
func (b *Board) Result(elapsed time.Duration) Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	missed := max(b.total-b.destroyed, 0)
	return Result{
		Destroyed:      b.destroyed,
		Total:          b.total,
		Missed:         missed,
		PenaltyPerMiss: b.missedPenalty,
		Penalty:        b.missedPenalty * float64(missed),
		Score:          b.score,
		Elapsed:        elapsed,
	}
}

// Result is the endgame summary of a run.
type Result struct {
	Destroyed int
	Total     int
	Missed    int
	// PenaltyPerMiss and Penalty are in seconds.
	PenaltyPerMiss float64
	Penalty        float64
	Score          int
	Elapsed        time.Duration
}

// FinalTime is the elapsed time plus the missed-target penalty.
func (r Result) FinalTime() time.Duration {
	return r.Elapsed + time.Duration(r.Penalty*float64(time.Second))
}

// TargetsLine renders "destroyed/total".
func (r Result) TargetsLine() string {
	return fmt.Sprintf("%d/%d", r.Destroyed, r.Total)
}

// PenaltyLine renders "missed*penalty s = total s", e.g. "2*1.50s = 3.00s".
func (r Result) PenaltyLine() string {
	return fmt.Sprintf("%d*%ss = %ss", r.Missed, humanize.FormatFloat(numberFormat, r.PenaltyPerMiss), humanize.FormatFloat(numberFormat, r.Penalty))
}

// ScoreLine renders the score with thousands separators and two decimals.
func (r Result) ScoreLine() string {
	return humanize.FormatFloat(numberFormat, float64(r.Score))
}

// String renders the full endgame summary on one line.
func (r Result) String() string {
	return fmt.Sprintf("targets %s | penalty %s | score %s | time %s",
		r.TargetsLine(), r.PenaltyLine(), r.ScoreLine(), r.FinalTime().Round(time.Millisecond))
}
