package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/firingrange/internal/game/scoring"
)

// ErrRunNotFound is returned when a run lookup yields no results.
var ErrRunNotFound = errors.New("run not found")

// ErrRunExists is returned when saving a run whose ID is already stored.
var ErrRunExists = errors.New("run already exists")

// RunRecord is one finished run as stored in the runs table.
type RunRecord struct {
	ID        uuid.UUID
	StartedAt time.Time
	Destroyed int
	Total     int
	Missed    int
	// Penalty is in seconds.
	Penalty float64
	Score   int
	Elapsed time.Duration
	Shots   int
	Hits    int
	Reloads int
	Seed    uint64
}

// FinalTime is the elapsed time plus the missed-target penalty.
func (r RunRecord) FinalTime() time.Duration {
	return r.Elapsed + time.Duration(r.Penalty*float64(time.Second))
}

// NewRunRecord builds a record for a run that finished with res.
//
// Postcondition: the record carries a fresh random ID.
func NewRunRecord(startedAt time.Time, res scoring.Result, shots, hits, reloads int, seed uint64) RunRecord {
	return RunRecord{
		ID:        uuid.New(),
		StartedAt: startedAt.UTC(),
		Destroyed: res.Destroyed,
		Total:     res.Total,
		Missed:    res.Missed,
		Penalty:   res.Penalty,
		Score:     res.Score,
		Elapsed:   res.Elapsed,
		Shots:     shots,
		Hits:      hits,
		Reloads:   reloads,
		Seed:      seed,
	}
}

// RunRepository persists finished runs.
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a RunRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, started_at, destroyed, total, missed, penalty_seconds,
	score, elapsed_ms, shots, hits, reloads, seed`

// Save inserts rec.
//
// Precondition: rec.ID must not be uuid.Nil.
// Postcondition: the run is stored, or ErrRunExists is returned for a
// duplicate ID.
func (r *RunRepository) Save(ctx context.Context, rec RunRecord) error {
	if rec.ID == uuid.Nil {
		return fmt.Errorf("saving run: id must be set")
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.StartedAt, rec.Destroyed, rec.Total, rec.Missed, rec.Penalty,
		rec.Score, rec.Elapsed.Milliseconds(), rec.Shots, rec.Hits, rec.Reloads, int64(rec.Seed),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrRunExists
		}
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Get loads the run with the given ID, or returns ErrRunNotFound.
func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (RunRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RunRecord{}, ErrRunNotFound
		}
		return RunRecord{}, fmt.Errorf("querying run: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit runs, newest first.
//
// Precondition: limit > 0.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("listing runs: limit must be > 0, got %d", limit)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return out, nil
}

// Best returns up to limit runs ordered by score, highest first, ties broken
// by the shorter final time.
func (r *RunRepository) Best(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("listing best runs: limit must be > 0, got %d", limit)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+runColumns+` FROM runs
		 ORDER BY score DESC, elapsed_ms + penalty_seconds * 1000 ASC, id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing best runs: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunRecord, error) {
		return scanRun(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning best runs: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (RunRecord, error) {
	var (
		rec       RunRecord
		elapsedMs int64
		seed      int64
	)
	err := row.Scan(&rec.ID, &rec.StartedAt, &rec.Destroyed, &rec.Total, &rec.Missed, &rec.Penalty,
		&rec.Score, &elapsedMs, &rec.Shots, &rec.Hits, &rec.Reloads, &seed)
	if err != nil {
		return RunRecord{}, err
	}
	rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	rec.Seed = uint64(seed)
	return rec, nil
}
