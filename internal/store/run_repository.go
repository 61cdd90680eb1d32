package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"fjShop/internal/opt"
	"fjShop/internal/shop"
)

var ErrNotFound = errors.New("run not found")

// Run is a finished search run as stored in the runs table.
type Run struct {
	ID          string          `db:"id" json:"id"`
	Algorithm   string          `db:"algorithm" json:"algorithm"`
	Seed        int64           `db:"seed" json:"seed"`
	Makespan    float64         `db:"makespan" json:"makespan"`
	Iterations  int             `db:"iterations" json:"iterations"`
	Evaluations int             `db:"evaluations" json:"evaluations"`
	DurationMs  float64         `db:"duration_ms" json:"duration_ms"`
	Unscheduled int             `db:"unscheduled" json:"unscheduled"`
	History     pq.Float64Array `db:"history" json:"history"`
	Schedule    types.JSONText  `db:"schedule" json:"schedule"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// NewRun converts a solver result. The schedule is kept as report rows.
func NewRun(algorithm string, seed int64, res opt.Result) (*Run, error) {
	var rows []shop.Row
	if res.Schedule != nil {
		rows = res.Schedule.Report()
	}
	if rows == nil {
		rows = []shop.Row{}
	}
	sched, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encoding schedule: %w", err)
	}
	return &Run{
		Algorithm:   algorithm,
		Seed:        seed,
		Makespan:    res.Makespan,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		DurationMs:  float64(res.Duration.Microseconds()) / 1000.0,
		Unscheduled: len(res.Unscheduled),
		History:     pq.Float64Array(append([]float64(nil), res.History...)),
		Schedule:    types.JSONText(sched),
	}, nil
}

// Rows decodes the stored schedule report.
func (r *Run) Rows() ([]shop.Row, error) {
	var rows []shop.Row
	if err := r.Schedule.Unmarshal(&rows); err != nil {
		return nil, fmt.Errorf("decoding schedule: %w", err)
	}
	return rows, nil
}

// RunRepository handles database operations for runs
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts the run, assigning an ID and creation time when missing.
func (r *RunRepository) Create(ctx context.Context, run *Run) error {
	id := uuid.New()
	if run.ID != "" {
		var err error
		id, err = uuid.Parse(run.ID)
		if err != nil {
			return err
		}
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.ID = id.String()

	query := `
		INSERT INTO runs (
			id, algorithm, seed, makespan, iterations, evaluations,
			duration_ms, unscheduled, history, schedule, created_at
		) VALUES (
			:id, :algorithm, :seed, :makespan, :iterations, :evaluations,
			:duration_ms, :unscheduled, :history, :schedule, :created_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(ctx context.Context, id string) (*Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var run Run
	err := r.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting run: %w", err)
	}
	return &run, nil
}

// List returns the most recent runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	runs := []Run{}
	if err := r.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY created_at DESC LIMIT $1`, limit); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}
