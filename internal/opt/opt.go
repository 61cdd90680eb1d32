package opt

import (
	"context"
	"time"

	"fjShop/internal/shop"
)

type Optimizer interface {
	Solve(ctx context.Context, inst *shop.Instance) (Result, error)
}

type Result struct {
	// Schedule is the best schedule found; Makespan is its objective value.
	Schedule *shop.Schedule
	Makespan float64
	// History holds the best makespan before the first iteration and after
	// every iteration.
	History     []float64
	Unscheduled []shop.OpKey
	Evaluations int
	Iterations  int
	Duration    time.Duration
	Meta        map[string]any
}
