package bench

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fjShop/internal/opt"
	"fjShop/internal/shop"
)

type Algorithm struct {
	Name    string
	Factory func(seed int64) opt.Optimizer
}

type Case struct {
	Jobs         int
	Machines     int
	Ops          int
	Capacity     int
	InstanceSeed int64
}

type Record struct {
	Algo     string
	Jobs     int
	Machines int
	Ops      int
	Runs     int

	TimeBestMs float64
	TimeMeanMs float64
	TimeStdMs  float64

	MakespanBest float64
	MakespanMean float64
	MakespanStd  float64

	// Unscheduled — суммарное число неразмещённых операций по всем запускам.
	Unscheduled int
}

type Runner struct {
	Runs          int
	BaseSeed      int64
	PerRunTimeout time.Duration // 0 = no timeout
}

func (r Runner) RunCase(ctx context.Context, c Case, algo Algorithm) (Record, error) {
	instRng := randForSeed(c.InstanceSeed)
	inst := shop.RandomInstance(c.Jobs, c.Machines, c.Ops, c.Capacity, 1, 99, instRng)

	makespans := make([]float64, 0, r.Runs)
	timesMs := make([]float64, 0, r.Runs)
	unscheduled := 0

	for i := 0; i < r.Runs; i++ {
		runSeed := r.BaseSeed + int64(i)

		op := algo.Factory(runSeed)

		runCtx := ctx
		cancel := func() {}
		if r.PerRunTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, r.PerRunTimeout)
		}
		start := time.Now()
		res, err := op.Solve(runCtx, inst)
		dur := time.Since(start)
		cancel()

		if err != nil && runCtx.Err() != nil {
			return Record{}, fmt.Errorf("run %d: cancelled/timeout: %w", i, err)
		}
		if err != nil {
			return Record{}, fmt.Errorf("run %d: solve error: %w", i, err)
		}
		if res.Schedule == nil {
			return Record{}, fmt.Errorf("run %d: no schedule returned", i)
		}
		if err := res.Schedule.Check(); err != nil {
			return Record{}, fmt.Errorf("run %d: infeasible schedule: %w", i, err)
		}

		makespans = append(makespans, res.Makespan)
		timesMs = append(timesMs, float64(dur.Microseconds())/1000.0)
		unscheduled += len(res.Unscheduled)
	}

	msStats := CalcFloatStats(makespans)
	tStats := CalcFloatStats(timesMs)

	return Record{
		Algo:     algo.Name,
		Jobs:     c.Jobs,
		Machines: c.Machines,
		Ops:      c.Ops,
		Runs:     r.Runs,

		TimeBestMs: tStats.Best,
		TimeMeanMs: tStats.Mean,
		TimeStdMs:  tStats.Std,

		MakespanBest: msStats.Best,
		MakespanMean: msStats.Mean,
		MakespanStd:  msStats.Std,

		Unscheduled: unscheduled,
	}, nil
}

func WriteCSV(path string, records []Record) error {
	if d := dirOf(path); d != "" {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"algo", "jobs", "machines", "ops", "runs",
		"time_best_ms", "time_mean_ms", "time_std_ms",
		"makespan_best", "makespan_mean", "makespan_std",
		"unscheduled",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Algo,
			itoa(r.Jobs),
			itoa(r.Machines),
			itoa(r.Ops),
			itoa(r.Runs),

			ftoa(r.TimeBestMs),
			ftoa(r.TimeMeanMs),
			ftoa(r.TimeStdMs),

			ftoa(r.MakespanBest),
			ftoa(r.MakespanMean),
			ftoa(r.MakespanStd),

			itoa(r.Unscheduled),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func randForSeed(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func dirOf(path string) string {
	if d := filepath.Dir(path); d != "." {
		return d
	}
	return ""
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
