package sa

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"fjShop/internal/shop"
)

func testInstance() *shop.Instance {
	return shop.RandomInstance(6, 4, 4, 2, 1, 20, rand.New(rand.NewSource(99)))
}

func newSolver(t *testing.T, iters int, seed int64) *Solver {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Iterations = iters
	s, err := New(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSolveHistory(t *testing.T) {
	const iters = 60
	res, err := newSolver(t, iters, 1).Solve(context.Background(), testInstance())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(res.History) != iters+1 {
		t.Fatalf("len(history) = %d, want %d", len(res.History), iters+1)
	}
	for i := 1; i < len(res.History); i++ {
		if res.History[i] > res.History[i-1] {
			t.Fatalf("history increases at %d: %v -> %v", i, res.History[i-1], res.History[i])
		}
	}
	if last := res.History[len(res.History)-1]; last != res.Makespan {
		t.Fatalf("last history %v != makespan %v", last, res.Makespan)
	}
	if got := shop.Makespan(res.Schedule); got != res.Makespan {
		t.Fatalf("schedule makespan %v != result %v", got, res.Makespan)
	}
	if err := res.Schedule.Check(); err != nil {
		t.Fatal(err)
	}
	if res.Evaluations != iters+1 {
		t.Fatalf("evaluations = %d", res.Evaluations)
	}
}

func TestSolveReproducible(t *testing.T) {
	inst := testInstance()
	a, err := newSolver(t, 40, 7).Solve(context.Background(), inst)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newSolver(t, 40, 7).Solve(context.Background(), inst)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.History, b.History) {
		t.Fatalf("histories differ:\n%v\n%v", a.History, b.History)
	}
	if !reflect.DeepEqual(a.Schedule.Report(), b.Schedule.Report()) {
		t.Fatal("best schedules differ for the same seed")
	}
}

func TestSolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newSolver(t, 10, 1).Solve(ctx, testInstance())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(res.History) != 1 || res.Schedule == nil {
		t.Fatalf("expected the initial solution, got %+v", res)
	}
}

func TestSolveTemperatureFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 200
	cfg.CoolingRate = 0.01
	s, err := New(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve(context.Background(), testInstance())
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Meta["final_temp"].(float64); got != cfg.MinTemp {
		t.Fatalf("final_temp = %g, want MinTemp %g", got, cfg.MinTemp)
	}
}

func TestSolveHotRunAcceptsWorse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 200
	cfg.InitialTemp = 1e9
	cfg.CoolingRate = 0.999
	s, err := New(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve(context.Background(), testInstance())
	if err != nil {
		t.Fatal(err)
	}

	improvements := 0
	for i := 1; i < len(res.History); i++ {
		if res.History[i] < res.History[i-1] {
			improvements++
		}
	}
	accepted := res.Meta["accepted"].(int)
	worse := res.Meta["accepted_worse"].(int)
	if accepted <= improvements {
		t.Fatalf("accepted = %d, improvements = %d", accepted, improvements)
	}
	if worse == 0 {
		t.Fatal("no worse neighbour accepted at high temperature")
	}
	if worse > accepted {
		t.Fatalf("accepted_worse %d > accepted %d", worse, accepted)
	}
}

func TestSampleHints(t *testing.T) {
	inst := testInstance()
	pool := flexibleOps(inst)
	if len(pool) == 0 {
		t.Skip("instance has no flexible operations")
	}
	s := newSolver(t, 1, 3)
	for n := 0; n < 50; n++ {
		hints := s.sampleHints(pool)
		if len(hints) > s.Cfg.HintsPerMove {
			t.Fatalf("%d hints, limit %d", len(hints), s.Cfg.HintsPerMove)
		}
		for key, m := range hints {
			found := false
			for _, j := range inst.Jobs {
				for _, op := range j.Operations {
					if j.Name == key.Job && op.ID == key.Op {
						_, found = op.Tools[m]
					}
				}
			}
			if !found {
				t.Fatalf("hint %v -> %q is not eligible", key, m)
			}
		}
	}
	if s.sampleHints(nil) != nil {
		t.Fatal("empty pool must give no hints")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	bad := []func(*Config){
		func(c *Config) { c.Iterations = 0 },
		func(c *Config) { c.InitialTemp = 0 },
		func(c *Config) { c.CoolingRate = 1 },
		func(c *Config) { c.MinTemp = 0 },
		func(c *Config) { c.HintsPerMove = 0 },
	}
	for i, mut := range bad {
		c := DefaultConfig()
		mut(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
	if _, err := New(DefaultConfig(), nil); err == nil {
		t.Error("nil rng must be rejected")
	}
}
