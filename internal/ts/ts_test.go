package ts

import (
	"context"
	"math/rand"
	"reflect"
	"testing"

	"fjShop/internal/shop"
)

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

func TestTabuTenureEvictsOldest(t *testing.T) {
	const tenure = 3
	tl := newTabuList(tenure)
	moves := []move{{0, 0, 1}, {0, 1, 2}, {1, 0, 1}, {1, 1, 2}, {2, 0, 1}}
	for _, m := range moves {
		tl.Add(m)
	}
	for _, m := range moves[:len(moves)-tenure] {
		if tl.IsTabu(m) {
			t.Errorf("%v should have been evicted", m)
		}
	}
	for _, m := range moves[len(moves)-tenure:] {
		if !tl.IsTabu(m) {
			t.Errorf("%v should still be tabu", m)
		}
	}
	if tl.Len() != tenure {
		t.Fatalf("Len = %d, want %d", tl.Len(), tenure)
	}
}

func TestTabuRepeatedMoveCounted(t *testing.T) {
	tl := newTabuList(2)
	m := move{0, 0, 1}
	tl.Add(m)
	tl.Add(m)
	tl.Add(move{1, 0, 1})
	if !tl.IsTabu(m) {
		t.Fatal("one copy of the repeated move is still within tenure")
	}
	tl.Add(move{1, 1, 2})
	if tl.IsTabu(m) {
		t.Fatal("both copies evicted, move must be free")
	}
}

func TestPickMoveAspiration(t *testing.T) {
	tl := newTabuList(5)
	tabuMove := move{0, 0, 1}
	tl.Add(tabuMove)

	neighbors := []neighbor{
		{mv: tabuMove, cost: 8},
		{mv: move{1, 0, 1}, cost: 11},
	}
	if k := pickMove(neighbors, tl, 10); k != 0 {
		t.Fatalf("tabu move beating the best must be selected, got %d", k)
	}
	if k := pickMove(neighbors, tl, 8); k != 1 {
		t.Fatalf("tabu move not beating the best must be skipped, got %d", k)
	}
	if k := pickMove(neighbors[:1], tl, 8); k != -1 {
		t.Fatalf("only a tabu non-improving move: got %d, want -1", k)
	}
	if k := pickMove(nil, tl, 8); k != -1 {
		t.Fatalf("no neighbors: got %d, want -1", k)
	}
}

func TestApplySwapCopies(t *testing.T) {
	a, b, c := shop.OpKey{Job: "J1", Op: 1}, shop.OpKey{Job: "J2", Op: 1}, shop.OpKey{Job: "J3", Op: 1}
	seqs := shop.Sequences{"M1": {a, b, c}, "M2": {c}}
	out := applySwap(seqs, "M1", 1)
	if want := []shop.OpKey{a, c, b}; !reflect.DeepEqual(out["M1"], want) {
		t.Fatalf("swapped = %v, want %v", out["M1"], want)
	}
	if want := []shop.OpKey{a, b, c}; !reflect.DeepEqual(seqs["M1"], want) {
		t.Fatalf("original modified: %v", seqs["M1"])
	}
}

func TestSolveHistory(t *testing.T) {
	const iters = 15
	inst := shop.RandomInstance(5, 3, 3, 2, 1, 15, rand.New(rand.NewSource(4)))
	res, err := newSolver(t, iters, 2).Solve(context.Background(), inst)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(res.History) != iters+1 {
		t.Fatalf("len(history) = %d, want %d", len(res.History), iters+1)
	}
	for i := 1; i < len(res.History); i++ {
		if res.History[i] > res.History[i-1] {
			t.Fatalf("history increases at %d: %v", i, res.History)
		}
	}
	if err := res.Schedule.Check(); err != nil {
		t.Fatal(err)
	}
	if got := shop.Makespan(res.Schedule); got != res.Makespan {
		t.Fatalf("schedule makespan %v != result %v", got, res.Makespan)
	}
}

func TestSolveReproducible(t *testing.T) {
	inst := shop.RandomInstance(4, 3, 3, 2, 1, 15, rand.New(rand.NewSource(8)))
	a, err := newSolver(t, 10, 5).Solve(context.Background(), inst)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newSolver(t, 10, 5).Solve(context.Background(), inst)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.History, b.History) || !reflect.DeepEqual(a.Schedule.Report(), b.Schedule.Report()) {
		t.Fatal("same seed produced different runs")
	}
}

func TestSolveWithoutNeighbors(t *testing.T) {
	// Every machine receives at most one operation, so there is nothing to swap.
	inst, err := shop.NewInstance(
		[]shop.Machine{{Name: "A", Capacity: 1}, {Name: "B", Capacity: 1}},
		[]shop.Job{
			{Name: "J1", Operations: []shop.Operation{{ID: 1, Duration: 3, Tools: map[string]int{"A": 1}}}},
			{Name: "J2", Operations: []shop.Operation{{ID: 1, Duration: 4, Tools: map[string]int{"B": 1}}}},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	res, err := newSolver(t, 5, 1).Solve(context.Background(), inst)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{4, 4, 4, 4, 4, 4}
	if !reflect.DeepEqual(res.History, want) {
		t.Fatalf("history = %v, want %v", res.History, want)
	}
	if res.Meta["idle_iters"] != 5 {
		t.Fatalf("idle_iters = %v", res.Meta["idle_iters"])
	}
}
