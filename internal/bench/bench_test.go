package bench

import (
	"context"
	"encoding/csv"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"fjShop/internal/opt"
	"fjShop/internal/sa"
	"fjShop/internal/ts"
)

func TestCalcFloatStats(t *testing.T) {
	s := CalcFloatStats([]float64{4, 2, 6})
	if s.N != 3 || s.Best != 2 || s.Mean != 4 || math.Abs(s.Std-2) > 1e-9 {
		t.Fatalf("stats = %+v", s)
	}
	if empty := CalcFloatStats(nil); empty.N != 0 || empty.Std != 0 {
		t.Fatalf("empty stats = %+v", empty)
	}
}

func TestRunCaseAndWriteCSV(t *testing.T) {
	saCfg := sa.DefaultConfig()
	saCfg.Iterations = 20
	tsCfg := ts.DefaultConfig()
	tsCfg.Iterations = 5

	algos := []Algorithm{
		{Name: "SA", Factory: func(seed int64) opt.Optimizer {
			s, _ := sa.New(saCfg, rand.New(rand.NewSource(seed)))
			return s
		}},
		{Name: "TS", Factory: func(seed int64) opt.Optimizer {
			s, _ := ts.New(tsCfg, rand.New(rand.NewSource(seed)))
			return s
		}},
	}

	r := Runner{Runs: 3, BaseSeed: 10}
	c := Case{Jobs: 4, Machines: 3, Ops: 3, Capacity: 2, InstanceSeed: 77}

	var records []Record
	for _, a := range algos {
		rec, err := r.RunCase(context.Background(), c, a)
		if err != nil {
			t.Fatalf("%s: %v", a.Name, err)
		}
		if rec.Runs != 3 || rec.MakespanBest <= 0 || rec.MakespanBest > rec.MakespanMean+1e-9 {
			t.Fatalf("%s: record = %+v", a.Name, rec)
		}
		records = append(records, rec)
	}

	path := filepath.Join(t.TempDir(), "out", "results.csv")
	if err := WriteCSV(path, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][0] != "SA" || rows[2][0] != "TS" {
		t.Fatalf("csv rows = %v", rows)
	}
}
