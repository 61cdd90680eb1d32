package shop

import (
	"bytes"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func mustInstance(t *testing.T, machines []Machine, jobs []Job) *Instance {
	t.Helper()
	inst, err := NewInstance(machines, jobs)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	return inst
}

// twoStageInstance: both jobs run 3 on A then 2 on B, one tool unit each.
func twoStageInstance(t *testing.T) *Instance {
	ops := func() []Operation {
		return []Operation{
			{ID: 1, Duration: 3, Tools: map[string]int{"A": 1}},
			{ID: 2, Duration: 2, Tools: map[string]int{"B": 1}},
		}
	}
	return mustInstance(t,
		[]Machine{{Name: "A", Capacity: 1}, {Name: "B", Capacity: 1}},
		[]Job{{Name: "J1", Operations: ops()}, {Name: "J2", Operations: ops()}},
	)
}

func TestDecodeTwoJobsCompeteForSameMachines(t *testing.T) {
	s := Decode(twoStageInstance(t), DecodeOptions{})
	if len(s.Unscheduled) != 0 {
		t.Fatalf("unscheduled: %v", s.Unscheduled)
	}
	if err := s.Check(); err != nil {
		t.Fatal(err)
	}

	want := []Row{
		{Machine: "A", Job: "J1", Op: 1, SetupStart: 0, Start: 0, End: 3},
		{Machine: "A", Job: "J2", Op: 1, SetupStart: 3, Start: 3, End: 6},
		{Machine: "B", Job: "J1", Op: 2, SetupStart: 3, Start: 3, End: 5},
		{Machine: "B", Job: "J2", Op: 2, SetupStart: 6, Start: 6, End: 8},
	}
	if got := s.Report(); !reflect.DeepEqual(got, want) {
		t.Fatalf("report:\n got %+v\nwant %+v", got, want)
	}
	if ms := Makespan(s); ms < 5 || ms != 8 {
		t.Fatalf("makespan = %v, want 8", ms)
	}
}

func TestDecodeSetupPrecedesProcessing(t *testing.T) {
	inst := mustInstance(t,
		[]Machine{{Name: "A", Capacity: 1}},
		[]Job{{Name: "J1", Operations: []Operation{
			{ID: 1, Duration: 4, Setup: 1.5, Tools: map[string]int{"A": 1}},
		}}},
	)
	rows := Decode(inst, DecodeOptions{}).Report()
	if len(rows) != 1 {
		t.Fatalf("rows = %v", rows)
	}
	if r := rows[0]; r.SetupStart != 0 || r.Start != 1.5 || r.End != 5.5 {
		t.Fatalf("row = %+v", r)
	}
}

func TestMakespanEmpty(t *testing.T) {
	inst := twoStageInstance(t)
	if ms := Makespan(NewSchedule(inst)); ms != 0 {
		t.Fatalf("makespan of empty schedule = %v", ms)
	}
}

func parallelInstance(t *testing.T) *Instance {
	both := func() map[string]int { return map[string]int{"M1": 1, "M2": 1} }
	return mustInstance(t,
		[]Machine{{Name: "M1", Capacity: 1}, {Name: "M2", Capacity: 1}},
		[]Job{
			{Name: "J1", Operations: []Operation{{ID: 1, Duration: 2, Tools: both()}}},
			{Name: "J2", Operations: []Operation{{ID: 1, Duration: 2, Tools: both()}}},
		},
	)
}

func machineOf(s *Schedule, key OpKey) string {
	for i := range s.Machines {
		for _, p := range s.Machines[i].Placed {
			if p.Key == key {
				return s.Inst.Machines[i].Name
			}
		}
	}
	return ""
}

func TestDecodeTieBreakByMachineName(t *testing.T) {
	s := Decode(parallelInstance(t), DecodeOptions{})
	if m := machineOf(s, OpKey{"J1", 1}); m != "M1" {
		t.Fatalf("J1O1 on %q, want M1", m)
	}
	if m := machineOf(s, OpKey{"J2", 1}); m != "M2" {
		t.Fatalf("J2O1 on %q, want M2", m)
	}
}

func TestDecodeHonorsHint(t *testing.T) {
	s := Decode(parallelInstance(t), DecodeOptions{Hints: Hints{{"J1", 1}: "M2"}})
	if m := machineOf(s, OpKey{"J1", 1}); m != "M2" {
		t.Fatalf("J1O1 on %q, want hinted M2", m)
	}
	if m := machineOf(s, OpKey{"J2", 1}); m != "M1" {
		t.Fatalf("J2O1 on %q, want M1", m)
	}
}

func TestDecodeFallsBackWhenHintInfeasible(t *testing.T) {
	inst := mustInstance(t,
		[]Machine{{Name: "M1", Capacity: 1}, {Name: "M2", Capacity: 1}},
		[]Job{{Name: "J1", Operations: []Operation{
			{ID: 1, Duration: 2, Tools: map[string]int{"M1": 1, "M2": 5}},
		}}},
	)
	s := Decode(inst, DecodeOptions{Hints: Hints{{"J1", 1}: "M2"}})
	if m := machineOf(s, OpKey{"J1", 1}); m != "M1" {
		t.Fatalf("J1O1 on %q, want M1", m)
	}
}

func TestDecodeUnknownHintMachineIsDeterministic(t *testing.T) {
	inst := parallelInstance(t)
	for seed := int64(0); seed < 40; seed++ {
		s := Decode(inst, DecodeOptions{
			Hints:     Hints{{"J1", 1}: "ZZ"},
			Randomize: true,
			Rng:       rand.New(rand.NewSource(seed)),
		})
		if m := machineOf(s, OpKey{"J1", 1}); m != "M1" {
			t.Fatalf("seed %d: J1O1 on %q, want earliest M1", seed, m)
		}
	}
}

func TestCommitFallsBackToNextCandidate(t *testing.T) {
	inst := parallelInstance(t)
	op := inst.Jobs[0].Operations[0]
	cand := []candidate{{machine: 1, start: 0}, {machine: 0, start: 0}}

	s := NewSchedule(inst)
	s.Machines[0].Commit(1, 0, 2)
	sel, ok := s.commit(op, candidate{machine: 0, start: 0}, cand)
	if !ok || sel.machine != 1 {
		t.Fatalf("commit = %+v, %v; want fallback to M2", sel, ok)
	}
	if len(s.Machines[1].Intervals) != 1 || len(s.Machines[0].Intervals) != 1 {
		t.Fatalf("intervals M1=%v M2=%v", s.Machines[0].Intervals, s.Machines[1].Intervals)
	}

	full := NewSchedule(inst)
	full.Machines[0].Commit(1, 0, 2)
	full.Machines[1].Commit(1, 0, 2)
	if _, ok := full.commit(op, candidate{machine: 0, start: 0}, cand); ok {
		t.Fatal("commit succeeded on full machines")
	}
	if len(full.Machines[0].Intervals) != 1 || len(full.Machines[1].Intervals) != 1 {
		t.Fatal("failed commit changed the timelines")
	}
}

func TestDecodeReturnsUnscheduledCopy(t *testing.T) {
	inst := mustInstance(t,
		[]Machine{{Name: "A", Capacity: 1}},
		[]Job{{Name: "J1", Operations: []Operation{{ID: 1, Duration: 1, Tools: map[string]int{"A": 2}}}}},
	)
	s := NewSchedule(inst)
	got := s.Decode(DecodeOptions{})
	s.Unscheduled[0] = OpKey{"X", 9}
	s.Decode(DecodeOptions{})
	if want := []OpKey{{"J1", 1}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("returned unscheduled = %v, want %v", got, want)
	}
}

func TestDecodeFollowsSequences(t *testing.T) {
	inst := parallelInstance(t)
	first := Decode(inst, DecodeOptions{})
	seqs := first.Sequences()

	swapped := Sequences{"M1": seqs["M2"], "M2": seqs["M1"]}
	s := Decode(inst, DecodeOptions{Sequences: swapped})
	if m := machineOf(s, OpKey{"J1", 1}); m != "M2" {
		t.Fatalf("J1O1 on %q, want M2", m)
	}
	if m := machineOf(s, OpKey{"J2", 1}); m != "M1" {
		t.Fatalf("J2O1 on %q, want M1", m)
	}
	if !reflect.DeepEqual(swapped["M1"], seqs["M2"]) {
		t.Fatal("decoder modified the sequence hint")
	}
}

func TestDecodeUnscheduledAdvancesReadyTime(t *testing.T) {
	inst := mustInstance(t,
		[]Machine{{Name: "A", Capacity: 1}, {Name: "B", Capacity: 1}},
		[]Job{{Name: "J1", Operations: []Operation{
			{ID: 1, Duration: 4, Setup: 1, Tools: map[string]int{"A": 2}},
			{ID: 2, Duration: 2, Tools: map[string]int{"B": 1}},
		}}},
	)
	s := Decode(inst, DecodeOptions{})
	if want := []OpKey{{"J1", 1}}; !reflect.DeepEqual(s.Unscheduled, want) {
		t.Fatalf("unscheduled = %v, want %v", s.Unscheduled, want)
	}
	rows := s.Report()
	if len(rows) != 1 || rows[0].SetupStart != 5 {
		t.Fatalf("J1O2 must start after the unscheduled operation's intended end 5: %+v", rows)
	}
}

func TestDecodeInvariantsOnRandomInstances(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		inst := RandomInstance(6, 4, 5, 3, 1, 20, rng)
		s := Decode(inst, DecodeOptions{Randomize: true, Rng: rng})
		if len(s.Unscheduled) != 0 {
			t.Fatalf("instance %d: unscheduled %v", i, s.Unscheduled)
		}
		if err := s.Check(); err != nil {
			t.Fatalf("instance %d: %v", i, err)
		}
		n := 0
		for m := range s.Machines {
			n += len(s.Machines[m].Placed)
		}
		if n != inst.NumOperations() {
			t.Fatalf("instance %d: placed %d of %d", i, n, inst.NumOperations())
		}
	}
}

func TestDecodeDeterministicWithFullHints(t *testing.T) {
	inst := RandomInstance(5, 3, 4, 2, 1, 10, rand.New(rand.NewSource(3)))

	hints := Hints{}
	pick := rand.New(rand.NewSource(11))
	for _, j := range inst.Jobs {
		for _, op := range j.Operations {
			el := inst.Eligible(op)
			hints[OpKey{j.Name, op.ID}] = inst.Machines[el[pick.Intn(len(el))]].Name
		}
	}

	a := Decode(inst, DecodeOptions{Hints: hints, Rng: rand.New(rand.NewSource(1))})
	b := Decode(inst, DecodeOptions{Hints: hints, Rng: rand.New(rand.NewSource(2))})
	if !reflect.DeepEqual(a.Report(), b.Report()) {
		t.Fatal("decodes with identical hints differ")
	}
}

func TestDecodeRandomizedReproducibleWithSeed(t *testing.T) {
	inst := RandomInstance(8, 4, 4, 2, 1, 10, rand.New(rand.NewSource(5)))
	a := Decode(inst, DecodeOptions{Randomize: true, Rng: rand.New(rand.NewSource(42))})
	b := Decode(inst, DecodeOptions{Randomize: true, Rng: rand.New(rand.NewSource(42))})
	if !reflect.DeepEqual(a.Report(), b.Report()) {
		t.Fatal("same seed produced different schedules")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := Decode(twoStageInstance(t), DecodeOptions{})
	c := s.Clone()
	c.Machines[0].Placed[0].End = 100
	c.Machines[0].Intervals = append(c.Machines[0].Intervals, Interval{Start: 50, End: 60, Tools: 1})
	if s.Machines[0].Placed[0].End == 100 || len(s.Machines[0].Intervals) != 2 {
		t.Fatal("clone shares allocation state with the original")
	}
	if c.Inst != s.Inst {
		t.Fatal("clone must share the instance")
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, Decode(twoStageInstance(t), DecodeOptions{}).Report()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Machine A:\n",
		"    - Job J2 - Operation 1: Start setup = 3.000, start = 3.000, end = 6.000\n",
		"Machine B:\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestNewInstanceRejects(t *testing.T) {
	m := []Machine{{Name: "A", Capacity: 1}}
	cases := map[string][]Job{
		"unknown machine": {{Name: "J", Operations: []Operation{{ID: 1, Tools: map[string]int{"Z": 1}}}}},
		"no eligibility":  {{Name: "J", Operations: []Operation{{ID: 1}}}},
		"duplicate op id": {{Name: "J", Operations: []Operation{
			{ID: 1, Tools: map[string]int{"A": 1}}, {ID: 1, Tools: map[string]int{"A": 1}},
		}}},
		"negative duration": {{Name: "J", Operations: []Operation{{ID: 1, Duration: -1, Tools: map[string]int{"A": 1}}}}},
	}
	for name, jobs := range cases {
		if _, err := NewInstance(m, jobs); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNewInstanceSortsOperations(t *testing.T) {
	inst := mustInstance(t,
		[]Machine{{Name: "A", Capacity: 1}},
		[]Job{{Name: "J", Operations: []Operation{
			{ID: 20, Duration: 1, Tools: map[string]int{"A": 1}},
			{ID: 10, Duration: 1, Tools: map[string]int{"A": 1}},
		}}},
	)
	if inst.Jobs[0].Operations[0].ID != 10 {
		t.Fatalf("operations not sorted: %+v", inst.Jobs[0].Operations)
	}
}
