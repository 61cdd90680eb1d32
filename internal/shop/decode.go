package shop

import (
	"math/rand"
	"sort"
)

// Hints maps an operation to the name of the machine it should prefer.
type Hints map[OpKey]string

// Sequences holds, per machine name, an ordered list of operation keys. The
// decoder treats it as a soft ordering hint and never modifies it.
type Sequences map[string][]OpKey

// Clone returns a copy whose lists can be permuted independently.
func (s Sequences) Clone() Sequences {
	if s == nil {
		return nil
	}
	out := make(Sequences, len(s))
	for m, keys := range s {
		out[m] = append([]OpKey(nil), keys...)
	}
	return out
}

type DecodeOptions struct {
	Hints     Hints
	Sequences Sequences
	// Randomize picks uniformly among feasible machines when no preference
	// applies. Requires Rng; without it selection stays deterministic.
	Randomize bool
	Rng       *rand.Rand
}

type candidate struct {
	machine int
	start   float64
}

// seqQueue walks Sequences head-first with a private cursor per machine.
type seqQueue struct {
	keys   [][]OpKey
	cursor []int
}

func newSeqQueue(inst *Instance, seqs Sequences) *seqQueue {
	q := &seqQueue{
		keys:   make([][]OpKey, len(inst.Machines)),
		cursor: make([]int, len(inst.Machines)),
	}
	for name, keys := range seqs {
		if i, ok := inst.MachineIndex(name); ok {
			q.keys[i] = keys
		}
	}
	return q
}

// peek returns the first machine whose queue head is key, or -1.
func (q *seqQueue) peek(key OpKey) int {
	for m, keys := range q.keys {
		if c := q.cursor[m]; c < len(keys) && keys[c] == key {
			return m
		}
	}
	return -1
}

func (q *seqQueue) consume(m int, key OpKey) {
	if c := q.cursor[m]; c < len(q.keys[m]) && q.keys[m][c] == key {
		q.cursor[m]++
	}
}

// Decode builds a fresh schedule for inst.
func Decode(inst *Instance, opts DecodeOptions) *Schedule {
	s := NewSchedule(inst)
	s.Decode(opts)
	return s
}

// Decode clears the schedule and rebuilds it with the list-scheduling
// heuristic. Operations are visited in passes by position: pass k places the
// k-th operation of every job, in job order. Operations that cannot be placed
// are kept in s.Unscheduled; the returned slice is a copy that later decodes
// do not touch.
func (s *Schedule) Decode(opts DecodeOptions) []OpKey {
	inst := s.Inst
	q := newSeqQueue(inst, opts.Sequences)
	for m := range s.Machines {
		s.Machines[m].reset()
	}
	s.Unscheduled = s.Unscheduled[:0]

	ready := make([]float64, len(inst.Jobs))
	cand := make([]candidate, 0, len(inst.Machines))
	maxOps := inst.MaxOps()

	for k := 0; k < maxOps; k++ {
		for j := range inst.Jobs {
			job := &inst.Jobs[j]
			if k >= len(job.Operations) {
				continue
			}
			op := job.Operations[k]
			key := OpKey{Job: job.Name, Op: op.ID}
			total := op.Total()

			cand = cand[:0]
			for _, m := range inst.Eligible(op) {
				tl := &s.Machines[m]
				from := ready[j]
				if na := tl.NextAvailable(); na > from {
					from = na
				}
				if start, ok := tl.EarliestStart(op.Tools[inst.Machines[m].Name], from, total); ok {
					cand = append(cand, candidate{machine: m, start: start})
				}
			}

			// A hint naming an unknown machine restricts nothing but still
			// counts as a preference, so selection stays deterministic.
			pref, preferred := -1, false
			if name := opts.Hints[key]; name != "" {
				preferred = true
				if m, ok := inst.MachineIndex(name); ok {
					pref = m
				}
			} else if m := q.peek(key); m >= 0 {
				pref, preferred = m, true
			}
			if pref >= 0 {
				for _, c := range cand {
					if c.machine == pref {
						cand = append(cand[:0], c)
						break
					}
				}
			}

			if len(cand) == 0 {
				s.Unscheduled = append(s.Unscheduled, key)
				ready[j] += total
				continue
			}

			var sel candidate
			if opts.Randomize && opts.Rng != nil && !preferred && len(cand) > 1 {
				sel = cand[opts.Rng.Intn(len(cand))]
			} else {
				sel = s.earliest(cand)
			}

			sel, placed := s.commit(op, sel, cand)
			if !placed {
				s.Unscheduled = append(s.Unscheduled, key)
				ready[j] += total
				continue
			}

			end := sel.start + total
			tl := &s.Machines[sel.machine]
			tl.Placed = append(tl.Placed, Placement{Key: key, Start: sel.start, End: end})
			ready[j] = end
			q.consume(sel.machine, key)
		}
	}

	return append([]OpKey(nil), s.Unscheduled...)
}

// commit places op on sel, or on the first other candidate in (start, machine
// name) order that still fits when sel does not.
func (s *Schedule) commit(op Operation, sel candidate, cand []candidate) (candidate, bool) {
	units := func(c candidate) int { return op.Tools[s.Inst.Machines[c.machine].Name] }
	if s.Machines[sel.machine].Commit(units(sel), sel.start, op.Total()) {
		return sel, true
	}
	s.sortCandidates(cand)
	for _, c := range cand {
		if c == sel {
			continue
		}
		if s.Machines[c.machine].Commit(units(c), c.start, op.Total()) {
			return c, true
		}
	}
	return candidate{}, false
}

// earliest picks the candidate minimizing (start, machine name).
func (s *Schedule) earliest(cand []candidate) candidate {
	best := cand[0]
	for _, c := range cand[1:] {
		if s.less(c, best) {
			best = c
		}
	}
	return best
}

func (s *Schedule) sortCandidates(cand []candidate) {
	sort.SliceStable(cand, func(a, b int) bool { return s.less(cand[a], cand[b]) })
}

func (s *Schedule) less(a, b candidate) bool {
	if a.start != b.start {
		return a.start < b.start
	}
	return s.Inst.Machines[a.machine].Name < s.Inst.Machines[b.machine].Name
}
