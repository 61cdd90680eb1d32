package shop

import "fmt"

// Check verifies the capacity, precedence and eligibility invariants of a
// decoded schedule. Unscheduled operations are skipped.
func (s *Schedule) Check() error {
	for i := range s.Machines {
		tl := &s.Machines[i]
		for _, at := range tl.Intervals {
			used := 0
			for _, iv := range tl.Intervals {
				if iv.Start <= at.Start && at.Start < iv.End {
					used += iv.Tools
				}
			}
			if used > tl.Capacity {
				return fmt.Errorf("machine %q: %d tool units in use at %v, capacity %d",
					s.Inst.Machines[i].Name, used, at.Start, tl.Capacity)
			}
		}
	}

	type slot struct {
		machine    string
		start, end float64
	}
	placed := make(map[OpKey]slot, s.Inst.NumOperations())
	for i := range s.Machines {
		for _, p := range s.Machines[i].Placed {
			placed[p.Key] = slot{machine: s.Inst.Machines[i].Name, start: p.Start, end: p.End}
		}
	}

	for _, j := range s.Inst.Jobs {
		var prev *slot
		var prevID int
		for _, op := range j.Operations {
			key := OpKey{Job: j.Name, Op: op.ID}
			sl, ok := placed[key]
			if !ok {
				continue
			}
			if _, eligible := op.Tools[sl.machine]; !eligible {
				return fmt.Errorf("%s placed on ineligible machine %q", key, sl.machine)
			}
			if prev != nil && prev.end > sl.start {
				return fmt.Errorf("%s starts at %v before %sO%d completes at %v",
					key, sl.start, j.Name, prevID, prev.end)
			}
			cur := sl
			prev, prevID = &cur, op.ID
		}
	}
	return nil
}
