package shop

import "sort"

// Schedule is the mutable allocation state decoded from an Instance. The
// Instance is shared; Machines and Unscheduled are owned by the schedule.
type Schedule struct {
	Inst        *Instance
	Machines    []Timeline // indexed like Inst.Machines
	Unscheduled []OpKey
}

func NewSchedule(inst *Instance) *Schedule {
	s := &Schedule{Inst: inst, Machines: make([]Timeline, len(inst.Machines))}
	for i, m := range inst.Machines {
		s.Machines[i] = NewTimeline(m.Capacity)
	}
	return s
}

// Clone copies the allocation state and shares the Instance.
func (s *Schedule) Clone() *Schedule {
	out := &Schedule{Inst: s.Inst, Machines: make([]Timeline, len(s.Machines))}
	for i := range s.Machines {
		out.Machines[i] = s.Machines[i].clone()
	}
	if len(s.Unscheduled) > 0 {
		out.Unscheduled = append([]OpKey(nil), s.Unscheduled...)
	}
	return out
}

// Makespan is the latest end over every committed interval, 0 when nothing
// is placed.
func Makespan(s *Schedule) float64 {
	var ms float64
	for i := range s.Machines {
		if end := s.Machines[i].NextAvailable(); end > ms {
			ms = end
		}
	}
	return ms
}

// Sequences returns the placed operation order of every machine that has at
// least one placement.
func (s *Schedule) Sequences() Sequences {
	out := make(Sequences, len(s.Machines))
	for i := range s.Machines {
		placed := s.Machines[i].Placed
		if len(placed) == 0 {
			continue
		}
		keys := make([]OpKey, len(placed))
		for k, p := range placed {
			keys[k] = p.Key
		}
		out[s.Inst.Machines[i].Name] = keys
	}
	return out
}

// Row is one line of a schedule report.
type Row struct {
	Machine    string  `json:"machine"`
	Job        string  `json:"job"`
	Op         int     `json:"op"`
	SetupStart float64 `json:"setup_start"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
}

// Report lists placements sorted by machine name, then by setup start.
func (s *Schedule) Report() []Row {
	setup := make(map[OpKey]float64, s.Inst.NumOperations())
	for _, j := range s.Inst.Jobs {
		for _, op := range j.Operations {
			setup[OpKey{Job: j.Name, Op: op.ID}] = op.Setup
		}
	}

	var rows []Row
	for i := range s.Machines {
		name := s.Inst.Machines[i].Name
		for _, p := range s.Machines[i].Placed {
			rows = append(rows, Row{
				Machine:    name,
				Job:        p.Key.Job,
				Op:         p.Key.Op,
				SetupStart: p.Start,
				Start:      p.Start + setup[p.Key],
				End:        p.End,
			})
		}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Machine != rows[b].Machine {
			return rows[a].Machine < rows[b].Machine
		}
		return rows[a].SetupStart < rows[b].SetupStart
	})
	return rows
}
