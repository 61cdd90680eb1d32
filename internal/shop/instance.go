package shop

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// OpKey identifies an operation by job name and operation id.
type OpKey struct {
	Job string
	Op  int
}

func (k OpKey) String() string { return fmt.Sprintf("%sO%d", k.Job, k.Op) }

type Operation struct {
	ID       int
	Duration float64
	Setup    float64
	// Tools maps an eligible machine name to the tool units consumed there.
	// A machine absent from the map is not eligible.
	Tools map[string]int
}

// Total is the time an operation occupies a machine.
func (o Operation) Total() float64 { return o.Setup + o.Duration }

type Job struct {
	Name string
	// Operations are ordered by ID; index k is the k-th step of the job.
	Operations []Operation
}

type Machine struct {
	Name     string
	Capacity int
}

// Instance is the read-only structure of a problem. It is shared by every
// schedule decoded from it and must not be modified after NewInstance.
type Instance struct {
	Machines []Machine
	Jobs     []Job

	machineIdx map[string]int
}

func NewInstance(machines []Machine, jobs []Job) (*Instance, error) {
	inst := &Instance{Machines: machines, Jobs: jobs}
	for j := range inst.Jobs {
		ops := inst.Jobs[j].Operations
		sort.SliceStable(ops, func(a, b int) bool { return ops[a].ID < ops[b].ID })
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	inst.index()
	return inst, nil
}

func (inst *Instance) index() {
	inst.machineIdx = make(map[string]int, len(inst.Machines))
	for i, m := range inst.Machines {
		inst.machineIdx[m.Name] = i
	}
}

func (inst *Instance) Validate() error {
	if inst == nil {
		return errors.New("instance is nil")
	}
	if len(inst.Machines) == 0 {
		return errors.New("at least one machine is required")
	}
	names := make(map[string]struct{}, len(inst.Machines))
	for i, m := range inst.Machines {
		if m.Name == "" {
			return fmt.Errorf("machines[%d]: empty name", i)
		}
		if _, dup := names[m.Name]; dup {
			return fmt.Errorf("duplicate machine %q", m.Name)
		}
		if m.Capacity < 0 {
			return fmt.Errorf("machine %q: capacity must be >= 0 (got %d)", m.Name, m.Capacity)
		}
		names[m.Name] = struct{}{}
	}

	jobs := make(map[string]struct{}, len(inst.Jobs))
	for _, j := range inst.Jobs {
		if j.Name == "" {
			return errors.New("job with empty name")
		}
		if _, dup := jobs[j.Name]; dup {
			return fmt.Errorf("duplicate job %q", j.Name)
		}
		jobs[j.Name] = struct{}{}

		for k, op := range j.Operations {
			if k > 0 && j.Operations[k-1].ID >= op.ID {
				return fmt.Errorf("job %q: operation ids must be unique and ascending (%d after %d)", j.Name, op.ID, j.Operations[k-1].ID)
			}
			if op.Duration < 0 || op.Setup < 0 {
				return fmt.Errorf("job %q op %d: duration and setup must be >= 0", j.Name, op.ID)
			}
			if len(op.Tools) == 0 {
				return fmt.Errorf("job %q op %d: no eligible machine", j.Name, op.ID)
			}
			for m, units := range op.Tools {
				if _, ok := names[m]; !ok {
					return fmt.Errorf("job %q op %d: unknown machine %q", j.Name, op.ID, m)
				}
				if units < 0 {
					return fmt.Errorf("job %q op %d: tools on %q must be >= 0 (got %d)", j.Name, op.ID, m, units)
				}
			}
		}
	}
	return nil
}

// MachineIndex returns the position of the named machine in inst.Machines.
func (inst *Instance) MachineIndex(name string) (int, bool) {
	if inst.machineIdx == nil {
		inst.index()
	}
	i, ok := inst.machineIdx[name]
	return i, ok
}

// Eligible returns the indices of machines declaring tool requirements for op,
// in instance machine order.
func (inst *Instance) Eligible(op Operation) []int {
	out := make([]int, 0, len(op.Tools))
	for i, m := range inst.Machines {
		if _, ok := op.Tools[m.Name]; ok {
			out = append(out, i)
		}
	}
	return out
}

// MaxOps is the length of the longest job.
func (inst *Instance) MaxOps() int {
	n := 0
	for _, j := range inst.Jobs {
		if len(j.Operations) > n {
			n = len(j.Operations)
		}
	}
	return n
}

func (inst *Instance) NumOperations() int {
	n := 0
	for _, j := range inst.Jobs {
		n += len(j.Operations)
	}
	return n
}

// RandomInstance builds a problem with ops operations per job. Each operation
// is eligible on 1..machines machines, needs 1..capacity tool units there and
// takes minTime..maxTime plus a setup of up to a fifth of that.
func RandomInstance(jobs, machines, ops, capacity, minTime, maxTime int, rng *rand.Rand) *Instance {
	if rng == nil {
		panic("генератор случайных чисел не инициализирован (nil)")
	}
	if minTime < 0 || maxTime < 0 || maxTime < minTime {
		panic("invalid time bounds")
	}
	if capacity <= 0 {
		panic("capacity must be > 0")
	}

	ms := make([]Machine, machines)
	for m := range ms {
		ms[m] = Machine{Name: fmt.Sprintf("M%d", m+1), Capacity: capacity}
	}

	span := maxTime - minTime + 1
	js := make([]Job, jobs)
	for j := range js {
		js[j] = Job{Name: fmt.Sprintf("J%d", j+1), Operations: make([]Operation, ops)}
		for k := range js[j].Operations {
			dur := minTime
			if span > 1 {
				dur += rng.Intn(span)
			}
			setup := 0
			if dur >= 5 {
				setup = rng.Intn(dur/5 + 1)
			}

			eligible := 1 + rng.Intn(machines)
			perm := rng.Perm(machines)[:eligible]
			tools := make(map[string]int, eligible)
			for _, m := range perm {
				tools[ms[m].Name] = 1 + rng.Intn(capacity)
			}

			js[j].Operations[k] = Operation{
				ID:       k + 1,
				Duration: float64(dur),
				Setup:    float64(setup),
				Tools:    tools,
			}
		}
	}

	inst, err := NewInstance(ms, js)
	if err != nil {
		panic(err)
	}
	return inst
}
