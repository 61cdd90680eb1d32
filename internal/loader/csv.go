package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"fjShop/internal/shop"
)

var (
	jobColumns     = []string{"Job Name", "Operation ID", "Machine Name", "Time Required", "Tools Needed", "Setup Time"}
	machineColumns = []string{"Machine Name", "Machine Capacity"}
)

// LoadCSV reads the jobs and machines tables from files.
func LoadCSV(jobsPath, machinesPath string) (*shop.Instance, error) {
	jf, err := os.Open(jobsPath)
	if err != nil {
		return nil, fmt.Errorf("opening jobs table: %w", err)
	}
	defer jf.Close()

	mf, err := os.Open(machinesPath)
	if err != nil {
		return nil, fmt.Errorf("opening machines table: %w", err)
	}
	defer mf.Close()

	return ParseCSV(jf, mf)
}

// ParseCSV builds an instance from a jobs table with one row per
// (operation, eligible machine) and a machines table with capacities.
// Rows of the same operation merge their tool requirements.
func ParseCSV(jobs, machines io.Reader) (*shop.Instance, error) {
	caps, capOrder, err := readMachines(machines)
	if err != nil {
		return nil, err
	}

	rows, col, err := readTable(jobs, jobColumns)
	if err != nil {
		return nil, fmt.Errorf("jobs table: %w", err)
	}

	ops := map[string]map[int]*shop.Operation{}
	used := map[string]struct{}{}
	for n, r := range rows {
		line := n + 2
		job := r[col["Job Name"]]
		machine := r[col["Machine Name"]]
		id, err := strconv.Atoi(r[col["Operation ID"]])
		if err != nil {
			return nil, fmt.Errorf("jobs table line %d: operation id: %w", line, err)
		}
		dur, err := strconv.ParseFloat(r[col["Time Required"]], 64)
		if err != nil {
			return nil, fmt.Errorf("jobs table line %d: time required: %w", line, err)
		}
		tools, err := strconv.Atoi(r[col["Tools Needed"]])
		if err != nil {
			return nil, fmt.Errorf("jobs table line %d: tools needed: %w", line, err)
		}
		setup, err := strconv.ParseFloat(r[col["Setup Time"]], 64)
		if err != nil {
			return nil, fmt.Errorf("jobs table line %d: setup time: %w", line, err)
		}
		if _, ok := caps[machine]; !ok {
			return nil, fmt.Errorf("jobs table line %d: machine %q has no capacity", line, machine)
		}
		used[machine] = struct{}{}

		if ops[job] == nil {
			ops[job] = map[int]*shop.Operation{}
		}
		if op, ok := ops[job][id]; ok {
			if op.Duration != dur || op.Setup != setup {
				return nil, fmt.Errorf("jobs table line %d: %sO%d redefined with different times", line, job, id)
			}
			op.Tools[machine] = tools
			continue
		}
		ops[job][id] = &shop.Operation{ID: id, Duration: dur, Setup: setup, Tools: map[string]int{machine: tools}}
	}

	// Machines used by operations come first by name, capacity-only ones after.
	names := make([]string, 0, len(used))
	for m := range used {
		names = append(names, m)
	}
	sort.Strings(names)
	for _, m := range capOrder {
		if _, ok := used[m]; !ok {
			names = append(names, m)
		}
	}
	ms := make([]shop.Machine, len(names))
	for i, m := range names {
		ms[i] = shop.Machine{Name: m, Capacity: caps[m]}
	}

	jobNames := make([]string, 0, len(ops))
	for j := range ops {
		jobNames = append(jobNames, j)
	}
	sort.Strings(jobNames)
	js := make([]shop.Job, len(jobNames))
	for i, j := range jobNames {
		list := make([]shop.Operation, 0, len(ops[j]))
		for _, op := range ops[j] {
			list = append(list, *op)
		}
		js[i] = shop.Job{Name: j, Operations: list}
	}

	return shop.NewInstance(ms, js)
}

func readMachines(r io.Reader) (map[string]int, []string, error) {
	rows, col, err := readTable(r, machineColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("machines table: %w", err)
	}
	caps := make(map[string]int, len(rows))
	order := make([]string, 0, len(rows))
	for n, row := range rows {
		name := row[col["Machine Name"]]
		c, err := strconv.Atoi(row[col["Machine Capacity"]])
		if err != nil {
			return nil, nil, fmt.Errorf("machines table line %d: capacity: %w", n+2, err)
		}
		if _, dup := caps[name]; dup {
			return nil, nil, fmt.Errorf("machines table line %d: duplicate machine %q", n+2, name)
		}
		caps[name] = c
		order = append(order, name)
	}
	return caps, order, nil
}

// readTable returns trimmed data rows and the column index of every
// required header.
func readTable(r io.Reader, required []string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty table")
	}

	col := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		col[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, h := range required {
		if _, ok := col[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	rows := records[1:]
	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	return rows, col, nil
}
