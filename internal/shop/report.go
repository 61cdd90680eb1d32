package shop

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteReport prints rows grouped by machine. Rows must be sorted as returned
// by Schedule.Report.
func WriteReport(w io.Writer, rows []Row) error {
	cur := ""
	for i, r := range rows {
		if i == 0 || r.Machine != cur {
			cur = r.Machine
			if _, err := fmt.Fprintf(w, "Machine %s:\n", cur); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "    - Job %s - Operation %d: Start setup = %.3f, start = %.3f, end = %.3f\n",
			r.Job, r.Op, r.SetupStart, r.Start, r.End)
		if err != nil {
			return err
		}
	}
	return nil
}

func WriteReportCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"machine", "job", "op", "setup_start", "start", "end"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Machine,
			r.Job,
			strconv.Itoa(r.Op),
			ftoa(r.SetupStart),
			ftoa(r.Start),
			ftoa(r.End),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV writes one (iteration, best makespan) line per entry.
func WriteHistoryCSV(w io.Writer, history []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"iteration", "best_makespan"}); err != nil {
		return err
	}
	for i, v := range history {
		if err := cw.Write([]string{strconv.Itoa(i), ftoa(v)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
