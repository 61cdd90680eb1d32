package shop

import "sort"

// Interval is a committed [Start, End) span consuming Tools units.
type Interval struct {
	Start float64
	End   float64
	Tools int
}

// Placement is an operation placed on a machine. Start is the start of setup;
// processing begins at Start+Setup and completes at End.
type Placement struct {
	Key   OpKey
	Start float64
	End   float64
}

// Timeline is the allocation state of one machine. It enforces the tool
// capacity and knows nothing about jobs.
type Timeline struct {
	Capacity  int
	Intervals []Interval // sorted by Start
	Placed    []Placement
}

func NewTimeline(capacity int) Timeline {
	return Timeline{Capacity: capacity}
}

// CanPlace reports whether tools units fit for [start, start+duration) given
// every committed interval overlapping that window.
func (t *Timeline) CanPlace(tools int, start, duration float64) bool {
	end := start + duration
	used := 0
	for _, iv := range t.Intervals {
		if end <= iv.Start || start >= iv.End {
			continue
		}
		used += iv.Tools
	}
	return used+tools <= t.Capacity
}

// Commit inserts the interval if it fits. State is unchanged on failure.
func (t *Timeline) Commit(tools int, start, duration float64) bool {
	if !t.CanPlace(tools, start, duration) {
		return false
	}
	iv := Interval{Start: start, End: start + duration, Tools: tools}
	i := sort.Search(len(t.Intervals), func(i int) bool { return t.Intervals[i].Start > start })
	t.Intervals = append(t.Intervals, Interval{})
	copy(t.Intervals[i+1:], t.Intervals[i:])
	t.Intervals[i] = iv
	return true
}

// NextAvailable is the latest end among committed intervals, 0 when empty.
func (t *Timeline) NextAvailable() float64 {
	var end float64
	for _, iv := range t.Intervals {
		if iv.End > end {
			end = iv.End
		}
	}
	return end
}

// EarliestStart returns the first time >= from at which tools units fit for
// duration. Candidates are from itself and every interval end after it.
func (t *Timeline) EarliestStart(tools int, from, duration float64) (float64, bool) {
	if tools > t.Capacity {
		return 0, false
	}
	if t.CanPlace(tools, from, duration) {
		return from, true
	}
	ends := make([]float64, 0, len(t.Intervals))
	for _, iv := range t.Intervals {
		if iv.End > from {
			ends = append(ends, iv.End)
		}
	}
	sort.Float64s(ends)
	for _, s := range ends {
		if t.CanPlace(tools, s, duration) {
			return s, true
		}
	}
	return 0, false
}

func (t *Timeline) reset() {
	t.Intervals = t.Intervals[:0]
	t.Placed = t.Placed[:0]
}

func (t Timeline) clone() Timeline {
	out := Timeline{Capacity: t.Capacity}
	if len(t.Intervals) > 0 {
		out.Intervals = append([]Interval(nil), t.Intervals...)
	}
	if len(t.Placed) > 0 {
		out.Placed = append([]Placement(nil), t.Placed...)
	}
	return out
}
