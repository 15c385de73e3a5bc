package jobx

import "sort"

// StateCount is one row of the stats report. An empty Name or State marks
// a roll-up total over that dimension.
type StateCount struct {
	Name  string `json:"name,omitempty"`
	State State  `json:"state,omitempty"`
	Count int    `json:"count"`
}

// Stats is the aggregated view of the live table.
type Stats struct {
	Rows    []StateCount             `json:"rows"`
	Counts  map[string]map[State]int `json:"counts"`
	ByName  map[string]int           `json:"byName"`
	ByState map[State]int            `json:"byState"`
	Total   int                      `json:"total"`
}

// Count returns the number of jobs named name in state s.
func (s *Stats) Count(name string, st State) int {
	return s.Counts[name][st]
}

// Rollup adds per-name, per-state and grand totals to detail rows, the way
// GROUP BY ROLLUP(name), ROLLUP(state) does. Rows are returned sorted by
// name then state rank, totals after details.
func Rollup(detail []StateCount) []StateCount {
	byName := make(map[string]int)
	byState := make(map[State]int)
	total := 0

	out := make([]StateCount, 0, len(detail)*2+1)
	for _, r := range detail {
		if r.Count == 0 {
			continue
		}
		out = append(out, r)
		byName[r.Name] += r.Count
		byState[r.State] += r.Count
		total += r.Count
	}
	for name, n := range byName {
		out = append(out, StateCount{Name: name, Count: n})
	}
	for st, n := range byState {
		out = append(out, StateCount{State: st, Count: n})
	}
	out = append(out, StateCount{Count: total})

	sortStateCounts(out)
	return out
}

// NewStats indexes roll-up rows as produced by Store.CountStates.
func NewStats(rows []StateCount) *Stats {
	s := &Stats{
		Rows:    rows,
		Counts:  make(map[string]map[State]int),
		ByName:  make(map[string]int),
		ByState: make(map[State]int),
	}
	for _, r := range rows {
		switch {
		case r.Name != "" && r.State != "":
			if s.Counts[r.Name] == nil {
				s.Counts[r.Name] = make(map[State]int)
			}
			s.Counts[r.Name][r.State] = r.Count
		case r.Name != "":
			s.ByName[r.Name] = r.Count
		case r.State != "":
			s.ByState[r.State] = r.Count
		default:
			s.Total = r.Count
		}
	}
	return s
}

func sortStateCounts(rows []StateCount) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if (a.Name == "") != (b.Name == "") {
			return a.Name != ""
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if (a.State == "") != (b.State == "") {
			return a.State != ""
		}
		return a.State.Rank() < b.State.Rank()
	})
}
