package reference

import "sort"

// LabelCount is an unresolved label and how often it was seen.
type LabelCount struct {
	Label string
	Count int
}

// CategoryStats accumulates resolution outcomes for one category.
type CategoryStats struct {
	Hits       int
	Misses     int
	Absent     int
	ByStrategy map[StrategyKind]int
	Unresolved map[string]int
}

// HitRate is hits over attempted lookups. Absent labels do not count.
// With nothing attempted the rate is 1.
func (s CategoryStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 1
	}
	return float64(s.Hits) / float64(total)
}

// TopUnresolved returns up to n unresolved labels, most frequent first.
// n <= 0 returns all of them.
func (s CategoryStats) TopUnresolved(n int) []LabelCount {
	out := make([]LabelCount, 0, len(s.Unresolved))
	for label, count := range s.Unresolved {
		out = append(out, LabelCount{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Tally records resolution outcomes per category. Not safe for concurrent
// writes.
type Tally struct {
	stats map[Category]*CategoryStats
}

func NewTally() *Tally {
	return &Tally{stats: make(map[Category]*CategoryStats)}
}

// Record counts one lookup of label. An empty label counts as absent.
func (t *Tally) Record(c Category, label string, m Match) {
	s := t.get(c)
	switch {
	case m.Resolved():
		s.Hits++
		s.ByStrategy[m.Via]++
	case label == "":
		s.Absent++
	default:
		s.Misses++
		s.Unresolved[label]++
	}
}

// Stats returns a snapshot for c.
func (t *Tally) Stats(c Category) CategoryStats {
	s := t.get(c)
	out := CategoryStats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Absent:     s.Absent,
		ByStrategy: make(map[StrategyKind]int, len(s.ByStrategy)),
		Unresolved: make(map[string]int, len(s.Unresolved)),
	}
	for k, v := range s.ByStrategy {
		out.ByStrategy[k] = v
	}
	for k, v := range s.Unresolved {
		out.Unresolved[k] = v
	}
	return out
}

func (t *Tally) get(c Category) *CategoryStats {
	s, ok := t.stats[c]
	if !ok {
		s = &CategoryStats{
			ByStrategy: make(map[StrategyKind]int),
			Unresolved: make(map[string]int),
		}
		t.stats[c] = s
	}
	return s
}
