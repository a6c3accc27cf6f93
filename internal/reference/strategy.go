package reference

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// StrategyKind tags which rule produced a match.
type StrategyKind int

const (
	ViaNone StrategyKind = iota
	ViaCorrection
	ViaSynonym
	ViaCanonical
	ViaTypo
	ViaDepartmentAlias
	ViaNormalized
	ViaExact
)

func (k StrategyKind) String() string {
	switch k {
	case ViaCorrection:
		return "correction"
	case ViaSynonym:
		return "synonym"
	case ViaCanonical:
		return "canonical"
	case ViaTypo:
		return "typo"
	case ViaDepartmentAlias:
		return "department_alias"
	case ViaNormalized:
		return "normalized"
	case ViaExact:
		return "exact"
	default:
		return "none"
	}
}

// Query carries a label plus the row context some strategies need.
type Query struct {
	Label      string
	MainTask   string
	Department string
}

// Match is the outcome of a resolution. ID is empty when nothing matched.
type Match struct {
	ID   string
	Name string
	Via  StrategyKind
}

func (m Match) Resolved() bool { return m.ID != "" }

// IDPtr returns the identity or nil for an unresolved match.
func (m Match) IDPtr() *string {
	if m.ID == "" {
		return nil
	}
	id := m.ID
	return &id
}

// Strategy is one resolution rule. Lookup returns false when the rule has
// nothing to say about q.
type Strategy interface {
	Kind() StrategyKind
	Lookup(q Query) (Match, bool)
}

// Chain evaluates strategies in order and stops at the first match.
type Chain []Strategy

func (c Chain) Resolve(q Query) Match {
	q.Label = strings.TrimSpace(q.Label)
	q.MainTask = strings.TrimSpace(q.MainTask)
	q.Department = strings.TrimSpace(q.Department)
	if q.Label == "" {
		return Match{}
	}
	for _, s := range c {
		if m, ok := s.Lookup(q); ok {
			m.Via = s.Kind()
			return m
		}
	}
	return Match{}
}

type correctionKey struct {
	process  string
	mainTask string
}

type correctionStrategy struct {
	fixes     map[correctionKey]string
	canonical map[string]string
}

func (correctionStrategy) Kind() StrategyKind { return ViaCorrection }

func (s correctionStrategy) Lookup(q Query) (Match, bool) {
	if q.MainTask == "" {
		return Match{}, false
	}
	name, ok := s.fixes[correctionKey{process: q.Label, mainTask: q.MainTask}]
	if !ok {
		return Match{}, false
	}
	return canonicalMatch(s.canonical, name)
}

// aliasStrategy maps a source label to a canonical name, then the name to
// an identity. Used for process synonyms and company typos.
type aliasStrategy struct {
	kind      StrategyKind
	aliases   map[string]string
	canonical map[string]string
}

func (s aliasStrategy) Kind() StrategyKind { return s.kind }

func (s aliasStrategy) Lookup(q Query) (Match, bool) {
	name, ok := s.aliases[q.Label]
	if !ok {
		return Match{}, false
	}
	return canonicalMatch(s.canonical, name)
}

type exactStrategy struct {
	kind  StrategyKind
	table map[string]string
}

func (s exactStrategy) Kind() StrategyKind { return s.kind }

func (s exactStrategy) Lookup(q Query) (Match, bool) {
	return canonicalMatch(s.table, q.Label)
}

// departmentAliasStrategy consults the alias map of the row's department.
// Maps are keyed by department identity so every label of a department
// shares one map.
type departmentAliasStrategy struct {
	departments map[string]string
	aliases     map[string]map[string]string
	folded      bool
}

func (s departmentAliasStrategy) Kind() StrategyKind {
	if s.folded {
		return ViaNormalized
	}
	return ViaDepartmentAlias
}

func (s departmentAliasStrategy) Lookup(q Query) (Match, bool) {
	deptID, ok := s.departments[q.Department]
	if !ok {
		return Match{}, false
	}
	label := q.Label
	if s.folded {
		label = foldLabel(label)
	}
	id, ok := s.aliases[deptID][label]
	if !ok {
		return Match{}, false
	}
	return Match{ID: id, Name: q.Label}, true
}

func canonicalMatch(table map[string]string, name string) (Match, bool) {
	id, ok := table[name]
	if !ok {
		return Match{}, false
	}
	return Match{ID: id, Name: name}, true
}

// foldLabel applies the loose comparison used for company codes: NFC,
// spaces and hyphens removed, Unicode case folding.
func foldLabel(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
	return cases.Fold().String(s)
}
