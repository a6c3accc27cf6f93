// Package report collects the counters a run prints at the end.
package report

import (
	"fmt"
	"time"

	"github.com/alexanderramin/planrollup/internal/reference"
	"github.com/shopspring/decimal"
)

// Run is the outcome of one use case. Sections a use case did not touch
// stay nil.
type Run struct {
	Name      string
	StartedAt time.Time
	Duration  time.Duration

	Input      *InputSummary
	Resolution *reference.Tally
	Link       *LinkSummary
	Persist    *PersistSummary
	Merge      *MergeSummary
	Cleanup    *CleanupSummary
	Deleted    map[string]int
	Failures   []Failure
}

func New(name string) *Run {
	return &Run{Name: name, StartedAt: time.Now().UTC()}
}

// Finish stamps the duration.
func (r *Run) Finish() *Run {
	r.Duration = time.Since(r.StartedAt)
	return r
}

// Fail records a non-fatal failure of one item.
func (r *Run) Fail(stage, subject string, err error) {
	r.Failures = append(r.Failures, Failure{Stage: stage, Subject: subject, Err: err.Error()})
}

// AddDeleted accumulates deleted row counts per table.
func (r *Run) AddDeleted(table string, n int) {
	if r.Deleted == nil {
		r.Deleted = make(map[string]int)
	}
	r.Deleted[table] += n
}

type Failure struct {
	Stage   string
	Subject string
	Err     string
}

func (f Failure) String() string {
	return fmt.Sprintf("%s %s: %s", f.Stage, f.Subject, f.Err)
}

type InputSummary struct {
	Rows         int
	Dropped      int
	DroppedRows  []int
	WeekMismatch int
	Units        int
	Tasks        int
	Assignees    int
	CompanyLinks int
}

type LinkSummary struct {
	Linked           int
	AlreadyLinked    int
	Relinked         int
	Unlinked         int
	UnlinkedReasons  map[string]int
	QuarterlyCreated int
	QuarterlyReused  int
}

// Unlink counts a unit left without a quarterly parent.
func (s *LinkSummary) Unlink(reason string) {
	s.Unlinked++
	if s.UnlinkedReasons == nil {
		s.UnlinkedReasons = make(map[string]int)
	}
	s.UnlinkedReasons[reason]++
}

type PersistSummary struct {
	WeeklyInserted    int
	TasksInserted     int
	AssigneesInserted int
	CompaniesInserted int
	WeeklyFailed      int
	ChildrenSkipped   int
}

type MergeSummary struct {
	DryRun           bool
	Groups           int
	Merged           int
	UnitsDeleted     int
	TasksMoved       int
	QuarterlyGroups  int
	QuarterlyDeleted int
	Mismatches       []Mismatch
	Kept             []string
}

// Mismatch describes a duplicate group whose hour totals changed while
// children were moved. Nothing in such a group is deleted.
type Mismatch struct {
	SurvivorID string
	Before     decimal.Decimal
	After      decimal.Decimal
}

// CleanupSummary counts weekly plans found without tasks. Deleted rows
// are counted in Run.Deleted.
type CleanupSummary struct {
	DryRun bool
	Empty  int
}
