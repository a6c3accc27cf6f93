// Package linker attaches weekly plans to their quarterly parents,
// creating a quarterly plan only when none exists for the key.
package linker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/report"
	"github.com/alexanderramin/planrollup/internal/repository"
	"github.com/google/uuid"
)

const (
	ReasonNoProcess       = "unresolved process"
	ReasonNoDepartment    = "unresolved department"
	ReasonNoAnnualPlan    = "no annual plan"
	ReasonLookupFailed    = "lookup failed"
	ReasonCreateFailed    = "quarterly create failed"
	maxResultTasks        = 5
	resultSeparator       = "; "
	DefaultMaxResultRunes = 500
)

// Item is one weekly plan with the identities needed to place it.
type Item struct {
	Plan         *domain.WeeklyPlan
	ProcessID    string
	ProcessName  string
	DepartmentID string
	MainTask     string
	Year         int
}

type Options struct {
	// Year, when set, replaces every item's own year for the annual plan
	// lookup.
	Year   int
	Logger *slog.Logger
}

type Linker struct {
	annual    repository.AnnualRepo
	quarterly repository.QuarterlyRepo
	opts      Options
	newID     func() string
}

func New(repos *repository.Repos, opts Options) *Linker {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Linker{
		annual:    repos.Annual,
		quarterly: repos.Quarterly,
		opts:      opts,
		newID:     uuid.NewString,
	}
}

type annualKey struct {
	department string
	year       int
}

type quarterKey struct {
	annualID string
	process  string
	quarter  int
}

// run holds the caches of one Link call.
type run struct {
	annual   map[annualKey]*domain.AnnualPlan
	missing  map[annualKey]bool
	quarters map[string]map[quarterKey]*domain.QuarterlyPlan
	reused   map[quarterKey]bool
	results  map[quarterKey][]string
	summary  *report.LinkSummary
	failures []report.Failure
}

// Link sets QuarterlyID on every item it can place. Items that cannot be
// placed get a nil reference and a reason in the summary. Store failures
// are reported per item; the remaining items are still linked.
func (l *Linker) Link(ctx context.Context, items []Item) (*report.LinkSummary, []report.Failure) {
	r := &run{
		annual:   make(map[annualKey]*domain.AnnualPlan),
		missing:  make(map[annualKey]bool),
		quarters: make(map[string]map[quarterKey]*domain.QuarterlyPlan),
		reused:   make(map[quarterKey]bool),
		results:  make(map[quarterKey][]string),
		summary:  &report.LinkSummary{},
	}
	l.collectResults(ctx, r, items)

	for i := range items {
		l.linkOne(ctx, r, &items[i])
	}

	l.opts.Logger.Info("linked weekly plans",
		"linked", r.summary.Linked,
		"already_linked", r.summary.AlreadyLinked,
		"relinked", r.summary.Relinked,
		"unlinked", r.summary.Unlinked,
		"quarterly_created", r.summary.QuarterlyCreated,
	)
	return r.summary, r.failures
}

func (l *Linker) year(it *Item) int {
	if l.opts.Year != 0 {
		return l.opts.Year
	}
	return it.Year
}

// collectResults gathers up to five distinct main tasks per quarterly key
// in item order, for the expected result of quarterly plans created later.
func (l *Linker) collectResults(ctx context.Context, r *run, items []Item) {
	for i := range items {
		it := &items[i]
		if it.ProcessID == "" || it.DepartmentID == "" || it.MainTask == "" {
			continue
		}
		a, err := l.annualFor(ctx, r, annualKey{it.DepartmentID, l.year(it)})
		if err != nil || a == nil {
			continue
		}
		key := quarterKey{annualID: a.ID, process: it.ProcessID, quarter: domain.QuarterOf(it.Plan.WeekStart)}
		tasks := r.results[key]
		if len(tasks) >= maxResultTasks || contains(tasks, it.MainTask) {
			continue
		}
		r.results[key] = append(tasks, it.MainTask)
	}
}

func (l *Linker) linkOne(ctx context.Context, r *run, it *Item) {
	subject := it.Plan.ID
	switch {
	case it.ProcessID == "":
		l.unlink(r, it, ReasonNoProcess)
		return
	case it.DepartmentID == "":
		l.unlink(r, it, ReasonNoDepartment)
		return
	}

	year := l.year(it)
	a, err := l.annualFor(ctx, r, annualKey{it.DepartmentID, year})
	if err != nil {
		r.failures = append(r.failures, failure("link", subject, err))
		l.unlink(r, it, ReasonLookupFailed)
		return
	}
	if a == nil {
		l.unlink(r, it, ReasonNoAnnualPlan)
		return
	}

	key := quarterKey{annualID: a.ID, process: it.ProcessID, quarter: domain.QuarterOf(it.Plan.WeekStart)}
	q, err := l.quarterFor(ctx, r, key, it, year)
	if err != nil {
		r.failures = append(r.failures, failure("link", subject, err))
		reason := ReasonCreateFailed
		if errors.Is(err, errLookup) {
			reason = ReasonLookupFailed
		}
		l.unlink(r, it, reason)
		return
	}

	switch current := it.Plan.QuarterlyID; {
	case current == nil:
		r.summary.Linked++
	case *current == q.ID:
		r.summary.AlreadyLinked++
	default:
		r.summary.Relinked++
	}
	id := q.ID
	it.Plan.QuarterlyID = &id
}

func (l *Linker) unlink(r *run, it *Item, reason string) {
	it.Plan.QuarterlyID = nil
	r.summary.Unlink(reason)
	l.opts.Logger.Debug("weekly plan left unlinked", "weekly_id", it.Plan.ID, "reason", reason)
}

// annualFor returns nil without error when the department has no plan
// for the year.
func (l *Linker) annualFor(ctx context.Context, r *run, key annualKey) (*domain.AnnualPlan, error) {
	if a, ok := r.annual[key]; ok {
		return a, nil
	}
	if r.missing[key] {
		return nil, nil
	}
	a, err := l.annual.Find(ctx, key.department, key.year)
	if errors.Is(err, repository.ErrNotFound) {
		r.missing[key] = true
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.annual[key] = a
	return a, nil
}

var errLookup = errors.New("quarterly lookup")

func (l *Linker) quarterFor(ctx context.Context, r *run, key quarterKey, it *Item, year int) (*domain.QuarterlyPlan, error) {
	index, ok := r.quarters[key.annualID]
	if !ok {
		existing, err := l.quarterly.ListByAnnual(ctx, key.annualID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errLookup, err)
		}
		index = make(map[quarterKey]*domain.QuarterlyPlan, len(existing))
		for _, q := range existing {
			k := quarterKey{annualID: q.AnnualPlanID, process: q.ProcessID, quarter: q.Quarter}
			if _, dup := index[k]; !dup {
				index[k] = q
			}
		}
		r.quarters[key.annualID] = index
	}

	if q, ok := index[key]; ok {
		if !r.reused[key] {
			r.reused[key] = true
			r.summary.QuarterlyReused++
		}
		return q, nil
	}

	dept := it.DepartmentID
	q := &domain.QuarterlyPlan{
		ID:             l.newID(),
		AnnualPlanID:   key.annualID,
		DepartmentID:   &dept,
		ProcessID:      key.process,
		Quarter:        key.quarter,
		Goal:           fmt.Sprintf("%s - Q%d/%d", domain.CoalesceStr(it.ProcessName, key.process), key.quarter, year),
		ExpectedResult: domain.Truncate(strings.Join(r.results[key], resultSeparator), DefaultMaxResultRunes),
		Status:         domain.QuarterlyApproved,
	}
	if err := l.quarterly.Create(ctx, q); err != nil {
		return nil, err
	}
	index[key] = q
	r.reused[key] = true
	r.summary.QuarterlyCreated++
	l.opts.Logger.Debug("created quarterly plan", "quarterly_id", q.ID, "process", key.process, "quarter", key.quarter)
	return q, nil
}

func failure(stage, subject string, err error) report.Failure {
	return report.Failure{Stage: stage, Subject: subject, Err: err.Error()}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
