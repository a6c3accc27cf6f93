package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alexanderramin/planrollup/internal/aggregate"
	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/importer"
	"github.com/alexanderramin/planrollup/internal/linker"
	"github.com/alexanderramin/planrollup/internal/normalize"
	"github.com/alexanderramin/planrollup/internal/reference"
	"github.com/alexanderramin/planrollup/internal/report"
	"github.com/alexanderramin/planrollup/internal/repository"
	"github.com/alexanderramin/planrollup/internal/store"
)

type PlanOptions struct {
	// BatchSize is the number of rows per insert request.
	BatchSize int
	// Year overrides the year used to find annual plans.
	Year   int
	Logger *slog.Logger
}

type planService struct {
	repos    *repository.Repos
	resolver *reference.Resolver
	opts     PlanOptions
	observer UseCaseObserver
}

func NewPlanService(
	s store.Store,
	resolver *reference.Resolver,
	opts PlanOptions,
	observers ...UseCaseObserver,
) PlanService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &planService{
		repos:    repository.New(s),
		resolver: resolver,
		opts:     opts,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *planService) Build(ctx context.Context, req BuildRequest) (run *report.Run, bundle *importer.Bundle, err error) {
	fields := map[string]any{"input": req.Path, "scoped": req.Scoped}
	done := track(ctx, s.observer, "build", fields)
	defer func() { done(err) }()

	run = report.New("build")
	defer run.Finish()

	res, err := s.aggregate(req.Source, run)
	if err != nil {
		return run, nil, err
	}
	fields["units"] = len(res.Units)

	bundle = importer.FromUnits(res.Units)
	if req.BundlePath != "" {
		if err = importer.SaveBundle(req.BundlePath, bundle); err != nil {
			return run, bundle, err
		}
	}
	return run, bundle, nil
}

func (s *planService) Link(ctx context.Context, bundlePath string) (run *report.Run, err error) {
	fields := map[string]any{"bundle": bundlePath}
	done := track(ctx, s.observer, "link", fields)
	defer func() { done(err) }()

	run = report.New("link")
	defer run.Finish()

	b, plans, err := loadBundle(bundlePath)
	if err != nil {
		return run, err
	}
	s.link(ctx, b, plans, run)
	fields["linked"] = run.Link.Linked + run.Link.AlreadyLinked + run.Link.Relinked
	fields["unlinked"] = run.Link.Unlinked

	if err = importer.SaveBundle(bundlePath, b); err != nil {
		return run, err
	}
	return run, nil
}

func (s *planService) Import(ctx context.Context, bundlePath string) (run *report.Run, err error) {
	fields := map[string]any{"bundle": bundlePath}
	done := track(ctx, s.observer, "import", fields)
	defer func() { done(err) }()

	run = report.New("import")
	defer run.Finish()

	_, plans, err := loadBundle(bundlePath)
	if err != nil {
		return run, err
	}
	s.persist(ctx, plans, run)
	fields["weekly_inserted"] = run.Persist.WeeklyInserted
	fields["weekly_failed"] = run.Persist.WeeklyFailed
	return run, nil
}

func (s *planService) Run(ctx context.Context, req RunRequest) (run *report.Run, err error) {
	fields := map[string]any{"input": req.Path, "scoped": req.Scoped}
	done := track(ctx, s.observer, "run", fields)
	defer func() { done(err) }()

	run = report.New("run")
	defer run.Finish()

	res, err := s.aggregate(req.Source, run)
	if err != nil {
		return run, err
	}
	plans := make([]*domain.WeeklyPlan, len(res.Units))
	for i, u := range res.Units {
		plans[i] = u.Plan
	}
	b := importer.FromUnits(res.Units)
	s.link(ctx, b, plans, run)

	if req.BundlePath != "" {
		if err = importer.SaveBundle(req.BundlePath, b); err != nil {
			return run, err
		}
	}
	s.persist(ctx, plans, run)
	fields["units"] = len(plans)
	fields["weekly_failed"] = run.Persist.WeeklyFailed
	return run, nil
}

func (s *planService) Analyze(ctx context.Context, src Source) (run *report.Run, err error) {
	fields := map[string]any{"input": src.Path}
	done := track(ctx, s.observer, "analyze", fields)
	defer func() { done(err) }()

	run = report.New("analyze")
	defer run.Finish()

	res, err := s.aggregate(src, run)
	if err != nil {
		return run, err
	}
	fields["units"] = len(res.Units)
	return run, nil
}

// aggregate reads and groups a workbook, filling the input and
// resolution sections of run.
func (s *planService) aggregate(src Source, run *report.Run) (*aggregate.Result, error) {
	rows, err := importer.ReadWorkbook(src.Path, importer.ReadOptions{Sheet: src.Sheet})
	if err != nil {
		return nil, err
	}
	norm := normalize.Rows(rows)
	res := aggregate.New(s.resolver, aggregate.Options{
		ScopeByProcess: src.Scoped,
		StableOrder:    src.StableOrder,
		Logger:         s.opts.Logger,
	}).Aggregate(norm.Records)

	in := &report.InputSummary{
		Rows:         len(rows),
		Dropped:      norm.Dropped,
		DroppedRows:  norm.DroppedRows,
		WeekMismatch: norm.WeekMismatch,
		Units:        len(res.Units),
		Tasks:        res.TaskCount(),
	}
	for _, u := range res.Units {
		in.Assignees += len(u.Plan.Assignees)
		in.CompanyLinks += len(u.Plan.Companies)
	}
	run.Input = in
	run.Resolution = res.Tally
	return res, nil
}

func (s *planService) link(ctx context.Context, b *importer.Bundle, plans []*domain.WeeklyPlan, run *report.Run) {
	l := linker.New(s.repos, linker.Options{Year: s.opts.Year, Logger: s.opts.Logger})
	summary, failures := l.Link(ctx, importer.LinkItems(b, plans))
	importer.ApplyLinks(b, plans)
	run.Link = summary
	run.Failures = append(run.Failures, failures...)
}

func loadBundle(path string) (*importer.Bundle, []*domain.WeeklyPlan, error) {
	b, err := importer.LoadBundle(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading bundle: %w", err)
	}
	if errs := importer.ValidateBundle(b); len(errs) > 0 {
		return nil, nil, formatValidationErrors(errs)
	}
	plans, err := importer.Convert(b)
	if err != nil {
		return nil, nil, fmt.Errorf("converting bundle: %w", err)
	}
	return b, plans, nil
}
