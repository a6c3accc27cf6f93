package service

import (
	"context"

	"github.com/alexanderramin/planrollup/internal/importer"
	"github.com/alexanderramin/planrollup/internal/report"
)

// Source names a timesheet workbook and how to group it.
type Source struct {
	Path   string
	Sheet  string
	Scoped bool
	// StableOrder sorts rows by sheet position before grouping.
	StableOrder bool
}

type BuildRequest struct {
	Source
	// BundlePath, when set, receives the built bundle.
	BundlePath string
}

type RunRequest struct {
	Source
	// BundlePath, when set, receives the linked bundle before import.
	BundlePath string
}

type MergeRequest struct {
	DryRun    bool
	Quarterly bool
}

// PlanService turns timesheets into persisted plans.
type PlanService interface {
	// Build reads, normalizes and aggregates a workbook without touching
	// the store.
	Build(ctx context.Context, req BuildRequest) (*report.Run, *importer.Bundle, error)
	// Link places every plan of a bundle under a quarterly plan and
	// rewrites the bundle with the references.
	Link(ctx context.Context, bundlePath string) (*report.Run, error)
	// Import writes a bundle to the store.
	Import(ctx context.Context, bundlePath string) (*report.Run, error)
	// Run builds, links and imports in one pass.
	Run(ctx context.Context, req RunRequest) (*report.Run, error)
	// Analyze reports reference hit-rates for a workbook.
	Analyze(ctx context.Context, src Source) (*report.Run, error)
}

// MaintenanceService repairs and clears persisted plans.
type MaintenanceService interface {
	Merge(ctx context.Context, req MergeRequest) (*report.Run, error)
	// Wipe deletes every plan below the annual level.
	Wipe(ctx context.Context) (*report.Run, error)
	// CleanupEmpty deletes weekly plans that have no tasks.
	CleanupEmpty(ctx context.Context, dryRun bool) (*report.Run, error)
}
