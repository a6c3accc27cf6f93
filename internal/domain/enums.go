package domain

type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
)

type QuarterlyStatus string

const (
	QuarterlyDraft    QuarterlyStatus = "draft"
	QuarterlyApproved QuarterlyStatus = "approved"
)

// Valid reports whether s is one of the weekly plan statuses the store accepts.
func (s PlanStatus) Valid() bool {
	return s == PlanActive || s == PlanCompleted
}
