package domain

import "github.com/shopspring/decimal"

// IsOpen reports whether a task still counts as outstanding: no completion
// date and no hours booked against it.
func (t *WeeklyTask) IsOpen() bool {
	return t.CompletedAt == nil && t.ActualHours.IsZero()
}

// DeriveStatus returns PlanActive when any task is open and PlanCompleted
// otherwise. A plan without tasks is completed.
func DeriveStatus(tasks []*WeeklyTask) PlanStatus {
	for _, t := range tasks {
		if t.IsOpen() {
			return PlanActive
		}
	}
	return PlanCompleted
}

// SumActual adds up the actual hours of tasks exactly.
func SumActual(tasks []*WeeklyTask) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tasks {
		total = total.Add(t.ActualHours)
	}
	return total
}
