package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/google/uuid"
)

// ValidateBundle checks a bundle before conversion. It returns every
// problem found rather than stopping at the first.
func ValidateBundle(b *Bundle) []error {
	var errs []error

	if b.Version != BundleVersion {
		errs = append(errs, fmt.Errorf("version: unsupported value %d (expected %d)", b.Version, BundleVersion))
	}

	planIDs := make(map[string]bool)
	errs = append(errs, validatePlans(b.WeeklyPlans, planIDs)...)
	errs = append(errs, validateTasks(b.Tasks, planIDs)...)

	seen := make(map[[2]string]bool)
	for i, a := range b.Assignees {
		errs = append(errs, validateLink(fmt.Sprintf("weekly_plan_assignees[%d]", i), a.WeeklyPlanID, a.UserID, planIDs, seen)...)
	}
	seen = make(map[[2]string]bool)
	for i, c := range b.Companies {
		errs = append(errs, validateLink(fmt.Sprintf("weekly_plan_companies[%d]", i), c.WeeklyID, c.CompanyID, planIDs, seen)...)
	}

	return errs
}

func validatePlans(plans []WeeklyPlanImport, ids map[string]bool) []error {
	var errs []error

	for i, p := range plans {
		prefix := fmt.Sprintf("weekly_plans[%d]", i)

		if err := validateID(prefix+".weekly_id", p.WeeklyID); err != nil {
			errs = append(errs, err)
		} else if ids[p.WeeklyID] {
			errs = append(errs, fmt.Errorf("%s.weekly_id: duplicate id %q", prefix, p.WeeklyID))
		} else {
			ids[p.WeeklyID] = true
		}

		if p.WeeklyDate == "" {
			errs = append(errs, fmt.Errorf("%s.weekly_date is required", prefix))
		} else if d, err := time.Parse(domain.DateLayout, p.WeeklyDate); err != nil {
			errs = append(errs, fmt.Errorf("%s.weekly_date: invalid date format %q (expected YYYY-MM-DD)", prefix, p.WeeklyDate))
		} else if d.Weekday() != time.Monday {
			errs = append(errs, fmt.Errorf("%s.weekly_date: %s is not a Monday", prefix, p.WeeklyDate))
		}

		if p.ExpectedResult == "" {
			errs = append(errs, fmt.Errorf("%s.expected_result is required", prefix))
		}
		if p.PlannedHours.IsNegative() {
			errs = append(errs, fmt.Errorf("%s.planned_hours must not be negative", prefix))
		}
		if !domain.PlanStatus(p.Status).Valid() {
			errs = append(errs, fmt.Errorf("%s.status: invalid value %q", prefix, p.Status))
		}
		if p.QuarterlyID != nil {
			if err := validateID(prefix+".quarterly_id", *p.QuarterlyID); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errs
}

func validateTasks(tasks []TaskImport, planIDs map[string]bool) []error {
	var errs []error
	ids := make(map[string]bool)

	for i, t := range tasks {
		prefix := fmt.Sprintf("weekly_tasks[%d]", i)

		if err := validateID(prefix+".weekly_tasks_id", t.WeeklyTasksID); err != nil {
			errs = append(errs, err)
		} else if ids[t.WeeklyTasksID] {
			errs = append(errs, fmt.Errorf("%s.weekly_tasks_id: duplicate id %q", prefix, t.WeeklyTasksID))
		} else {
			ids[t.WeeklyTasksID] = true
		}

		if !planIDs[t.WeeklyPlanID] {
			errs = append(errs, fmt.Errorf("%s.weekly_plan_id: plan %q not found in weekly_plans", prefix, t.WeeklyPlanID))
		}
		if t.Description == "" {
			errs = append(errs, fmt.Errorf("%s.description is required", prefix))
		}
		if t.SpentHours.IsNegative() {
			errs = append(errs, fmt.Errorf("%s.spent_hours must not be negative", prefix))
		}
		if t.CompletedAt != nil {
			if _, err := time.Parse(domain.DateLayout, *t.CompletedAt); err != nil {
				errs = append(errs, fmt.Errorf("%s.completed_at: invalid date format %q (expected YYYY-MM-DD)", prefix, *t.CompletedAt))
			}
		}
	}

	return errs
}

func validateLink(prefix, weeklyID, targetID string, planIDs map[string]bool, seen map[[2]string]bool) []error {
	var errs []error
	if !planIDs[weeklyID] {
		errs = append(errs, fmt.Errorf("%s: plan %q not found in weekly_plans", prefix, weeklyID))
	}
	if targetID == "" {
		errs = append(errs, fmt.Errorf("%s: target id is required", prefix))
	}
	key := [2]string{weeklyID, targetID}
	if seen[key] {
		errs = append(errs, fmt.Errorf("%s: duplicate link %s -> %s", prefix, weeklyID, targetID))
	}
	seen[key] = true
	return errs
}

func validateID(field, id string) error {
	if id == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s: invalid identity %q", field, id)
	}
	return nil
}
