package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/planrollup/internal/aggregate"
	"github.com/alexanderramin/planrollup/internal/domain"
	"github.com/alexanderramin/planrollup/internal/linker"
)

// FromUnits lays aggregated units out as a bundle, in unit order.
func FromUnits(units []*aggregate.Unit) *Bundle {
	b := &Bundle{
		Version:     BundleVersion,
		GeneratedAt: time.Now().UTC(),
		WeeklyPlans: make([]WeeklyPlanImport, 0, len(units)),
	}
	for _, u := range units {
		p := u.Plan
		b.WeeklyPlans = append(b.WeeklyPlans, WeeklyPlanImport{
			WeeklyID:        p.ID,
			QuarterlyID:     p.QuarterlyID,
			WeeklyDate:      p.WeekStart.Format(domain.DateLayout),
			ExpectedResult:  p.ExpectedResult,
			PlannedHours:    p.PlannedHours,
			Status:          string(p.Status),
			MainTask:        u.MainTask,
			Week:            u.Key.Week,
			Year:            u.Year(),
			ProcessLabel:    u.ProcessLabel,
			ProcessID:       u.Process.IDPtr(),
			ProcessName:     u.Process.Name,
			DepartmentLabel: u.DepartmentLabel,
			DepartmentID:    u.Department.IDPtr(),
		})
		for _, t := range p.Tasks {
			b.Tasks = append(b.Tasks, TaskImport{
				WeeklyTasksID: t.ID,
				WeeklyPlanID:  p.ID,
				UserID:        t.EmployeeID,
				Description:   t.Description,
				SpentHours:    t.ActualHours,
				CompletedAt:   formatOptionalDate(t.CompletedAt),
				AttachmentURL: t.AttachmentURL,
			})
		}
		for _, id := range p.Assignees {
			b.Assignees = append(b.Assignees, AssigneeImport{WeeklyPlanID: p.ID, UserID: id})
		}
		for _, id := range p.Companies {
			b.Companies = append(b.Companies, CompanyImport{WeeklyID: p.ID, CompanyID: id})
		}
	}
	return b
}

// Convert turns a validated bundle back into weekly plans with their
// tasks and links attached. Plans come back in bundle order.
func Convert(b *Bundle) ([]*domain.WeeklyPlan, error) {
	plans := make([]*domain.WeeklyPlan, 0, len(b.WeeklyPlans))
	byID := make(map[string]*domain.WeeklyPlan, len(b.WeeklyPlans))

	for i, wp := range b.WeeklyPlans {
		start, err := time.Parse(domain.DateLayout, wp.WeeklyDate)
		if err != nil {
			return nil, fmt.Errorf("weekly_plans[%d].weekly_date: %w", i, err)
		}
		p := &domain.WeeklyPlan{
			ID:             wp.WeeklyID,
			QuarterlyID:    wp.QuarterlyID,
			WeekStart:      start,
			ExpectedResult: wp.ExpectedResult,
			PlannedHours:   wp.PlannedHours,
			Status:         domain.PlanStatus(wp.Status),
		}
		plans = append(plans, p)
		byID[p.ID] = p
	}

	for i, t := range b.Tasks {
		p, ok := byID[t.WeeklyPlanID]
		if !ok {
			return nil, fmt.Errorf("weekly_tasks[%d]: plan %q not found", i, t.WeeklyPlanID)
		}
		completed, err := parseOptionalDate(t.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("weekly_tasks[%d].completed_at: %w", i, err)
		}
		p.Tasks = append(p.Tasks, &domain.WeeklyTask{
			ID:            t.WeeklyTasksID,
			WeeklyPlanID:  p.ID,
			EmployeeID:    t.UserID,
			Description:   t.Description,
			ActualHours:   t.SpentHours,
			CompletedAt:   completed,
			AttachmentURL: t.AttachmentURL,
		})
	}
	for _, a := range b.Assignees {
		if p, ok := byID[a.WeeklyPlanID]; ok {
			p.AddAssignee(a.UserID)
		}
	}
	for _, c := range b.Companies {
		if p, ok := byID[c.WeeklyID]; ok {
			p.AddCompany(c.CompanyID)
		}
	}
	return plans, nil
}

// LinkItems pairs each plan returned by Convert with the provenance the
// linker needs. plans must be in bundle order.
func LinkItems(b *Bundle, plans []*domain.WeeklyPlan) []linker.Item {
	items := make([]linker.Item, len(plans))
	for i, p := range plans {
		wp := b.WeeklyPlans[i]
		items[i] = linker.Item{
			Plan:         p,
			ProcessID:    domain.Deref(wp.ProcessID),
			ProcessName:  wp.ProcessName,
			DepartmentID: domain.Deref(wp.DepartmentID),
			MainTask:     domain.CoalesceStr(wp.MainTask, wp.ExpectedResult),
			Year:         wp.Year,
		}
	}
	return items
}

// ApplyLinks copies the quarterly references the linker set back into
// the bundle.
func ApplyLinks(b *Bundle, plans []*domain.WeeklyPlan) {
	for i, p := range plans {
		b.WeeklyPlans[i].QuarterlyID = p.QuarterlyID
	}
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.DateLayout)
	return &s
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
