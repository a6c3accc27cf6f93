package merge

import (
	"context"
	"fmt"

	"github.com/alexanderramin/planrollup/internal/domain"
)

type quarterlyKey struct {
	annualID string
	process  string
	quarter  int
}

func groupQuarterly(plans []*domain.QuarterlyPlan) [][]*domain.QuarterlyPlan {
	var order []quarterlyKey
	groups := make(map[quarterlyKey][]*domain.QuarterlyPlan)
	for _, q := range plans {
		k := quarterlyKey{annualID: q.AnnualPlanID, process: q.ProcessID, quarter: q.Quarter}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], q)
	}
	var dups [][]*domain.QuarterlyPlan
	for _, k := range order {
		if len(groups[k]) > 1 {
			dups = append(dups, groups[k])
		}
	}
	return dups
}

// collapseQuarterly re-points weekly plans from duplicate quarterly plans
// to the survivor and deletes a duplicate only once nothing refers to it.
func (m *Merger) collapseQuarterly(ctx context.Context, out *Outcome) error {
	plans, err := m.repos.Quarterly.List(ctx)
	if err != nil {
		return fmt.Errorf("listing quarterly plans: %w", err)
	}
	for _, group := range groupQuarterly(plans) {
		out.Summary.QuarterlyGroups++
		survivor := group[0]
		if m.opts.DryRun {
			m.opts.Logger.Info("duplicate quarterly group", "survivor", survivor.ID, "size", len(group))
			continue
		}

		var empty []string
		for _, dup := range group[1:] {
			if _, err := m.repos.Weekly.Repoint(ctx, dup.ID, survivor.ID); err != nil {
				out.fail("collapse", dup.ID, err)
				continue
			}
			left, err := m.repos.Weekly.ListByQuarterly(ctx, dup.ID)
			if err != nil {
				out.fail("collapse", dup.ID, err)
				continue
			}
			if len(left) > 0 {
				out.fail("collapse", dup.ID, fmt.Errorf("%d weekly plans still reference it", len(left)))
				continue
			}
			empty = append(empty, dup.ID)
		}

		n, err := m.repos.Quarterly.Delete(ctx, empty)
		if err != nil {
			out.fail("collapse", survivor.ID, err)
			continue
		}
		out.Summary.QuarterlyDeleted += n
	}
	return nil
}
