package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	planID  = "6f0c1a52-3d7e-4f8a-9b61-2c4e5d6f7a80"
	taskID  = "0b7e8f21-5c4d-4a3b-8e9f-1a2b3c4d5e6f"
	otherID = "9d8c7b6a-5f4e-4d3c-8b2a-1f0e9d8c7b6a"
)

func ptrStr(s string) *string { return &s }

func validBundle() *Bundle {
	return &Bundle{
		Version: BundleVersion,
		WeeklyPlans: []WeeklyPlanImport{{
			WeeklyID:       planID,
			WeeklyDate:     "2025-02-03",
			ExpectedResult: "SIEM tuning",
			PlannedHours:   decimal.RequireFromString("8"),
			Status:         "completed",
		}},
		Tasks: []TaskImport{{
			WeeklyTasksID: taskID,
			WeeklyPlanID:  planID,
			Description:   "Tune rules - Acme",
			SpentHours:    decimal.RequireFromString("7.5"),
			CompletedAt:   ptrStr("2025-02-06"),
		}},
		Assignees: []AssigneeImport{{WeeklyPlanID: planID, UserID: "emp-1"}},
		Companies: []CompanyImport{{WeeklyID: planID, CompanyID: "co-1"}},
	}
}

func TestValidateBundle_Valid(t *testing.T) {
	assert.Empty(t, ValidateBundle(validBundle()))
}

func TestValidateBundle_CollectsEveryProblem(t *testing.T) {
	b := validBundle()
	b.Version = 7
	b.WeeklyPlans[0].WeeklyDate = "2025-02-04"
	b.WeeklyPlans[0].Status = "done"
	b.Tasks[0].WeeklyPlanID = otherID
	b.Tasks[0].SpentHours = decimal.RequireFromString("-1")
	b.Assignees = append(b.Assignees, b.Assignees[0])

	errs := ValidateBundle(b)
	require.Len(t, errs, 6)
	assert.Contains(t, errs[0].Error(), "version")
	assert.Contains(t, errs[1].Error(), "not a Monday")
	assert.Contains(t, errs[2].Error(), "status")
	assert.Contains(t, errs[3].Error(), "weekly_plan_id")
	assert.Contains(t, errs[4].Error(), "spent_hours")
	assert.Contains(t, errs[5].Error(), "duplicate link")
}

func TestValidateBundle_Identities(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Bundle)
		want   string
	}{
		{"missing plan id", func(b *Bundle) { b.WeeklyPlans[0].WeeklyID = "" }, "weekly_id is required"},
		{"malformed plan id", func(b *Bundle) { b.WeeklyPlans[0].WeeklyID = "w1" }, "invalid identity"},
		{"duplicate plan", func(b *Bundle) { b.WeeklyPlans = append(b.WeeklyPlans, b.WeeklyPlans[0]) }, "duplicate id"},
		{"malformed quarterly", func(b *Bundle) { b.WeeklyPlans[0].QuarterlyID = ptrStr("q") }, "quarterly_id"},
		{"bad completion date", func(b *Bundle) { b.Tasks[0].CompletedAt = ptrStr("06.02.2025") }, "completed_at"},
		{"empty company", func(b *Bundle) { b.Companies[0].CompanyID = "" }, "target id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBundle()
			tt.mutate(b)
			errs := ValidateBundle(b)
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Error(), tt.want)
		})
	}
}
