// Package importer reads timesheet workbooks and moves aggregated plans
// through the JSON plan bundle.
package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

const BundleVersion = 1

// Bundle is the intermediate file between building plans from a workbook
// and writing them to a store. Fields prefixed with an underscore are
// provenance only and never reach the store.
type Bundle struct {
	Version     int                `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	WeeklyPlans []WeeklyPlanImport `json:"weekly_plans"`
	Tasks       []TaskImport       `json:"weekly_tasks"`
	Assignees   []AssigneeImport   `json:"weekly_plan_assignees"`
	Companies   []CompanyImport    `json:"weekly_plan_companies"`
}

type WeeklyPlanImport struct {
	WeeklyID       string          `json:"weekly_id"`
	QuarterlyID    *string         `json:"quarterly_id"`
	WeeklyDate     string          `json:"weekly_date"`
	ExpectedResult string          `json:"expected_result"`
	PlannedHours   decimal.Decimal `json:"planned_hours"`
	Status         string          `json:"status"`

	MainTask        string  `json:"_main_task,omitempty"`
	Week            int     `json:"_week_number,omitempty"`
	Year            int     `json:"_year,omitempty"`
	ProcessLabel    *string `json:"_process_label,omitempty"`
	ProcessID       *string `json:"_process_id,omitempty"`
	ProcessName     string  `json:"_process_name,omitempty"`
	DepartmentLabel *string `json:"_department,omitempty"`
	DepartmentID    *string `json:"_department_id,omitempty"`
}

type TaskImport struct {
	WeeklyTasksID string          `json:"weekly_tasks_id"`
	WeeklyPlanID  string          `json:"weekly_plan_id"`
	UserID        *string         `json:"user_id"`
	Description   string          `json:"description"`
	SpentHours    decimal.Decimal `json:"spent_hours"`
	CompletedAt   *string         `json:"completed_at"`
	AttachmentURL *string         `json:"attachment_url,omitempty"`
}

type AssigneeImport struct {
	WeeklyPlanID string `json:"weekly_plan_id"`
	UserID       string `json:"user_id"`
}

type CompanyImport struct {
	WeeklyID  string `json:"weekly_id"`
	CompanyID string `json:"company_id"`
}

// LoadBundle reads and parses a plan bundle file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing bundle %s: %w", path, err)
	}
	return &b, nil
}

// SaveBundle writes b as indented JSON, replacing path.
func SaveBundle(path string, b *Bundle) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing bundle %s: %w", path, err)
	}
	return nil
}
