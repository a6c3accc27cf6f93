package db

import (
	"database/sql"
	"fmt"
)

// Migrate creates the planning tables and indexes. Every statement is
// idempotent, so it runs on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// Hours are NUMERIC, dates are ISO-8601 text.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS annual_plans (
		annual_id     TEXT PRIMARY KEY,
		department_id TEXT NOT NULL,
		year          INTEGER NOT NULL,
		goal          TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_annual_department_year ON annual_plans(department_id, year)`,

	`CREATE TABLE IF NOT EXISTS quarterly_plans (
		quarterly_id    TEXT PRIMARY KEY,
		annual_plan_id  TEXT NOT NULL REFERENCES annual_plans(annual_id) ON DELETE CASCADE,
		department_id   TEXT,
		process_id      TEXT,
		quarter         INTEGER NOT NULL CHECK(quarter BETWEEN 1 AND 4),
		goal            TEXT,
		expected_result TEXT,
		status          TEXT NOT NULL DEFAULT 'approved'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quarterly_annual ON quarterly_plans(annual_plan_id)`,

	`CREATE TABLE IF NOT EXISTS weekly_plans (
		weekly_id       TEXT PRIMARY KEY,
		quarterly_id    TEXT REFERENCES quarterly_plans(quarterly_id) ON DELETE SET NULL,
		weekly_date     TEXT NOT NULL,
		expected_result TEXT,
		planned_hours   NUMERIC NOT NULL DEFAULT 0,
		status          TEXT NOT NULL CHECK(status IN ('active','completed'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_weekly_quarterly_date ON weekly_plans(quarterly_id, weekly_date)`,

	`CREATE TABLE IF NOT EXISTS weekly_plan_assignees (
		weekly_plan_id TEXT NOT NULL REFERENCES weekly_plans(weekly_id) ON DELETE CASCADE,
		user_id        TEXT NOT NULL,
		PRIMARY KEY (weekly_plan_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS weekly_plan_companies (
		weekly_id  TEXT NOT NULL REFERENCES weekly_plans(weekly_id) ON DELETE CASCADE,
		company_id TEXT NOT NULL,
		PRIMARY KEY (weekly_id, company_id)
	)`,

	`CREATE TABLE IF NOT EXISTS weekly_tasks (
		weekly_tasks_id TEXT PRIMARY KEY,
		weekly_plan_id  TEXT NOT NULL REFERENCES weekly_plans(weekly_id) ON DELETE CASCADE,
		user_id         TEXT,
		description     TEXT,
		spent_hours     NUMERIC NOT NULL DEFAULT 0,
		completed_at    TEXT,
		attachment_url  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_weekly_tasks_plan ON weekly_tasks(weekly_plan_id)`,
}
