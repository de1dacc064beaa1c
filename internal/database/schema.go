package database

import (
	"context"
	"fmt"
	"strings"
)

// 表结构使用占位类型，按方言替换
//   {{uuid}}      postgres UUID / sqlite TEXT
//   {{timestamp}} postgres TIMESTAMPTZ / sqlite DATETIME
//   {{float}}     postgres DOUBLE PRECISION / sqlite REAL
//   {{json}}      postgres JSONB / sqlite TEXT
var schema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id {{uuid}} PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS sites (
		id {{uuid}} PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shifts (
		id {{uuid}} PRIMARY KEY,
		site_id {{uuid}} NULL REFERENCES sites(id),
		start_time {{timestamp}} NOT NULL,
		end_time {{timestamp}} NOT NULL,
		required_employees INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shifts_start ON shifts (start_time)`,
	`CREATE TABLE IF NOT EXISTS shift_assignments (
		id {{uuid}} PRIMARY KEY,
		user_id {{uuid}} NOT NULL REFERENCES employees(id),
		shift_id {{uuid}} NOT NULL REFERENCES shifts(id),
		status TEXT NOT NULL,
		assigned_at {{timestamp}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_user ON shift_assignments (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_shift ON shift_assignments (shift_id)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_assigned ON shift_assignments (assigned_at, id)`,
	`CREATE TABLE IF NOT EXISTS site_clearances (
		user_id {{uuid}} NOT NULL REFERENCES employees(id),
		site_id {{uuid}} NOT NULL REFERENCES sites(id),
		granted_at {{timestamp}} NOT NULL,
		valid_until {{timestamp}} NULL,
		PRIMARY KEY (user_id, site_id)
	)`,
	`CREATE TABLE IF NOT EXISTS employee_preferences (
		user_id {{uuid}} PRIMARY KEY REFERENCES employees(id),
		prefers_night_shifts BOOLEAN NOT NULL DEFAULT FALSE,
		prefers_day_shifts BOOLEAN NOT NULL DEFAULT FALSE,
		prefers_weekends BOOLEAN NOT NULL DEFAULT FALSE,
		target_monthly_hours {{float}} NOT NULL DEFAULT 0,
		min_monthly_hours {{float}} NOT NULL DEFAULT 0,
		max_monthly_hours {{float}} NOT NULL DEFAULT 0,
		flexible_hours BOOLEAN NOT NULL DEFAULT FALSE,
		prefers_long_shifts BOOLEAN NOT NULL DEFAULT FALSE,
		prefers_short_shifts BOOLEAN NOT NULL DEFAULT FALSE,
		prefers_consecutive_days BOOLEAN NOT NULL DEFAULT FALSE,
		min_rest_days_per_week INTEGER NOT NULL DEFAULT 0,
		preferred_site_ids {{json}} NOT NULL DEFAULT '[]',
		avoided_site_ids {{json}} NOT NULL DEFAULT '[]',
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS employee_workloads (
		id {{uuid}} PRIMARY KEY,
		user_id {{uuid}} NOT NULL REFERENCES employees(id),
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		total_hours {{float}} NOT NULL DEFAULT 0,
		scheduled_hours {{float}} NOT NULL DEFAULT 0,
		night_shift_count INTEGER NOT NULL DEFAULT 0,
		weekend_shift_count INTEGER NOT NULL DEFAULT 0,
		consecutive_days_worked INTEGER NOT NULL DEFAULT 0,
		rest_days_count INTEGER NOT NULL DEFAULT 0,
		max_weekly_hours {{float}} NOT NULL DEFAULT 0,
		min_rest_hours_between_shifts {{float}} NOT NULL DEFAULT 11,
		replacement_count INTEGER NOT NULL DEFAULT 0,
		fairness_score {{float}} NOT NULL DEFAULT 100,
		last_calculated {{timestamp}} NOT NULL,
		UNIQUE (user_id, month, year)
	)`,
	`CREATE TABLE IF NOT EXISTS compliance_violations (
		id {{uuid}} PRIMARY KEY,
		user_id {{uuid}} NOT NULL,
		shift_id {{uuid}} NOT NULL,
		violation_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		description TEXT NOT NULL,
		value {{float}} NULL,
		threshold {{float}} NULL,
		created_at {{timestamp}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_violations_user ON compliance_violations (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS compliance_checks (
		assignment_id {{uuid}} PRIMARY KEY,
		checked_at {{timestamp}} NOT NULL
	)`,
}

var dialectTypes = map[Dialect]*strings.Replacer{
	DialectPostgres: strings.NewReplacer(
		"{{uuid}}", "UUID",
		"{{timestamp}}", "TIMESTAMPTZ",
		"{{float}}", "DOUBLE PRECISION",
		"{{json}}", "JSONB",
	),
	DialectSQLite: strings.NewReplacer(
		"{{uuid}}", "TEXT",
		"{{timestamp}}", "DATETIME",
		"{{float}}", "REAL",
		"{{json}}", "TEXT",
	),
}

// SchemaStatements 返回指定方言的建表语句
func SchemaStatements(dialect Dialect) []string {
	r, ok := dialectTypes[dialect]
	if !ok {
		return nil
	}
	stmts := make([]string, len(schema))
	for i, s := range schema {
		stmts[i] = r.Replace(s)
	}
	return stmts
}

// Migrate 创建表结构（幂等）
func (db *DB) Migrate(ctx context.Context) error {
	stmts := SchemaStatements(db.dialect)
	if stmts == nil {
		return fmt.Errorf("不支持的数据库方言: %s", db.dialect)
	}

	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("执行迁移语句 %d 失败: %w", i+1, err)
		}
	}

	db.log.Info().Int("statements", len(stmts)).Msg("数据库迁移完成")
	return nil
}
