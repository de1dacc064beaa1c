package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
)

// WorkloadRepository 月度工作量快照仓储
type WorkloadRepository struct {
	db DB
}

// NewWorkloadRepository 创建工作量仓储
func NewWorkloadRepository(db DB) *WorkloadRepository {
	return &WorkloadRepository{db: db}
}

const workloadColumns = `id, user_id, month, year, total_hours, scheduled_hours,
	night_shift_count, weekend_shift_count, consecutive_days_worked, rest_days_count,
	max_weekly_hours, min_rest_hours_between_shifts, replacement_count,
	fairness_score, last_calculated`

// Upsert 写入快照，(user_id, month, year) 已存在时整行覆盖
func (r *WorkloadRepository) Upsert(ctx context.Context, w *model.EmployeeWorkload) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	query := `
		INSERT INTO employee_workloads (` + workloadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id, month, year) DO UPDATE SET
			total_hours = excluded.total_hours,
			scheduled_hours = excluded.scheduled_hours,
			night_shift_count = excluded.night_shift_count,
			weekend_shift_count = excluded.weekend_shift_count,
			consecutive_days_worked = excluded.consecutive_days_worked,
			rest_days_count = excluded.rest_days_count,
			max_weekly_hours = excluded.max_weekly_hours,
			min_rest_hours_between_shifts = excluded.min_rest_hours_between_shifts,
			replacement_count = excluded.replacement_count,
			fairness_score = excluded.fairness_score,
			last_calculated = excluded.last_calculated
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		w.ID, w.UserID, w.Month, w.Year, w.TotalHours, w.ScheduledHours,
		w.NightShiftCount, w.WeekendShiftCount, w.ConsecutiveDaysWorked, w.RestDaysCount,
		w.MaxWeeklyHours, w.MinRestHoursBetweenShifts, w.ReplacementCount,
		w.FairnessScore, utc(w.LastCalculated),
	).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("保存工作量快照失败: %w", err)
	}

	return nil
}

// GetWorkload 获取员工某月快照，无记录时返回 (nil, nil)
func (r *WorkloadRepository) GetWorkload(ctx context.Context, userID uuid.UUID, month, year int) (*model.EmployeeWorkload, error) {
	query := `SELECT ` + workloadColumns + `
		FROM employee_workloads
		WHERE user_id = $1 AND month = $2 AND year = $3
	`

	w, err := scanWorkload(r.db.QueryRowContext(ctx, query, userID, month, year))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询工作量快照失败: %w", err)
	}

	return w, nil
}

// ListByPeriod 列出某月全部快照
func (r *WorkloadRepository) ListByPeriod(ctx context.Context, month, year int) ([]*model.EmployeeWorkload, error) {
	query := `SELECT ` + workloadColumns + `
		FROM employee_workloads
		WHERE month = $1 AND year = $2
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query, month, year)
	if err != nil {
		return nil, fmt.Errorf("查询月度快照失败: %w", err)
	}
	defer rows.Close()

	var workloads []*model.EmployeeWorkload
	for rows.Next() {
		w, err := scanWorkload(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描工作量快照失败: %w", err)
		}
		workloads = append(workloads, w)
	}

	return workloads, rows.Err()
}

// CountByPeriod 统计某月快照数量
func (r *WorkloadRepository) CountByPeriod(ctx context.Context, month, year int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employee_workloads WHERE month = $1 AND year = $2`, month, year,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("统计月度快照失败: %w", err)
	}
	return count, nil
}

// UpdateRefresh 周任务刷新替班次数与公平性评分
func (r *WorkloadRepository) UpdateRefresh(ctx context.Context, id uuid.UUID, replacementCount int, fairness float64, at time.Time) error {
	query := `
		UPDATE employee_workloads
		SET replacement_count = $2, fairness_score = $3, last_calculated = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, replacementCount, fairness, utc(at))
	if err != nil {
		return fmt.Errorf("刷新工作量快照失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("工作量快照不存在")
	}

	return nil
}

func scanWorkload(s Scanner) (*model.EmployeeWorkload, error) {
	w := &model.EmployeeWorkload{}
	err := s.Scan(
		&w.ID, &w.UserID, &w.Month, &w.Year, &w.TotalHours, &w.ScheduledHours,
		&w.NightShiftCount, &w.WeekendShiftCount, &w.ConsecutiveDaysWorked, &w.RestDaysCount,
		&w.MaxWeeklyHours, &w.MinRestHoursBetweenShifts, &w.ReplacementCount,
		&w.FairnessScore, &w.LastCalculated,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}
