package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
)

// ShiftRepository 班次与分配仓储
type ShiftRepository struct {
	db DB
}

// NewShiftRepository 创建班次仓储
func NewShiftRepository(db DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// CreateShift 创建班次
func (r *ShiftRepository) CreateShift(ctx context.Context, shift *model.Shift) error {
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	if shift.Status == "" {
		shift.Status = model.ShiftStatusOpen
	}

	query := `
		INSERT INTO shifts (id, site_id, start_time, end_time, required_employees, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var siteID uuid.NullUUID
	if shift.SiteID != nil {
		siteID = uuid.NullUUID{UUID: *shift.SiteID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		shift.ID, siteID, utc(shift.StartTime), utc(shift.EndTime),
		shift.RequiredEmployees, shift.Status,
	)
	if err != nil {
		return fmt.Errorf("创建班次失败: %w", err)
	}

	return nil
}

// GetShift 根据ID获取班次
func (r *ShiftRepository) GetShift(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	query := `
		SELECT id, site_id, start_time, end_time, required_employees, status
		FROM shifts
		WHERE id = $1
	`

	shift := &model.Shift{}
	var siteID uuid.NullUUID
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&shift.ID, &siteID, &shift.StartTime, &shift.EndTime,
		&shift.RequiredEmployees, &shift.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}
	if siteID.Valid {
		shift.SiteID = &siteID.UUID
	}

	return shift, nil
}

// CreateAssignment 创建排班分配
func (r *ShiftRepository) CreateAssignment(ctx context.Context, a *model.ShiftAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = model.AssignmentAssigned
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}

	query := `
		INSERT INTO shift_assignments (id, user_id, shift_id, status, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, a.ID, a.UserID, a.ShiftID, a.Status, utc(a.AssignedAt))
	if err != nil {
		return fmt.Errorf("创建排班分配失败: %w", err)
	}

	return nil
}

// GetAssignment 根据ID获取分配
func (r *ShiftRepository) GetAssignment(ctx context.Context, id uuid.UUID) (*model.ShiftAssignment, error) {
	query := `
		SELECT id, user_id, shift_id, status, assigned_at
		FROM shift_assignments
		WHERE id = $1
	`

	a := &model.ShiftAssignment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.UserID, &a.ShiftID, &a.Status, &a.AssignedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询排班分配失败: %w", err)
	}

	return a, nil
}

// UpdateAssignmentStatus 更新分配状态
func (r *ShiftRepository) UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE shift_assignments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("更新分配状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班分配不存在")
	}

	return nil
}

// ListUserAssignmentsInRange 查询员工在 [from, to) 内开始的计入统计的分配，按开始时间升序
func (r *ShiftRepository) ListUserAssignmentsInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.AssignedShift, error) {
	query := `
		SELECT a.id, a.user_id, a.shift_id, s.site_id, a.status, a.assigned_at, s.start_time, s.end_time
		FROM shift_assignments a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.user_id = $1
			AND s.start_time >= $2 AND s.start_time < $3
			AND a.status IN ` + countedStatusList + `
		ORDER BY s.start_time ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, utc(from), utc(to))
	if err != nil {
		return nil, fmt.Errorf("查询员工分配失败: %w", err)
	}
	defer rows.Close()

	var shifts []model.AssignedShift
	for rows.Next() {
		var a model.AssignedShift
		var siteID uuid.NullUUID
		if err := rows.Scan(
			&a.AssignmentID, &a.UserID, &a.ShiftID, &siteID, &a.Status,
			&a.AssignedAt, &a.StartTime, &a.EndTime,
		); err != nil {
			return nil, fmt.Errorf("扫描分配失败: %w", err)
		}
		if siteID.Valid {
			a.SiteID = &siteID.UUID
		}
		shifts = append(shifts, a)
	}

	return shifts, rows.Err()
}

// HasOverlappingAssignment 检查员工在时间段内是否已有计入的分配
func (r *ShiftRepository) HasOverlappingAssignment(ctx context.Context, userID uuid.UUID, start, end time.Time) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM shift_assignments a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.user_id = $1
			AND s.start_time < $3 AND s.end_time > $2
			AND a.status IN ` + countedStatusList

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, utc(start), utc(end)).Scan(&count); err != nil {
		return false, fmt.Errorf("检查班次冲突失败: %w", err)
	}

	return count > 0, nil
}

// ListUncheckedAssignments 按 (assigned_at, id) 升序列出游标之后、尚未完成合规检查的分配
func (r *ShiftRepository) ListUncheckedAssignments(ctx context.Context, after model.AssignmentCursor, limit int) ([]model.ShiftAssignment, error) {
	query := `
		SELECT a.id, a.user_id, a.shift_id, a.status, a.assigned_at
		FROM shift_assignments a
		WHERE (a.assigned_at > $1 OR (a.assigned_at = $1 AND a.id > $2))
			AND NOT EXISTS (
				SELECT 1 FROM compliance_checks c WHERE c.assignment_id = a.id
			)
		ORDER BY a.assigned_at ASC, a.id ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, utc(after.AssignedAt), after.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询待检查分配失败: %w", err)
	}
	defer rows.Close()

	var assignments []model.ShiftAssignment
	for rows.Next() {
		var a model.ShiftAssignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.ShiftID, &a.Status, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("扫描分配失败: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}
