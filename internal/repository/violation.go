package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
)

// ViolationRepository 合规违规记录仓储（只追加）
type ViolationRepository struct {
	db DB
}

// NewViolationRepository 创建违规记录仓储
func NewViolationRepository(db DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// AppendViolation 追加一条违规记录
func (r *ViolationRepository) AppendViolation(ctx context.Context, v *model.ComplianceViolation) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO compliance_violations (
			id, user_id, shift_id, violation_type, severity, description, value, threshold, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.UserID, v.ShiftID, v.ViolationType, v.Severity, v.Description,
		nullFloat(v.Value), nullFloat(v.Threshold), utc(v.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("写入违规记录失败: %w", err)
	}

	return nil
}

// ListByUser 按时间倒序列出员工的违规记录
func (r *ViolationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.ComplianceViolation, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, user_id, shift_id, violation_type, severity, description, value, threshold, created_at
		FROM compliance_violations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询违规记录失败: %w", err)
	}
	defer rows.Close()

	var violations []*model.ComplianceViolation
	for rows.Next() {
		v := &model.ComplianceViolation{}
		var value, threshold sql.NullFloat64
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.ShiftID, &v.ViolationType, &v.Severity, &v.Description,
			&value, &threshold, &v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描违规记录失败: %w", err)
		}
		v.Value = floatPtr(value)
		v.Threshold = floatPtr(threshold)
		violations = append(violations, v)
	}

	return violations, rows.Err()
}

// MarkAssignmentChecked 记录分配已完成合规检查，重复调用无副作用
func (r *ViolationRepository) MarkAssignmentChecked(ctx context.Context, assignmentID uuid.UUID, at time.Time) error {
	query := `
		INSERT INTO compliance_checks (assignment_id, checked_at)
		VALUES ($1, $2)
		ON CONFLICT (assignment_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, assignmentID, utc(at)); err != nil {
		return fmt.Errorf("记录合规检查失败: %w", err)
	}
	return nil
}

// IsAssignmentChecked 分配是否已完成合规检查
func (r *ViolationRepository) IsAssignmentChecked(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	query := `SELECT COUNT(*) FROM compliance_checks WHERE assignment_id = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, assignmentID).Scan(&count); err != nil {
		return false, fmt.Errorf("查询合规检查记录失败: %w", err)
	}
	return count > 0, nil
}
