package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
)

// EmployeeRepository 员工名册、现场资质与偏好仓储
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// CreateEmployee 创建员工
func (r *EmployeeRepository) CreateEmployee(ctx context.Context, emp *model.Employee) error {
	if emp.ID == uuid.Nil {
		emp.ID = uuid.New()
	}

	query := `INSERT INTO employees (id, name, role, is_active) VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, emp.ID, emp.Name, emp.Role, emp.IsActive); err != nil {
		return fmt.Errorf("创建员工失败: %w", err)
	}
	return nil
}

// ListActiveEmployees 列出在岗且属于指定角色的员工
func (r *EmployeeRepository) ListActiveEmployees(ctx context.Context, roles []model.Role) ([]*model.Employee, error) {
	query := `SELECT id, name, role, is_active FROM employees WHERE is_active = $1`
	args := []interface{}{true}

	if len(roles) > 0 {
		placeholders := make([]string, len(roles))
		for i, role := range roles {
			args = append(args, string(role))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += " AND role IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询员工列表失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp := &model.Employee{}
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Role, &emp.IsActive); err != nil {
			return nil, fmt.Errorf("扫描员工失败: %w", err)
		}
		employees = append(employees, emp)
	}

	return employees, rows.Err()
}

// CreateSite 创建客户现场
func (r *EmployeeRepository) CreateSite(ctx context.Context, id uuid.UUID, name string) error {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO sites (id, name) VALUES ($1, $2)`, id, name); err != nil {
		return fmt.Errorf("创建现场失败: %w", err)
	}
	return nil
}

// GrantClearance 授予或更新现场准入资质
func (r *EmployeeRepository) GrantClearance(ctx context.Context, c *model.SiteClearance) error {
	query := `
		INSERT INTO site_clearances (user_id, site_id, granted_at, valid_until)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, site_id) DO UPDATE SET
			granted_at = excluded.granted_at,
			valid_until = excluded.valid_until
	`

	if _, err := r.db.ExecContext(ctx, query, c.UserID, c.SiteID, utc(c.GrantedAt), nullTime(c.ValidUntil)); err != nil {
		return fmt.Errorf("授予现场资质失败: %w", err)
	}
	return nil
}

// GetClearance 获取员工的现场资质，无记录时返回 (nil, nil)
func (r *EmployeeRepository) GetClearance(ctx context.Context, userID, siteID uuid.UUID) (*model.SiteClearance, error) {
	query := `
		SELECT user_id, site_id, granted_at, valid_until
		FROM site_clearances
		WHERE user_id = $1 AND site_id = $2
	`

	c := &model.SiteClearance{}
	var validUntil sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID, siteID).Scan(&c.UserID, &c.SiteID, &c.GrantedAt, &validUntil)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询现场资质失败: %w", err)
	}
	c.ValidUntil = timePtr(validUntil)

	return c, nil
}

// HasValidClearance 检查员工在指定时间是否持有现场准入资质
func (r *EmployeeRepository) HasValidClearance(ctx context.Context, userID, siteID uuid.UUID, at time.Time) (bool, error) {
	query := `
		SELECT COUNT(*) FROM site_clearances
		WHERE user_id = $1 AND site_id = $2
			AND granted_at <= $3
			AND (valid_until IS NULL OR valid_until >= $3)
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, siteID, utc(at)).Scan(&count); err != nil {
		return false, fmt.Errorf("查询现场资质失败: %w", err)
	}
	return count > 0, nil
}

// UpsertPreferences 保存员工偏好
func (r *EmployeeRepository) UpsertPreferences(ctx context.Context, p *model.EmployeePreferences) error {
	preferred, err := encodeIDs(p.PreferredSiteIDs)
	if err != nil {
		return err
	}
	avoided, err := encodeIDs(p.AvoidedSiteIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO employee_preferences (
			user_id, prefers_night_shifts, prefers_day_shifts, prefers_weekends,
			target_monthly_hours, min_monthly_hours, max_monthly_hours, flexible_hours,
			prefers_long_shifts, prefers_short_shifts, prefers_consecutive_days,
			min_rest_days_per_week, preferred_site_ids, avoided_site_ids, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id) DO UPDATE SET
			prefers_night_shifts = excluded.prefers_night_shifts,
			prefers_day_shifts = excluded.prefers_day_shifts,
			prefers_weekends = excluded.prefers_weekends,
			target_monthly_hours = excluded.target_monthly_hours,
			min_monthly_hours = excluded.min_monthly_hours,
			max_monthly_hours = excluded.max_monthly_hours,
			flexible_hours = excluded.flexible_hours,
			prefers_long_shifts = excluded.prefers_long_shifts,
			prefers_short_shifts = excluded.prefers_short_shifts,
			prefers_consecutive_days = excluded.prefers_consecutive_days,
			min_rest_days_per_week = excluded.min_rest_days_per_week,
			preferred_site_ids = excluded.preferred_site_ids,
			avoided_site_ids = excluded.avoided_site_ids,
			notes = excluded.notes
	`

	_, err = r.db.ExecContext(ctx, query,
		p.UserID, p.PrefersNightShifts, p.PrefersDayShifts, p.PrefersWeekends,
		p.TargetMonthlyHours, p.MinMonthlyHours, p.MaxMonthlyHours, p.FlexibleHours,
		p.PrefersLongShifts, p.PrefersShortShifts, p.PrefersConsecutiveDays,
		p.MinRestDaysPerWeek, preferred, avoided, p.Notes,
	)
	if err != nil {
		return fmt.Errorf("保存员工偏好失败: %w", err)
	}
	return nil
}

// GetPreferences 获取员工偏好，无记录时返回 (nil, nil)
func (r *EmployeeRepository) GetPreferences(ctx context.Context, userID uuid.UUID) (*model.EmployeePreferences, error) {
	query := `
		SELECT user_id, prefers_night_shifts, prefers_day_shifts, prefers_weekends,
			target_monthly_hours, min_monthly_hours, max_monthly_hours, flexible_hours,
			prefers_long_shifts, prefers_short_shifts, prefers_consecutive_days,
			min_rest_days_per_week, preferred_site_ids, avoided_site_ids, notes
		FROM employee_preferences
		WHERE user_id = $1
	`

	p := &model.EmployeePreferences{}
	var preferred, avoided []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.PrefersNightShifts, &p.PrefersDayShifts, &p.PrefersWeekends,
		&p.TargetMonthlyHours, &p.MinMonthlyHours, &p.MaxMonthlyHours, &p.FlexibleHours,
		&p.PrefersLongShifts, &p.PrefersShortShifts, &p.PrefersConsecutiveDays,
		&p.MinRestDaysPerWeek, &preferred, &avoided, &p.Notes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询员工偏好失败: %w", err)
	}

	if p.PreferredSiteIDs, err = decodeIDs(preferred); err != nil {
		return nil, err
	}
	if p.AvoidedSiteIDs, err = decodeIDs(avoided); err != nil {
		return nil, err
	}

	return p, nil
}

func encodeIDs(ids []uuid.UUID) (string, error) {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("序列化现场列表失败: %w", err)
	}
	return string(data), nil
}

func decodeIDs(data []byte) ([]uuid.UUID, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("解析现场列表失败: %w", err)
	}
	return ids, nil
}
