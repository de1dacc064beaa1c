package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/replacement/internal/config"
	"github.com/paiban/replacement/internal/database"
	"github.com/paiban/replacement/internal/repository"
	"github.com/paiban/replacement/pkg/model"
)

// SQLiteHarness 基于临时 SQLite 文件的仓储测试环境
type SQLiteHarness struct {
	DB    *database.DB
	Store *repository.Store
}

// NewSQLiteHarness 创建并迁移临时数据库，测试结束时自动关闭
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	cfg := &config.DatabaseConfig{
		Driver:             "sqlite",
		Path:               filepath.Join(tb.TempDir(), "replacement.db"),
		MaxOpenConns:       4,
		MaxIdleConns:       4,
		ConnMaxLifetime:    time.Hour,
		SlowQueryThreshold: time.Second,
	}

	db, err := database.New(cfg)
	if err != nil {
		tb.Fatalf("打开测试数据库失败: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		tb.Fatalf("迁移测试数据库失败: %v", err)
	}

	return &SQLiteHarness{DB: db, Store: repository.NewStore(db)}
}

// Employee 写入一名在岗员工
func (h *SQLiteHarness) Employee(tb testing.TB, name string, role model.Role) *model.Employee {
	tb.Helper()

	emp := &model.Employee{ID: uuid.New(), Name: name, Role: role, IsActive: true}
	if err := h.Store.CreateEmployee(context.Background(), emp); err != nil {
		tb.Fatalf("写入员工失败: %v", err)
	}
	return emp
}

// Site 写入一个客户现场
func (h *SQLiteHarness) Site(tb testing.TB, name string) uuid.UUID {
	tb.Helper()

	id := uuid.New()
	if err := h.Store.CreateSite(context.Background(), id, name); err != nil {
		tb.Fatalf("写入现场失败: %v", err)
	}
	return id
}

// Shift 写入班次
func (h *SQLiteHarness) Shift(tb testing.TB, siteID *uuid.UUID, start time.Time, hours float64) *model.Shift {
	tb.Helper()

	shift := &model.Shift{
		ID:                uuid.New(),
		SiteID:            siteID,
		StartTime:         start,
		EndTime:           start.Add(time.Duration(hours * float64(time.Hour))),
		RequiredEmployees: 1,
		Status:            model.ShiftStatusFilled,
	}
	if err := h.Store.CreateShift(context.Background(), shift); err != nil {
		tb.Fatalf("写入班次失败: %v", err)
	}
	return shift
}

// Assign 写入班次及其分配
func (h *SQLiteHarness) Assign(tb testing.TB, userID uuid.UUID, start time.Time, hours float64, status model.AssignmentStatus, assignedAt time.Time) *model.ShiftAssignment {
	tb.Helper()

	shift := h.Shift(tb, nil, start, hours)
	a := &model.ShiftAssignment{
		ID:         uuid.New(),
		UserID:     userID,
		ShiftID:    shift.ID,
		Status:     status,
		AssignedAt: assignedAt,
	}
	if err := h.Store.CreateAssignment(context.Background(), a); err != nil {
		tb.Fatalf("写入分配失败: %v", err)
	}
	return a
}
