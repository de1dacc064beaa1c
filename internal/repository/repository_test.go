package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/replacement/internal/testfixtures"
	"github.com/paiban/replacement/pkg/compliance"
	"github.com/paiban/replacement/pkg/model"
)

var base = time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)

func TestShiftRepository_GetShift(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	siteID := h.Site(t, "港口仓库")
	withSite := h.Shift(t, &siteID, base, 8)
	noSite := h.Shift(t, nil, base.Add(24*time.Hour), 8)

	got, err := h.Store.GetShift(ctx, withSite.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.SiteID)
	assert.Equal(t, siteID, *got.SiteID)
	assert.True(t, got.StartTime.Equal(base))
	assert.InDelta(t, 8.0, got.DurationHours(), 1e-9)

	got, err = h.Store.GetShift(ctx, noSite.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.SiteID)
	assert.False(t, got.HasSite())

	got, err = h.Store.GetShift(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestShiftRepository_ListUserAssignmentsInRange(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	emp := h.Employee(t, "张伟", model.RoleEmployee)
	other := h.Employee(t, "李娜", model.RoleEmployee)
	assignedAt := base.AddDate(0, 0, -7)

	second := h.Assign(t, emp.ID, base.Add(48*time.Hour), 8, model.AssignmentConfirmed, assignedAt)
	first := h.Assign(t, emp.ID, base, 8, model.AssignmentAssigned, assignedAt)
	h.Assign(t, emp.ID, base.Add(24*time.Hour), 8, model.AssignmentCancelled, assignedAt)
	h.Assign(t, emp.ID, base.AddDate(0, 1, 0), 8, model.AssignmentConfirmed, assignedAt)
	h.Assign(t, other.ID, base, 8, model.AssignmentConfirmed, assignedAt)

	shifts, err := h.Store.ListUserAssignmentsInRange(ctx, emp.ID, base.Add(-time.Hour), base.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, shifts, 2)

	assert.Equal(t, first.ID, shifts[0].AssignmentID)
	assert.Equal(t, second.ID, shifts[1].AssignmentID)
	assert.Equal(t, model.AssignmentAssigned, shifts[0].Status)
	assert.True(t, shifts[0].AssignedAt.Equal(assignedAt))
	assert.InDelta(t, 8.0, shifts[1].WorkingHours(), 1e-9)

	// 区间左闭右开
	shifts, err = h.Store.ListUserAssignmentsInRange(ctx, emp.ID, base.Add(time.Minute), base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, shifts)
}

func TestShiftRepository_HasOverlappingAssignment(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	emp := h.Employee(t, "王芳", model.RoleEmployee)
	h.Assign(t, emp.ID, base, 8, model.AssignmentConfirmed, base.AddDate(0, 0, -3))
	h.Assign(t, emp.ID, base.Add(24*time.Hour), 8, model.AssignmentDeclined, base.AddDate(0, 0, -3))

	tests := []struct {
		name     string
		start    time.Time
		hours    float64
		expected bool
	}{
		{"部分重叠", base.Add(4 * time.Hour), 8, true},
		{"完全包含", base.Add(time.Hour), 2, true},
		{"首尾相接", base.Add(8 * time.Hour), 8, false},
		{"已拒绝的分配不计", base.Add(24 * time.Hour), 8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := tt.start.Add(time.Duration(tt.hours * float64(time.Hour)))
			got, err := h.Store.HasOverlappingAssignment(ctx, emp.ID, tt.start, end)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestShiftRepository_AssignmentStatus(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	emp := h.Employee(t, "赵强", model.RoleEmployee)
	a := h.Assign(t, emp.ID, base, 8, model.AssignmentAssigned, base.AddDate(0, 0, -1))

	require.NoError(t, h.Store.UpdateAssignmentStatus(ctx, a.ID, model.AssignmentCompleted))

	got, err := h.Store.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.AssignmentCompleted, got.Status)
	assert.Equal(t, emp.ID, got.UserID)

	assert.Error(t, h.Store.UpdateAssignmentStatus(ctx, uuid.New(), model.AssignmentCompleted))

	missing, err := h.Store.GetAssignment(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEmployeeRepository_ListActiveEmployees(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	guard := h.Employee(t, "保安甲", model.RoleEmployee)
	lead := h.Employee(t, "班长乙", model.RoleSupervisor)
	h.Employee(t, "调度丙", model.RoleDispatcher)

	inactive := &model.Employee{ID: uuid.New(), Name: "离职丁", Role: model.RoleEmployee, IsActive: false}
	require.NoError(t, h.Store.CreateEmployee(ctx, inactive))

	employees, err := h.Store.ListActiveEmployees(ctx, []model.Role{model.RoleEmployee, model.RoleSupervisor})
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(employees))
	for _, e := range employees {
		assert.True(t, e.IsActive)
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{guard.ID, lead.ID}, ids)

	all, err := h.Store.ListActiveEmployees(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEmployeeRepository_HasValidClearance(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	emp := h.Employee(t, "孙丽", model.RoleEmployee)
	permanent := h.Site(t, "银行总部")
	expiring := h.Site(t, "机场货站")
	none := h.Site(t, "展览中心")

	require.NoError(t, h.Store.GrantClearance(ctx, &model.SiteClearance{
		UserID: emp.ID, SiteID: permanent, GrantedAt: base.AddDate(0, -6, 0),
	}))
	until := base.AddDate(0, 0, 3)
	require.NoError(t, h.Store.GrantClearance(ctx, &model.SiteClearance{
		UserID: emp.ID, SiteID: expiring, GrantedAt: base.AddDate(0, -1, 0), ValidUntil: &until,
	}))

	tests := []struct {
		name     string
		site     uuid.UUID
		at       time.Time
		expected bool
	}{
		{"长期有效", permanent, base, true},
		{"授予之前", permanent, base.AddDate(-1, 0, 0), false},
		{"有效期内", expiring, base, true},
		{"有效期最后时刻", expiring, until, true},
		{"已过期", expiring, until.Add(time.Second), false},
		{"无资质", none, base, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Store.HasValidClearance(ctx, emp.ID, tt.site, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	c, err := h.Store.GetClearance(ctx, emp.ID, expiring)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NotNil(t, c.ValidUntil)
	assert.True(t, c.ValidUntil.Equal(until))
	assert.True(t, c.IsValidAt(base))
}

func TestEmployeeRepository_Preferences(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	emp := h.Employee(t, "周杰", model.RoleEmployee)
	preferred := h.Site(t, "商场东门")
	avoided := h.Site(t, "化工园区")

	got, err := h.Store.GetPreferences(ctx, emp.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	prefs := &model.EmployeePreferences{
		UserID:             emp.ID,
		PrefersNightShifts: true,
		TargetMonthlyHours: 150,
		MaxMonthlyHours:    170,
		PreferredSiteIDs:   []uuid.UUID{preferred},
		AvoidedSiteIDs:     []uuid.UUID{avoided},
		Notes:              "周末优先",
	}
	require.NoError(t, h.Store.UpsertPreferences(ctx, prefs))

	got, err = h.Store.GetPreferences(ctx, emp.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.PrefersNightShifts)
	assert.Equal(t, 150.0, got.TargetMonthlyHours)
	assert.True(t, got.PrefersSite(preferred))
	assert.True(t, got.AvoidsSite(avoided))
	assert.Equal(t, "周末优先", got.Notes)

	prefs.PrefersNightShifts = false
	prefs.AvoidedSiteIDs = nil
	require.NoError(t, h.Store.UpsertPreferences(ctx, prefs))

	got, err = h.Store.GetPreferences(ctx, emp.ID)
	require.NoError(t, err)
	assert.False(t, got.PrefersNightShifts)
	assert.Empty(t, got.AvoidedSiteIDs)
}

func TestWorkloadRepository_Upsert(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	emp := h.Employee(t, "吴敏", model.RoleEmployee)
	calculated := time.Date(2026, 1, 13, 1, 0, 0, 0, time.UTC)

	w := &model.EmployeeWorkload{
		UserID:                    emp.ID,
		Month:                     1,
		Year:                      2026,
		TotalHours:                96,
		ScheduledHours:            96,
		NightShiftCount:           3,
		ConsecutiveDaysWorked:     4,
		RestDaysCount:             19,
		MaxWeeklyHours:            40,
		MinRestHoursBetweenShifts: 11,
		FairnessScore:             100,
		LastCalculated:            calculated,
	}
	require.NoError(t, h.Store.Upsert(ctx, w))
	firstID := w.ID

	// 同一员工同月再次写入覆盖原记录
	again := *w
	again.ID = uuid.Nil
	again.TotalHours = 104
	again.ReplacementCount = 2
	again.LastCalculated = calculated.Add(24 * time.Hour)
	require.NoError(t, h.Store.Upsert(ctx, &again))
	assert.Equal(t, firstID, again.ID)

	count, err := h.Store.CountByPeriod(ctx, 1, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := h.Store.GetWorkload(ctx, emp.ID, 1, 2026)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 104.0, got.TotalHours)
	assert.Equal(t, 2, got.ReplacementCount)
	assert.Equal(t, 3, got.NightShiftCount)
	assert.True(t, got.LastCalculated.Equal(calculated.Add(24*time.Hour)))

	require.NoError(t, h.Store.UpdateRefresh(ctx, got.ID, 5, 87.5, calculated.Add(48*time.Hour)))

	list, err := h.Store.ListByPeriod(ctx, 1, 2026)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].ReplacementCount)
	assert.Equal(t, 87.5, list[0].FairnessScore)

	missing, err := h.Store.GetWorkload(ctx, emp.ID, 2, 2026)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, h.Store.UpdateRefresh(ctx, uuid.New(), 0, 100, calculated))
}

func TestViolationRepository_AppendViolation(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	userID := uuid.New()
	shiftID := uuid.New()
	value, threshold := 9.5, 11.0

	require.NoError(t, h.Store.AppendViolation(ctx, &model.ComplianceViolation{
		UserID:        userID,
		ShiftID:       shiftID,
		ViolationType: model.ViolationRestTime,
		Severity:      model.SeverityError,
		Description:   "休息时间不足",
		Value:         &value,
		Threshold:     &threshold,
		CreatedAt:     base,
	}))
	require.NoError(t, h.Store.AppendViolation(ctx, &model.ComplianceViolation{
		UserID:        userID,
		ShiftID:       shiftID,
		ViolationType: model.ViolationConsecutiveDays,
		Severity:      model.SeverityWarning,
		Description:   "连续工作天数超限",
		CreatedAt:     base.Add(time.Minute),
	}))

	violations, err := h.Store.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, violations, 2)

	assert.Equal(t, model.ViolationConsecutiveDays, violations[0].ViolationType)
	assert.Nil(t, violations[0].Value)

	assert.Equal(t, model.ViolationRestTime, violations[1].ViolationType)
	require.NotNil(t, violations[1].Value)
	assert.Equal(t, 9.5, *violations[1].Value)
	assert.Equal(t, 11.0, *violations[1].Threshold)
}

func TestShiftRepository_ListUncheckedAssignments(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	emp := h.Employee(t, "郑浩", model.RoleEmployee)
	before := h.Assign(t, emp.ID, base, 8, model.AssignmentAssigned, base.Add(-3*time.Hour))
	tied := base.Add(-2 * time.Hour)
	a := h.Assign(t, emp.ID, base.Add(24*time.Hour), 8, model.AssignmentAssigned, tied)
	b := h.Assign(t, emp.ID, base.Add(48*time.Hour), 8, model.AssignmentAssigned, tied)
	last := h.Assign(t, emp.ID, base.Add(72*time.Hour), 8, model.AssignmentAssigned, base.Add(-time.Hour))

	// 同一分配时间按 id 排序
	first, second := a, b
	if b.ID.String() < a.ID.String() {
		first, second = b, a
	}

	// 游标本身不返回
	got, err := h.Store.ListUncheckedAssignments(ctx, before.Cursor(), 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID, last.ID}, []uuid.UUID{got[0].ID, got[1].ID, got[2].ID})

	// 空 id 的游标包含该时刻的全部分配
	start := model.AssignmentCursor{AssignedAt: base.Add(-3 * time.Hour)}
	got, err = h.Store.ListUncheckedAssignments(ctx, start, 10)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, before.ID, got[0].ID)
	got = got[1:]

	// 游标停在同一时间戳的第一条时，第二条仍可读到
	got, err = h.Store.ListUncheckedAssignments(ctx, got[0].Cursor(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)

	// 已完成检查的分配不再返回
	require.NoError(t, h.Store.MarkAssignmentChecked(ctx, second.ID, base))
	require.NoError(t, h.Store.MarkAssignmentChecked(ctx, second.ID, base.Add(time.Hour)))

	got, err = h.Store.ListUncheckedAssignments(ctx, before.Cursor(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, last.ID, got[1].ID)

	checked, err := h.Store.IsAssignmentChecked(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, checked)

	checked, err = h.Store.IsAssignmentChecked(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, checked)
}

func TestStore_ComplianceTriggerChecksEachAssignmentOnce(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	emp := h.Employee(t, "冯磊", model.RoleEmployee)
	assignedAt := time.Now().Add(-time.Minute)
	// 两条分配同一时刻创建；第二班距前一班结束仅 2 小时
	h.Assign(t, emp.ID, base.Add(-10*time.Hour), 8, model.AssignmentAssigned, assignedAt)
	h.Assign(t, emp.ID, base, 8, model.AssignmentAssigned, assignedAt)

	detector := compliance.NewDetector(h.Store, time.UTC)
	runOnce := func() int {
		worker := compliance.NewWorker(detector, 2, 16)
		worker.Start(ctx)
		n, err := compliance.NewWatcher(h.Store, worker, time.Second, 24*time.Hour).Poll(ctx)
		require.NoError(t, err)

		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.NoError(t, worker.Stop(stopCtx))
		return n
	}

	assert.Equal(t, 2, runOnce())
	violations, err := h.Store.ListByUser(ctx, emp.ID, 10)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, model.ViolationRestTime, violations[0].ViolationType)

	assert.Equal(t, 0, runOnce())
	violations, err = h.Store.ListByUser(ctx, emp.ID, 10)
	require.NoError(t, err)
	assert.Len(t, violations, 1)
}
