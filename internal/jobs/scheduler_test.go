package jobs_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/replacement/internal/jobs"
)

var defaultRules = jobs.Rules{
	Daily:  "FREQ=DAILY;BYHOUR=1;BYMINUTE=0;BYSECOND=0",
	Weekly: "FREQ=WEEKLY;BYDAY=MO;BYHOUR=2;BYMINUTE=0;BYSECOND=0",
}

type fakeJob struct {
	daily, weekly atomic.Int32
	dailyHook     func()
	weeklyErr     error
}

func (j *fakeJob) RunDaily(context.Context) (*jobs.RunReport, error) {
	j.daily.Add(1)
	if j.dailyHook != nil {
		j.dailyHook()
	}
	return &jobs.RunReport{Job: jobs.JobDaily, Succeeded: 1}, nil
}

func (j *fakeJob) RunWeekly(context.Context) (*jobs.RunReport, error) {
	j.weekly.Add(1)
	if j.weeklyErr != nil {
		return nil, j.weeklyErr
	}
	return &jobs.RunReport{Job: jobs.JobWeekly}, nil
}

type runRecorder struct {
	mu       sync.Mutex
	statuses map[string][]string
}

func (r *runRecorder) SetFairnessGini(string, float64) {}

func (r *runRecorder) RecordJobRun(job, status string, _ time.Duration, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[job] = append(r.statuses[job], status)
}

func TestScheduler_Next(t *testing.T) {
	s, err := jobs.NewScheduler(&fakeJob{}, defaultRules, berlin)
	require.NoError(t, err)

	tests := []struct {
		name     string
		job      string
		after    time.Time
		expected time.Time
	}{
		{"每日触发已过当天", jobs.JobDaily, local(20, 1).Add(30 * time.Minute), local(21, 1)},
		{"每日触发当天未到", jobs.JobDaily, local(20, 0), local(20, 1)},
		{"恰好在触发时刻", jobs.JobDaily, local(20, 1), local(21, 1)},
		{"每周触发到下周一", jobs.JobWeekly, local(20, 1), local(26, 2)},
		{"周一触发前", jobs.JobWeekly, local(26, 1), local(26, 2)},
		{"夏令时切换日", jobs.JobDaily, time.Date(2026, 3, 28, 12, 0, 0, 0, berlin), time.Date(2026, 3, 29, 1, 0, 0, 0, berlin)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := s.Next(tt.job, tt.after)
			require.NoError(t, err)
			assert.True(t, next.Equal(tt.expected), "Next() = %v, expected %v", next, tt.expected)
		})
	}

	_, err = s.Next("monthly", local(20, 1))
	assert.Error(t, err)
}

func TestScheduler_InvalidRule(t *testing.T) {
	_, err := jobs.NewScheduler(&fakeJob{}, jobs.Rules{Daily: "FREQ=SOMETIMES", Weekly: defaultRules.Weekly}, berlin)
	assert.Error(t, err)
}

func TestScheduler_TriggerSkipsOverlappingRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	job := &fakeJob{dailyHook: func() {
		close(started)
		<-release
	}}
	rec := &runRecorder{statuses: map[string][]string{}}

	s, err := jobs.NewScheduler(job, defaultRules, berlin, jobs.WithJobRecorder(rec))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Trigger(context.Background(), jobs.JobDaily)
		done <- err
	}()
	<-started

	_, err = s.Trigger(context.Background(), jobs.JobDaily)
	assert.ErrorIs(t, err, jobs.ErrAlreadyRunning)

	// 不同触发器互不影响
	_, err = s.Trigger(context.Background(), jobs.JobWeekly)
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), job.daily.Load())
	assert.Equal(t, []string{"skipped", "success"}, rec.statuses[jobs.JobDaily])
	assert.Equal(t, []string{"success"}, rec.statuses[jobs.JobWeekly])
}

func TestScheduler_TriggerFailure(t *testing.T) {
	rec := &runRecorder{statuses: map[string][]string{}}
	s, err := jobs.NewScheduler(&fakeJob{weeklyErr: errors.New("数据库不可用")}, defaultRules, berlin, jobs.WithJobRecorder(rec))
	require.NoError(t, err)

	_, err = s.Trigger(context.Background(), jobs.JobWeekly)
	assert.Error(t, err)
	assert.Equal(t, []string{"failure"}, rec.statuses[jobs.JobWeekly])

	_, err = s.Trigger(context.Background(), "monthly")
	assert.Error(t, err)
}

func TestScheduler_StartRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := &fakeJob{}
	job.dailyHook = func() {
		if job.daily.Load() >= 2 {
			cancel()
		}
	}

	fired := make(chan time.Time)
	close(fired)

	var waits sync.Map
	s, err := jobs.NewScheduler(job, defaultRules, berlin,
		jobs.WithSchedulerClock(func() time.Time { return local(20, 0) }),
		jobs.WithTimer(func(d time.Duration) <-chan time.Time {
			waits.Store(d, true)
			return fired
		}),
	)
	require.NoError(t, err)

	s.Start(ctx)

	finished := make(chan struct{})
	go func() {
		s.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("调度器未在取消后退出")
	}

	assert.GreaterOrEqual(t, job.daily.Load(), int32(2))
	// 00:00 距每日 01:00 触发一小时
	_, ok := waits.Load(time.Hour)
	assert.True(t, ok)
}
