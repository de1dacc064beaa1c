package compliance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paiban/replacement/pkg/logger"
	"github.com/paiban/replacement/pkg/model"
)

// AssignmentFeed 按 (assigned_at, id) 游标读取尚未完成合规检查的分配
type AssignmentFeed interface {
	ListUncheckedAssignments(ctx context.Context, after model.AssignmentCursor, limit int) ([]model.ShiftAssignment, error)
}

// Submitter 接收待检查的分配
// 已在队列或正在检查的分配应直接返回 true
type Submitter interface {
	Submit(assignmentID uuid.UUID) bool
}

// DefaultLookback 轮询回看范围
const DefaultLookback = 7 * 24 * time.Hour

// Watcher 轮询未检查的分配并提交合规检查
// 每轮从 now-lookback 起按游标扫描全部未检查分配，
// 因此同一时间戳的多条分配、晚提交的事务与停机期间的分配都不会遗漏
type Watcher struct {
	feed      AssignmentFeed
	submitter Submitter
	interval  time.Duration
	lookback  time.Duration
	batchSize int
	now       func() time.Time
	log       *zerolog.Logger
}

// NewWatcher 创建轮询器
func NewWatcher(feed AssignmentFeed, submitter Submitter, interval, lookback time.Duration) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Watcher{
		feed:      feed,
		submitter: submitter,
		interval:  interval,
		lookback:  lookback,
		batchSize: 500,
		now:       time.Now,
		log:       logger.Component("compliance"),
	}
}

// Poll 扫描一轮并提交，返回被接收的数量
// 队列已满而未接收的分配保持未检查状态，下一轮重试
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	cursor := model.AssignmentCursor{AssignedAt: w.now().Add(-w.lookback)}
	accepted, rejected := 0, 0

	for {
		batch, err := w.feed.ListUncheckedAssignments(ctx, cursor, w.batchSize)
		if err != nil {
			return accepted, err
		}

		for i := range batch {
			if w.submitter.Submit(batch[i].ID) {
				accepted++
			} else {
				rejected++
			}
			cursor = batch[i].Cursor()
		}

		if len(batch) < w.batchSize {
			break
		}
	}

	if rejected > 0 {
		w.log.Warn().Int("rejected", rejected).Msg("合规检查队列已满，部分分配留待下一轮")
	}
	return accepted, nil
}

// Run 立即轮询一次，之后按间隔轮询，直到 ctx 取消
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("读取待检查分配失败")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
