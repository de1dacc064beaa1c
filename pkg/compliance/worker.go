package compliance

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paiban/replacement/pkg/logger"
	"github.com/paiban/replacement/pkg/model"
)

// Checker 单条分配的合规检查
type Checker interface {
	Check(ctx context.Context, assignmentID uuid.UUID) []model.ComplianceViolation
}

// Worker 异步合规检查队列
// 提交不阻塞，队列满或已停止时拒绝任务；同一分配在排队或检查期间只保留一份
type Worker struct {
	checker Checker
	workers int
	queue   chan uuid.UUID

	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
	stopped bool
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	log *zerolog.Logger
}

// NewWorker 创建检查队列
func NewWorker(checker Checker, workers, queueSize int) *Worker {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Worker{
		checker: checker,
		workers: workers,
		queue:   make(chan uuid.UUID, queueSize),
		pending: make(map[uuid.UUID]struct{}),
		log:     logger.Component("compliance"),
	}
}

// Start 启动工作协程
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for id := range w.queue {
				if runCtx.Err() == nil {
					w.checker.Check(runCtx, id)
				}
				w.done(id)
			}
		}()
	}

	w.log.Info().Int("workers", w.workers).Int("queue_size", cap(w.queue)).Msg("合规检查队列已启动")
}

// Submit 提交分配ID，返回是否已在队列中
func (w *Worker) Submit(assignmentID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	if _, ok := w.pending[assignmentID]; ok {
		return true
	}

	select {
	case w.queue <- assignmentID:
		w.pending[assignmentID] = struct{}{}
		return true
	default:
		w.log.Debug().Str("assignment_id", assignmentID.String()).Msg("合规检查队列已满，任务被拒绝")
		return false
	}
}

// Pending 排队或检查中的分配数量
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Worker) done(id uuid.UUID) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}

// Stop 停止接收任务并等待队列处理完毕
// ctx 到期时取消剩余检查并立即返回
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.queue)
	started := w.started
	w.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		w.log.Warn().Int("pending", len(w.queue)).Msg("合规检查队列未处理完即停止")
		return ctx.Err()
	}
}
