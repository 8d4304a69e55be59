package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/progress"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/report"
)

var (
	ErrRunNotFound   = errors.New("优化任务不存在")
	ErrRunNotPending = errors.New("优化任务已被处理")
)

// Store 是 worker 需要的持久化操作，由 repository.Repository 实现
type Store interface {
	GetAllocationRunByID(id int64) (*domain.AllocationRun, error)
	GetCatalog() (*domain.Catalog, error)
	MarkAllocationRunRunning(run *domain.AllocationRun) error
	FinishAllocationRun(run *domain.AllocationRun) error
	ResetAllocationRun(run *domain.AllocationRun) error
	MarkAllocationRunFailed(run *domain.AllocationRun, message string) error
}

type ProgressStore interface {
	Set(ctx context.Context, p *progress.Progress) error
}

// Notifier 把邮件消息投递到邮件队列
type Notifier interface {
	Notify(ctx context.Context, message domain.MailMessage) error
}

type Options struct {
	Concurrency      int
	ProgressInterval int32
	ProgressTimeout  time.Duration
}

type Worker struct {
	store    Store
	progress ProgressStore
	notifier Notifier
	metrics  *metrics.Metrics
	options  Options
}

func New(store Store, progressStore ProgressStore, notifier Notifier, m *metrics.Metrics, options Options) *Worker {
	if options.Concurrency < 1 {
		options.Concurrency = 1
	}
	if options.ProgressTimeout <= 0 {
		options.ProgressTimeout = 5 * time.Second
	}

	return &Worker{
		store:    store,
		progress: progressStore,
		notifier: notifier,
		metrics:  m,
		options:  options,
	}
}

// Process 执行一次优化任务。
// 返回 ErrRunNotFound 或 ErrRunNotPending 时消息不需要重新投递，
// 返回 context.Canceled 时任务已经放回待处理状态，消息需要重新投递
func (w *Worker) Process(ctx context.Context, runID int64) error {
	run, err := w.store.GetAllocationRunByID(runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRunNotFound
		}
		return err
	}
	if run.Status != domain.RunStatusPending {
		return ErrRunNotPending
	}

	catalog, err := w.store.GetCatalog()
	if err != nil {
		if errors.Is(err, domain.ErrEmptyShelves) || errors.Is(err, domain.ErrEmptyProducts) {
			return w.store.MarkAllocationRunFailed(run, err.Error())
		}
		return err
	}

	if err := w.store.MarkAllocationRunRunning(run); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRunNotPending
		}
		return err
	}

	params := optimizer.Parameters{
		PopulationSize: run.PopulationSize,
		Generations:    run.Generations,
		MutationRate:   run.MutationRate,
		AffinityPairs:  run.AffinityPairs,
		Seed:           run.Seed,
		Concurrency:    w.options.Concurrency,
	}

	opt, err := optimizer.New(params, catalog, nil)
	if err != nil {
		return w.store.MarkAllocationRunFailed(run, err.Error())
	}

	slog.Info("开始优化", "runID", run.ID, "populationSize", run.PopulationSize, "generations", run.Generations, "products", catalog.ProductCount(), "shelves", catalog.ShelfCount())

	w.metrics.RunStarted()
	start := time.Now()

	result, err := opt.Optimize(ctx, func(gen int32, bestPenalty float64) {
		if !progress.ShouldReport(gen, run.Generations, w.options.ProgressInterval) {
			return
		}
		w.reportProgress(ctx, &progress.Progress{
			RunID:       run.ID,
			Generation:  gen,
			Generations: run.Generations,
			BestPenalty: bestPenalty,
			UpdatedAt:   time.Now(),
		})
	})
	if errors.Is(err, context.Canceled) {
		// worker 正在退出，任务放回待处理，消息重新入队后由下一个 worker 处理
		w.metrics.RunInterrupted(time.Since(start))
		if resetErr := w.store.ResetAllocationRun(run); resetErr != nil {
			slog.Error("无法重置被中断的任务", "runID", run.ID, "error", resetErr)
		}
		slog.Warn("优化被中断，任务已放回队列", "runID", run.ID)
		return err
	}
	if err != nil {
		w.metrics.RunFailed(time.Since(start))
		if failErr := w.store.MarkAllocationRunFailed(run, fmt.Sprintf("优化失败: %v", err)); failErr != nil {
			slog.Error("无法标记任务失败", "runID", run.ID, "error", failErr)
		}
		return err
	}

	run.BestPenalty = &result.Penalty
	run.History = result.History
	run.Placements = report.PlacementsFromAssignment(catalog, result.Assignment)

	if err := w.store.FinishAllocationRun(run); err != nil {
		w.metrics.RunFailed(time.Since(start))
		if failErr := w.store.MarkAllocationRunFailed(run, fmt.Sprintf("保存结果失败: %v", err)); failErr != nil {
			slog.Error("无法标记任务失败", "runID", run.ID, "error", failErr)
		}
		return err
	}

	duration := time.Since(start)
	w.metrics.RunFinished(duration, result.Generations, result.Penalty)
	slog.Info("优化完成", "runID", run.ID, "bestPenalty", result.Penalty, "duration", duration)

	if run.NotifyEmail != "" {
		w.notify(ctx, run)
	}

	return nil
}

// reportProgress 失败只记录日志，不影响优化本身
func (w *Worker) reportProgress(ctx context.Context, p *progress.Progress) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.options.ProgressTimeout)
	defer cancel()

	if err := w.progress.Set(ctx, p); err != nil {
		slog.Warn("无法写入优化进度", "runID", p.RunID, "generation", p.Generation, "error", err)
	}
}

func (w *Worker) notify(ctx context.Context, run *domain.AllocationRun) {
	message := domain.MailMessage{
		Type: domain.MailTypeAllocationReport,
		To:   run.NotifyEmail,
		Data: domain.AllocationReportMailData{
			RunID:       run.ID,
			BestPenalty: *run.BestPenalty,
			Generations: run.Generations,
		},
	}

	if err := w.notifier.Notify(ctx, message); err != nil {
		slog.Error("无法发送报告邮件", "runID", run.ID, "to", run.NotifyEmail, "error", err)
	}
}
