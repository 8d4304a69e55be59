package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/progress"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type evaluationResponse struct {
	Penalty    float64                 `json:"penalty"`
	Violations int                     `json:"violations"`
	Rules      []optimizer.RulePenalty `json:"rules"`
	Rows       []report.Row            `json:"rows"`
}

func (h *Handler) EvaluateAllocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Assignment    map[string]string      `json:"assignment" validate:"required,min=1"`
		AffinityPairs *[]domain.AffinityPair `json:"affinityPairs" validate:"omitempty,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	pairs := h.defaultParameters().AffinityPairs
	if req.AffinityPairs != nil {
		pairs = *req.AffinityPairs
	}
	// 和创建任务走同一套关联商品对的检查
	if err := optimizer.ValidateAffinityPairs(pairs); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	c, ok := h.loadCatalog(w, r)
	if !ok {
		return
	}

	// 按目录中商品的顺序构造染色体
	assignment := make(optimizer.Assignment, c.ProductCount())
	for i, product := range c.Products() {
		shelfID, ok := req.Assignment[product.ID]
		if !ok {
			h.errorResponse(w, r, fmt.Sprintf("商品 %s 未分配货架", product.ID))
			return
		}
		assignment[i] = shelfID
	}
	if len(req.Assignment) != c.ProductCount() {
		h.errorResponse(w, r, "分配方案中包含不存在的商品")
		return
	}

	breakdown, err := optimizer.NewEvaluator(c, pairs).Breakdown(assignment)
	if err != nil {
		switch {
		case errors.Is(err, optimizer.ErrUnknownShelf):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	rows, err := report.BuildRows(c, assignment)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "评估成功", evaluationResponse{
		Penalty:    breakdown.Total(),
		Violations: breakdown.Violations,
		Rules:      breakdown.Rules(),
		Rows:       rows,
	})
}

func (h *Handler) defaultParameters() optimizer.Parameters {
	params, err := h.config.OptimizerParameters()
	if err != nil {
		// 启动时已经校验过配置
		return optimizer.DefaultParameters()
	}
	return params
}

func (h *Handler) CreateAllocationRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PopulationSize *int32                 `json:"populationSize" validate:"omitempty,min=1"`
		Generations    *int32                 `json:"generations" validate:"omitempty,min=1"`
		MutationRate   *float64               `json:"mutationRate" validate:"omitempty,gte=0,lte=1"`
		AffinityPairs  *[]domain.AffinityPair `json:"affinityPairs" validate:"omitempty,dive"`
		Seed           *int64                 `json:"seed"`
		NotifyEmail    string                 `json:"notifyEmail" validate:"omitempty,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 未给出的参数使用配置中的默认值
	params := h.defaultParameters()
	if req.PopulationSize != nil {
		params.PopulationSize = *req.PopulationSize
	}
	if req.Generations != nil {
		params.Generations = *req.Generations
	}
	if req.MutationRate != nil {
		params.MutationRate = *req.MutationRate
	}
	if req.AffinityPairs != nil {
		params.AffinityPairs = *req.AffinityPairs
	}
	params.Seed = time.Now().UnixNano()
	if req.Seed != nil {
		params.Seed = *req.Seed
	}
	if err := params.Validate(); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	// 目录不足以运行遗传算法时直接拒绝
	c, ok := h.loadCatalog(w, r)
	if !ok {
		return
	}
	if c.ProductCount() < 2 {
		h.errorResponse(w, r, "至少需要两个商品才能进行优化")
		return
	}

	run := &domain.AllocationRun{
		PopulationSize: params.PopulationSize,
		Generations:    params.Generations,
		MutationRate:   params.MutationRate,
		AffinityPairs:  params.AffinityPairs,
		Seed:           params.Seed,
		NotifyEmail:    req.NotifyEmail,
	}
	if run.AffinityPairs == nil {
		run.AffinityPairs = []domain.AffinityPair{}
	}
	if err := h.repository.CreateAllocationRun(run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 把任务发送到消息队列中，由 worker 执行
	body, err := json.Marshal(domain.OptimizationMessage{RunID: run.ID})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.channel.PublishWithContext(
		ctx,
		"",
		h.config.RabbitMQ.OptimizationQueue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "已提交优化任务", run)
}

func (h *Handler) GetAllAllocationRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repository.GetAllAllocationRuns()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有优化任务成功", runs)
}

func (h *Handler) GetAllocationRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(AllocationRunCtx).(*domain.AllocationRun)

	h.successResponse(w, r, "获取优化任务成功", run)
}

func (h *Handler) DeleteAllocationRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(AllocationRunCtx).(*domain.AllocationRun)

	if run.Status == domain.RunStatusRunning {
		h.errorResponse(w, r, "优化任务正在运行，无法删除")
		return
	}

	if err := h.repository.DeleteAllocationRun(run.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.progressStore.Delete(r.Context(), run.ID); err != nil {
		h.logInternalServerError(r, err)
	}

	h.successResponse(w, r, "删除优化任务成功", nil)
}

func (h *Handler) GetAllocationPlacements(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(AllocationRunCtx).(*domain.AllocationRun)

	placements, err := h.repository.GetAllocationPlacements(run.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取分配结果成功", placements)
}

func (h *Handler) GetAllocationProgress(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(AllocationRunCtx).(*domain.AllocationRun)

	p, err := h.progressStore.Get(r.Context(), run.ID)
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrNotFound):
			// 进度过期后用任务本身的结果代替
			if run.Status == domain.RunStatusFinished && run.BestPenalty != nil {
				updatedAt := run.CreatedAt
				if run.FinishedAt != nil {
					updatedAt = *run.FinishedAt
				}
				h.successResponse(w, r, "获取优化进度成功", &progress.Progress{
					RunID:       run.ID,
					Generation:  run.Generations,
					Generations: run.Generations,
					BestPenalty: *run.BestPenalty,
					UpdatedAt:   updatedAt,
				})
				return
			}
			h.errorResponse(w, r, "暂无优化进度")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取优化进度成功", p)
}

// finishedRunReport 读取目录和分配结果，重新计算报告
func (h *Handler) finishedRunReport(w http.ResponseWriter, r *http.Request) ([]report.Row, report.Summary, bool) {
	run := r.Context().Value(AllocationRunCtx).(*domain.AllocationRun)

	c, ok := h.loadCatalog(w, r)
	if !ok {
		return nil, report.Summary{}, false
	}

	placements, err := h.repository.GetAllocationPlacements(run.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return nil, report.Summary{}, false
	}
	run.Placements = placements

	rows, summary, err := report.FromRun(c, run)
	if err != nil {
		// 目录在任务完成后被替换过，可能连商品都对不上，也可能只是属性改了
		h.errorResponse(w, r, "当前目录与优化任务不一致，无法生成报告")
		return nil, report.Summary{}, false
	}

	return rows, summary, true
}

func (h *Handler) GetAllocationReport(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(AllocationRunCtx).(*domain.AllocationRun)

	rows, summary, ok := h.finishedRunReport(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteExcel(&buf, rows, summary); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeFile(w, r, xlsxContentType, fmt.Sprintf("allocation_%d.xlsx", run.ID), buf.Bytes())
}

func (h *Handler) GetAllocationConvergence(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(AllocationRunCtx).(*domain.AllocationRun)

	var buf bytes.Buffer
	if err := report.RenderConvergence(&buf, fmt.Sprintf("优化任务 #%d", run.ID), run.History); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeFile(w, r, "text/html; charset=utf-8", "", buf.Bytes())
}
