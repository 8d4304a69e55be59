package domain

// OptimizationMessage 是投递到 optimization_queue 中的任务消息
type OptimizationMessage struct {
	RunID int64 `json:"runID"`
}
