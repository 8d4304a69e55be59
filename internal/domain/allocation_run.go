package domain

import "time"

type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusFinished RunStatus = "finished"
	RunStatusFailed   RunStatus = "failed"
)

type AffinityPair struct {
	First  string `json:"first" validate:"required"`
	Second string `json:"second" validate:"required,nefield=First"`
}

type AllocationPlacement struct {
	Position  int32  `json:"position"`
	ProductID string `json:"productID"`
	ShelfID   string `json:"shelfID"`
}

// AllocationRun 是一次优化任务，参数在创建时确定，结果在 worker 完成后写入
type AllocationRun struct {
	ID             int64                 `json:"id"`
	Status         RunStatus             `json:"status"`
	PopulationSize int32                 `json:"populationSize"`
	Generations    int32                 `json:"generations"`
	MutationRate   float64               `json:"mutationRate"`
	AffinityPairs  []AffinityPair        `json:"affinityPairs"`
	Seed           int64                 `json:"seed"`
	NotifyEmail    string                `json:"notifyEmail"`
	BestPenalty    *float64              `json:"bestPenalty"` // 还没有结果时为 nil
	History        []float64             `json:"history,omitempty"`
	ErrorMessage   string                `json:"errorMessage,omitempty"`
	Placements     []AllocationPlacement `json:"placements,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	FinishedAt     *time.Time            `json:"finishedAt"`
	Version        int32                 `json:"-"`
}
