package domain

const MailTypeAllocationReport = "allocation_report"

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type AllocationReportMailData struct {
	RunID       int64   `json:"runID"`
	BestPenalty float64 `json:"bestPenalty"`
	Generations int32   `json:"generations"`
}
