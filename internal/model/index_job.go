package model

const (
	IndexJobStatusPending = "PENDING"
	IndexJobStatusRunning = "RUNNING"
	IndexJobStatusDone    = "DONE"
	IndexJobStatusFailed  = "FAILED"
)

// IndexJob is the audit record of one indexing attempt. A job is never reused;
// DONE and FAILED are terminal.
type IndexJob struct {
	ID           int64  `json:"id"`
	DocumentID   int64  `json:"document_id"`
	Status       string `json:"status"`
	StartedAt    int64  `json:"started_at,omitempty"`
	FinishedAt   int64  `json:"finished_at,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	TaskID       string `json:"task_id"`
	Ctime        int64  `json:"ctime"`
}
