package jobrun

const (
	WorkflowName = "job_run"
	ActivityTick = "job_run_tick"
)

type TickResult struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Message  string `json:"message,omitempty"`

	// Retryable is set on a failed job that still has attempts left.
	Retryable bool `json:"retryable,omitempty"`
}
