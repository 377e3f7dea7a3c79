package scheduler

import (
	"context"
	"time"
)

// Job is a unit of background work driven by the scheduler
// ⭐ SSOT: the scheduled job contract is defined here only
type Job interface {
	// Name identifies the job in logs, history and RunJob
	Name() string

	// Run does one pass. It must return when ctx is done.
	Run(ctx context.Context) error

	// Schedule is a six-field cron spec (seconds first), e.g. "0 */15 * * * *",
	// or a descriptor such as "@every 1m"
	Schedule() string
}

// JobResult is the outcome of one scheduled or manual run, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// historyLimit caps retained results per job; a minutely tickle keeps
// under two hours of runs
const historyLimit = 100

// JobHistory holds the most recent results of a job, oldest first
type JobHistory struct {
	Results []JobResult
}

// Add records a result, dropping the oldest beyond historyLimit
func (h *JobHistory) Add(result JobResult) {
	h.Results = append(h.Results, result)
	if over := len(h.Results) - historyLimit; over > 0 {
		h.Results = h.Results[over:]
	}
}

// Latest returns up to n of the newest results
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return nil
	}
	return h.Results[len(h.Results)-n:]
}

// Failures returns the failed runs still in history
func (h *JobHistory) Failures() []JobResult {
	var failed []JobResult
	for _, r := range h.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// SuccessRate is the share of successful runs in history, 0 when empty
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-len(h.Failures())) / float64(len(h.Results))
}
