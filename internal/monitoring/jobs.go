package monitoring

import (
	"sort"
	"sync"
	"time"
)

// JobSummary describes recent outcomes of one background job.
type JobSummary struct {
	Job                 string        `json:"job"`
	TotalRuns           int64         `json:"total_runs"`
	Failures            int64         `json:"failures"`
	ConsecutiveFailures int64         `json:"consecutive_failures"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
}

var jobStats = struct {
	mu   sync.Mutex
	jobs map[string]*JobSummary
}{jobs: make(map[string]*JobSummary)}

// RecordJob stores the outcome of a background job run.
func RecordJob(job string, err error, duration time.Duration, at time.Time) {
	jobStats.mu.Lock()
	defer jobStats.mu.Unlock()

	entry, ok := jobStats.jobs[job]
	if !ok {
		entry = &JobSummary{Job: job}
		jobStats.jobs[job] = entry
	}
	entry.TotalRuns++
	entry.LastRunAt = at
	entry.LastDuration = duration
	if err != nil {
		entry.Failures++
		entry.ConsecutiveFailures++
		entry.LastError = err.Error()
		return
	}
	entry.ConsecutiveFailures = 0
	entry.LastError = ""
}

// Jobs returns a snapshot of every recorded job, ordered by name.
func Jobs() []JobSummary {
	jobStats.mu.Lock()
	defer jobStats.mu.Unlock()

	out := make([]JobSummary, 0, len(jobStats.jobs))
	for _, entry := range jobStats.jobs {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// ResetJobs clears recorded job outcomes.
func ResetJobs() {
	jobStats.mu.Lock()
	jobStats.jobs = make(map[string]*JobSummary)
	jobStats.mu.Unlock()
}
