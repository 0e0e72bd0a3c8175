package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/complaintdesk/internal/monitoring"
)

// Jobs reports background jobs that keep failing or have not run within maxAge. A zero
// maxAge disables the staleness check.
func Jobs(maxAge time.Duration, now func() time.Time) monitoring.Check {
	if now == nil {
		now = time.Now
	}

	return monitoring.NewCheck("jobs", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		jobs := monitoring.Jobs()
		if len(jobs) == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "no job runs recorded",
				Duration: time.Since(start),
			}
		}

		status := monitoring.StatusUp
		var problems []string
		current := now()
		for _, job := range jobs {
			if job.ConsecutiveFailures > 0 {
				status = worstStatus(status, monitoring.StatusDegraded)
				problems = append(problems, job.Job+": "+job.LastError)
			}
			if maxAge > 0 && current.Sub(job.LastRunAt) > maxAge {
				status = worstStatus(status, monitoring.StatusDegraded)
				problems = append(problems, job.Job+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(problems, "; "),
			Duration: time.Since(start),
		}
	})
}

func worstStatus(current, candidate monitoring.ProbeStatus) monitoring.ProbeStatus {
	if current == monitoring.StatusDown || candidate == monitoring.StatusDown {
		return monitoring.StatusDown
	}
	if current == monitoring.StatusDegraded || candidate == monitoring.StatusDegraded {
		return monitoring.StatusDegraded
	}
	return monitoring.StatusUp
}
