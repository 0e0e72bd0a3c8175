// Package checks provides the health probes registered by the server.
package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/monitoring"
)

// Database returns a readiness probe that pings the configured database handle.
func Database(db *gorm.DB) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}
		return monitoring.ResultFromError("database", sqlDB.PingContext(ctx), time.Since(start))
	})
}
