// Package checks provides the probes registered with the health manager.
package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/monitoring"
)

const (
	defaultDatabaseTimeout = 2 * time.Second
	defaultRemoteTimeout   = 5 * time.Second
)

// Database pings the connection pool behind db.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError(err, time.Since(start))
		}

		ctx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultDatabaseTimeout))
		defer cancel()
		return monitoring.ResultFromError(sqlDB.PingContext(ctx), time.Since(start))
	})
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
