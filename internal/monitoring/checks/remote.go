package checks

import (
	"context"
	"time"

	"github.com/FernandoVinha/TheManager/internal/monitoring"
)

// VersionProber is the part of the remote client used for reachability.
type VersionProber interface {
	Version(ctx context.Context) (string, error)
}

// Remote reports whether the git host answers its version endpoint. Failures
// are reported as degraded, never down.
func Remote(client VersionProber, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("remote", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "remote not configured"}
		}

		ctx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultRemoteTimeout))
		defer cancel()

		version, err := client.Version(ctx)
		if err != nil {
			result := monitoring.ResultFromError(err, time.Since(start))
			result.Status = monitoring.StatusDegraded
			return result
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  "version " + version,
			Duration: time.Since(start),
		}
	})
}
