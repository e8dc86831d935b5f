package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FernandoVinha/TheManager/internal/database"
	"github.com/FernandoVinha/TheManager/internal/monitoring"
	"github.com/FernandoVinha/TheManager/internal/monitoring/checks"
	"github.com/FernandoVinha/TheManager/internal/remote/remotetest"
)

func TestHealthManagerEvaluate(t *testing.T) {
	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("remote", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "slow"}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("database", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))
	manager.RegisterReadiness(monitoring.Check{})

	live := manager.Liveness(context.Background())
	require.True(t, live.Success)
	require.Equal(t, monitoring.StatusUp, live.Status)
	require.Len(t, live.Checks, 1)

	ready := manager.Readiness(context.Background())
	require.False(t, ready.Success)
	require.Equal(t, monitoring.StatusDown, ready.Status)
	require.Len(t, ready.Checks, 3)
	require.Equal(t, []string{"process", "remote", "database"}, []string{
		ready.Checks[0].Component, ready.Checks[1].Component, ready.Checks[2].Component,
	})
}

func TestHealthManagerRecoversPanickingProbe(t *testing.T) {
	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("boom", func(context.Context) monitoring.ProbeResult {
		panic("probe exploded")
	}))
	manager.RegisterReadiness(monitoring.NewCheck("unset", nil))

	report := manager.Readiness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "probe exploded", report.Checks[0].Details)
	require.Equal(t, "boom", report.Checks[0].Component)
	require.Equal(t, "probe not implemented", report.Checks[1].Details)
}

func TestResultFromError(t *testing.T) {
	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError(nil, time.Millisecond).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError(context.DeadlineExceeded, 0).Status)

	down := monitoring.ResultFromError(errors.New("refused"), -time.Second)
	require.Equal(t, monitoring.StatusDown, down.Status)
	require.Equal(t, "refused", down.Details)
	require.Zero(t, down.Duration)
}

func TestDatabaseCheck(t *testing.T) {
	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)

	result := checks.Database(db, time.Second).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	require.NoError(t, database.Close(db))
	result = checks.Database(db, time.Second).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)

	result = checks.Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}

func TestRemoteCheck(t *testing.T) {
	fake := remotetest.New()

	result := checks.Remote(fake, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "version 1.21.0", result.Details)

	fake.Fail("version", remotetest.HTTPError("version", 502, "bad gateway"))
	result = checks.Remote(fake, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)

	result = checks.Remote(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}
