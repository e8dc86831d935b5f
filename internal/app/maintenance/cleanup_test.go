package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/FernandoVinha/TheManager/internal/audit"
	testutil "github.com/FernandoVinha/TheManager/internal/database/testutil"
	"github.com/FernandoVinha/TheManager/internal/models"
)

type stubPurger struct {
	calls   int
	removed int64
	err     error
}

func (s *stubPurger) PurgeExpired(context.Context) (int64, error) {
	s.calls++
	return s.removed, s.err
}

type stubPruner struct {
	days []int
	err  error
}

func (s *stubPruner) CleanupOlderThan(_ context.Context, days int) (int64, error) {
	s.days = append(s.days, days)
	return 0, s.err
}

func TestCleanerRunOnceCallsEveryJob(t *testing.T) {
	invites := &stubPurger{removed: 2}
	pruner := &stubPruner{}

	c := NewCleaner(invites, pruner, WithAuditRetentionDays(7))
	require.NoError(t, c.RunOnce(context.Background()))

	require.Equal(t, 1, invites.calls)
	require.Equal(t, []int{7}, pruner.days)
}

func TestCleanerRunOnceCombinesErrors(t *testing.T) {
	invites := &stubPurger{err: errors.New("invites down")}
	pruner := &stubPruner{err: errors.New("audit down")}

	err := NewCleaner(invites, pruner).RunOnce(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
	require.Equal(t, []int{defaultAuditRetentionDays}, pruner.days)
}

func TestCleanerPrunesAuditLogs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	auditSvc, err := audit.NewService(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, auditSvc.Log(ctx, audit.Entry{Action: "user.create", Result: audit.ResultSuccess, Username: "admin"}))
	require.NoError(t, auditSvc.Log(ctx, audit.Entry{Action: "user.update", Result: audit.ResultSuccess, Username: "admin"}))

	var stale models.AuditLog
	require.NoError(t, db.Where("action = ?", "user.create").First(&stale).Error)
	require.NoError(t, db.Model(&stale).Update("created_at", time.Now().AddDate(0, 0, -30)).Error)

	c := NewCleaner(nil, auditSvc, WithAuditRetentionDays(7))
	require.NoError(t, c.RunOnce(ctx))

	var remaining []models.AuditLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "user.update", remaining[0].Action)
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	c := NewCleaner(&stubPurger{}, &stubPruner{}, WithCron(scheduler), WithInviteSchedule("@every 1h"))

	require.NoError(t, c.Start())
	defer c.Stop()
	require.Len(t, scheduler.Entries(), 2)
}

func TestCleanerStartWithoutJobs(t *testing.T) {
	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	c := NewCleaner(nil, nil, WithCron(scheduler))
	require.NoError(t, c.Start())
	require.Empty(t, scheduler.Entries())
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	c := NewCleaner(&stubPurger{}, nil, WithInviteSchedule("not a schedule"))
	require.Error(t, c.Start())
}
