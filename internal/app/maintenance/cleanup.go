package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/FernandoVinha/TheManager/pkg/logger"
	"github.com/FernandoVinha/TheManager/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultInviteSpec         = "@hourly"
	defaultAuditSpec          = "@daily"
)

// InvitePurger removes credential-setup invites past their expiry.
type InvitePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// AuditPruner removes audit entries older than a retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Cleaner coordinates background housekeeping: purging expired invites and
// pruning stale audit logs.
type Cleaner struct {
	invites   InvitePurger
	audit     AuditPruner
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	inviteSchedule string
	auditSchedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithInviteSchedule overrides the cron expression for invite purging.
func WithInviteSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.inviteSchedule = expr
		}
	}
}

// WithAuditSchedule overrides the cron expression for audit retention enforcement.
func WithAuditSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.auditSchedule = expr
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the corresponding job.
func NewCleaner(invites InvitePurger, audit AuditPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		invites:        invites,
		audit:          audit,
		retention:      defaultAuditRetentionDays,
		inviteSchedule: defaultInviteSpec,
		auditSchedule:  defaultAuditSpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the cleanup jobs and launches the scheduler when at least one is enabled.
func (c *Cleaner) Start() error {
	if c.invites == nil && c.audit == nil {
		return nil
	}

	if c.invites != nil {
		if _, err := c.cron.AddFunc(c.inviteSchedule, func() {
			_, _ = c.purgeInvites(context.Background())
		}); err != nil {
			return err
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			_, _ = c.pruneAudit(context.Background())
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler; the returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured cleanup sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.invites != nil {
		if _, err := c.purgeInvites(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.pruneAudit(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (c *Cleaner) purgeInvites(ctx context.Context) (int64, error) {
	removed, err := c.invites.PurgeExpired(ctx)
	c.observe("invite_purge", removed, err)
	return removed, err
}

func (c *Cleaner) pruneAudit(ctx context.Context) (int64, error) {
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	c.observe("audit_retention", removed, err)
	return removed, err
}

func (c *Cleaner) observe(job string, removed int64, err error) {
	if err != nil {
		metrics.MaintenanceRuns.WithLabelValues(job, "failure").Inc()
		c.log.Warn("maintenance job failed", zap.String("job", job), zap.Error(err))
		return
	}
	metrics.MaintenanceRuns.WithLabelValues(job, "success").Inc()
	if removed > 0 {
		c.log.Info("maintenance job removed rows", zap.String("job", job), zap.Int64("count", removed))
	}
}
