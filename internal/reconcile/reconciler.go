// Package reconcile brings the remote in line with committed local state.
//
// Every entry point runs after the local transaction has committed. Remote
// failures are logged, counted and audited but never returned: the local
// write that triggered reconciliation always stands. Mirror fields are written
// with column-scoped updates so that reconciliation never re-enters itself.
package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/audit"
	"github.com/FernandoVinha/TheManager/internal/remote"
	"github.com/FernandoVinha/TheManager/pkg/logger"
	"github.com/FernandoVinha/TheManager/pkg/metrics"
)

// DefaultRandomPasswordLength is the size of throw-away remote credentials.
const DefaultRandomPasswordLength = 24

// Remote is the part of the remote API the reconciler drives.
type Remote interface {
	BaseURL() string
	RepoWebURL(owner, name string) string

	CreateUser(ctx context.Context, opts remote.CreateUserOptions) (*remote.User, error)
	RenameUser(ctx context.Context, oldName, newName string) error
	EditUser(ctx context.Context, username string, opts remote.EditUserOptions) (*remote.User, error)
	ChangePassword(ctx context.Context, username, password string) error
	DeleteUser(ctx context.Context, username string, purge bool) error

	OwnerKind(ctx context.Context, owner string) (remote.OwnerKind, error)
	CreateRepo(ctx context.Context, owner string, opts remote.CreateRepoOptions) (*remote.Repository, error)
	CreateOrgRepo(ctx context.Context, org string, opts remote.CreateRepoOptions) (*remote.Repository, error)
	AddCollaborator(ctx context.Context, owner, name, username, permission string) error
	RemoveCollaborator(ctx context.Context, owner, name, username string) error
}

// Config holds the behaviour toggles of user synchronisation.
type Config struct {
	// MirrorPasswords pushes locally set passwords to the remote account.
	MirrorPasswords bool
	// ProhibitLogin is sent on account creation when the user has no preference of their own.
	ProhibitLogin *bool
	// RandomPasswordLength sizes the throw-away credential used when passwords are not mirrored.
	RandomPasswordLength int
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source used for mirror timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// Reconciler issues the remote calls implied by committed local changes.
type Reconciler struct {
	db     *gorm.DB
	remote Remote
	audit  *audit.Service
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

// New constructs a Reconciler. auditSvc may be nil.
func New(db *gorm.DB, client Remote, auditSvc *audit.Service, cfg Config, opts ...Option) (*Reconciler, error) {
	if db == nil {
		return nil, errors.New("reconcile: db is required")
	}
	if client == nil {
		return nil, errors.New("reconcile: remote client is required")
	}
	if cfg.RandomPasswordLength <= 0 {
		cfg.RandomPasswordLength = DefaultRandomPasswordLength
	}

	r := &Reconciler{
		db:     db,
		remote: client,
		audit:  auditSvc,
		cfg:    cfg,
		log:    logger.WithModule("reconcile"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// step identifies one remote interaction for logging, metrics and audit.
type step struct {
	entity   string // user, project or member
	name     string // create, rename, patch, password, delete, ...
	resource string
	fields   []zap.Field
	meta     map[string]any
}

func (s step) action() string {
	return "remote." + s.entity + "." + s.name
}

func (r *Reconciler) succeeded(ctx context.Context, s step) {
	r.finish(ctx, s, audit.ResultSuccess, nil)
	r.log.Info("remote sync step succeeded", append(s.fields, zap.String("op", s.action()))...)
}

func (r *Reconciler) noop(ctx context.Context, s step) {
	r.finish(ctx, s, audit.ResultNoop, nil)
	r.log.Debug("remote sync step had nothing to change", append(s.fields, zap.String("op", s.action()))...)
}

func (r *Reconciler) skipped(ctx context.Context, s step, reason string) {
	r.finish(ctx, s, audit.ResultSkipped, map[string]any{"reason": reason})
	r.log.Warn("remote sync step skipped", append(s.fields, zap.String("op", s.action()), zap.String("reason", reason))...)
}

func (r *Reconciler) failed(ctx context.Context, s step, err error, warnOnly bool) {
	extra := map[string]any{
		"error":     err.Error(),
		"status":    remote.StatusOf(err),
		"transient": remote.IsTransient(err),
	}
	if body := remote.BodyOf(err); body != "" {
		extra["body"] = body
	}
	r.finish(ctx, s, audit.ResultFailure, extra)

	fields := append(s.fields, zap.String("op", s.action()), zap.Int("status", remote.StatusOf(err)), zap.Error(err))
	if warnOnly {
		r.log.Warn("remote sync step failed", fields...)
		return
	}
	r.log.Error("remote sync step failed", fields...)
}

func (r *Reconciler) finish(ctx context.Context, s step, result string, extra map[string]any) {
	metrics.SyncSteps.WithLabelValues(s.entity, s.name, result).Inc()

	meta := make(map[string]any, len(s.meta)+len(extra))
	for k, v := range s.meta {
		meta[k] = v
	}
	for k, v := range extra {
		meta[k] = v
	}
	r.audit.Record(ctx, audit.Entry{
		Action:   s.action(),
		Resource: s.resource,
		Result:   result,
		Metadata: meta,
	})
}

// updateColumns writes mirror columns without hooks, timestamps or reconciliation.
func (r *Reconciler) updateColumns(ctx context.Context, model any, id string, values map[string]any) error {
	return r.db.WithContext(ctx).Model(model).Where("id = ?", id).UpdateColumns(values).Error
}
