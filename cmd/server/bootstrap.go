package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/api"
	"github.com/FernandoVinha/TheManager/internal/app"
	"github.com/FernandoVinha/TheManager/internal/app/maintenance"
	"github.com/FernandoVinha/TheManager/internal/audit"
	"github.com/FernandoVinha/TheManager/internal/database"
	"github.com/FernandoVinha/TheManager/internal/mergeflow"
	"github.com/FernandoVinha/TheManager/internal/monitoring"
	"github.com/FernandoVinha/TheManager/internal/monitoring/checks"
	"github.com/FernandoVinha/TheManager/internal/reconcile"
	"github.com/FernandoVinha/TheManager/internal/remote"
	"github.com/FernandoVinha/TheManager/internal/services"
	"github.com/FernandoVinha/TheManager/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Remote   *remote.Client
	AuditSvc *audit.Service
	Invites  *services.InviteService
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, the remote client, the domain
// services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.Remote, err = remote.New(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		Token:   cfg.Remote.AdminToken,
		Timeout: cfg.Remote.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise remote client: %w", err)
	}
	if strings.TrimSpace(cfg.Remote.AdminToken) == "" {
		log.Warn("remote.admin_token is empty; remote calls will be rejected")
	}

	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	stack.AuditSvc, err = audit.NewService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	reconciler, err := reconcile.New(stack.DB, stack.Remote, stack.AuditSvc, reconcile.Config{
		MirrorPasswords:      cfg.Sync.MirrorPasswords,
		ProhibitLogin:        cfg.Sync.ProhibitLogin,
		RandomPasswordLength: cfg.Sync.RandomPasswordLength,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise reconciler: %w", err)
	}

	workflow, err := mergeflow.New(stack.DB, stack.Remote, mergeflow.Config{
		MergeStyle:             cfg.Remote.MergeStyle,
		DeleteBranchAfterMerge: cfg.Remote.DeleteBranchAfterMerge,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise merge workflow: %w", err)
	}

	mailer, err := cfg.Email.Mailer()
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Info("smtp disabled; invite links are returned to the caller")
	}

	stack.Invites, err = services.NewInviteService(stack.DB, mailer, reconciler,
		services.WithInviteBaseURL(cfg.Invites.BaseURL),
		services.WithInviteExpiry(cfg.Invites.Expiry),
		services.WithInviteTokenSize(cfg.Invites.TokenBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise invite service: %w", err)
	}

	users, err := services.NewUserService(stack.DB, stack.AuditSvc, stack.Invites, reconciler)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}
	projects, err := services.NewProjectService(stack.DB, stack.AuditSvc, reconciler, stack.Remote,
		services.WithDefaultBranch(cfg.Remote.DefaultBranch),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise project service: %w", err)
	}
	tasks, err := services.NewTaskService(stack.DB, stack.AuditSvc, workflow, stack.Remote)
	if err != nil {
		return nil, fmt.Errorf("initialise task service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Invites, stack.AuditSvc,
		maintenance.WithInviteSchedule(cfg.Maintenance.InviteSchedule),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	health := monitoring.NewHealthManager()
	health.RegisterLiveness(checks.Database(stack.DB, 0))
	health.RegisterReadiness(checks.Remote(stack.Remote, cfg.Remote.Timeout))

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:       stack.DB,
		Config:   cfg,
		Audit:    stack.AuditSvc,
		Users:    users,
		Invites:  stack.Invites,
		Projects: projects,
		Tasks:    tasks,
		Health:   health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db.WithContext(ctx)); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
		Pool: database.PoolConfig{
			MaxOpenConns:    cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns:    cfg.Database.Pool.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.Pool.ConnMaxLifetime,
		},
		Options: cfg.Database.Options,
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
