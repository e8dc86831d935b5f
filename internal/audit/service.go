package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/pkg/logger"
)

// Results recorded for remote sync outcomes and admin actions.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultNoop    = "noop"
	ResultSkipped = "skipped"
)

// Entry captures a single audit event to persist.
type Entry struct {
	UserID   *string
	Username string
	Action   string
	Resource string
	Result   string
	Metadata map[string]any
}

// Filters narrows audit queries.
type Filters struct {
	UserID   string
	Action   string
	Result   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

// ListOptions controls pagination and filtering for audit queries.
type ListOptions struct {
	Page     int
	PageSize int
	Filters  Filters
}

// Service persists and retrieves audit log entries.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs a Service using the provided database handle.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &Service{db: db, now: time.Now}, nil
}

// Log stores an entry. When the entry names no user the actor carried by ctx is used.
func (s *Service) Log(ctx context.Context, entry Entry) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit service: action is required")
	}
	if strings.TrimSpace(entry.Result) == "" {
		return errors.New("audit service: result is required")
	}

	var payload datatypes.JSON
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		payload = datatypes.JSON(encoded)
	}

	row := models.AuditLog{
		Action:   strings.TrimSpace(entry.Action),
		Resource: strings.TrimSpace(entry.Resource),
		Result:   strings.TrimSpace(entry.Result),
		Username: strings.TrimSpace(entry.Username),
		Metadata: payload,
	}

	if entry.UserID != nil && strings.TrimSpace(*entry.UserID) != "" {
		id := strings.TrimSpace(*entry.UserID)
		row.UserID = &id
	} else if actor, ok := ActorFrom(ctx); ok && actor.UserID != "" {
		id := actor.UserID
		row.UserID = &id
		if row.Username == "" {
			row.Username = actor.Username
		}
	}

	return s.db.WithContext(ctx).Create(&row).Error
}

// Record logs entry and swallows failures after reporting them. It is safe on a nil Service.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if s == nil {
		return
	}
	if err := s.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

// List returns paginated audit logs ordered by creation time descending.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.AuditLog, int64, error) {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.AuditLog
		total   int64
	)

	query := applyFilters(s.db.WithContext(ctx).Model(&models.AuditLog{}), opts.Filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count logs: %w", err)
	}

	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: list logs: %w", err)
	}

	return results, total, nil
}

// CleanupOlderThan removes audit logs older than the retention window in days.
func (s *Service) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Result != "" {
		query = query.Where("result = ?", filters.Result)
	}
	if filters.Resource != "" {
		query = query.Where("resource = ?", filters.Resource)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
