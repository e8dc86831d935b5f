package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/audit"
	"github.com/FernandoVinha/TheManager/internal/capture"
	"github.com/FernandoVinha/TheManager/internal/database"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/pkg/crypto"
	apperrors "github.com/FernandoVinha/TheManager/pkg/errors"
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Username    string
	Email       string
	FirstName   string
	LastName    string
	IsSuperuser bool
	Preferences models.UserPreferences
}

// UpdateUserInput enumerates mutable user attributes. A non-nil Preferences
// replaces the stored preferences as a whole.
type UpdateUserInput struct {
	Username    *string
	Email       *string
	FirstName   *string
	LastName    *string
	IsActive    *bool
	IsSuperuser *bool
	Preferences *models.UserPreferences
}

// UserFilters captures listing filters.
type UserFilters struct {
	IsActive *bool
	Query    string
}

// ListUsersOptions controls pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
	Filters  UserFilters
}

// UserService manages the local user lifecycle. Every committed write is
// handed to the UserSyncer after commit.
type UserService struct {
	db      *gorm.DB
	audit   *audit.Service
	invites *InviteService
	sync    UserSyncer
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, auditSvc *audit.Service, invites *InviteService, sync UserSyncer) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if invites == nil {
		return nil, errors.New("user service: invite service is required")
	}
	return &UserService{db: db, audit: auditSvc, invites: invites, sync: sync}, nil
}

// Create provisions an inactive user with an unusable password and issues
// its first invite. A missing username is derived from the e-mail local part.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, *IssuedInvite, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, apperrors.NewBadRequest("a valid email is required")
	}

	placeholder, err := crypto.UnusablePassword()
	if err != nil {
		return nil, nil, fmt.Errorf("user service: unusable password: %w", err)
	}

	user := &models.User{
		Email:       email,
		Password:    placeholder,
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		IsSuperuser: input.IsSuperuser,
		Preferences: input.Preferences,
	}

	var issued *IssuedInvite
	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		username := strings.TrimSpace(input.Username)
		if username == "" {
			derived, err := uniqueUsername(tx, email)
			if err != nil {
				return err
			}
			username = derived
		}
		user.Username = username

		if err := tx.Create(user).Error; err != nil {
			return err
		}
		var err error
		if issued, err = s.invites.issue(tx, user); err != nil {
			return err
		}

		change := capture.NewUser(user.ID)
		if s.sync != nil {
			after.Defer(func(ctx context.Context) {
				logSyncError("user.create", user.ID, s.sync.UserSaved(ctx, change))
			})
		}
		after.Defer(func(ctx context.Context) { s.invites.deliver(ctx, user, issued) })
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, nil, apperrors.NewConflict("username or email already exists")
		}
		return nil, nil, fmt.Errorf("user service: create user: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:   "user.create",
		Resource: user.ID,
		Result:   audit.ResultSuccess,
		Metadata: map[string]any{"username": user.Username, "email": user.Email},
	})

	return s.reload(ctx, user.ID, issued)
}

// Get loads a user by identifier.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).First(&user, "id = ?", id).Error
	if isNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// List retrieves users matching the supplied filters with pagination.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	page, perPage := normalisePage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ensureContext(ctx)).Model(&models.User{})
	if opts.Filters.IsActive != nil {
		query = query.Where("is_active = ?", *opts.Filters.IsActive)
	}
	if q := strings.ToLower(strings.TrimSpace(opts.Filters.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := query.Order("username ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}
	return users, total, nil
}

// Update applies input to the user. Mirror columns are never written here.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		change, err := capture.User(tx, id)
		if err != nil {
			return err
		}

		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			return err
		}
		if err := applyUserUpdate(&user, input); err != nil {
			return err
		}
		if err := tx.Omit(models.UserMirrorColumns...).Save(&user).Error; err != nil {
			return err
		}

		if s.sync != nil {
			after.Defer(func(ctx context.Context) {
				logSyncError("user.update", id, s.sync.UserSaved(ctx, change))
			})
		}
		return nil
	})
	switch {
	case err == nil:
	case isNotFound(err), capture.IsNotFound(err):
		return nil, ErrUserNotFound
	case isUniqueConstraintError(err):
		return nil, apperrors.NewConflict("username or email already exists")
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{Action: "user.update", Resource: id, Result: audit.ResultSuccess})
	return s.Get(ctx, id)
}

// SetPassword stores a new password. The plaintext is handed to
// reconciliation for the duration of this write only.
func (s *UserService) SetPassword(ctx context.Context, id, password string) error {
	ctx = ensureContext(ctx)
	if len(password) < minPasswordLength {
		return apperrors.NewBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		change, err := capture.User(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Update("password", hashed).Error; err != nil {
			return err
		}
		change.RecordPlaintextPassword(password)

		if s.sync != nil {
			after.Defer(func(ctx context.Context) {
				logSyncError("user.password", id, s.sync.UserSaved(ctx, change))
			})
		}
		return nil
	})
	if isNotFound(err) || capture.IsNotFound(err) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("user service: set password: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{Action: "user.password", Resource: id, Result: audit.ResultSuccess})
	return nil
}

// Delete removes the remote account first, then the local row. A remote
// failure is recorded and does not block the local delete.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var owned int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("owner_id = ?", id).Count(&owned).Error; err != nil {
		return fmt.Errorf("user service: count owned projects: %w", err)
	}
	if owned > 0 {
		return ErrUserOwnsProjects
	}

	if s.sync != nil {
		s.sync.UserDeleting(ctx, user)
	}

	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("user service: delete user: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:   "user.delete",
		Resource: id,
		Result:   audit.ResultSuccess,
		Metadata: map[string]any{"username": user.Username},
	})
	return nil
}

// Resync re-runs reconciliation for the user from its current state.
func (s *UserService) Resync(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.sync != nil {
		if err := s.sync.ResyncUser(ctx, id); err != nil {
			return nil, fmt.Errorf("user service: resync: %w", err)
		}
	}
	return s.Get(ctx, id)
}

func (s *UserService) reload(ctx context.Context, id string, issued *IssuedInvite) (*models.User, *IssuedInvite, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return user, issued, nil
}

func applyUserUpdate(user *models.User, input UpdateUserInput) error {
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return apperrors.NewBadRequest("username cannot be empty")
		}
		user.Username = username
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" || !strings.Contains(email, "@") {
			return apperrors.NewBadRequest("a valid email is required")
		}
		user.Email = email
	}
	if v := trimPtr(input.FirstName); v != nil {
		user.FirstName = *v
	}
	if v := trimPtr(input.LastName); v != nil {
		user.LastName = *v
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.IsSuperuser != nil {
		user.IsSuperuser = *input.IsSuperuser
	}
	if input.Preferences != nil {
		user.Preferences = *input.Preferences
	}
	return nil
}

// uniqueUsername derives a free username from the local part of email:
// alice, alice2, alice3, ...
func uniqueUsername(tx *gorm.DB, email string) (string, error) {
	base := sanitizeUsername(strings.SplitN(email, "@", 2)[0])

	for i := 1; ; i++ {
		candidate := base
		if i > 1 {
			candidate = base + strconv.Itoa(i)
		}
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
}

func sanitizeUsername(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), ".-_")
	if name == "" {
		return "user"
	}
	return name
}
