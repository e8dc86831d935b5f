package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/capture"
	"github.com/FernandoVinha/TheManager/internal/database"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/pkg/crypto"
	apperrors "github.com/FernandoVinha/TheManager/pkg/errors"
	"github.com/FernandoVinha/TheManager/pkg/logger"
	"github.com/FernandoVinha/TheManager/pkg/mail"
)

const (
	defaultInviteExpiry = 7 * 24 * time.Hour
	// 42 random bytes encode to a 56 character token.
	defaultInviteTokenBytes = 42
	minPasswordLength       = 8
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the base URL used to build invite links.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteExpiry overrides the invite token lifetime.
func WithInviteExpiry(d time.Duration) InviteOption {
	return func(s *InviteService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInviteTokenSize adjusts the random token length in bytes.
func WithInviteTokenSize(size int) InviteOption {
	return func(s *InviteService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// IssuedInvite is a freshly created invite. Token is only available here;
// the database keeps its hash.
type IssuedInvite struct {
	Token     string    `json:"token"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
	Emailed   bool      `json:"emailed"`
}

// InviteService manages the one-time credential-setup tokens of users.
type InviteService struct {
	db          *gorm.DB
	mailer      mail.Mailer
	sync        UserSyncer
	baseURL     string
	expiry      time.Duration
	tokenLength int
	now         func() time.Time
}

// NewInviteService constructs an InviteService. mailer and sync may be nil.
func NewInviteService(db *gorm.DB, mailer mail.Mailer, sync UserSyncer, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	service := &InviteService{
		db:          db,
		mailer:      mailer,
		sync:        sync,
		expiry:      defaultInviteExpiry,
		tokenLength: defaultInviteTokenBytes,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Resend replaces the invite of userID and delivers it.
func (s *InviteService) Resend(ctx context.Context, userID string) (*IssuedInvite, error) {
	ctx = ensureContext(ctx)

	var (
		user   models.User
		issued *IssuedInvite
	)
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		var err error
		issued, err = s.issue(tx, &user)
		if err != nil {
			return err
		}
		after.Defer(func(ctx context.Context) { s.deliver(ctx, &user, issued) })
		return nil
	})
	if isNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: resend: %w", err)
	}
	return issued, nil
}

// Forgot issues a fresh invite for the account with email. Unknown addresses
// succeed silently so the endpoint cannot be used to probe accounts.
func (s *InviteService) Forgot(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperrors.NewBadRequest("email is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Select("id").First(&user, "email = ?", email).Error
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invite service: lookup email: %w", err)
	}

	_, err = s.Resend(ctx, user.ID)
	return err
}

// Redeem consumes token, sets the password and activates the user. The new
// password is handed to reconciliation as the credential set in this write.
// An expired token is deleted and rejected.
func (s *InviteService) Redeem(ctx context.Context, token, password string) (*models.User, error) {
	ctx = ensureContext(ctx)
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInviteNotFound
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var invite models.UserInvite
	err := s.db.WithContext(ctx).First(&invite, "token_hash = ?", tokenHash(token)).Error
	if isNotFound(err) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: load invite: %w", err)
	}
	if invite.Expired(s.now()) {
		if err := s.db.WithContext(ctx).Delete(&invite).Error; err != nil {
			return nil, fmt.Errorf("invite service: purge expired invite: %w", err)
		}
		return nil, ErrInviteExpired
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("invite service: hash password: %w", err)
	}

	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		// Consuming the invite first makes concurrent redemptions race on the delete.
		res := tx.Where("id = ?", invite.ID).Delete(&models.UserInvite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		change, err := capture.User(tx, invite.UserID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", invite.UserID).Updates(map[string]any{
			"password":  hashed,
			"is_active": true,
		}).Error; err != nil {
			return err
		}
		change.RecordPlaintextPassword(password)

		if s.sync != nil {
			after.Defer(func(ctx context.Context) {
				logSyncError("user.redeem", change.UserID, s.sync.UserSaved(ctx, change))
			})
		}
		return nil
	})
	if isNotFound(err) || capture.IsNotFound(err) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: redeem: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", invite.UserID).Error; err != nil {
		return nil, fmt.Errorf("invite service: reload user: %w", err)
	}
	return &user, nil
}

// PurgeExpired removes every invite past its expiry.
func (s *InviteService) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ensureContext(ctx)).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&models.UserInvite{})
	if res.Error != nil {
		return 0, fmt.Errorf("invite service: purge expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// issue replaces any existing invite of user inside tx.
func (s *InviteService) issue(tx *gorm.DB, user *models.User) (*IssuedInvite, error) {
	rawToken, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserInvite{}).Error; err != nil {
		return nil, fmt.Errorf("delete previous invite: %w", err)
	}

	expires := s.now().Add(s.expiry)
	invite := models.UserInvite{
		UserID:    user.ID,
		TokenHash: tokenHash(rawToken),
		ExpiresAt: &expires,
	}
	if err := tx.Create(&invite).Error; err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	return &IssuedInvite{Token: rawToken, Link: s.inviteLink(rawToken), ExpiresAt: expires}, nil
}

// deliver mails the invite link. Delivery problems are logged; the link is
// still returned to the caller for manual delivery.
func (s *InviteService) deliver(ctx context.Context, user *models.User, issued *IssuedInvite) {
	if s.mailer == nil {
		return
	}
	err := s.mailer.Send(ctx, mail.Message{
		To:      []string{user.Email},
		Subject: "Set up your TheManager account",
		Body:    s.inviteBody(user, issued),
	})
	switch {
	case err == nil:
		issued.Emailed = true
	case errors.Is(err, mail.ErrSMTPDisabled):
	default:
		logger.WithModule("services").Warn("failed to send invite email",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
}

func (s *InviteService) inviteLink(token string) string {
	path := "/invites/accept?token=" + token
	if s.baseURL == "" {
		return path
	}
	return s.baseURL + path
}

func (s *InviteService) inviteBody(user *models.User, issued *IssuedInvite) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", user.Username)
	b.WriteString("Use the link below to choose your password and activate your account:\n\n")
	b.WriteString(issued.Link)
	fmt.Fprintf(&b, "\n\nThe link expires on %s.\n", issued.ExpiresAt.UTC().Format(time.RFC1123))
	return b.String()
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
