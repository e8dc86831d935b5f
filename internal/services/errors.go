package services

import (
	"errors"
	"net/http"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/FernandoVinha/TheManager/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserOwnsProjects blocks deleting a user that still owns projects.
	ErrUserOwnsProjects = apperrors.New("USER_OWNS_PROJECTS", "User still owns projects", http.StatusConflict)
	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = apperrors.New("PROJECT_NOT_FOUND", "Project not found", http.StatusNotFound)
	// ErrRepoNotReady indicates the project repository has not been created on the remote yet.
	ErrRepoNotReady = apperrors.New("REPO_NOT_READY", "Project repository has not been created yet", http.StatusConflict)
	// ErrMemberNotFound indicates the user is not a member of the project.
	ErrMemberNotFound = apperrors.New("MEMBER_NOT_FOUND", "Project member not found", http.StatusNotFound)
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = apperrors.New("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)
	// ErrInviteNotFound indicates no invite matches the provided token.
	ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "Invite not found", http.StatusNotFound)
	// ErrInviteExpired indicates the invite token has expired and was discarded.
	ErrInviteExpired = apperrors.New("INVITE_EXPIRED", "Invite has expired", http.StatusGone)
)

// isUniqueConstraintError detects uniqueness violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

// isNotFound reports a missing row.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
