package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/models"
)

// AutoMigrate creates or updates the schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserInvite{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.TaskMessage{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
