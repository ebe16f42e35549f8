package db

import (
	"gorm.io/gorm"

	"github.com/herbario-app/herbario/internal/models"
)

// Migrate creates or updates the schema for all application models.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Plant{},
		&models.PlantImage{},
	)
}
