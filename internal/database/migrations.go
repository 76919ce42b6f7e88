package database

import (
	"gorm.io/gorm"

	"github.com/courtlink/playerfinder/internal/models"
)

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Invitation{},
	)
}
