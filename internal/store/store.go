package store

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hopeforeverybody/chat-service/internal/models"
)

func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Message{},
		&models.Notification{},
		&models.Subscription{},
		&models.Membership{},
	)
}
