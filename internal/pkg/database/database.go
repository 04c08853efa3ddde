package database

import (
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/paysync-io/paysync/app/models"
	"github.com/paysync-io/paysync/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Setup opens the MySQL connection and migrates the schema. The DB server
// may still be starting when we come up, hence the retry loop.
func Setup(cfg *config.Config) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                      cfg.DSN(),
			DefaultStringSize:        256,
			DisableDatetimePrecision: false,
			DontSupportRenameIndex:   true,
			DontSupportRenameColumn:  true,
		}), &gorm.Config{})
		if err == nil {
			if err := db.AutoMigrate(
				&models.Customer{},
				&models.Subscription{},
				&models.Order{},
				&models.WebhookEvent{},
				&models.PlanMapping{},
			); err != nil {
				return nil, err
			}
			return db, nil
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, err
}
