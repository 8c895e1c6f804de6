package database

import (
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/utils"
)

// Migrate creates or updates every table this service owns. The db_changes
// outbox is filled by the repository inside each write transaction, so no
// database triggers are installed.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Table{},
		&models.Menu{},
		&models.Order{},
		&models.OrderItem{},
		&models.DBChange{},
	); err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// ResetChangeBacklog marks every pending change as processed. Called at startup:
// boards always load full state on mount, so changes written while the service
// was down carry no information.
func ResetChangeBacklog(db *gorm.DB) (int64, error) {
	res := db.Model(&models.DBChange{}).Where("processed = ?", false).Update("processed", true)
	return res.RowsAffected, res.Error
}
