package migrations

import (
	"github.com/godwins3/beta-store/models"
	"github.com/godwins3/beta-store/utils"
)

func MigrateShop() {
	utils.DB.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.MpesaPayment{},
	)
}
