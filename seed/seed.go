package seed

import (
	"github.com/shopspring/decimal"

	"github.com/godwins3/beta-store/models"
	"github.com/godwins3/beta-store/utils"
)

// SeedProducts loads the starter catalog if the products table is empty.
func SeedProducts() error {
	var count int64
	if err := utils.DB.Model(&models.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []models.Product{
		{Name: "Fresh Milk 500ml", Price: decimal.NewFromInt(60)},
		{Name: "Fresh Milk 1L", Price: decimal.NewFromInt(110)},
		{Name: "Mala 500ml", Price: decimal.NewFromInt(70)},
		{Name: "Yoghurt 250ml", Price: decimal.NewFromInt(90)},
	}
	return utils.DB.Create(&products).Error
}
