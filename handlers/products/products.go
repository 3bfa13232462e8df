package products

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/godwins3/beta-store/models"
	"github.com/godwins3/beta-store/utils"
)

func GetProducts(c *gin.Context) {
	var products []models.Product
	if err := utils.DB.Where("available = ?", true).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}
