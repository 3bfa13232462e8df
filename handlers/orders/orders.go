package orders

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/godwins3/beta-store/models"
	"github.com/godwins3/beta-store/notify"
	"github.com/godwins3/beta-store/utils"
)

// Notifier is wired in main. Handlers fire notifications through it and never
// wait on the outcome.
var Notifier *notify.Dispatcher

type orderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type createOrderRequest struct {
	FirstName   string             `json:"first_name" binding:"required"`
	LastName    string             `json:"last_name"`
	Email       string             `json:"email" binding:"required,email"`
	PhoneNumber string             `json:"phone_number"`
	Address     string             `json:"address"`
	City        string             `json:"city"`
	Items       []orderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateOrder starts a checkout: it persists the order with its items, stamps
// the order id on the checkout session and queues the order-created email.
func CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := models.Order{
		OrderNumber: newOrderNumber(),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		City:        req.City,
	}

	err := utils.DB.Transaction(func(tx *gorm.DB) error {
		for _, item := range req.Items {
			var product models.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				return fmt.Errorf("product %d: %w", item.ProductID, err)
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID: product.ID,
				Price:     product.Price,
				Quantity:  item.Quantity,
			})
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create order: " + err.Error()})
		return
	}

	if err := utils.Checkout(c).SetOrderID(order.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save checkout session"})
		return
	}

	Notifier.OrderCreated(order.ID)

	c.JSON(http.StatusCreated, gin.H{"order": order, "total_cost": order.TotalCost()})
}

// ListOrders is where completion/cancellation send users who have no active
// checkout; any flash explaining the redirect rides along.
func ListOrders(c *gin.Context) {
	var orders []models.Order
	if err := utils.DB.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	resp := gin.H{"orders": orders}
	if messages := utils.Checkout(c).Flashes(); len(messages) > 0 {
		resp["messages"] = messages
	}
	c.JSON(http.StatusOK, resp)
}

func newOrderNumber() string {
	return strings.ToUpper(strings.Split(uuid.NewString(), "-")[0])
}
