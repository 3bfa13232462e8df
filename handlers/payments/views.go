package payments

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/godwins3/beta-store/utils"
)

// PayOnDelivery shows the session's order for the pay-on-delivery option.
func PayOnDelivery(c *gin.Context) {
	order, ok := currentOrder(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":          order,
		"total_cost":     order.TotalCost(),
		"payment_method": "mpesa_on_delivery",
	})
}

// BankTransfer shows the session's order for the bank-transfer option.
func BankTransfer(c *gin.Context) {
	order, ok := currentOrder(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":          order,
		"total_cost":     order.TotalCost(),
		"payment_method": "bank_transfer",
	})
}

// PaymentCompleted ends the checkout after a successful payment. Without an
// active order it bounces to the order list with a flash; with one it returns
// the order and clears the session's order reference, on GET and POST alike.
func PaymentCompleted(c *gin.Context) {
	closeCheckout(c, "completed")
}

// PaymentCancelled ends the checkout after the user backed out.
func PaymentCancelled(c *gin.Context) {
	closeCheckout(c, "cancelled")
}

func closeCheckout(c *gin.Context, status string) {
	checkout := utils.Checkout(c)
	order, ok := currentOrder(c)
	if !ok {
		checkout.Flash("You have no orders")
		c.Redirect(http.StatusFound, "/orders")
		return
	}

	if err := checkout.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "order": order})
}
