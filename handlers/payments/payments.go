package payments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/godwins3/beta-store/models"
	"github.com/godwins3/beta-store/mpesa"
	"github.com/godwins3/beta-store/notify"
	"github.com/godwins3/beta-store/utils"
)

// Gateway and Notifier are wired in main.
var (
	Gateway  *mpesa.Client
	Notifier *notify.Dispatcher
)

// currentOrder resolves the checkout session's order. Handlers that need an
// active order treat a miss as not-found.
func currentOrder(c *gin.Context) (*models.Order, bool) {
	orderID, ok := utils.Checkout(c).OrderID()
	if !ok {
		return nil, false
	}
	var order models.Order
	if err := utils.DB.Preload("Items").First(&order, orderID).Error; err != nil {
		return nil, false
	}
	return &order, true
}

func gatewayStatus(err error) int {
	var gwErr *mpesa.GatewayError
	if errors.As(err, &gwErr) {
		// All three variants are upstream faults from this server's point of
		// view; the body names the variant so operators can tell them apart.
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// GetAccessToken fetches a bearer token from the gateway. Exposed for sandbox
// checks of the configured credentials.
func GetAccessToken(c *gin.Context) {
	token, err := Gateway.AccessToken(c.Request.Context())
	if err != nil {
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

// GetMpesaNumber returns the order being paid for, so the phone-number form can
// show what the customer is about to authorize.
func GetMpesaNumber(c *gin.Context) {
	order, ok := currentOrder(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "total_cost": order.TotalCost()})
}

type mpesaNumberRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,min=10"`
}

// SaveMpesaNumber stores the payer's phone number on the checkout session.
func SaveMpesaNumber(c *gin.Context) {
	var req mpesaNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := currentOrder(c); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active order"})
		return
	}
	if err := utils.Checkout(c).SetPhoneNumber(req.PhoneNumber); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save checkout session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Phone number saved"})
}

// LipaNaMpesa initiates the STK push for the session's order and phone number.
// The gateway's synchronous ack is not the payment result, so the user is sent
// to the site root either way; the callback decides the outcome later. This
// handler performs blocking network I/O and must never run inside a database
// transaction.
func LipaNaMpesa(c *gin.Context) {
	order, ok := currentOrder(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active order"})
		return
	}
	phone, ok := utils.Checkout(c).PhoneNumber()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No phone number on this checkout"})
		return
	}

	token, err := Gateway.AccessToken(c.Request.Context())
	if err != nil {
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}

	if _, err := Gateway.STKPush(c.Request.Context(), token, phone, order.TotalCost()); err != nil {
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, "/")
}

type registerURLsRequest struct {
	ConfirmationURL string `json:"confirmation_url" binding:"required,url"`
	ValidationURL   string `json:"validation_url" binding:"required,url"`
}

// RegisterURLs registers this deployment's confirmation/validation hooks with
// the gateway and relays whatever the gateway answered.
func RegisterURLs(c *gin.Context) {
	var req registerURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := Gateway.AccessToken(c.Request.Context())
	if err != nil {
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}

	body, err := Gateway.RegisterURLs(c.Request.Context(), token, req.ConfirmationURL, req.ValidationURL)
	if err != nil {
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

// Validation is the gateway's C2B validation probe. Always accepted.
func Validation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
