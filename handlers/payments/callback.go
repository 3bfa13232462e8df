package payments

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/godwins3/beta-store/models"
	"github.com/godwins3/beta-store/utils"
)

// successResultCode is the gateway's sentinel for an authorized payment. It is
// unrelated to the ResultCode 0 in our acknowledgment body, which only confirms
// receipt of the callback.
const successResultCode = 0

type metadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

type stkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []metadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type callbackEnvelope struct {
	Body struct {
		StkCallback stkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// callbackMetadata is the decoded form of the success payload's five positional
// metadata items.
type callbackMetadata struct {
	Amount          decimal.Decimal
	ReceiptNumber   string
	Balance         decimal.Decimal
	TransactionDate string
	PhoneNumber     string
}

func decodeMetadata(items []metadataItem) (*callbackMetadata, error) {
	if len(items) < 5 {
		return nil, fmt.Errorf("callback metadata has %d items, want 5", len(items))
	}

	amount, err := itemDecimal(items[0])
	if err != nil {
		return nil, err
	}
	receipt, err := itemString(items[1])
	if err != nil {
		return nil, err
	}
	balance, err := itemDecimal(items[2])
	if err != nil {
		return nil, err
	}
	date, err := itemString(items[3])
	if err != nil {
		return nil, err
	}
	phone, err := itemString(items[4])
	if err != nil {
		return nil, err
	}

	return &callbackMetadata{
		Amount:          amount,
		ReceiptNumber:   receipt,
		Balance:         balance,
		TransactionDate: date,
		PhoneNumber:     phone,
	}, nil
}

func itemDecimal(item metadataItem) (decimal.Decimal, error) {
	switch v := item.Value.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("metadata item %q: %v", item.Name, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("metadata item %q: want a number, got %T", item.Name, item.Value)
	}
}

func itemString(item metadataItem) (string, error) {
	switch v := item.Value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("metadata item %q: want a string or number, got %T", item.Name, item.Value)
	}
}

// StkPushCallback receives the gateway's asynchronous payment result. The
// caller is the gateway's server, not a browser, so there is no CSRF layer in
// front of it.
//
// On success the payment record and the order's paid flag are written in one
// transaction; a redelivered callback trips the unique index on the request ID
// pair and is answered with a plain conflict message instead of a second write.
// On failure nothing is persisted and the gateway gets the receipt ack.
func StkPushCallback(c *gin.Context) {
	var envelope callbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback payload"})
		return
	}
	data := envelope.Body.StkCallback

	if data.ResultCode == successResultCode {
		meta, err := decodeMetadata(data.CallbackMetadata.Item)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		orderID, ok := utils.Checkout(c).OrderID()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "No active order"})
			return
		}

		var order models.Order
		err = utils.DB.Transaction(func(tx *gorm.DB) error {
			payment := models.MpesaPayment{
				MerchantRequestID:  data.MerchantRequestID,
				CheckoutRequestID:  data.CheckoutRequestID,
				ResultCode:         data.ResultCode,
				ResultDesc:         data.ResultDesc,
				Amount:             meta.Amount,
				MpesaReceiptNumber: meta.ReceiptNumber,
				Balance:            meta.Balance,
				TransactionDate:    meta.TransactionDate,
				PhoneNumber:        meta.PhoneNumber,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			if err := tx.First(&order, orderID).Error; err != nil {
				return err
			}
			order.Paid = true
			return tx.Save(&order).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.String(http.StatusOK, "Payment already exists")
				return
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
			return
		}

		Notifier.OrderConfirmed(order.ID)
		c.Redirect(http.StatusFound, "/payments/completed")
		return
	}

	// ResultCode 0 here acknowledges receipt of the failure callback; it says
	// nothing about the payment, which did not go through.
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Success", "ThirdPartyTransID": 0})
}
