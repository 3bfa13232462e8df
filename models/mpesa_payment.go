package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MpesaPayment is one gateway callback result. Rows are written once and never
// updated; the unique index on the request ID pair rejects redelivered callbacks.
type MpesaPayment struct {
	gorm.Model
	MerchantRequestID  string          `gorm:"uniqueIndex:idx_mpesa_request;not null" json:"merchant_request_id"`
	CheckoutRequestID  string          `gorm:"uniqueIndex:idx_mpesa_request;not null" json:"checkout_request_id"`
	ResultCode         int             `gorm:"not null" json:"result_code"`
	ResultDesc         string          `json:"result_desc"`
	Amount             decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	MpesaReceiptNumber string          `json:"mpesa_receipt_number"`
	Balance            decimal.Decimal `gorm:"type:decimal(10,2)" json:"balance"`
	TransactionDate    string          `json:"transaction_date"`
	PhoneNumber        string          `json:"phone_number"`
}
