package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	gorm.Model
	OrderNumber string      `gorm:"unique;not null" json:"order_number"`
	FirstName   string      `gorm:"not null" json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `gorm:"not null" json:"email"`
	PhoneNumber string      `json:"phone_number"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	Paid        bool        `gorm:"default:false" json:"paid"`
	Items       []OrderItem `json:"items"`
}

type OrderItem struct {
	gorm.Model
	OrderID   uint            `gorm:"not null" json:"order_id"`
	ProductID uint            `gorm:"not null" json:"product_id"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
}

// TotalCost sums price * quantity across the order's items.
func (o *Order) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
