package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status constants
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusShipped = "shipped"
)

type Order struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	UserID             uint            `json:"user_id"`
	User               User            `json:"-" gorm:"foreignKey:UserID"`
	Total              decimal.Decimal `json:"total" gorm:"type:decimal(10,2)"`
	Status             string          `json:"status" gorm:"default:'pending'"`
	IsPaid             bool            `json:"is_paid" gorm:"default:false"`
	ShippingAddress    string          `json:"shipping_address"`
	ShippingCity       string          `json:"shipping_city"`
	ShippingPostalCode string          `json:"shipping_postal_code"`
	ShippingCountry    string          `json:"shipping_country"`
	ShippingPhone      string          `json:"shipping_phone"`
	TransactionID      string          `json:"transaction_id,omitempty"`
	TransactionUUID    string          `json:"transaction_uuid,omitempty" gorm:"size:64"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Items              []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
}

// OrderItem freezes the unit price at purchase time
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `json:"order_id"`
	ProductID uint            `json:"product_id"`
	Product   Product         `json:"product" gorm:"foreignKey:ProductID"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2)"`
}
