package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods
const (
	PaymentMethodEsewa   = "esewa"
	PaymentMethodKhalti  = "khalti"
	PaymentMethodFonepay = "fonepay"
	PaymentMethodBank    = "bank"
)

// Payment status constants. Success is terminal: once a payment settles the
// row is never rewritten, retries create fresh rows instead.
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `json:"user_id"`
	User            User            `json:"-" gorm:"foreignKey:UserID"`
	OrderID         uint            `json:"order_id"`
	Order           Order           `json:"-" gorm:"foreignKey:OrderID"`
	Method          string          `json:"method" gorm:"size:20"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(10,2)"`
	RefID           string          `json:"ref_id,omitempty" gorm:"size:255"`
	Status          string          `json:"status" gorm:"size:20;default:'pending'"`
	TransactionUUID string          `json:"transaction_uuid,omitempty" gorm:"size:64;index"`
	ProductCode     string          `json:"product_code,omitempty" gorm:"size:64"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ValidPaymentMethod reports whether m is a supported gateway method
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodEsewa, PaymentMethodKhalti, PaymentMethodFonepay, PaymentMethodBank:
		return true
	}
	return false
}
