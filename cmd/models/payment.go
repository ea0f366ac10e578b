package models

import (
	"gorm.io/gorm"
)

const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

type Payment struct {
	gorm.Model
	UserID         uint    `gorm:"column:user_id;not null;index" json:"user_id"`
	SubscriptionID uint    `gorm:"column:subscription_id" json:"subscription_id,omitempty"`
	Amount         float64 `gorm:"column:amount;not null" json:"amount"`
	Currency       string  `gorm:"column:currency;size:10;not null" json:"currency"`
	Status         string  `gorm:"column:status;size:20;not null;default:'PENDING'" json:"status"`
	PaymentMethod  string  `gorm:"column:payment_method;size:50" json:"payment_method"`
	StripePaymentID string `gorm:"column:stripe_payment_id;size:255;index" json:"stripe_payment_id,omitempty"`

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Invoice *Invoice `gorm:"foreignKey:PaymentID" json:"invoice,omitempty"`
}

type Invoice struct {
	gorm.Model
	PaymentID   uint    `gorm:"column:payment_id;not null;index" json:"payment_id"`
	InvoiceNo   string  `gorm:"column:invoice_no;size:64;uniqueIndex;not null" json:"invoice_no"`
	TaxRate     float64 `gorm:"column:tax_rate;not null" json:"tax_rate"`
	TaxAmount   float64 `gorm:"column:tax_amount;not null" json:"tax_amount"`
	TotalAmount float64 `gorm:"column:total_amount;not null" json:"total_amount"`
}
