package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

// PaymentTransaction records one gateway attempt for a trip booking.
type PaymentTransaction struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID  string              `gorm:"column:transaction_id;not null;uniqueIndex:ux_payment_transactions_txn"`
	IdempotencyKey string              `gorm:"column:idempotency_key;not null;uniqueIndex:ux_payment_transactions_idem"`
	UserID         string              `gorm:"column:user_id;not null;index"`
	TripID         string              `gorm:"column:trip_id;not null;index"`
	Method         enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	SubMethod      *string             `gorm:"column:sub_method;type:text"`
	EMITermMonths  *int                `gorm:"column:emi_term_months"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Discount       decimal.Decimal     `gorm:"column:discount;type:numeric(14,2);not null"`
	Currency       string              `gorm:"column:currency;type:text;not null"`
	Status         enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	FailureReason  *string             `gorm:"column:failure_reason"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
