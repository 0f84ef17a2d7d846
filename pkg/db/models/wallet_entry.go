package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

// WalletEntry is an append-only ledger row. A wallet's balance is the sum of
// its credits minus its debits.
type WalletEntry struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID    string                `gorm:"column:user_id;not null;uniqueIndex:ux_wallet_entries_user_reference,priority:1"`
	Type      enums.WalletEntryType `gorm:"column:type;type:text;not null"`
	Amount    decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null"`
	Reference string                `gorm:"column:reference;not null;uniqueIndex:ux_wallet_entries_user_reference,priority:2"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (WalletEntry) TableName() string { return "wallet_entries" }
