package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (e *WalletEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (p *PaymentTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
