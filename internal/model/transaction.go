package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
	TransactionSettled TransactionStatus = "SETTLED"
)

// Transaction is the charge record a PSP payment id settles exactly once.
type Transaction struct {
	ID        uint64            `gorm:"primaryKey"`
	Provider  string            `gorm:"size:32;not null;uniqueIndex:uniq_transaction_payment"`
	PaymentID string            `gorm:"size:128;not null;uniqueIndex:uniq_transaction_payment"`
	UserID    uint64            `gorm:"not null;index"`
	Method    string            `gorm:"size:16;not null"`
	Amount    decimal.Decimal   `gorm:"type:numeric(20,8);not null"`
	Currency  string            `gorm:"size:8;not null"`
	Status    TransactionStatus `gorm:"size:16;not null;index"`
	SettledAt *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Transaction) TableName() string { return "transaction" }
