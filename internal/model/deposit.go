package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DepositStatus string

const (
	DepositPending   DepositStatus = "PENDING"
	DepositConfirmed DepositStatus = "CONFIRMED"
)

type Deposit struct {
	ID          uint64          `gorm:"primaryKey"`
	Provider    string          `gorm:"size:32;not null;uniqueIndex:uniq_deposit_payment"`
	PaymentID   string          `gorm:"size:128;not null;uniqueIndex:uniq_deposit_payment"`
	UserID      uint64          `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Type        string          `gorm:"size:16;not null"`
	Status      DepositStatus   `gorm:"size:16;not null"`
	ConfirmedAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (Deposit) TableName() string { return "deposit" }
