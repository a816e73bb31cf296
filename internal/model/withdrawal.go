package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalRequested WithdrawalStatus = "REQUESTED"
	// WithdrawalProcessing marks a record claimed by an in-flight PSP payout.
	WithdrawalProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalConfirmed  WithdrawalStatus = "CONFIRMED"
)

// Withdrawal is the local payout record reconciled against the PSP payout.
type Withdrawal struct {
	ID          uint64           `gorm:"primaryKey"`
	UserID      uint64           `gorm:"not null;index"`
	Provider    string           `gorm:"size:32"`
	PaymentID   *string          `gorm:"size:128"`
	Proof       string           `gorm:"size:256"`
	Amount      decimal.Decimal  `gorm:"type:numeric(20,8);not null"`
	Status      WithdrawalStatus `gorm:"size:16;not null"`
	ConfirmedAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Withdrawal) TableName() string { return "withdrawal" }
