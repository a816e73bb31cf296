package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	UserID       uint64          `gorm:"primaryKey;autoIncrement:false;column:user_id"`
	Balance      decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'"`
	BalanceBonus decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'"`
	ReferRewards decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'"`
	Version      uint64          `gorm:"not null;default:0"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallet" }

// WalletCredit is a set of increments applied to one wallet row.
type WalletCredit struct {
	Balance      decimal.Decimal
	BalanceBonus decimal.Decimal
	ReferRewards decimal.Decimal
}

// Apply returns the wallet after the increments.
func (w Wallet) Apply(c WalletCredit) Wallet {
	w.Balance = w.Balance.Add(c.Balance)
	w.BalanceBonus = w.BalanceBonus.Add(c.BalanceBonus)
	w.ReferRewards = w.ReferRewards.Add(c.ReferRewards)
	return w
}
