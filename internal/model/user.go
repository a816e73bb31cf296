package model

import "github.com/shopspring/decimal"

// User carries the payer identity and, for inviters, the affiliate terms.
type User struct {
	ID                uint64          `gorm:"primaryKey"`
	Name              string          `gorm:"size:128;not null"`
	Email             string          `gorm:"size:128"`
	Phone             string          `gorm:"size:32"`
	Role              string          `gorm:"size:16;not null;default:'user';index"`
	InviterID         *uint64         `gorm:"index"`
	AffiliateType     CommissionType  `gorm:"size:16;not null;default:'cpa'"`
	AffiliateBaseline decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'"`
	AffiliateCpa      decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'"`
}

func (User) TableName() string { return "users" }
