package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionType string

const (
	CommissionCPA      CommissionType = "cpa"
	CommissionRevShare CommissionType = "revshare"
	// CommissionNone marks a lazily recorded relationship without a sponsor.
	CommissionNone CommissionType = "none"
)

type AffiliateStatus string

const (
	AffiliateOpen    AffiliateStatus = "OPEN"
	AffiliateSettled AffiliateStatus = "SETTLED"
)

// AffiliateHistory is one commission cycle between a referred user and the inviter.
// A relationship has at most one row per commission type.
type AffiliateHistory struct {
	ID              uint64          `gorm:"primaryKey"`
	UserID          uint64          `gorm:"not null;uniqueIndex:uniq_affiliate_relationship"`
	InviterID       *uint64         `gorm:"uniqueIndex:uniq_affiliate_relationship"`
	CommissionType  CommissionType  `gorm:"size:16;not null;uniqueIndex:uniq_affiliate_relationship"`
	Deposited       bool            `gorm:"not null;default:false"`
	DepositedAmount decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'"`
	CommissionPaid  decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'"`
	Status          AffiliateStatus `gorm:"size:16;not null"`
	SettledAt       *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (AffiliateHistory) TableName() string { return "affiliate_history" }
