package service

import (
	"context"

	"github.com/richardliu001/pix-settlement/internal/config"
	"github.com/shopspring/decimal"
)

// Settings are the operator-tunable deposit parameters.
type Settings struct {
	MinDeposit       decimal.Decimal
	MaxDeposit       decimal.Decimal
	InitialBonusRate decimal.Decimal
	CurrencyCode     string
}

type SettingsProvider interface {
	Settings(ctx context.Context) (Settings, error)
}

// StaticSettings serves fixed settings, typically from the config file.
type StaticSettings Settings

func (s StaticSettings) Settings(context.Context) (Settings, error) { return Settings(s), nil }

func SettingsFromConfig(c config.SettingsConfig) StaticSettings {
	return StaticSettings{
		MinDeposit:       c.MinDeposit,
		MaxDeposit:       c.MaxDeposit,
		InitialBonusRate: c.InitialBonusRate,
		CurrencyCode:     c.CurrencyCode,
	}
}
