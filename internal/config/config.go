package config

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Settings  SettingsConfig  `yaml:"settings"`
	Affiliate AffiliateConfig `yaml:"affiliate"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN         string        `yaml:"dsn"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

// GatewayConfig selects the PSP and carries per-provider credentials.
type GatewayConfig struct {
	Default         string        `yaml:"default"`
	CallbackBaseURL string        `yaml:"callback_base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	Suitpay         SuitpayConfig `yaml:"suitpay"`
	Sqala           SqalaConfig   `yaml:"sqala"`
}

type SuitpayConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type SqalaConfig struct {
	BaseURL      string `yaml:"base_url"`
	AppID        string `yaml:"app_id"`
	RefreshToken string `yaml:"refresh_token"`
}

// SettingsConfig holds the deposit limits and first-deposit bonus.
type SettingsConfig struct {
	MinDeposit       decimal.Decimal `yaml:"min_deposit"`
	MaxDeposit       decimal.Decimal `yaml:"max_deposit"`
	InitialBonusRate decimal.Decimal `yaml:"initial_bonus_rate"`
	CurrencyCode     string          `yaml:"currency_code"`
}

type AffiliateConfig struct {
	AccumulateDeposits bool   `yaml:"accumulate_deposits"`
	AdminRole          string `yaml:"admin_role"`
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes yaml bytes, applies env overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// override secrets from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	if cs := os.Getenv("SUITPAY_CLIENT_SECRET"); cs != "" {
		cfg.Gateway.Suitpay.ClientSecret = cs
	}
	if rt := os.Getenv("SQALA_REFRESH_TOKEN"); rt != "" {
		cfg.Gateway.Sqala.RefreshToken = rt
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Postgres.LockTimeout == 0 {
		c.Postgres.LockTimeout = 5 * time.Second
	}
	if c.Gateway.Default == "" {
		c.Gateway.Default = "suitpay"
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = 30 * time.Second
	}
	if c.Gateway.TokenTTL == 0 {
		c.Gateway.TokenTTL = 10 * time.Minute
	}
	if c.Settings.CurrencyCode == "" {
		c.Settings.CurrencyCode = "BRL"
	}
	if c.Affiliate.AdminRole == "" {
		c.Affiliate.AdminRole = "admin"
	}
}
