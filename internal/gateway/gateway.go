// Package gateway adapts PIX payment-service providers to one contract.
//
// Each provider maps its own credential scheme and status vocabulary onto
// Pending, Settled or Rejected. Transport failures and non-2xx answers are
// reported as apperr.ErrGatewayUnavailable, credential failures as
// apperr.ErrAuthenticationFailed; a failed call never yields a status.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusSettled  Status = "SETTLED"
	StatusRejected Status = "REJECTED"
)

// Token is a provider credential with its expiry. A zero ExpiresAt never expires.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && (t.ExpiresAt.IsZero() || now.Before(t.ExpiresAt))
}

type Payer struct {
	Name     string
	Document string
	Phone    string
	Email    string
}

type ChargeRequest struct {
	Amount      decimal.Decimal
	Payer       Payer
	CallbackURL string
}

// Charge is a created PIX charge; Payload is the copy-and-paste / QR content.
type Charge struct {
	ExternalID string
	Payload    string
}

// RawStatus keeps the provider's own code next to the normalized status.
type RawStatus struct {
	Code   string
	Status Status
}

type PayoutRequest struct {
	Key         string
	KeyType     string
	Amount      decimal.Decimal
	CallbackURL string
}

type PayoutResult struct {
	ExternalID string
	Proof      string
	Code       string
	Outcome    Status
}

type Gateway interface {
	Name() string
	Authenticate(ctx context.Context) (Token, error)
	RequestCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	QueryStatus(ctx context.Context, externalID string) (RawStatus, error)
	RequestPayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error)
	// CallbackID extracts the external id from a provider callback body.
	CallbackID(body []byte) (string, error)
}
