package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardliu001/pix-settlement/internal/apperr"
	"github.com/richardliu001/pix-settlement/internal/gateway"
	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/richardliu001/pix-settlement/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PayoutOutcome string

const (
	PayoutConfirmed PayoutOutcome = "CONFIRMED"
	PayoutRejected  PayoutOutcome = "REJECTED"
)

// Destination is a PIX key.
type Destination struct {
	Key     string
	KeyType string
}

type PayoutService struct {
	repo         repo.RepositoryInterface
	gateways     *gateway.Registry
	callbackBase string
	adminRole    string
	log          *zap.SugaredLogger
}

func NewPayoutService(r repo.RepositoryInterface, gateways *gateway.Registry, callbackBase, adminRole string, logger *zap.SugaredLogger) *PayoutService {
	return &PayoutService{repo: r, gateways: gateways, callbackBase: callbackBase, adminRole: adminRole, log: logger}
}

type payoutNotice struct {
	WithdrawalID uint64 `json:"withdrawal_id"`
	PaymentID    string `json:"payment_id"`
	Amount       string `json:"amount"`
}

// RequestPayout sends amount to dest through the record's provider.
//
// The record is claimed (REQUESTED -> PROCESSING) in its own short
// transaction before the provider is called, so concurrent triggers for one
// record reach the provider at most once. A rejection or a failed call hands
// the record back as REQUESTED; an accepted payout confirms it.
func (s *PayoutService) RequestPayout(ctx context.Context, recordID uint64, dest Destination, amount decimal.Decimal) (PayoutOutcome, error) {
	w, err := s.repo.GetWithdrawal(ctx, s.repo.DB(ctx), recordID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.NotFound(fmt.Sprintf("withdrawal %d not found", recordID))
	}
	if err != nil {
		return "", err
	}
	if w.Status != model.WithdrawalRequested {
		return "", apperr.Conflict(fmt.Sprintf("withdrawal %d is %s", recordID, w.Status))
	}
	if amount.IsZero() {
		amount = w.Amount
	}
	if !amount.IsPositive() {
		return "", apperr.ValidationFailed("amount must be positive")
	}
	if dest.Key == "" {
		return "", apperr.ValidationFailed("destination key is required")
	}

	g, err := s.gateways.Get(w.Provider)
	if err != nil {
		return "", err
	}
	if err := s.claim(ctx, recordID); err != nil {
		return "", err
	}

	res, err := g.RequestPayout(ctx, gateway.PayoutRequest{
		Key:         dest.Key,
		KeyType:     dest.KeyType,
		Amount:      amount,
		CallbackURL: s.callbackBase,
	})
	if err != nil {
		s.release(ctx, recordID)
		return "", err
	}
	if res.Outcome != gateway.StatusSettled {
		s.log.Infow("payout rejected", "withdrawal_id", recordID, "provider", g.Name(), "code", res.Code)
		s.release(ctx, recordID)
		return PayoutRejected, nil
	}

	err = s.repo.Tx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.GetWithdrawalForUpdate(ctx, tx, recordID); err != nil {
			return err
		}
		ok, err := s.repo.ConfirmWithdrawal(ctx, tx, recordID, res.ExternalID, res.Proof)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict(fmt.Sprintf("withdrawal %d is no longer processing", recordID))
		}
		admins, err := s.repo.ListUserIDsByRole(ctx, tx, s.adminRole)
		if err != nil {
			return err
		}
		return s.repo.Notify(ctx, tx, repo.Notification{
			Aggregate:   "Withdrawal",
			AggregateID: recordID,
			EventType:   model.EventPayoutConfirmed,
			Recipients:  append([]uint64{w.UserID}, admins...),
			Payload:     payoutNotice{WithdrawalID: recordID, PaymentID: res.ExternalID, Amount: amount.String()},
		})
	})
	if err != nil {
		// the provider already paid; the record stays PROCESSING until reconciled
		s.log.Errorw("payout sent but not recorded", "withdrawal_id", recordID, "provider", g.Name(),
			"payment_id", res.ExternalID, "proof", res.Proof, "amount", amount, "error", err)
		return "", err
	}
	s.log.Infow("payout confirmed", "withdrawal_id", recordID, "provider", g.Name(), "payment_id", res.ExternalID)
	return PayoutConfirmed, nil
}

func (s *PayoutService) claim(ctx context.Context, recordID uint64) error {
	return s.repo.Tx(ctx, func(tx *gorm.DB) error {
		w, err := s.repo.GetWithdrawalForUpdate(ctx, tx, recordID)
		if err != nil {
			return err
		}
		ok, err := s.repo.ClaimWithdrawal(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict(fmt.Sprintf("withdrawal %d is %s", recordID, w.Status))
		}
		return nil
	})
}

func (s *PayoutService) release(ctx context.Context, recordID uint64) {
	if _, err := s.repo.ReleaseWithdrawal(ctx, s.repo.DB(ctx), recordID); err != nil {
		s.log.Errorw("release withdrawal", "withdrawal_id", recordID, "error", err)
	}
}
