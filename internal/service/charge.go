package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/richardliu001/pix-settlement/internal/apperr"
	"github.com/richardliu001/pix-settlement/internal/gateway"
	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/richardliu001/pix-settlement/internal/money"
	"github.com/richardliu001/pix-settlement/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	methodPix   = "PIX"
	depositPix  = "pix"
	statusPaid  = "PAID"
	callbackFmt = "%s/v1/callbacks/%s"
)

// ChargeService creates PIX charges and reconciles their status with the PSP.
type ChargeService struct {
	repo         repo.RepositoryInterface
	gateways     *gateway.Registry
	settings     SettingsProvider
	finalizer    *Finalizer
	callbackBase string
	log          *zap.SugaredLogger
}

func NewChargeService(r repo.RepositoryInterface, gateways *gateway.Registry, settings SettingsProvider,
	finalizer *Finalizer, callbackBase string, logger *zap.SugaredLogger) *ChargeService {
	return &ChargeService{
		repo:         r,
		gateways:     gateways,
		settings:     settings,
		finalizer:    finalizer,
		callbackBase: strings.TrimRight(callbackBase, "/"),
		log:          logger,
	}
}

type ChargeInput struct {
	UserID        uint64
	Amount        decimal.Decimal
	PayerDocument string
}

type ChargeResult struct {
	Provider      string
	ExternalID    string
	Payload       string
	TransactionID uint64
}

// StatusResult is the reconciled status of one charge. Code is the
// provider's raw code, replaced by "PAID" once the charge is settled locally.
type StatusResult struct {
	Provider   string
	ExternalID string
	Code       string
	Status     gateway.Status
	Outcome    Outcome
}

func (r StatusResult) Paid() bool {
	return r.Outcome == OutcomeSettled || r.Outcome == OutcomeAlreadySettled
}

// RequestCharge validates the request, asks the default provider for a PIX
// charge and records the pending transaction and deposit. Nothing is stored
// when the provider call fails.
func (s *ChargeService) RequestCharge(ctx context.Context, in ChargeInput) (*ChargeResult, error) {
	st, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	amount := money.Prepare(in.Amount)
	if err := validateAmount(amount, st); err != nil {
		return nil, err
	}
	doc := money.Digits(in.PayerDocument)
	if len(doc) != 11 && len(doc) != 14 {
		return nil, apperr.ValidationFailed("payer document must have 11 or 14 digits")
	}

	user, err := s.repo.GetUser(ctx, s.repo.DB(ctx), in.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("user %d not found", in.UserID))
	}
	if err != nil {
		return nil, err
	}

	g, err := s.gateways.Default()
	if err != nil {
		return nil, err
	}
	charge, err := g.RequestCharge(ctx, gateway.ChargeRequest{
		Amount: amount,
		Payer: gateway.Payer{
			Name:     user.Name,
			Document: doc,
			Phone:    money.Digits(user.Phone),
			Email:    user.Email,
		},
		CallbackURL: s.callbackURL(g.Name()),
	})
	if err != nil {
		return nil, err
	}

	t := &model.Transaction{
		Provider:  g.Name(),
		PaymentID: charge.ExternalID,
		UserID:    user.ID,
		Method:    methodPix,
		Amount:    amount,
		Currency:  st.CurrencyCode,
	}
	err = s.repo.Tx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreatePendingTransaction(ctx, tx, t); err != nil {
			return err
		}
		return s.repo.CreatePendingDeposit(ctx, tx, &model.Deposit{
			Provider:  g.Name(),
			PaymentID: charge.ExternalID,
			UserID:    user.ID,
			Amount:    amount,
			Type:      depositPix,
		})
	})
	if err != nil {
		// the provider holds a charge we have no record of; a payment on it needs manual reconciliation
		s.log.Errorw("charge created but not recorded", "provider", g.Name(), "payment_id", charge.ExternalID,
			"user_id", user.ID, "amount", amount, "error", err)
		return nil, fmt.Errorf("record charge %s: %w", charge.ExternalID, err)
	}
	s.log.Infow("charge created", "provider", g.Name(), "payment_id", charge.ExternalID,
		"user_id", user.ID, "amount", amount)
	return &ChargeResult{
		Provider:      g.Name(),
		ExternalID:    charge.ExternalID,
		Payload:       charge.Payload,
		TransactionID: t.ID,
	}, nil
}

func validateAmount(amount decimal.Decimal, st Settings) error {
	if !amount.IsPositive() {
		return apperr.ValidationFailed("amount must be positive")
	}
	if amount.LessThan(st.MinDeposit) {
		return apperr.ValidationFailed(fmt.Sprintf("amount below minimum deposit %s", st.MinDeposit))
	}
	if st.MaxDeposit.IsPositive() && amount.GreaterThan(st.MaxDeposit) {
		return apperr.ValidationFailed(fmt.Sprintf("amount above maximum deposit %s", st.MaxDeposit))
	}
	return nil
}

func (s *ChargeService) callbackURL(provider string) string {
	if s.callbackBase == "" {
		return ""
	}
	return fmt.Sprintf(callbackFmt, s.callbackBase, provider)
}

// ConsultStatus asks the provider for the charge status and finalizes the
// local transaction when the provider reports it settled.
func (s *ChargeService) ConsultStatus(ctx context.Context, provider, externalID string) (*StatusResult, error) {
	g, err := s.gateways.Get(provider)
	if err != nil {
		return nil, err
	}
	raw, err := g.QueryStatus(ctx, externalID)
	if err != nil {
		return nil, err
	}
	res := &StatusResult{
		Provider:   g.Name(),
		ExternalID: externalID,
		Code:       raw.Code,
		Status:     raw.Status,
	}
	if raw.Status != gateway.StatusSettled {
		return res, nil
	}
	outcome, err := s.finalizer.Finalize(ctx, g.Name(), externalID)
	if err != nil {
		return nil, err
	}
	res.Outcome = outcome
	if res.Paid() {
		res.Code = statusPaid
	}
	return res, nil
}

// HandleCallback resolves the charge a provider callback refers to and
// reconciles it. The callback body is only trusted for the id.
func (s *ChargeService) HandleCallback(ctx context.Context, provider string, body []byte) (*StatusResult, error) {
	g, err := s.gateways.Get(provider)
	if err != nil {
		return nil, err
	}
	id, err := g.CallbackID(body)
	if err != nil {
		return nil, apperr.ValidationFailed(err.Error())
	}
	return s.ConsultStatus(ctx, g.Name(), id)
}
