package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/richardliu001/pix-settlement/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AffiliateOptions struct {
	// AccumulateDeposits adds later deposits to open, already deposited cycles
	// instead of keeping the first qualifying amount.
	AccumulateDeposits bool
	AdminRole          string
}

// AffiliateSettler records deposits against referral cycles, pays CPA
// commissions and confirms the deposit.
type AffiliateSettler struct {
	repo repo.RepositoryInterface
	opts AffiliateOptions
	log  *zap.SugaredLogger
}

func NewAffiliateSettler(r repo.RepositoryInterface, opts AffiliateOptions, logger *zap.SugaredLogger) *AffiliateSettler {
	if opts.AdminRole == "" {
		opts.AdminRole = "admin"
	}
	return &AffiliateSettler{repo: r, opts: opts, log: logger}
}

type depositNotice struct {
	UserName  string `json:"user_name"`
	Amount    string `json:"amount"`
	PaymentID string `json:"payment_id"`
}

// Settle is keyed on the pending deposit of paymentID: once that deposit is
// confirmed, further calls do nothing.
func (s *AffiliateSettler) Settle(ctx context.Context, provider, paymentID string, userID uint64, amount decimal.Decimal) error {
	return s.repo.Tx(ctx, func(tx *gorm.DB) error {
		dep, err := s.repo.FindPendingDepositForUpdate(ctx, tx, provider, paymentID)
		if err != nil {
			return err
		}
		if dep == nil {
			return nil
		}

		open, err := s.openCycles(ctx, tx, userID)
		if err != nil {
			return err
		}
		if s.opts.AccumulateDeposits {
			if err := s.repo.AccumulateDeposited(ctx, tx, userID, amount); err != nil {
				return err
			}
		}
		ids := make([]uint64, 0, len(open))
		for _, h := range open {
			ids = append(ids, h.ID)
		}
		if err := s.repo.MarkDeposited(ctx, tx, ids, amount); err != nil {
			return err
		}

		if err := s.payCPA(ctx, tx, userID); err != nil {
			return err
		}

		ok, err := s.repo.ConfirmDeposit(ctx, tx, dep.ID)
		if err != nil || !ok {
			return err
		}
		return s.notifyAdmins(ctx, tx, dep, amount)
	})
}

// openCycles loads the open, not yet deposited cycles. A user without any
// cycle gets one recorded from the users table and the lookup runs once more.
func (s *AffiliateSettler) openCycles(ctx context.Context, tx *gorm.DB, userID uint64) ([]model.AffiliateHistory, error) {
	for attempt := 0; ; attempt++ {
		hs, err := s.repo.ListOpenUndeposited(ctx, tx, userID)
		if err != nil || len(hs) > 0 || attempt > 0 {
			return hs, err
		}
		exists, err := s.repo.HasAffiliateHistory(ctx, tx, userID)
		if err != nil || exists {
			return nil, err
		}
		if err := s.recordRelationship(ctx, tx, userID); err != nil {
			return nil, err
		}
	}
}

func (s *AffiliateSettler) recordRelationship(ctx context.Context, tx *gorm.DB, userID uint64) error {
	u, err := s.repo.GetUser(ctx, tx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Warnw("affiliate: unknown user", "user_id", userID)
		return nil
	}
	if err != nil {
		return err
	}
	h := &model.AffiliateHistory{
		UserID:         userID,
		CommissionType: model.CommissionNone,
		Status:         model.AffiliateOpen,
	}
	if u.InviterID != nil {
		inviter, err := s.repo.GetUser(ctx, tx, *u.InviterID)
		switch {
		case err == nil:
			h.InviterID = &inviter.ID
			h.CommissionType = inviter.AffiliateType
			if h.CommissionType == "" {
				h.CommissionType = model.CommissionCPA
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
	}
	created, err := s.repo.CreateAffiliateHistory(ctx, tx, h)
	if err == nil && !created {
		s.log.Infow("affiliate relationship already recorded", "user_id", userID)
	}
	return err
}

// payCPA pays the inviter's flat commission once the deposit basis reaches
// the inviter's baseline. The history row and the wallet row are both locked.
func (s *AffiliateSettler) payCPA(ctx context.Context, tx *gorm.DB, userID uint64) error {
	h, err := s.repo.FindOpenCPAForUpdate(ctx, tx, userID)
	if err != nil || h == nil || h.InviterID == nil {
		return err
	}
	inviter, err := s.repo.GetUser(ctx, tx, *h.InviterID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if h.DepositedAmount.LessThan(inviter.AffiliateBaseline) {
		s.log.Infow("cpa below baseline", "user_id", userID, "inviter_id", inviter.ID,
			"deposited", h.DepositedAmount, "baseline", inviter.AffiliateBaseline)
		return nil
	}

	w, err := s.repo.LockOrCreateWallet(ctx, tx, inviter.ID)
	if err != nil {
		return err
	}
	ok, err := s.repo.SettleAffiliate(ctx, tx, h.ID, inviter.AffiliateCpa)
	if err != nil || !ok {
		return err
	}
	next := w.Apply(model.WalletCredit{ReferRewards: inviter.AffiliateCpa})
	if err := s.repo.UpdateWallet(ctx, tx, &next, w.Version); err != nil {
		return fmt.Errorf("credit cpa: %w", err)
	}
	s.log.Infow("cpa paid", "user_id", userID, "inviter_id", inviter.ID, "commission", inviter.AffiliateCpa)
	return nil
}

func (s *AffiliateSettler) notifyAdmins(ctx context.Context, tx *gorm.DB, dep *model.Deposit, amount decimal.Decimal) error {
	admins, err := s.repo.ListUserIDsByRole(ctx, tx, s.opts.AdminRole)
	if err != nil {
		return err
	}
	name := ""
	if u, err := s.repo.GetUser(ctx, tx, dep.UserID); err == nil {
		name = u.Name
	}
	return s.repo.Notify(ctx, tx, repo.Notification{
		Aggregate:   "Deposit",
		AggregateID: dep.ID,
		EventType:   model.EventDepositConfirmed,
		Recipients:  admins,
		Payload:     depositNotice{UserName: name, Amount: amount.String(), PaymentID: dep.PaymentID},
	})
}
