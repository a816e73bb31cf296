package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/richardliu001/pix-settlement/internal/money"
	"github.com/richardliu001/pix-settlement/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Outcome of a finalize call. None of them is an error.
type Outcome string

const (
	OutcomeSettled        Outcome = "SETTLED"
	OutcomeAlreadySettled Outcome = "ALREADY_SETTLED"
	OutcomeNotFound       Outcome = "NOT_FOUND"
)

// CommissionSettler runs after a successful settlement.
type CommissionSettler interface {
	Settle(ctx context.Context, provider, paymentID string, userID uint64, amount decimal.Decimal) error
}

var errLostRace = errors.New("transaction settled concurrently")

// Finalizer moves a transaction from pending to settled exactly once and
// credits the payer's wallet in the same database transaction.
type Finalizer struct {
	repo      repo.RepositoryInterface
	settings  SettingsProvider
	affiliate CommissionSettler
	log       *zap.SugaredLogger
}

func NewFinalizer(r repo.RepositoryInterface, settings SettingsProvider, affiliate CommissionSettler, logger *zap.SugaredLogger) *Finalizer {
	return &Finalizer{repo: r, settings: settings, affiliate: affiliate, log: logger}
}

// Finalize settles the pending transaction identified by provider/paymentID.
//
// The wallet credit, the first-deposit bonus and the status flip commit or
// roll back together; on error the transaction stays pending and the call
// can be retried. The affiliate follow-up runs after commit and its failure
// is only logged. A repeated call for an already settled payment re-runs the
// follow-up, which is a no-op once the deposit is confirmed.
func (f *Finalizer) Finalize(ctx context.Context, provider, paymentID string) (Outcome, error) {
	st, err := f.settings.Settings(ctx)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}

	var (
		outcome Outcome
		txn     *model.Transaction
		wallet  model.Wallet
	)
	err = f.repo.Tx(ctx, func(tx *gorm.DB) error {
		t, err := f.repo.FindPendingByPaymentID(ctx, tx, provider, paymentID)
		if err != nil {
			return err
		}
		if t == nil {
			existing, err := f.repo.FindTransaction(ctx, tx, provider, paymentID)
			if err != nil {
				return err
			}
			if existing != nil && existing.Status == model.TransactionSettled {
				outcome, txn = OutcomeAlreadySettled, existing
			} else {
				outcome = OutcomeNotFound
			}
			return nil
		}

		w, err := f.repo.LockOrCreateWallet(ctx, tx, t.UserID)
		if err != nil {
			return err
		}
		prior, err := f.repo.CountSettledTransactions(ctx, tx, t.UserID)
		if err != nil {
			return err
		}
		credit := model.WalletCredit{Balance: t.Amount}
		if prior == 0 {
			credit.BalanceBonus = money.Percentage(st.InitialBonusRate, t.Amount)
		}
		next := w.Apply(credit)
		if err := f.repo.UpdateWallet(ctx, tx, &next, w.Version); err != nil {
			return err
		}
		ok, err := f.repo.MarkTransactionSettled(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}
		outcome, txn, wallet = OutcomeSettled, t, next
		return nil
	})
	if errors.Is(err, errLostRace) {
		return OutcomeAlreadySettled, nil
	}
	if err != nil {
		return "", fmt.Errorf("finalize %s/%s: %w", provider, paymentID, err)
	}

	switch outcome {
	case OutcomeNotFound:
		f.log.Infow("finalize: unknown payment", "provider", provider, "payment_id", paymentID)
		return outcome, nil
	case OutcomeSettled:
		f.log.Infow("transaction settled", "provider", provider, "payment_id", paymentID,
			"user_id", txn.UserID, "amount", txn.Amount, "balance", wallet.Balance, "bonus", wallet.BalanceBonus)
		if err := f.repo.InvalidateBalance(ctx, txn.UserID); err != nil && !errors.Is(err, repo.ErrNoCache) {
			f.log.Warnw("invalidate cached balance", "user_id", txn.UserID, "error", err)
		}
	}
	f.followUp(ctx, provider, paymentID, txn)
	return outcome, nil
}

func (f *Finalizer) followUp(ctx context.Context, provider, paymentID string, txn *model.Transaction) {
	if f.affiliate == nil || txn == nil {
		return
	}
	if err := f.affiliate.Settle(ctx, provider, paymentID, txn.UserID, txn.Amount); err != nil {
		f.log.Warnw("affiliate settlement failed", "provider", provider, "payment_id", paymentID,
			"user_id", txn.UserID, "error", err)
	}
}
