package repo

import (
	"context"
	"time"

	"github.com/richardliu001/pix-settlement/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreatePendingTransaction inserts a charge in PENDING state.
func (r *Repository) CreatePendingTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	t.Status = model.TransactionPending
	t.SettledAt = nil
	return tx.WithContext(ctx).Create(t).Error
}

// CreatePendingDeposit inserts the deposit bookkeeping row in PENDING state.
func (r *Repository) CreatePendingDeposit(ctx context.Context, tx *gorm.DB, d *model.Deposit) error {
	d.Status = model.DepositPending
	d.ConfirmedAt = nil
	return tx.WithContext(ctx).Create(d).Error
}

// FindPendingByPaymentID locks the pending transaction for paymentID; nil if none.
func (r *Repository) FindPendingByPaymentID(ctx context.Context, tx *gorm.DB, provider, paymentID string) (*model.Transaction, error) {
	var t model.Transaction
	ok, err := first(tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider = ? AND payment_id = ? AND status = ?", provider, paymentID, model.TransactionPending), &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

// FindTransaction returns the transaction in any state; nil if none.
func (r *Repository) FindTransaction(ctx context.Context, tx *gorm.DB, provider, paymentID string) (*model.Transaction, error) {
	var t model.Transaction
	ok, err := first(tx.WithContext(ctx).
		Where("provider = ? AND payment_id = ?", provider, paymentID), &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

// MarkTransactionSettled flips PENDING -> SETTLED; false when it was not pending.
func (r *Repository) MarkTransactionSettled(ctx context.Context, tx *gorm.DB, id uint64) (bool, error) {
	now := time.Now()
	res := tx.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.TransactionPending).
		Updates(map[string]interface{}{"status": model.TransactionSettled, "settled_at": &now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountSettledTransactions counts the user's already settled transactions.
func (r *Repository) CountSettledTransactions(ctx context.Context, tx *gorm.DB, userID uint64) (int64, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&model.Transaction{}).
		Where("user_id = ? AND status = ?", userID, model.TransactionSettled).
		Count(&n).Error
	return n, err
}

// FindPendingDepositForUpdate locks the pending deposit for paymentID; nil if none.
func (r *Repository) FindPendingDepositForUpdate(ctx context.Context, tx *gorm.DB, provider, paymentID string) (*model.Deposit, error) {
	var d model.Deposit
	ok, err := first(tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider = ? AND payment_id = ? AND status = ?", provider, paymentID, model.DepositPending), &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

// ConfirmDeposit flips PENDING -> CONFIRMED; false when it was already confirmed.
func (r *Repository) ConfirmDeposit(ctx context.Context, tx *gorm.DB, id uint64) (bool, error) {
	now := time.Now()
	res := tx.WithContext(ctx).Model(&model.Deposit{}).
		Where("id = ? AND status = ?", id, model.DepositPending).
		Updates(map[string]interface{}{"status": model.DepositConfirmed, "confirmed_at": &now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
