package repo

import (
	"context"
	"time"

	"github.com/richardliu001/pix-settlement/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateWithdrawal(ctx context.Context, tx *gorm.DB, w *model.Withdrawal) error {
	if w.Status == "" {
		w.Status = model.WithdrawalRequested
	}
	return tx.WithContext(ctx).Create(w).Error
}

// GetWithdrawal returns the record or gorm.ErrRecordNotFound.
func (r *Repository) GetWithdrawal(ctx context.Context, tx *gorm.DB, id uint64) (*model.Withdrawal, error) {
	var w model.Withdrawal
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWithdrawalForUpdate locks the record.
func (r *Repository) GetWithdrawalForUpdate(ctx context.Context, tx *gorm.DB, id uint64) (*model.Withdrawal, error) {
	var w model.Withdrawal
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// ClaimWithdrawal flips REQUESTED -> PROCESSING; false when another payout holds it.
func (r *Repository) ClaimWithdrawal(ctx context.Context, tx *gorm.DB, id uint64) (bool, error) {
	return r.moveWithdrawal(ctx, tx, id, model.WithdrawalRequested, model.WithdrawalProcessing)
}

// ReleaseWithdrawal hands a claimed record back: PROCESSING -> REQUESTED.
func (r *Repository) ReleaseWithdrawal(ctx context.Context, tx *gorm.DB, id uint64) (bool, error) {
	return r.moveWithdrawal(ctx, tx, id, model.WithdrawalProcessing, model.WithdrawalRequested)
}

func (r *Repository) moveWithdrawal(ctx context.Context, tx *gorm.DB, id uint64, from, to model.WithdrawalStatus) (bool, error) {
	res := tx.WithContext(ctx).Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ConfirmWithdrawal flips PROCESSING -> CONFIRMED with the PSP's id and proof.
func (r *Repository) ConfirmWithdrawal(ctx context.Context, tx *gorm.DB, id uint64, paymentID, proof string) (bool, error) {
	now := time.Now()
	res := tx.WithContext(ctx).Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, model.WithdrawalProcessing).
		Updates(map[string]interface{}{
			"status":       model.WithdrawalConfirmed,
			"payment_id":   paymentID,
			"proof":        proof,
			"confirmed_at": &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
