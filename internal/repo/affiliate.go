package repo

import (
	"context"
	"time"

	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListOpenUndeposited returns open cycles whose commission basis is not yet set.
func (r *Repository) ListOpenUndeposited(ctx context.Context, tx *gorm.DB, userID uint64) ([]model.AffiliateHistory, error) {
	var hs []model.AffiliateHistory
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND deposited = ? AND status = ?", userID, false, model.AffiliateOpen).
		Order("id").Find(&hs).Error
	return hs, err
}

func (r *Repository) HasAffiliateHistory(ctx context.Context, tx *gorm.DB, userID uint64) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&model.AffiliateHistory{}).
		Where("user_id = ?", userID).Count(&n).Error
	return n > 0, err
}

// CreateAffiliateHistory inserts h unless the relationship is already
// recorded; the bool reports whether a row was written.
func (r *Repository) CreateAffiliateHistory(ctx context.Context, tx *gorm.DB, h *model.AffiliateHistory) (bool, error) {
	res := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(h)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkDeposited records amount as the deposit basis of the given cycles.
func (r *Repository) MarkDeposited(ctx context.Context, tx *gorm.DB, ids []uint64, amount decimal.Decimal) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Model(&model.AffiliateHistory{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"deposited": true, "deposited_amount": amount}).Error
}

// AccumulateDeposited adds amount to already-deposited, still open cycles.
func (r *Repository) AccumulateDeposited(ctx context.Context, tx *gorm.DB, userID uint64, amount decimal.Decimal) error {
	var hs []model.AffiliateHistory
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND deposited = ? AND status = ?", userID, true, model.AffiliateOpen).
		Find(&hs).Error; err != nil {
		return err
	}
	for _, h := range hs {
		if err := tx.WithContext(ctx).Model(&model.AffiliateHistory{}).
			Where("id = ?", h.ID).
			Update("deposited_amount", h.DepositedAmount.Add(amount)).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindOpenCPAForUpdate locks the deposited, unpaid CPA cycle of userID; nil if none.
func (r *Repository) FindOpenCPAForUpdate(ctx context.Context, tx *gorm.DB, userID uint64) (*model.AffiliateHistory, error) {
	var h model.AffiliateHistory
	ok, err := first(tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND commission_type = ? AND deposited = ? AND status = ?",
			userID, model.CommissionCPA, true, model.AffiliateOpen).
		Order("id"), &h)
	if err != nil || !ok {
		return nil, err
	}
	return &h, nil
}

// SettleAffiliate flips OPEN -> SETTLED recording the commission; false if already settled.
func (r *Repository) SettleAffiliate(ctx context.Context, tx *gorm.DB, id uint64, paid decimal.Decimal) (bool, error) {
	now := time.Now()
	res := tx.WithContext(ctx).Model(&model.AffiliateHistory{}).
		Where("id = ? AND status = ?", id, model.AffiliateOpen).
		Updates(map[string]interface{}{
			"status":          model.AffiliateSettled,
			"commission_paid": paid,
			"settled_at":      &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
