package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetWallet reads a wallet without locking.
func (r *Repository) GetWallet(ctx context.Context, userID uint64) (*model.Wallet, error) {
	var w model.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWalletForUpdate locks wallet row.
func (r *Repository) GetWalletForUpdate(ctx context.Context, tx *gorm.DB, userID uint64) (*model.Wallet, error) {
	var w model.Wallet
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// LockOrCreateWallet locks the user's wallet, creating an empty one first if absent.
func (r *Repository) LockOrCreateWallet(ctx context.Context, tx *gorm.DB, userID uint64) (*model.Wallet, error) {
	w, err := r.GetWalletForUpdate(ctx, tx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	// a concurrent creator wins the insert; we then lock its row
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Wallet{UserID: userID}).Error; err != nil {
		return nil, err
	}
	return r.GetWalletForUpdate(ctx, tx, userID)
}

// UpdateWallet writes all balances with optimistic lock on version.
func (r *Repository) UpdateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet, oldVersion uint64) error {
	res := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("user_id = ? AND version = ?", w.UserID, oldVersion).
		Updates(map[string]interface{}{
			"balance":       w.Balance,
			"balance_bonus": w.BalanceBonus,
			"refer_rewards": w.ReferRewards,
			"version":       oldVersion + 1,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	w.Version = oldVersion + 1
	return nil
}

func balanceKey(userID uint64) string { return fmt.Sprintf("balance:%d", userID) }

// CacheBalance writes Redis.
func (r *Repository) CacheBalance(ctx context.Context, userID uint64, bal decimal.Decimal) error {
	if r.rdb == nil {
		return ErrNoCache
	}
	return r.rdb.Set(ctx, balanceKey(userID), bal.String(), r.cacheTTL).Err()
}

// InvalidateBalance drops the cached balance; the next read refills it from the DB.
func (r *Repository) InvalidateBalance(ctx context.Context, userID uint64) error {
	if r.rdb == nil {
		return ErrNoCache
	}
	return r.rdb.Del(ctx, balanceKey(userID)).Err()
}

// GetCachedBalance reads Redis.
func (r *Repository) GetCachedBalance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	if r.rdb == nil {
		return decimal.Zero, ErrNoCache
	}
	str, err := r.rdb.Get(ctx, balanceKey(userID)).Result()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(str)
}
