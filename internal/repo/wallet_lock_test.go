package repo

import (
	"context"
	"sync"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/richardliu001/pix-settlement/internal/logger"
	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/richardliu001/pix-settlement/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestWalletLock_ConcurrentCreditsAreNotLost(t *testing.T) {
	db := testutil.NewTestDB(t)
	require.NoError(t, db.Create(&model.Wallet{UserID: 1, Balance: decimal.NewFromInt(100)}).Error)

	r := NewRepository(db, nil, nil, logger.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Tx(ctx, func(tx *gorm.DB) error {
				w, err := r.GetWalletForUpdate(ctx, tx, 1)
				if err != nil {
					return err
				}
				next := w.Apply(model.WalletCredit{Balance: decimal.NewFromInt(10)})
				return r.UpdateWallet(ctx, tx, &next, w.Version)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	w, err := r.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(150)), "balance=%s", w.Balance)
	assert.Equal(t, uint64(5), w.Version)
}

func TestUpdateWallet_StaleVersionConflicts(t *testing.T) {
	db := testutil.NewTestDB(t)
	r := NewRepository(db, nil, nil, logger.Nop())
	ctx := context.Background()

	w, err := r.LockOrCreateWallet(ctx, db, 7)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())

	next := w.Apply(model.WalletCredit{BalanceBonus: decimal.NewFromInt(3)})
	require.NoError(t, r.UpdateWallet(ctx, db, &next, w.Version))
	assert.ErrorIs(t, r.UpdateWallet(ctx, db, &next, w.Version), ErrVersionConflict)

	again, err := r.LockOrCreateWallet(ctx, db, 7)
	require.NoError(t, err)
	assert.True(t, again.BalanceBonus.Equal(decimal.NewFromInt(3)))
}

func TestBalanceCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	r := NewRepository(nil, rdb, nil, logger.Nop())
	ctx := context.Background()

	mock.ExpectSet("balance:9", "42.5", r.cacheTTL).SetVal("OK")
	mock.ExpectGet("balance:9").SetVal("42.5")
	mock.ExpectDel("balance:9").SetVal(1)

	require.NoError(t, r.CacheBalance(ctx, 9, decimal.RequireFromString("42.5")))
	bal, err := r.GetCachedBalance(ctx, 9)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("42.5")))
	require.NoError(t, r.InvalidateBalance(ctx, 9))
	assert.NoError(t, mock.ExpectationsWereMet())

	noCache := NewRepository(nil, nil, nil, logger.Nop())
	_, err = noCache.GetCachedBalance(ctx, 9)
	assert.ErrorIs(t, err, ErrNoCache)
}
