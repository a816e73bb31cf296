package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/richardliu001/pix-settlement/internal/apperr"
	"github.com/richardliu001/pix-settlement/internal/logger"
	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/richardliu001/pix-settlement/internal/repo"
	"github.com/richardliu001/pix-settlement/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletService_GetBalance(t *testing.T) {
	db := testutil.NewTestDB(t)
	rdb, mock := redismock.NewClientMock()
	svc := NewWalletService(repo.NewRepository(db, rdb, nil, logger.Nop()), logger.Nop())
	ctx := context.Background()

	require.NoError(t, db.Create(&model.Wallet{UserID: 1, Balance: dec("100"), BalanceBonus: dec("10")}).Error)

	mock.ExpectGet("balance:1").RedisNil()
	mock.ExpectSet("balance:1", "100", 5*time.Minute).SetVal("OK")
	mock.ExpectGet("balance:1").SetVal("100")

	bal, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("100")))

	bal, err = svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("100")))
	assert.NoError(t, mock.ExpectationsWereMet())

	w, err := svc.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.True(t, w.BalanceBonus.Equal(dec("10")))

	_, err = svc.GetWallet(ctx, 2)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
