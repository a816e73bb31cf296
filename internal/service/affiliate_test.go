package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func inviterID(id uint64) *uint64 { return &id }

func (fx *fixture) histories(t *testing.T, userID uint64) []model.AffiliateHistory {
	t.Helper()
	var hs []model.AffiliateHistory
	require.NoError(t, fx.db.Where("user_id = ?", userID).Order("id").Find(&hs).Error)
	return hs
}

func (fx *fixture) referral(t *testing.T) {
	t.Helper()
	fx.user(t, model.User{ID: 10, AffiliateType: model.CommissionCPA,
		AffiliateBaseline: decimal.NewFromInt(100), AffiliateCpa: decimal.NewFromInt(20)})
	fx.user(t, model.User{ID: 1, Name: "Maria", InviterID: inviterID(10)})
	fx.user(t, model.User{ID: 99, Role: "admin"})
}

func TestAffiliate_CPAPaidOnceAtBaseline(t *testing.T) {
	fx := newFixture(t, AffiliateOptions{AdminRole: "admin"})
	ctx := context.Background()
	fx.referral(t)
	fx.pending(t, "suitpay", "pay-1", 1, 150)
	fx.pending(t, "suitpay", "pay-2", 1, 150)

	for _, id := range []string{"pay-1", "pay-2"} {
		out, err := fx.finalizer.Finalize(ctx, "suitpay", id)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSettled, out)
	}

	inviter := fx.wallet(t, 10)
	assert.True(t, inviter.ReferRewards.Equal(dec("20")), "refer rewards %s", inviter.ReferRewards)
	assert.True(t, inviter.Balance.IsZero())

	hs := fx.histories(t, 1)
	require.Len(t, hs, 1)
	assert.Equal(t, model.AffiliateSettled, hs[0].Status)
	assert.Equal(t, uint64(10), *hs[0].InviterID)
	assert.True(t, hs[0].CommissionPaid.Equal(dec("20")))

	var pendingDeposits int64
	require.NoError(t, fx.db.Model(&model.Deposit{}).Where("status = ?", model.DepositPending).Count(&pendingDeposits).Error)
	assert.Zero(t, pendingDeposits)

	evts := fx.outbox(t, model.EventDepositConfirmed)
	require.Len(t, evts, 2)
	var env struct {
		Recipients []uint64 `json:"recipients"`
		Payload    struct {
			UserName string `json:"user_name"`
			Amount   string `json:"amount"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(evts[0].Payload), &env))
	assert.Equal(t, []uint64{99}, env.Recipients)
	assert.Equal(t, "Maria", env.Payload.UserName)
	assert.Equal(t, "150", env.Payload.Amount)
}

func TestAffiliate_RelationshipRecordedOnce(t *testing.T) {
	fx := newFixture(t, AffiliateOptions{})
	ctx := context.Background()
	fx.referral(t)
	aff := NewAffiliateSettler(fx.repo, AffiliateOptions{}, fx.finalizer.log)

	// two settlements racing on a user's first deposits both try to record it
	for i := 0; i < 2; i++ {
		require.NoError(t, fx.repo.Tx(ctx, func(tx *gorm.DB) error {
			return aff.recordRelationship(ctx, tx, 1)
		}))
	}
	require.Len(t, fx.histories(t, 1), 1)

	fx.pending(t, "suitpay", "pay-1", 1, 150)
	fx.pending(t, "suitpay", "pay-2", 1, 150)
	for _, id := range []string{"pay-1", "pay-2"} {
		_, err := fx.finalizer.Finalize(ctx, "suitpay", id)
		require.NoError(t, err)
	}
	assert.True(t, fx.wallet(t, 10).ReferRewards.Equal(dec("20")), "refer rewards %s", fx.wallet(t, 10).ReferRewards)
}

func TestAffiliate_BelowBaselineKeepsFirstDeposit(t *testing.T) {
	fx := newFixture(t, AffiliateOptions{})
	ctx := context.Background()
	fx.referral(t)
	fx.pending(t, "suitpay", "pay-1", 1, 50)
	fx.pending(t, "suitpay", "pay-2", 1, 80)

	for _, id := range []string{"pay-1", "pay-2"} {
		_, err := fx.finalizer.Finalize(ctx, "suitpay", id)
		require.NoError(t, err)
	}

	hs := fx.histories(t, 1)
	require.Len(t, hs, 1)
	assert.Equal(t, model.AffiliateOpen, hs[0].Status)
	assert.True(t, hs[0].Deposited)
	assert.True(t, hs[0].DepositedAmount.Equal(dec("50")))
	assert.ErrorIs(t, fx.db.Where("user_id = ?", 10).First(&model.Wallet{}).Error, gorm.ErrRecordNotFound)
}

func TestAffiliate_AccumulatedDepositsReachBaseline(t *testing.T) {
	fx := newFixture(t, AffiliateOptions{AccumulateDeposits: true})
	ctx := context.Background()
	fx.referral(t)
	fx.pending(t, "suitpay", "pay-1", 1, 50)
	fx.pending(t, "suitpay", "pay-2", 1, 80)

	for _, id := range []string{"pay-1", "pay-2"} {
		_, err := fx.finalizer.Finalize(ctx, "suitpay", id)
		require.NoError(t, err)
	}

	hs := fx.histories(t, 1)
	require.Len(t, hs, 1)
	assert.Equal(t, model.AffiliateSettled, hs[0].Status)
	assert.True(t, hs[0].DepositedAmount.Equal(dec("130")))
	assert.True(t, fx.wallet(t, 10).ReferRewards.Equal(dec("20")))
}

func TestAffiliate_UserWithoutInviter(t *testing.T) {
	fx := newFixture(t, AffiliateOptions{})
	ctx := context.Background()
	fx.user(t, model.User{ID: 1})
	fx.pending(t, "suitpay", "pay-1", 1, 100)

	_, err := fx.finalizer.Finalize(ctx, "suitpay", "pay-1")
	require.NoError(t, err)

	hs := fx.histories(t, 1)
	require.Len(t, hs, 1)
	assert.Equal(t, model.CommissionNone, hs[0].CommissionType)
	assert.Nil(t, hs[0].InviterID)
	assert.Len(t, fx.outbox(t, model.EventDepositConfirmed), 1)
}

func TestAffiliate_NoPendingDepositIsNoop(t *testing.T) {
	fx := newFixture(t, AffiliateOptions{})
	fx.referral(t)
	aff := NewAffiliateSettler(fx.repo, AffiliateOptions{}, fx.finalizer.log)

	require.NoError(t, aff.Settle(context.Background(), "suitpay", "nope", 1, dec("500")))
	assert.Empty(t, fx.histories(t, 1))
	assert.Empty(t, fx.outbox(t, model.EventDepositConfirmed))
}
