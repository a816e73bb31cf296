package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/richardliu001/pix-settlement/internal/gateway"
	"github.com/richardliu001/pix-settlement/internal/logger"
	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/richardliu001/pix-settlement/internal/repo"
	"github.com/richardliu001/pix-settlement/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGateway is an in-memory PSP.
type fakeGateway struct {
	name string

	mu         sync.Mutex
	seq        int
	charges    int
	payouts    int
	lastCharge gateway.ChargeRequest
	statuses   map[string]gateway.RawStatus
	chargeErr  error
	payout     *gateway.PayoutResult
	payoutErr  error

	// when set, RequestPayout reports on entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeGateway(name string) *fakeGateway {
	return &fakeGateway{name: name, statuses: make(map[string]gateway.RawStatus)}
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) Authenticate(context.Context) (gateway.Token, error) {
	return gateway.Token{Value: "fake"}, nil
}

func (f *fakeGateway) RequestCharge(_ context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges++
	f.lastCharge = req
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.seq++
	return &gateway.Charge{ExternalID: fmt.Sprintf("%s-%d", f.name, f.seq), Payload: "00020126pix"}, nil
}

func (f *fakeGateway) QueryStatus(_ context.Context, id string) (gateway.RawStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.statuses[id]; ok {
		return st, nil
	}
	return gateway.RawStatus{Code: "WAITING_FOR_APPROVAL", Status: gateway.StatusPending}, nil
}

func (f *fakeGateway) setStatus(id, code string, st gateway.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = gateway.RawStatus{Code: code, Status: st}
}

func (f *fakeGateway) RequestPayout(context.Context, gateway.PayoutRequest) (*gateway.PayoutResult, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payouts++
	if f.payoutErr != nil {
		return nil, f.payoutErr
	}
	return f.payout, nil
}

func (f *fakeGateway) CallbackID(body []byte) (string, error) {
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return "", err
	}
	return v.ID, nil
}

type fixture struct {
	db        *gorm.DB
	repo      *repo.Repository
	finalizer *Finalizer
	settings  StaticSettings
}

func newFixture(t *testing.T, opts AffiliateOptions) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	r := repo.NewRepository(db, nil, nil, logger.Nop())
	st := StaticSettings{
		MinDeposit:       decimal.NewFromInt(10),
		MaxDeposit:       decimal.NewFromInt(10000),
		InitialBonusRate: decimal.NewFromInt(10),
		CurrencyCode:     "BRL",
	}
	aff := NewAffiliateSettler(r, opts, logger.Nop())
	return &fixture{db: db, repo: r, settings: st, finalizer: NewFinalizer(r, st, aff, logger.Nop())}
}

func (fx *fixture) user(t *testing.T, u model.User) *model.User {
	t.Helper()
	if u.Name == "" {
		u.Name = fmt.Sprintf("user-%d", u.ID)
	}
	require.NoError(t, fx.db.Create(&u).Error)
	return &u
}

// pending records a charge the way RequestCharge does.
func (fx *fixture) pending(t *testing.T, provider, paymentID string, userID uint64, amount int64) {
	t.Helper()
	ctx := context.Background()
	amt := decimal.NewFromInt(amount)
	require.NoError(t, fx.repo.Tx(ctx, func(tx *gorm.DB) error {
		if err := fx.repo.CreatePendingTransaction(ctx, tx, &model.Transaction{
			Provider: provider, PaymentID: paymentID, UserID: userID,
			Method: methodPix, Amount: amt, Currency: "BRL",
		}); err != nil {
			return err
		}
		return fx.repo.CreatePendingDeposit(ctx, tx, &model.Deposit{
			Provider: provider, PaymentID: paymentID, UserID: userID, Amount: amt, Type: depositPix,
		})
	}))
}

func (fx *fixture) wallet(t *testing.T, userID uint64) model.Wallet {
	t.Helper()
	var w model.Wallet
	require.NoError(t, fx.db.Where("user_id = ?", userID).First(&w).Error)
	return w
}

func (fx *fixture) outbox(t *testing.T, eventType string) []model.OutboxEvent {
	t.Helper()
	var evts []model.OutboxEvent
	require.NoError(t, fx.db.Where("event_type = ?", eventType).Order("id").Find(&evts).Error)
	return evts
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
