package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrVersionConflict is returned when a wallet row changed under us.
	ErrVersionConflict = errors.New("optimistic lock conflict")
	// ErrNoCache is returned by cache helpers when Redis is not configured.
	ErrNoCache = errors.New("balance cache not configured")
)

// RepositoryInterface restricts Repo methods (mockable in service tests).
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	Tx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// ledger
	CreatePendingTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	CreatePendingDeposit(ctx context.Context, tx *gorm.DB, d *model.Deposit) error
	FindPendingByPaymentID(ctx context.Context, tx *gorm.DB, provider, paymentID string) (*model.Transaction, error)
	FindTransaction(ctx context.Context, tx *gorm.DB, provider, paymentID string) (*model.Transaction, error)
	MarkTransactionSettled(ctx context.Context, tx *gorm.DB, id uint64) (bool, error)
	CountSettledTransactions(ctx context.Context, tx *gorm.DB, userID uint64) (int64, error)
	FindPendingDepositForUpdate(ctx context.Context, tx *gorm.DB, provider, paymentID string) (*model.Deposit, error)
	ConfirmDeposit(ctx context.Context, tx *gorm.DB, id uint64) (bool, error)

	// wallet
	GetWallet(ctx context.Context, userID uint64) (*model.Wallet, error)
	GetWalletForUpdate(ctx context.Context, tx *gorm.DB, userID uint64) (*model.Wallet, error)
	LockOrCreateWallet(ctx context.Context, tx *gorm.DB, userID uint64) (*model.Wallet, error)
	UpdateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet, oldVersion uint64) error
	CacheBalance(ctx context.Context, userID uint64, bal decimal.Decimal) error
	InvalidateBalance(ctx context.Context, userID uint64) error
	GetCachedBalance(ctx context.Context, userID uint64) (decimal.Decimal, error)

	// users
	GetUser(ctx context.Context, tx *gorm.DB, id uint64) (*model.User, error)
	ListUserIDsByRole(ctx context.Context, tx *gorm.DB, role string) ([]uint64, error)

	// affiliate
	ListOpenUndeposited(ctx context.Context, tx *gorm.DB, userID uint64) ([]model.AffiliateHistory, error)
	HasAffiliateHistory(ctx context.Context, tx *gorm.DB, userID uint64) (bool, error)
	CreateAffiliateHistory(ctx context.Context, tx *gorm.DB, h *model.AffiliateHistory) (bool, error)
	MarkDeposited(ctx context.Context, tx *gorm.DB, ids []uint64, amount decimal.Decimal) error
	AccumulateDeposited(ctx context.Context, tx *gorm.DB, userID uint64, amount decimal.Decimal) error
	FindOpenCPAForUpdate(ctx context.Context, tx *gorm.DB, userID uint64) (*model.AffiliateHistory, error)
	SettleAffiliate(ctx context.Context, tx *gorm.DB, id uint64, paid decimal.Decimal) (bool, error)

	// withdrawal
	CreateWithdrawal(ctx context.Context, tx *gorm.DB, w *model.Withdrawal) error
	GetWithdrawal(ctx context.Context, tx *gorm.DB, id uint64) (*model.Withdrawal, error)
	GetWithdrawalForUpdate(ctx context.Context, tx *gorm.DB, id uint64) (*model.Withdrawal, error)
	ClaimWithdrawal(ctx context.Context, tx *gorm.DB, id uint64) (bool, error)
	ReleaseWithdrawal(ctx context.Context, tx *gorm.DB, id uint64) (bool, error)
	ConfirmWithdrawal(ctx context.Context, tx *gorm.DB, id uint64, paymentID, proof string) (bool, error)

	// outbox
	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	Notify(ctx context.Context, tx *gorm.DB, n Notification) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
}

// Repository implements RepositoryInterface.
type Repository struct {
	db          *gorm.DB
	rdb         *redis.Client
	writer      *kafka.Writer
	log         *zap.SugaredLogger
	lockTimeout time.Duration
	cacheTTL    time.Duration
}

type Option func(*Repository)

// WithLockTimeout bounds how long a transaction waits on a row lock (postgres only).
func WithLockTimeout(d time.Duration) Option {
	return func(r *Repository) { r.lockTimeout = d }
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger, opts ...Option) *Repository {
	r := &Repository{db: db, rdb: rdb, writer: w, log: logger, cacheTTL: 5 * time.Minute}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// Tx runs fn in a database transaction; any error rolls everything back.
func (r *Repository) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
}

// first loads one row; a missing row is (false, nil).
func first(tx *gorm.DB, dst interface{}) (bool, error) {
	err := tx.First(dst).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}
