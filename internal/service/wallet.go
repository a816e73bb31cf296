package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardliu001/pix-settlement/internal/apperr"
	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/richardliu001/pix-settlement/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WalletService serves wallet reads.
type WalletService struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

func NewWalletService(r repo.RepositoryInterface, logger *zap.SugaredLogger) *WalletService {
	return &WalletService{repo: r, log: logger}
}

// GetBalance tries the cache first, then falls back to the DB.
func (s *WalletService) GetBalance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	if bal, err := s.repo.GetCachedBalance(ctx, userID); err == nil {
		return bal, nil
	}
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.repo.CacheBalance(ctx, userID, w.Balance); err != nil && !errors.Is(err, repo.ErrNoCache) {
		s.log.Warn(err)
	}
	return w.Balance, nil
}

// GetWallet returns all three balances, read from the DB.
func (s *WalletService) GetWallet(ctx context.Context, userID uint64) (*model.Wallet, error) {
	w, err := s.repo.GetWallet(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("wallet %d not found", userID))
	}
	return w, err
}
