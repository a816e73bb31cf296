package repo

import (
	"context"

	"github.com/richardliu001/pix-settlement/internal/model"
	"gorm.io/gorm"
)

// GetUser returns the user or gorm.ErrRecordNotFound.
func (r *Repository) GetUser(ctx context.Context, tx *gorm.DB, id uint64) (*model.User, error) {
	var u model.User
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) ListUserIDsByRole(ctx context.Context, tx *gorm.DB, role string) ([]uint64, error) {
	var ids []uint64
	err := tx.WithContext(ctx).Model(&model.User{}).
		Where("role = ?", role).Order("id").Pluck("id", &ids).Error
	return ids, err
}
