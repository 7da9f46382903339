package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/models"
)

func (r *GormRepo) SaveRefresh(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) FindRefreshByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&token).Error; err != nil {
		return nil, apperr.NotFoundOr(err, "refresh token")
	}
	return &token, nil
}

func refreshUsable(db *gorm.DB, jti, tokenHash string) error {
	var refresh models.RefreshToken
	if err := db.Where("jti = ?", jti).First(&refresh).Error; err != nil {
		return fmt.Errorf("%w: refresh token unknown", apperr.ErrUnauthorized)
	}
	if refresh.TokenHash != tokenHash {
		return fmt.Errorf("%w: refresh token mismatch", apperr.ErrUnauthorized)
	}
	if refresh.Revoked || refresh.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("%w: refresh token expired or revoked", apperr.ErrUnauthorized)
	}
	return nil
}

// RotateRefresh revokes the old token and stores its replacement in one
// transaction, so a refresh token can be spent only once.
func (r *GormRepo) RotateRefresh(ctx context.Context, oldJTI, oldHash string, next *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := refreshUsable(tx, oldJTI, oldHash); err != nil {
			return err
		}
		res := tx.Model(&models.RefreshToken{}).
			Where("jti = ? AND revoked = ?", oldJTI, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: refresh token already used", apperr.ErrUnauthorized)
		}
		return tx.Create(next).Error
	})
}

func (r *GormRepo) RevokeRefresh(ctx context.Context, tokenHash string) error {
	return r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
}
