package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/models"
)

func itemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func ownerDisplay(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email")
}

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.DB.WithContext(ctx).Omit("Owner").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder loads an order with its line items and the owner's name/email.
func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items", itemsByPosition).
		Preload("Owner", ownerDisplay).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, apperr.NotFoundOr(err, "order")
	}
	return &order, nil
}

func (r *GormRepo) ListOrdersByOwner(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.DB.WithContext(ctx).
		Preload("Items", itemsByPosition).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.DB.WithContext(ctx).
		Preload("Items", itemsByPosition).
		Preload("Owner", ownerDisplay).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderFields writes the given columns as-is. There is no status
// transition check here.
func (r *GormRepo) UpdateOrderFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Order, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFoundOr(gorm.ErrRecordNotFound, "order")
	}
	return r.GetOrder(ctx, id)
}
