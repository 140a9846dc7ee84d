package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CreateOrderLine is idempotent per (order, product): resubmitting returns the stored line.
func (r *GormRepo) CreateOrderLine(ctx context.Context, line *models.OrderLine) (*models.OrderLine, error) {
	db := r.DB.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(line)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var existing models.OrderLine
		if err := db.Where("order_id = ? AND product_id = ?", line.OrderID, line.ProductID).First(&existing).Error; err != nil {
			return nil, notFound(err)
		}
		return &existing, nil
	}
	return line, nil
}

func (r *GormRepo) OrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("order_lines.id ASC") }).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *GormRepo) Order(ctx context.Context, userID uuid.UUID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("order_lines.id ASC") }).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *GormRepo) SetCommitState(ctx context.Context, orderID uint, state models.CommitState) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Update("commit_state", state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// OrdersInState returns the oldest orders in state, lines loaded.
func (r *GormRepo) OrdersInState(ctx context.Context, state models.CommitState, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Lines").
		Where("commit_state = ?", state).
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// StaleOrdersInState is OrdersInState limited to orders created before cutoff.
func (r *GormRepo) StaleOrdersInState(ctx context.Context, state models.CommitState, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Lines").
		Where("commit_state = ? AND created_at < ?", state, cutoff.UTC()).
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
