package repo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) userCartIDs(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
}

// CartsByUser returns every cart of the user with lines and products loaded.
// The unique index on carts.user_id keeps this to at most one row.
func (r *GormRepo) CartsByUser(ctx context.Context, userID uuid.UUID) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("cart_lines.id ASC") }).
		Preload("Lines.Product").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}

func (r *GormRepo) Line(ctx context.Context, userID uuid.UUID, lineID uint) (*models.CartLine, error) {
	var line models.CartLine
	err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("id = ? AND cart_id IN (?)", lineID, r.userCartIDs(ctx, userID)).
		First(&line).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}

// UpdateLine persists the quantity of an existing line.
func (r *GormRepo) UpdateLine(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	if line.Quantity == 0 {
		return nil, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}
	res := r.DB.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ? AND cart_id = ?", line.ID, line.CartID).
		Update("quantity", line.Quantity)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return line, nil
}

func (r *GormRepo) DeleteLine(ctx context.Context, userID uuid.UUID, lineID uint) error {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND cart_id IN (?)", lineID, r.userCartIDs(ctx, userID)).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLine creates the user's cart on first use and adds quantity to the product's line.
func (r *GormRepo) AddLine(ctx context.Context, userID, productID uuid.UUID, quantity uint) (*models.CartLine, error) {
	if quantity == 0 {
		return nil, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}
	if productID == uuid.Nil {
		return nil, fmt.Errorf("product id must be set: %w", ErrValidation)
	}

	var line models.CartLine
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("id = ?", productID).First(&product).Error; err != nil {
			return notFound(err)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Cart{UserID: userID}).Error; err != nil {
			return err
		}
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			return err
		}

		res := tx.Model(&models.CartLine{}).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			line = models.CartLine{CartID: cart.ID, ProductID: productID, Quantity: quantity}
			if err := tx.Omit(clause.Associations).Create(&line).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&line).Error; err != nil {
			return err
		}
		line.Product = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}
