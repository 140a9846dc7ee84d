// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with the checkout schema.
// A single connection serializes writers the way one postgres row lock would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Cart{}, &models.CartLine{}, &models.Order{}, &models.OrderLine{}))
	return db
}

func SeedProduct(t *testing.T, db *gorm.DB, name string, price string) models.Product {
	t.Helper()
	p := models.Product{Name: name, UnitPrice: decimal.RequireFromString(price)}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// SeedCart creates the user's cart with one line per product in the given order.
func SeedCart(t *testing.T, db *gorm.DB, userID uuid.UUID, lines ...models.CartLine) models.Cart {
	t.Helper()
	cart := models.Cart{UserID: userID}
	require.NoError(t, db.Create(&cart).Error)
	for i := range lines {
		lines[i].CartID = cart.ID
		require.NoError(t, db.Omit("Product").Create(&lines[i]).Error)
	}
	cart.Lines = lines
	return cart
}
