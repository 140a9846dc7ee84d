package repo

import (
	"context"
	"testing"
	"time"

	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *GormRepo {
	t.Helper()
	return &GormRepo{DB: testutil.NewDB(t)}
}

func TestCartsByUser_LoadsLinesSortedWithProducts(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	burger := testutil.SeedProduct(t, r.DB, "burger", "10")
	fries := testutil.SeedProduct(t, r.DB, "fries", "5")
	testutil.SeedCart(t, r.DB, userID,
		models.CartLine{ProductID: burger.ID, Quantity: 2},
		models.CartLine{ProductID: fries.ID, Quantity: 1},
	)
	testutil.SeedCart(t, r.DB, uuid.New(), models.CartLine{ProductID: burger.ID, Quantity: 9})

	carts, err := r.CartsByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, carts, 1)
	require.Len(t, carts[0].Lines, 2)
	assert.Less(t, carts[0].Lines[0].ID, carts[0].Lines[1].ID)
	assert.Equal(t, "burger", carts[0].Lines[0].Product.Name)
	assert.True(t, decimal.NewFromInt(5).Equal(carts[0].Lines[1].Product.UnitPrice))

	none, err := r.CartsByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCart_OnePerUser(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	userID := uuid.New()
	require.NoError(t, r.DB.Create(&models.Cart{UserID: userID}).Error)
	require.Error(t, r.DB.Create(&models.Cart{UserID: userID}).Error)
}

func TestLine_ScopedToUser(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	owner := uuid.New()
	p := testutil.SeedProduct(t, r.DB, "tea", "2.50")
	cart := testutil.SeedCart(t, r.DB, owner, models.CartLine{ProductID: p.ID, Quantity: 3})
	lineID := cart.Lines[0].ID

	line, err := r.Line(ctx, owner, lineID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, line.Quantity)
	assert.Equal(t, "tea", line.Product.Name)

	_, err = r.Line(ctx, uuid.New(), lineID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, r.DeleteLine(ctx, uuid.New(), lineID), ErrNotFound)
}

func TestUpdateLine(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	owner := uuid.New()
	p := testutil.SeedProduct(t, r.DB, "tea", "2.50")
	cart := testutil.SeedCart(t, r.DB, owner, models.CartLine{ProductID: p.ID, Quantity: 3})

	line, err := r.Line(ctx, owner, cart.Lines[0].ID)
	require.NoError(t, err)

	line.Quantity = 7
	_, err = r.UpdateLine(ctx, line)
	require.NoError(t, err)

	got, err := r.Line(ctx, owner, line.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.Quantity)

	line.Quantity = 0
	_, err = r.UpdateLine(ctx, line)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = r.UpdateLine(ctx, &models.CartLine{ID: 999, CartID: cart.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLine(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	owner := uuid.New()
	p := testutil.SeedProduct(t, r.DB, "tea", "2.50")
	cart := testutil.SeedCart(t, r.DB, owner, models.CartLine{ProductID: p.ID, Quantity: 3})

	require.NoError(t, r.DeleteLine(ctx, owner, cart.Lines[0].ID))
	assert.ErrorIs(t, r.DeleteLine(ctx, owner, cart.Lines[0].ID), ErrNotFound)

	carts, err := r.CartsByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.Empty(t, carts[0].Lines)
}

func TestAddLine_CreatesCartAndMerges(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	p := testutil.SeedProduct(t, r.DB, "pho", "45000")

	first, err := r.AddLine(ctx, userID, p.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Quantity)

	second, err := r.AddLine(ctx, userID, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 3, second.Quantity)
	assert.Equal(t, "pho", second.Product.Name)

	_, err = r.AddLine(ctx, userID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.AddLine(ctx, userID, p.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	var carts int64
	require.NoError(t, r.DB.Model(&models.Cart{}).Where("user_id = ?", userID).Count(&carts).Error)
	assert.EqualValues(t, 1, carts)
}

func newOrder(userID uuid.UUID, key string) *models.Order {
	return &models.Order{
		UserID:         userID,
		Amount:         decimal.NewFromInt(25),
		Name:           "A",
		Address:        "Hanoi",
		PhoneNumber:    "0912345678",
		Status:         models.OrderStatusPending,
		CommitState:    models.CommitHeaderCreated,
		ExpectedLines:  2,
		Snapshot:       "[]",
		IdempotencyKey: key,
	}
}

func TestOrders_CreateLinesIdempotentAndLookup(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	p := testutil.SeedProduct(t, r.DB, "tea", "2.50")

	order, err := r.CreateOrder(ctx, newOrder(userID, "key-1"))
	require.NoError(t, err)
	require.NotZero(t, order.ID)

	_, err = r.CreateOrder(ctx, newOrder(userID, "key-1"))
	require.Error(t, err)

	line, err := r.CreateOrderLine(ctx, &models.OrderLine{OrderID: order.ID, ProductID: p.ID, Quantity: 2, UnitPrice: p.UnitPrice})
	require.NoError(t, err)
	again, err := r.CreateOrderLine(ctx, &models.OrderLine{OrderID: order.ID, ProductID: p.ID, Quantity: 2, UnitPrice: p.UnitPrice})
	require.NoError(t, err)
	assert.Equal(t, line.ID, again.ID)

	got, err := r.OrderByIdempotencyKey(ctx, userID, "key-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Len(t, got.Lines, 1)
	assert.True(t, decimal.NewFromInt(25).Equal(got.Amount))

	_, err = r.OrderByIdempotencyKey(ctx, uuid.New(), "key-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Order(ctx, userID, order.ID)
	require.NoError(t, err)
	_, err = r.Order(ctx, uuid.New(), order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrders_CommitState(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	a, err := r.CreateOrder(ctx, newOrder(userID, "a"))
	require.NoError(t, err)
	b, err := r.CreateOrder(ctx, newOrder(userID, "b"))
	require.NoError(t, err)

	require.NoError(t, r.SetCommitState(ctx, a.ID, models.CommitLinesPartial))
	require.NoError(t, r.SetCommitState(ctx, b.ID, models.CommitLinesAttached))
	assert.ErrorIs(t, r.SetCommitState(ctx, 999, models.CommitReconciled), ErrNotFound)

	partial, err := r.OrdersInState(ctx, models.CommitLinesPartial, 10)
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.Equal(t, a.ID, partial[0].ID)
}

func TestOrders_StaleOrdersInState(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	old, err := r.CreateOrder(ctx, newOrder(userID, "old"))
	require.NoError(t, err)
	_, err = r.CreateOrder(ctx, newOrder(userID, "fresh"))
	require.NoError(t, err)
	require.NoError(t, r.DB.Model(&models.Order{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-time.Hour).UTC()).Error)

	stale, err := r.StaleOrdersInState(ctx, models.CommitHeaderCreated, time.Now().Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)

	stale, err = r.StaleOrdersInState(ctx, models.CommitLinesPartial, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestOrders_IdempotencyKeyScopedToUser(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	a, err := r.CreateOrder(ctx, newOrder(alice, "k-1"))
	require.NoError(t, err)
	b, err := r.CreateOrder(ctx, newOrder(bob, "k-1"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = r.CreateOrder(ctx, newOrder(alice, "k-1"))
	require.Error(t, err)

	got, err := r.OrderByIdempotencyKey(ctx, bob, "k-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}
