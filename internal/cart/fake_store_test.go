package cart

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	mu          sync.Mutex
	carts       []models.Cart
	loadErr     error
	failDeletes map[uint]bool
	deleteCalls []uint
	loads       int
	nextID      uint
}

func newFakeStore(userID uuid.UUID, lines ...models.CartLine) *fakeStore {
	return &fakeStore{
		carts:       []models.Cart{{ID: 1, UserID: userID, Lines: lines}},
		failDeletes: map[uint]bool{},
		nextID:      100,
	}
}

func line(id uint, qty uint, price int64) models.CartLine {
	return models.CartLine{
		ID:        id,
		CartID:    1,
		ProductID: uuid.New(),
		Quantity:  qty,
		Product:   models.Product{UnitPrice: decimal.NewFromInt(price)},
	}
}

func (f *fakeStore) CartsByUser(ctx context.Context, userID uuid.UUID) ([]models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]models.Cart, 0, len(f.carts))
	for _, c := range f.carts {
		if c.UserID != userID {
			continue
		}
		c.Lines = slices.Clone(c.Lines)
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) Line(ctx context.Context, userID uuid.UUID, lineID uint) (*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.carts[0].Lines {
		if l.ID == lineID {
			return &l, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) UpdateLine(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.carts[0].Lines {
		if l.ID == line.ID {
			f.carts[0].Lines[i].Quantity = line.Quantity
			return line, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) DeleteLine(ctx context.Context, userID uuid.UUID, lineID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, lineID)
	if f.failDeletes[lineID] {
		return errStoreDown
	}
	lines := f.carts[0].Lines
	for i, l := range lines {
		if l.ID == lineID {
			f.carts[0].Lines = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeStore) AddLine(ctx context.Context, userID, productID uuid.UUID, quantity uint) (*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	l := models.CartLine{ID: f.nextID, CartID: 1, ProductID: productID, Quantity: quantity, Product: models.Product{ID: productID, UnitPrice: decimal.NewFromInt(1)}}
	f.carts[0].Lines = append(f.carts[0].Lines, l)
	return &l, nil
}

func (f *fakeStore) deletes() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deleteCalls)
}

type countRecorder struct {
	mu     sync.Mutex
	counts []int
}

func (c *countRecorder) Publish(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = append(c.counts, n)
}

func (c *countRecorder) last() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.counts) == 0 {
		return -1
	}
	return c.counts[len(c.counts)-1]
}
