package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/Skotchmaster/checkout/internal/badge"
	"github.com/Skotchmaster/checkout/internal/events"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/notify"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/Skotchmaster/checkout/pkg/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	ErrMultipleCarts   = errors.New("more than one active cart")
	ErrInvalidQuantity = errors.New("quantity must be more than zero")
)

const (
	noticeTitle = "System"
	loadKey     = "load"
)

type Store interface {
	CartsByUser(ctx context.Context, userID uuid.UUID) ([]models.Cart, error)
	Line(ctx context.Context, userID uuid.UUID, lineID uint) (*models.CartLine, error)
	UpdateLine(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	DeleteLine(ctx context.Context, userID uuid.UUID, lineID uint) error
	AddLine(ctx context.Context, userID, productID uuid.UUID, quantity uint) (*models.CartLine, error)
}

type View struct {
	CartID uint              `json:"cart_id"`
	Lines  []models.CartLine `json:"lines"`
	Totals Totals            `json:"totals"`
}

func (v View) clone() View {
	v.Lines = slices.Clone(v.Lines)
	if v.Lines == nil {
		v.Lines = []models.CartLine{}
	}
	return v
}

type PurgeResult struct {
	Requested int    `json:"requested"`
	Deleted   int    `json:"deleted"`
	Failed    []uint `json:"failed,omitempty"`
	View      View   `json:"cart"`
}

func (p PurgeResult) Complete() bool { return len(p.Failed) == 0 }

// Aggregator owns the in-memory cart view of one user. Every confirmed mutation is followed by a
// full reload; the view is never patched locally.
type Aggregator struct {
	userID  uuid.UUID
	store   Store
	counter badge.Counter
	events  events.Publisher

	sf singleflight.Group

	mu      sync.Mutex
	view    View
	started uint64
	applied uint64
	loaded  bool
}

func NewAggregator(userID uuid.UUID, store Store, counter badge.Counter, pub events.Publisher) *Aggregator {
	return &Aggregator{
		userID:  userID,
		store:   store,
		counter: counter,
		events:  pub,
		view:    View{Lines: []models.CartLine{}},
	}
}

func (a *Aggregator) UserID() uuid.UUID { return a.userID }

// Snapshot returns a copy of the current view.
func (a *Aggregator) Snapshot() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view.clone()
}

// EnsureLoaded loads the cart once per aggregator; afterwards it returns the current view unchanged.
func (a *Aggregator) EnsureLoaded(ctx context.Context) (View, error) {
	a.mu.Lock()
	loaded := a.loaded
	a.mu.Unlock()
	if loaded {
		return a.Snapshot(), nil
	}
	return a.Load(ctx)
}

// Load fetches the user's cart. Concurrent callers share one store round-trip.
func (a *Aggregator) Load(ctx context.Context) (View, error) {
	v, err, _ := a.sf.Do(loadKey, func() (any, error) {
		return a.load(context.WithoutCancel(ctx))
	})
	if err != nil {
		// Every caller of a shared flight gets the notice on its own collector.
		notify.Error(ctx, notify.FromContext(ctx), noticeTitle, "Error! "+status(err))
		return View{Lines: []models.CartLine{}}, err
	}
	return v.(View).clone(), nil
}

// reload starts a fresh load that is guaranteed to observe mutations finished before the call.
func (a *Aggregator) reload(ctx context.Context) (View, error) {
	a.sf.Forget(loadKey)
	return a.Load(ctx)
}

func (a *Aggregator) load(ctx context.Context) (View, error) {
	l := logging.FromContext(ctx).With("component", "cart_aggregator", "user_id", a.userID)

	a.mu.Lock()
	a.started++
	gen := a.started
	a.mu.Unlock()

	carts, err := a.store.CartsByUser(ctx, a.userID)
	if err == nil && len(carts) > 1 {
		err = fmt.Errorf("%w: user has %d carts", ErrMultipleCarts, len(carts))
	}
	if err != nil {
		l.Error("cart_load_failed", "error", err)
		a.apply(gen, View{Lines: []models.CartLine{}}, false)
		return View{}, fmt.Errorf("load cart: %w", err)
	}

	view := View{Lines: []models.CartLine{}}
	if len(carts) == 1 {
		view.CartID = carts[0].ID
		view.Lines = slices.Clone(carts[0].Lines)
		SortLines(view.Lines)
	}
	view.Totals = ComputeTotals(view.Lines)

	if !a.apply(gen, view, true) {
		l.Debug("stale_cart_load_dropped", "generation", gen)
	}
	return view, nil
}

// apply installs view unless a load that started later was already applied. ok is false for failed loads.
// The badge is published under the lock so subscribers see counts in load order.
func (a *Aggregator) apply(gen uint64, view View, ok bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen < a.applied {
		return false
	}
	a.applied = gen
	a.view = view
	a.loaded = ok
	if ok && a.counter != nil {
		a.counter.Publish(view.Totals.ItemCount)
	}
	return true
}

func (a *Aggregator) AddLine(ctx context.Context, productID uuid.UUID, quantity uint) (View, error) {
	if quantity == 0 {
		return a.Snapshot(), ErrInvalidQuantity
	}
	line, err := a.store.AddLine(ctx, a.userID, productID, quantity)
	if err != nil {
		a.fail(ctx, "cart_add_failed", "Error! ", err)
		return a.Snapshot(), fmt.Errorf("add line: %w", err)
	}
	events.Emit(ctx, a.events, events.TopicCart, a.userID.String(), events.CartLineEvent{
		Type: events.TypeCartLineAdded, UserID: a.userID, LineID: line.ID, ProductID: productID, Quantity: line.Quantity,
	})
	return a.reload(ctx)
}

// UpdateLine fetches the line, overwrites its quantity, persists it and reloads.
func (a *Aggregator) UpdateLine(ctx context.Context, lineID uint, quantity uint) (View, error) {
	if quantity == 0 {
		return a.Snapshot(), ErrInvalidQuantity
	}

	line, err := a.store.Line(ctx, a.userID, lineID)
	if err != nil {
		a.fail(ctx, "cart_line_fetch_failed", "Error! ", err)
		return a.Snapshot(), fmt.Errorf("fetch line %d: %w", lineID, err)
	}

	line.Quantity = quantity
	if _, err := a.store.UpdateLine(ctx, line); err != nil {
		a.fail(ctx, "cart_line_update_failed", "Error! ", err)
		return a.Snapshot(), fmt.Errorf("update line %d: %w", lineID, err)
	}

	events.Emit(ctx, a.events, events.TopicCart, a.userID.String(), events.CartLineEvent{
		Type: events.TypeCartLineUpdated, UserID: a.userID, LineID: lineID, ProductID: line.ProductID, Quantity: quantity,
	})
	return a.reload(ctx)
}

// DeleteLine removes one line and reloads. On failure the view is left as it was.
func (a *Aggregator) DeleteLine(ctx context.Context, lineID uint) (View, error) {
	if err := a.deleteOne(ctx, lineID); err != nil {
		return a.Snapshot(), err
	}
	notify.Success(ctx, notify.FromContext(ctx), noticeTitle, "Deleted successfully!")
	return a.reload(ctx)
}

func (a *Aggregator) deleteOne(ctx context.Context, lineID uint) error {
	if err := a.store.DeleteLine(ctx, a.userID, lineID); err != nil {
		a.fail(ctx, "cart_line_delete_failed", "Delete failed! ", err)
		return fmt.Errorf("delete line %d: %w", lineID, err)
	}
	events.Emit(ctx, a.events, events.TopicCart, a.userID.String(), events.CartLineEvent{
		Type: events.TypeCartLineDeleted, UserID: a.userID, LineID: lineID,
	})
	return nil
}

// DeleteAll reloads, then deletes every line with one concurrent call per line. Each successful
// delete triggers a reload, so intermediate views can show a partly emptied cart. A last reload
// runs once every call has settled.
func (a *Aggregator) DeleteAll(ctx context.Context) (PurgeResult, error) {
	ctx = context.WithoutCancel(ctx)

	view, err := a.reload(ctx)
	if err != nil {
		return PurgeResult{View: a.Snapshot()}, err
	}

	res := PurgeResult{Requested: len(view.Lines)}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, line := range view.Lines {
		wg.Add(1)
		go func(lineID uint) {
			defer wg.Done()
			if err := a.deleteOne(ctx, lineID); err != nil {
				mu.Lock()
				res.Failed = append(res.Failed, lineID)
				mu.Unlock()
				return
			}
			mu.Lock()
			res.Deleted++
			mu.Unlock()
			_, _ = a.reload(ctx)
		}(line.ID)
	}
	wg.Wait()
	slices.Sort(res.Failed)

	events.Emit(ctx, a.events, events.TopicCart, a.userID.String(), events.CartPurged{
		Type: events.TypeCartPurged, UserID: a.userID, Requested: res.Requested, Deleted: res.Deleted, Failed: res.Failed,
	})

	res.View, err = a.reload(ctx)
	return res, err
}

func (a *Aggregator) fail(ctx context.Context, event, prefix string, err error) {
	logging.FromContext(ctx).Error(event, "user_id", a.userID, "status", repo.Status(err), "error", err)
	notify.Error(ctx, notify.FromContext(ctx), noticeTitle, prefix+status(err))
}

func status(err error) string {
	return strconv.Itoa(repo.Status(err))
}
