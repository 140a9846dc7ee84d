// Package reconcile finishes orders whose line writes only partly succeeded
// or whose commit stopped right after the header was written.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Skotchmaster/checkout/internal/events"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/pkg/logging"
	"github.com/google/uuid"
)

type Store interface {
	OrdersInState(ctx context.Context, state models.CommitState, limit int) ([]models.Order, error)
	StaleOrdersInState(ctx context.Context, state models.CommitState, cutoff time.Time, limit int) ([]models.Order, error)
	CreateOrderLine(ctx context.Context, line *models.OrderLine) (*models.OrderLine, error)
	SetCommitState(ctx context.Context, orderID uint, state models.CommitState) error
}

// DefaultGrace is how long a header_created order may sit before it is treated as abandoned.
const DefaultGrace = time.Minute

type Reconciler struct {
	store    Store
	events   events.Publisher
	interval time.Duration
	batch    int

	// Grace keeps in-flight commits out of the header_created sweep.
	Grace time.Duration
}

func NewReconciler(store Store, pub events.Publisher, interval time.Duration, batch int) *Reconciler {
	if batch <= 0 {
		batch = 50
	}
	return &Reconciler{store: store, events: pub, interval: interval, batch: batch, Grace: DefaultGrace}
}

// Run polls until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	l := logging.FromContext(ctx).With("component", "reconciler")
	l.Info("reconciler_started", "interval", r.interval, "batch", r.batch, "grace", r.Grace)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n, err := r.Tick(ctx); err != nil {
				l.Error("reconcile_tick_failed", "error", err)
			} else if n > 0 {
				l.Info("orders_reconciled", "count", n)
			}
		case <-ctx.Done():
			l.Info("reconciler_stopped")
			return
		}
	}
}

// Tick processes one batch of partial orders plus header_created orders older than Grace,
// and returns how many became complete.
func (r *Reconciler) Tick(ctx context.Context) (int, error) {
	orders, err := r.store.OrdersInState(ctx, models.CommitLinesPartial, r.batch)
	if err != nil {
		return 0, fmt.Errorf("list partial orders: %w", err)
	}
	if room := r.batch - len(orders); room > 0 {
		stale, err := r.store.StaleOrdersInState(ctx, models.CommitHeaderCreated, time.Now().Add(-r.Grace), room)
		if err != nil {
			return 0, fmt.Errorf("list stale orders: %w", err)
		}
		orders = append(orders, stale...)
	}

	done := 0
	for i := range orders {
		ok, err := r.reconcile(ctx, &orders[i])
		if err != nil {
			logging.FromContext(ctx).Warn("order_reconcile_failed", "order_id", orders[i].ID, "error", err)
			continue
		}
		if ok {
			done++
		}
	}
	return done, nil
}

func (r *Reconciler) reconcile(ctx context.Context, order *models.Order) (bool, error) {
	var snapshot []models.SnapshotLine
	if err := json.Unmarshal([]byte(order.Snapshot), &snapshot); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}

	have := make(map[uuid.UUID]struct{}, len(order.Lines))
	for _, ol := range order.Lines {
		have[ol.ProductID] = struct{}{}
	}

	attached := 0
	for _, sl := range snapshot {
		if _, ok := have[sl.ProductID]; ok {
			continue
		}
		if _, err := r.store.CreateOrderLine(ctx, &models.OrderLine{
			OrderID:   order.ID,
			ProductID: sl.ProductID,
			Quantity:  sl.Quantity,
			UnitPrice: sl.UnitPrice,
		}); err != nil {
			return false, fmt.Errorf("attach product %s: %w", sl.ProductID, err)
		}
		attached++
	}

	if err := r.store.SetCommitState(ctx, order.ID, models.CommitReconciled); err != nil {
		return false, fmt.Errorf("set commit state: %w", err)
	}
	events.Emit(ctx, r.events, events.TopicOrder, order.UserID.String(), events.OrderReconciled{
		Type:     events.TypeOrderReconciled,
		OrderID:  order.ID,
		Attached: attached,
	})
	return true, nil
}
