package checkout

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/Skotchmaster/checkout/internal/cart"
	"github.com/Skotchmaster/checkout/internal/events"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/notify"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/Skotchmaster/checkout/internal/validate"
	"github.com/Skotchmaster/checkout/pkg/logging"
	"github.com/google/uuid"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrOrderCreate     = errors.New("order creation failed")
	ErrDuplicateSubmit = errors.New("order submission already in progress")
)

const noticeTitle = "System"

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderLine(ctx context.Context, line *models.OrderLine) (*models.OrderLine, error)
	SetCommitState(ctx context.Context, orderID uint, state models.CommitState) error
	OrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error)
}

type Request struct {
	UserID         uuid.UUID
	Form           validate.Form
	IdempotencyKey string
}

type LineFailure struct {
	CartLineID uint      `json:"cart_line_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Status     int       `json:"status"`
}

type Receipt struct {
	Order    *models.Order      `json:"order"`
	Lines    []models.OrderLine `json:"lines"`
	Failed   []LineFailure      `json:"failed_lines,omitempty"`
	Purge    *cart.PurgeResult  `json:"purge,omitempty"`
	Replayed bool               `json:"replayed"`
}

// Saga turns the cart snapshot into an order header plus one order line per cart line.
// The steps are separate writes: a failed line never rolls back the header, and the cart is
// purged regardless of line outcomes.
type Saga struct {
	Orders OrderStore
	Events events.Publisher
	Guard  SubmitGuard
}

func (s *Saga) Commit(ctx context.Context, req Request, agg *cart.Aggregator, form *validate.FormState) (*Receipt, error) {
	ctx = context.WithoutCancel(ctx)
	l := logging.FromContext(ctx).With("component", "order_saga", "user_id", req.UserID)
	nt := notify.FromContext(ctx)

	key := req.IdempotencyKey
	if key != "" {
		if receipt, err := s.replay(ctx, l, nt, req.UserID, key); receipt != nil || err != nil {
			return receipt, err
		}

		if s.Guard != nil {
			gk := submitKey(req.UserID, key)
			ok, err := s.Guard.Acquire(ctx, gk)
			if err != nil {
				l.Warn("submit_guard_unavailable", "error", err)
			} else if !ok {
				return nil, ErrDuplicateSubmit
			} else {
				defer func() {
					if err := s.Guard.Release(ctx, gk); err != nil {
						l.Warn("submit_guard_release_failed", "error", err)
					}
				}()
				// The holder before us may have finished between the lookup and Acquire.
				if receipt, err := s.replay(ctx, l, nt, req.UserID, key); receipt != nil || err != nil {
					return receipt, err
				}
			}
		}
	} else {
		key = uuid.NewString()
	}

	snap := agg.Snapshot()
	if len(snap.Lines) == 0 {
		notify.Error(ctx, nt, noticeTitle, "Your cart is empty")
		return nil, ErrEmptyCart
	}

	snapshot := make([]models.SnapshotLine, 0, len(snap.Lines))
	for _, cl := range snap.Lines {
		snapshot = append(snapshot, models.SnapshotLine{
			CartLineID: cl.ID,
			ProductID:  cl.ProductID,
			Name:       cl.Product.Name,
			Quantity:   cl.Quantity,
			UnitPrice:  cl.Product.UnitPrice,
		})
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	order, err := s.Orders.CreateOrder(ctx, &models.Order{
		UserID:         req.UserID,
		Amount:         snap.Totals.Amount,
		Name:           req.Form.Name,
		Address:        req.Form.Address,
		PhoneNumber:    req.Form.PhoneNumber,
		Description:    req.Form.Description,
		Status:         models.OrderStatusPending,
		CommitState:    models.CommitHeaderCreated,
		ExpectedLines:  len(snapshot),
		Snapshot:       string(data),
		IdempotencyKey: key,
	})
	if err != nil {
		l.Error("order_create_failed", "status", repo.Status(err), "error", err)
		notify.Error(ctx, nt, noticeTitle, "Error! "+strconv.Itoa(repo.Status(err)))
		return nil, fmt.Errorf("%w: %w", ErrOrderCreate, err)
	}
	l = l.With("order_id", order.ID)
	notify.Success(ctx, nt, noticeTitle, "Order placed successfully!")

	receipt := &Receipt{Order: order}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, sl := range snapshot {
		wg.Add(1)
		go func(sl models.SnapshotLine) {
			defer wg.Done()
			line, err := s.Orders.CreateOrderLine(ctx, &models.OrderLine{
				OrderID:   order.ID,
				ProductID: sl.ProductID,
				Quantity:  sl.Quantity,
				UnitPrice: sl.UnitPrice,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				st := repo.Status(err)
				l.Error("order_line_create_failed", "cart_line_id", sl.CartLineID, "status", st, "error", err)
				notify.Error(ctx, nt, noticeTitle, "System - 2")
				receipt.Failed = append(receipt.Failed, LineFailure{CartLineID: sl.CartLineID, ProductID: sl.ProductID, Status: st})
				events.Emit(ctx, s.Events, events.TopicOrder, req.UserID.String(), events.OrderLineFailed{
					Type: events.TypeOrderLineFailed, OrderID: order.ID, ProductID: sl.ProductID, Reason: err.Error(),
				})
				return
			}
			receipt.Lines = append(receipt.Lines, *line)
		}(sl)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if form != nil {
			form.Reset()
		}
		purge, err := agg.DeleteAll(ctx)
		if err != nil {
			l.Error("cart_purge_failed", "error", err)
		}
		mu.Lock()
		receipt.Purge = &purge
		mu.Unlock()
	}()

	wg.Wait()

	slices.SortFunc(receipt.Lines, func(a, b models.OrderLine) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(receipt.Failed, func(a, b LineFailure) int { return cmp.Compare(a.CartLineID, b.CartLineID) })

	state := models.CommitLinesAttached
	if len(receipt.Failed) > 0 {
		state = models.CommitLinesPartial
	}
	if err := s.Orders.SetCommitState(ctx, order.ID, state); err != nil {
		l.Error("commit_state_update_failed", "state", state, "error", err)
	} else {
		order.CommitState = state
	}
	order.Lines = receipt.Lines

	events.Emit(ctx, s.Events, events.TopicOrder, req.UserID.String(), events.OrderPlaced{
		Type:          events.TypeOrderPlaced,
		OrderID:       order.ID,
		UserID:        req.UserID,
		Amount:        order.Amount,
		ExpectedLines: order.ExpectedLines,
		AttachedLines: len(receipt.Lines),
		CommitState:   string(order.CommitState),
	})
	l.Info("order_committed", "state", order.CommitState, "attached", len(receipt.Lines), "failed", len(receipt.Failed))
	return receipt, nil
}

// replay returns the receipt of an order already committed under key, or nil when there is none.
func (s *Saga) replay(ctx context.Context, l *slog.Logger, nt notify.Notifier, userID uuid.UUID, key string) (*Receipt, error) {
	existing, err := s.Orders.OrderByIdempotencyKey(ctx, userID, key)
	switch {
	case err == nil:
		l.Info("order_replayed", "order_id", existing.ID)
		return &Receipt{Order: existing, Lines: existing.Lines, Replayed: true}, nil
	case errors.Is(err, repo.ErrNotFound):
		return nil, nil
	default:
		l.Error("order_lookup_failed", "error", err)
		notify.Error(ctx, nt, noticeTitle, "Error! "+strconv.Itoa(repo.Status(err)))
		return nil, fmt.Errorf("%w: %w", ErrOrderCreate, err)
	}
}

// submitKey scopes the in-flight guard to the user, matching the per-user idempotency index.
func submitKey(userID uuid.UUID, key string) string {
	return userID.String() + ":" + key
}
