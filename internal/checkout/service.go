package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Skotchmaster/checkout/internal/cart"
	"github.com/Skotchmaster/checkout/internal/confirm"
	"github.com/Skotchmaster/checkout/internal/geo"
	"github.com/Skotchmaster/checkout/internal/validate"
	"github.com/Skotchmaster/checkout/pkg/logging"
	"github.com/google/uuid"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotConfirmed    = errors.New("action not confirmed")
)

// Service is the per-user entry point: cart view, gated mutations, address prefill and order placement.
type Service struct {
	Carts    *cart.Registry
	Saga     *Saga
	Resolver *geo.Resolver

	mu    sync.Mutex
	forms map[uuid.UUID]*formEntry
}

type formEntry struct {
	form     *validate.FormState
	lastUsed time.Time
}

func NewService(carts *cart.Registry, saga *Saga, resolver *geo.Resolver) *Service {
	return &Service{
		Carts:    carts,
		Saga:     saga,
		Resolver: resolver,
		forms:    make(map[uuid.UUID]*formEntry),
	}
}

// Form returns the user's live checkout form.
func (s *Service) Form(userID uuid.UUID) *validate.FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.forms[userID]
	if !ok {
		e = &formEntry{form: validate.NewFormState(validate.CheckoutRules)}
		s.forms[userID] = e
	}
	e.lastUsed = time.Now()
	return e.form
}

func (s *Service) dropForm(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forms, userID)
}

// Sweep forgets forms and cart views of users idle for at least idle.
func (s *Service) Sweep(idle time.Duration) int {
	s.mu.Lock()
	n := 0
	for id, e := range s.forms {
		if time.Since(e.lastUsed) >= idle {
			delete(s.forms, id)
			n++
		}
	}
	s.mu.Unlock()
	return n + len(s.Carts.EvictIdle(idle))
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	l := logging.FromContext(ctx).With("component", "session_janitor")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(idle); n > 0 {
				l.Debug("idle_sessions_evicted", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) aggregator(userID uuid.UUID) (*cart.Aggregator, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.Carts.For(userID), nil
}

func (s *Service) Cart(ctx context.Context, userID uuid.UUID) (cart.View, error) {
	agg, err := s.aggregator(userID)
	if err != nil {
		return cart.View{}, err
	}
	return agg.Load(ctx)
}

func (s *Service) AddLine(ctx context.Context, userID, productID uuid.UUID, quantity uint) (cart.View, error) {
	agg, err := s.aggregator(userID)
	if err != nil {
		return cart.View{}, err
	}
	return agg.AddLine(ctx, productID, quantity)
}

func (s *Service) UpdateLine(ctx context.Context, userID uuid.UUID, lineID, quantity uint) (cart.View, error) {
	agg, err := s.aggregator(userID)
	if err != nil {
		return cart.View{}, err
	}
	return agg.UpdateLine(ctx, lineID, quantity)
}

func (s *Service) RemoveLine(ctx context.Context, userID uuid.UUID, lineID uint, d confirm.Dialog) (cart.View, error) {
	agg, err := s.aggregator(userID)
	if err != nil {
		return cart.View{}, err
	}
	var view cart.View
	ok, err := confirm.Guard(ctx, d, confirm.DeleteLinePrompt, func(ctx context.Context) error {
		var derr error
		view, derr = agg.DeleteLine(ctx, lineID)
		return derr
	})
	if err != nil {
		return view, err
	}
	if !ok {
		return agg.Snapshot(), ErrNotConfirmed
	}
	return view, nil
}

func (s *Service) ClearCart(ctx context.Context, userID uuid.UUID, d confirm.Dialog) (*cart.PurgeResult, error) {
	agg, err := s.aggregator(userID)
	if err != nil {
		return nil, err
	}
	var res cart.PurgeResult
	ok, err := confirm.Guard(ctx, d, confirm.DeleteAllPrompt, func(ctx context.Context) error {
		var derr error
		res, derr = agg.DeleteAll(ctx)
		return derr
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotConfirmed
	}
	return &res, nil
}

// ResolveAddress geocodes the device position and offers it as the form's address default.
func (s *Service) ResolveAddress(ctx context.Context, userID uuid.UUID, loc geo.Locator) (*geo.ResolvedAddress, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.Resolver.Prefill(ctx, loc, s.Form(userID))
}

// PlaceOrder validates first, then asks for confirmation, then runs the saga.
// Empty submitted fields keep a resolved default. An invalid form marks every field touched
// and never reaches the store.
func (s *Service) PlaceOrder(ctx context.Context, req Request, d confirm.Dialog) (*Receipt, error) {
	agg, err := s.aggregator(req.UserID)
	if err != nil {
		return nil, err
	}

	form := s.Form(req.UserID)
	form.Merge(req.Form)
	if !form.IsValid() {
		form.MarkAllTouched()
		return nil, &validate.FormError{Fields: form.Errors()}
	}

	if _, err := agg.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	var receipt *Receipt
	ok, err := confirm.Guard(ctx, d, confirm.PlaceOrderPrompt, func(ctx context.Context) error {
		var serr error
		receipt, serr = s.Saga.Commit(ctx, Request{
			UserID:         req.UserID,
			Form:           form.Values(),
			IdempotencyKey: req.IdempotencyKey,
		}, agg, form)
		return serr
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotConfirmed
	}
	if !receipt.Replayed {
		s.dropForm(req.UserID)
	}
	return receipt, nil
}
