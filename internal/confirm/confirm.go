// Package confirm gates destructive and committing actions behind an explicit yes/no answer.
package confirm

import (
	"context"
	"fmt"
)

type Prompt struct {
	Title       string `json:"title"`
	Text        string `json:"text,omitempty"`
	ConfirmText string `json:"confirm_text"`
	CancelText  string `json:"cancel_text"`
}

type Result struct {
	IsConfirmed bool `json:"is_confirmed"`
}

type Dialog interface {
	Confirm(ctx context.Context, p Prompt) (Result, error)
}

type DialogFunc func(ctx context.Context, p Prompt) (Result, error)

func (f DialogFunc) Confirm(ctx context.Context, p Prompt) (Result, error) { return f(ctx, p) }

// Static answers every prompt the same way. HTTP requests carry the answer up front.
type Static bool

func (s Static) Confirm(ctx context.Context, p Prompt) (Result, error) {
	return Result{IsConfirmed: bool(s)}, nil
}

var (
	DeleteLinePrompt = Prompt{
		Title:       "Remove this item from your cart?",
		ConfirmText: "Delete",
		CancelText:  "Cancel",
	}
	DeleteAllPrompt = Prompt{
		Title:       "Remove every item from your cart?",
		ConfirmText: "Delete all",
		CancelText:  "Cancel",
	}
	PlaceOrderPrompt = Prompt{
		Title:       "Place this order?",
		ConfirmText: "Order",
		CancelText:  "Cancel",
	}
)

// Guard runs action only on an explicit affirmative answer.
// A dismissed or negative answer, or a failing dialog, performs no side effect.
func Guard(ctx context.Context, d Dialog, p Prompt, action func(ctx context.Context) error) (bool, error) {
	if d == nil {
		return false, nil
	}
	res, err := d.Confirm(ctx, p)
	if err != nil {
		return false, fmt.Errorf("confirm %q: %w", p.Title, err)
	}
	if !res.IsConfirmed {
		return false, nil
	}
	return true, action(ctx)
}
