package confirm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	t.Parallel()

	errDialog := errors.New("dialog closed")
	errAction := errors.New("store down")

	tests := []struct {
		name      string
		dialog    Dialog
		action    error
		confirmed bool
		ran       bool
		wantErr   error
	}{
		{name: "confirmed", dialog: Static(true), confirmed: true, ran: true},
		{name: "declined", dialog: Static(false)},
		{name: "no dialog", dialog: nil},
		{
			name: "dialog error",
			dialog: DialogFunc(func(ctx context.Context, p Prompt) (Result, error) {
				return Result{}, errDialog
			}),
			wantErr: errDialog,
		},
		{name: "action error", dialog: Static(true), action: errAction, confirmed: true, ran: true, wantErr: errAction},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ran := false
			ok, err := Guard(context.Background(), tt.dialog, DeleteLinePrompt, func(ctx context.Context) error {
				ran = true
				return tt.action
			})
			assert.Equal(t, tt.confirmed, ok)
			assert.Equal(t, tt.ran, ran)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGuard_PassesPrompt(t *testing.T) {
	t.Parallel()

	var seen Prompt
	d := DialogFunc(func(ctx context.Context, p Prompt) (Result, error) {
		seen = p
		return Result{IsConfirmed: true}, nil
	})
	_, err := Guard(context.Background(), d, PlaceOrderPrompt, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, PlaceOrderPrompt, seen)
}
