package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestIntoContext_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info").With("handler", "get.cart")
	ctx := IntoContext(context.Background(), l)

	FromContext(ctx).Info("cart_loaded", "lines", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "cart_loaded", rec["msg"])
	assert.Equal(t, "get.cart", rec["handler"])
	assert.EqualValues(t, 2, rec["lines"])
}

func TestNewWithWriter_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level   string
		debug   bool
		info    bool
		warning bool
	}{
		{level: "debug", debug: true, info: true, warning: true},
		{level: "", debug: false, info: true, warning: true},
		{level: "WARN", debug: false, info: false, warning: true},
		{level: "error", debug: false, info: false, warning: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()

			l := NewWithWriter(&bytes.Buffer{}, tt.level)
			ctx := context.Background()
			assert.Equal(t, tt.debug, l.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.info, l.Enabled(ctx, slog.LevelInfo))
			assert.Equal(t, tt.warning, l.Enabled(ctx, slog.LevelWarn))
		})
	}
}
