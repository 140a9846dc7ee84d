package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ConcurrentNotify(t *testing.T) {
	t.Parallel()

	var c Collector
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Error(context.Background(), &c, "Delete failed!", "500")
		}()
	}
	wg.Wait()

	got := c.Notices()
	require.Len(t, got, 20)
	assert.Equal(t, LevelError, got[0].Level)
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.IsType(t, Log{}, FromContext(context.Background()))

	c := &Collector{}
	ctx := IntoContext(context.Background(), c)
	Success(ctx, FromContext(ctx), "Order placed", "")
	require.Len(t, c.Notices(), 1)
	assert.Equal(t, Notice{Level: LevelSuccess, Title: "Order placed"}, c.Notices()[0])
}

func TestTee(t *testing.T) {
	t.Parallel()

	a, b := &Collector{}, &Collector{}
	Info(context.Background(), Tee{a, b, Log{}}, "No results found", "")
	assert.Len(t, a.Notices(), 1)
	assert.Len(t, b.Notices(), 1)
}
