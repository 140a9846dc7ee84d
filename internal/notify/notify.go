// Package notify delivers user-visible success and error notices.
// Notices are fire-and-forget: nothing downstream consumes a return value.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Skotchmaster/checkout/pkg/logging"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notice struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

func Success(ctx context.Context, nt Notifier, title, msg string) {
	nt.Notify(ctx, Notice{Level: LevelSuccess, Title: title, Message: msg})
}

func Error(ctx context.Context, nt Notifier, title, msg string) {
	nt.Notify(ctx, Notice{Level: LevelError, Title: title, Message: msg})
}

func Info(ctx context.Context, nt Notifier, title, msg string) {
	nt.Notify(ctx, Notice{Level: LevelInfo, Title: title, Message: msg})
}

// Log writes notices to the request logger.
type Log struct{}

func (Log) Notify(ctx context.Context, n Notice) {
	l := logging.FromContext(ctx)
	lvl := slog.LevelInfo
	if n.Level == LevelError {
		lvl = slog.LevelWarn
	}
	l.Log(ctx, lvl, "notice", "level", n.Level, "title", n.Title, "message", n.Message)
}

// Collector buffers notices raised while serving one request so they can be returned with the response.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *Collector) Notify(ctx context.Context, n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Tee fans a notice out to every notifier.
type Tee []Notifier

func (t Tee) Notify(ctx context.Context, n Notice) {
	for _, nt := range t {
		nt.Notify(ctx, n)
	}
}

type ctxKey struct{}

func IntoContext(ctx context.Context, nt Notifier) context.Context {
	return context.WithValue(ctx, ctxKey{}, nt)
}

// FromContext returns the request notifier, or a Log notifier when none was installed.
func FromContext(ctx context.Context) Notifier {
	if nt, ok := ctx.Value(ctxKey{}).(Notifier); ok {
		return nt
	}
	return Log{}
}
