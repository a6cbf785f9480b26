// AngelaMos | 2026
// bus.go

package events

import (
	"context"
	"log/slog"
	"sync"
)

// Unauthorized is published when the back office rejects a previously
// accepted access token.
type Unauthorized struct {
	Method     string
	Path       string
	StatusCode int
}

type UnauthorizedHandler func(ctx context.Context, evt Unauthorized)

// Bus decouples the request layer from whoever owns the session. It holds a
// single subscriber; subscribing again replaces the previous handler.
type Bus struct {
	mu      sync.RWMutex
	handler UnauthorizedHandler
	logger  *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{logger: logger}
}

func (b *Bus) Subscribe(handler UnauthorizedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// Publish dispatches synchronously so the session is cleared before the
// caller that observed the rejection returns.
func (b *Bus) Publish(ctx context.Context, evt Unauthorized) {
	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()

	if handler == nil {
		b.logger.Debug("unauthorized event dropped, no subscriber",
			"method", evt.Method,
			"path", evt.Path,
		)
		return
	}

	handler(ctx, evt)
}
