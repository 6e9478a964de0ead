package dispatcher

import (
	"context"

	"github.com/minhvu/order-approval/internal/domain/event"
)

// Handler processes one lifecycle event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo pairs a handler with its registration name for debugging
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
