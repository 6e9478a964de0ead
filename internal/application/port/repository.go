package port

import (
	"context"

	"github.com/minhvu/order-approval/internal/domain/entity"
	"github.com/minhvu/order-approval/internal/domain/workflow"
)

// OrderRepository defines persistence operations for Order and its items
type OrderRepository interface {
	// Create persists the order and its items; fills ids
	Create(ctx context.Context, order *entity.Order) error

	// GetByID loads the order with its items; ErrNotFound if absent
	GetByID(ctx context.Context, id int64) (*entity.Order, error)

	// GetByNumber loads the order by its human-facing number
	GetByNumber(ctx context.Context, number string) (*entity.Order, error)

	// ListByStatuses returns orders whose status is in the given set,
	// newest-first. An empty set returns nothing.
	ListByStatuses(ctx context.Context, statuses []workflow.Status, limit, offset int) ([]*entity.Order, error)

	// ListByCreator returns orders created by the given user, newest-first
	ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*entity.Order, error)

	// UpdateTransition writes the order's mutable fields guarded by the
	// version the caller read; ErrConflict when zero rows match
	UpdateTransition(ctx context.Context, order *entity.Order) error

	// ReplaceItems swaps the order's item set during a pre-submission edit
	// and is only legal inside the resubmit transaction
	ReplaceItems(ctx context.Context, orderID int64, items []*entity.OrderItem) error

	// UpdateItemFulfillment records shipped quantities during an amend
	UpdateItemFulfillment(ctx context.Context, orderID int64, itemID int64, shippedQty int) error
}

// HistoryRepository defines the append-only history ledger. There is no
// update or delete: entries are immutable once written.
type HistoryRepository interface {
	// Create appends one entry; storage errors propagate and abort the
	// enclosing transition
	Create(ctx context.Context, entry *entity.HistoryEntry) error

	// GetByOrderID returns the order's entries newest-first
	GetByOrderID(ctx context.Context, orderID int64) ([]*entity.HistoryEntry, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, recipientID string, id int64) error
	MarkAllRead(ctx context.Context, recipientID string) error
	Delete(ctx context.Context, recipientID string, id int64) error
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
