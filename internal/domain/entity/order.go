package entity

import (
	"time"

	"github.com/minhvu/order-approval/internal/domain/workflow"
)

// Order represents one customer order moving through the approval lifecycle.
// Per-transition fields (ApprovedBy, ShippedAt, ...) are historical facts:
// once set they are never cleared by later transitions, only Status moves.
type Order struct {
	ID              int64           `json:"id"`
	Number          string          `json:"number"`
	Status          workflow.Status `json:"status"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerAddress string          `json:"customer_address"`
	// TotalCents is derived from items, recomputed on edits before
	// submission and frozen once the order leaves sales' hands
	TotalCents int64  `json:"total_cents"`
	CreatedBy  string `json:"created_by"`

	ApprovedBy string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`

	RejectionReason   string `json:"rejection_reason,omitempty"`
	EditRequestReason string `json:"edit_request_reason,omitempty"`

	WarehouseConfirmedBy     string     `json:"warehouse_confirmed_by,omitempty"`
	WarehouseConfirmedAt     *time.Time `json:"warehouse_confirmed_at,omitempty"`
	WarehouseRejectionReason string     `json:"warehouse_rejection_reason,omitempty"`

	ShippedBy      string     `json:"shipped_by,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	ShippingNotes  string     `json:"shipping_notes,omitempty"`

	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletionNotes string     `json:"completion_notes,omitempty"`

	FailureReason string `json:"failure_reason,omitempty"`

	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	// ActualAmountCents is the delivered amount recorded by an accountant
	// amending a partially completed order
	ActualAmountCents *int64 `json:"actual_amount_cents,omitempty"`

	// Version guards concurrent transitions: the store only applies a
	// transition when the caller read this version
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []*OrderItem `json:"items,omitempty"`
}

// OrderItem represents a single product line on an order
type OrderItem struct {
	ID               int64     `json:"id"`
	OrderID          int64     `json:"order_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	SKU              string    `json:"sku,omitempty"`
	UnitPriceCents   int64     `json:"unit_price_cents"`
	Quantity         int       `json:"quantity"`
	ShippedQuantity  int       `json:"shipped_quantity"`
	ReturnedQuantity int       `json:"returned_quantity"`
	CreatedAt        time.Time `json:"created_at"`
}

// LineTotalCents returns price x ordered quantity for the item
func (i *OrderItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// ComputeTotalCents sums the line totals of the given items
func ComputeTotalCents(items []*OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotalCents()
	}
	return total
}
