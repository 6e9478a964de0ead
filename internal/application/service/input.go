package service

// CustomerInfo carries the customer contact fields of an order
type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ItemInput describes one product line at creation or resubmission time
type ItemInput struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	SKU            string `json:"sku"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// CreateOrderInput is the payload for order creation
type CreateOrderInput struct {
	Customer CustomerInfo `json:"customer"`
	Items    []ItemInput  `json:"items"`
}

// AmendmentItem records the actually shipped quantity for one item when an
// accountant amends a partially completed order
type AmendmentItem struct {
	ItemID          int64 `json:"item_id"`
	ShippedQuantity int   `json:"shipped_quantity"`
}

// TransitionInput carries the action-specific fields of a transition request.
// Which fields are required depends on the action; unused fields are ignored.
type TransitionInput struct {
	Reason         string `json:"reason"`
	Notes          string `json:"notes"`
	TrackingNumber string `json:"tracking_number"`

	// Customer and Items carry the edited order on resubmit
	Customer *CustomerInfo `json:"customer,omitempty"`
	Items    []ItemInput   `json:"items,omitempty"`

	// Amendments and ActualAmountCents carry an amend payload
	Amendments        []AmendmentItem `json:"amendments,omitempty"`
	ActualAmountCents *int64          `json:"actual_amount_cents,omitempty"`
}
