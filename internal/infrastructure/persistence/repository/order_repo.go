package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/domain/entity"
	"github.com/minhvu/order-approval/internal/domain/workflow"
	"github.com/minhvu/order-approval/internal/infrastructure/persistence/sqlite"
)

const orderColumns = `
	id, number, status, customer_name, customer_phone, customer_address,
	total_cents, actual_amount_cents, created_by,
	approved_by, approved_at, rejection_reason, edit_request_reason,
	warehouse_confirmed_by, warehouse_confirmed_at, warehouse_rejection_reason,
	shipped_by, shipped_at, tracking_number, shipping_notes,
	completed_at, completion_notes, failure_reason,
	cancelled_by, cancelled_at, cancellation_reason,
	version, created_at, updated_at`

// OrderRepository implements port.OrderRepository on sqlite
type OrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) port.OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists the order and its items
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	query := `
		INSERT INTO orders (
			number, status, customer_name, customer_phone, customer_address,
			total_cents, created_by, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		order.Number,
		order.Status.String(),
		order.CustomerName,
		order.CustomerPhone,
		order.CustomerAddress,
		order.TotalCents,
		order.CreatedBy,
		order.Version,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("order number %s: %w", order.Number, port.ErrDuplicate)
		}
		r.logger.Error("Failed to create order", zap.Error(err))
		return fmt.Errorf("failed to create order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	order.ID = id

	for _, item := range order.Items {
		item.OrderID = id
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepository) insertItem(ctx context.Context, item *entity.OrderItem) error {
	query := `
		INSERT INTO order_items (
			order_id, name, description, sku, unit_price_cents,
			quantity, shipped_quantity, returned_quantity, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		item.OrderID,
		item.Name,
		item.Description,
		item.SKU,
		item.UnitPriceCents,
		item.Quantity,
		item.ShippedQuantity,
		item.ReturnedQuantity,
		item.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order item", zap.Int64("order_id", item.OrderID), zap.Error(err))
		return fmt.Errorf("failed to create order item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	return nil
}

// GetByID loads the order and its items
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = ?`, orderColumns)
	return r.getOne(ctx, query, id)
}

// GetByNumber loads the order by its human-facing number
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE number = ?`, orderColumns)
	return r.getOne(ctx, query, number)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg interface{}) (*entity.Order, error) {
	row := r.getExecutor(ctx).QueryRowContext(ctx, query, arg)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get order", zap.Error(err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.itemsFor(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// ListByStatuses returns orders in the given status set, newest-first.
// A non-positive limit means no limit.
func (r *OrderRepository) ListByStatuses(ctx context.Context, statuses []workflow.Status, limit, offset int) ([]*entity.Order, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]interface{}, 0, len(statuses)+2)
	for i, st := range statuses {
		placeholders[i] = "?"
		args = append(args, st.String())
	}

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE status IN (%s) ORDER BY created_at DESC, id DESC`,
		orderColumns, strings.Join(placeholders, ", "))
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	return r.list(ctx, query, args...)
}

// ListByCreator returns orders created by the given user, newest-first
func (r *OrderRepository) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*entity.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE created_by = ? ORDER BY created_at DESC, id DESC`, orderColumns)
	args := []interface{}{creatorID}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	return r.list(ctx, query, args...)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Order, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		items, err := r.itemsFor(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

// UpdateTransition writes the order's mutable fields guarded by the version
// the caller read. Zero matched rows means another transition won the race.
func (r *OrderRepository) UpdateTransition(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE orders SET
			status = ?, customer_name = ?, customer_phone = ?, customer_address = ?,
			total_cents = ?, actual_amount_cents = ?,
			approved_by = ?, approved_at = ?,
			rejection_reason = ?, edit_request_reason = ?,
			warehouse_confirmed_by = ?, warehouse_confirmed_at = ?, warehouse_rejection_reason = ?,
			shipped_by = ?, shipped_at = ?, tracking_number = ?, shipping_notes = ?,
			completed_at = ?, completion_notes = ?, failure_reason = ?,
			cancelled_by = ?, cancelled_at = ?, cancellation_reason = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		order.Status.String(),
		order.CustomerName,
		order.CustomerPhone,
		order.CustomerAddress,
		order.TotalCents,
		order.ActualAmountCents,
		nullString(order.ApprovedBy),
		order.ApprovedAt,
		nullString(order.RejectionReason),
		nullString(order.EditRequestReason),
		nullString(order.WarehouseConfirmedBy),
		order.WarehouseConfirmedAt,
		nullString(order.WarehouseRejectionReason),
		nullString(order.ShippedBy),
		order.ShippedAt,
		nullString(order.TrackingNumber),
		nullString(order.ShippingNotes),
		order.CompletedAt,
		nullString(order.CompletionNotes),
		nullString(order.FailureReason),
		nullString(order.CancelledBy),
		order.CancelledAt,
		nullString(order.CancellationReason),
		order.UpdatedAt,
		order.ID,
		order.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update order", zap.Int64("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to update order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order %d at version %d: %w", order.ID, order.Version, port.ErrConflict)
	}

	order.Version++
	return nil
}

// ReplaceItems swaps the order's item set during a pre-submission edit
func (r *OrderRepository) ReplaceItems(ctx context.Context, orderID int64, items []*entity.OrderItem) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		r.logger.Error("Failed to clear order items", zap.Int64("order_id", orderID), zap.Error(err))
		return fmt.Errorf("failed to clear order items: %w", err)
	}
	for _, item := range items {
		item.OrderID = orderID
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// UpdateItemFulfillment records the shipped quantity for one item
func (r *OrderRepository) UpdateItemFulfillment(ctx context.Context, orderID, itemID int64, shippedQty int) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx,
		`UPDATE order_items SET shipped_quantity = ? WHERE id = ? AND order_id = ?`,
		shippedQty, itemID, orderID,
	)
	if err != nil {
		r.logger.Error("Failed to update item fulfillment",
			zap.Int64("order_id", orderID),
			zap.Int64("item_id", itemID),
			zap.Error(err))
		return fmt.Errorf("failed to update item fulfillment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %d on order %d: %w", itemID, orderID, port.ErrNotFound)
	}
	return nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderID int64) ([]*entity.OrderItem, error) {
	query := `
		SELECT id, order_id, name, description, sku, unit_price_cents,
			quantity, shipped_quantity, returned_quantity, created_at
		FROM order_items
		WHERE order_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []*entity.OrderItem
	for rows.Next() {
		var item entity.OrderItem
		var desc, sku sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.Name,
			&desc,
			&sku,
			&item.UnitPriceCents,
			&item.Quantity,
			&item.ShippedQuantity,
			&item.ReturnedQuantity,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Description = desc.String
		item.SKU = sku.String
		items = append(items, &item)
	}
	return items, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(s scanner) (*entity.Order, error) {
	var order entity.Order
	var status string
	var actualAmount sql.NullInt64
	var approvedBy, rejectionReason, editRequestReason sql.NullString
	var warehouseConfirmedBy, warehouseRejectionReason sql.NullString
	var shippedBy, trackingNumber, shippingNotes sql.NullString
	var completionNotes, failureReason sql.NullString
	var cancelledBy, cancellationReason sql.NullString
	var approvedAt, warehouseConfirmedAt, shippedAt, completedAt, cancelledAt sql.NullTime

	err := s.Scan(
		&order.ID,
		&order.Number,
		&status,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.CustomerAddress,
		&order.TotalCents,
		&actualAmount,
		&order.CreatedBy,
		&approvedBy,
		&approvedAt,
		&rejectionReason,
		&editRequestReason,
		&warehouseConfirmedBy,
		&warehouseConfirmedAt,
		&warehouseRejectionReason,
		&shippedBy,
		&shippedAt,
		&trackingNumber,
		&shippingNotes,
		&completedAt,
		&completionNotes,
		&failureReason,
		&cancelledBy,
		&cancelledAt,
		&cancellationReason,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = workflow.Status(status)
	if actualAmount.Valid {
		order.ActualAmountCents = &actualAmount.Int64
	}
	order.ApprovedBy = approvedBy.String
	order.RejectionReason = rejectionReason.String
	order.EditRequestReason = editRequestReason.String
	order.WarehouseConfirmedBy = warehouseConfirmedBy.String
	order.WarehouseRejectionReason = warehouseRejectionReason.String
	order.ShippedBy = shippedBy.String
	order.TrackingNumber = trackingNumber.String
	order.ShippingNotes = shippingNotes.String
	order.CompletionNotes = completionNotes.String
	order.FailureReason = failureReason.String
	order.CancelledBy = cancelledBy.String
	order.CancellationReason = cancellationReason.String
	order.ApprovedAt = timePtr(approvedAt)
	order.WarehouseConfirmedAt = timePtr(warehouseConfirmedAt)
	order.ShippedAt = timePtr(shippedAt)
	order.CompletedAt = timePtr(completedAt)
	order.CancelledAt = timePtr(cancelledAt)

	return &order, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// getExecutor returns the context transaction when present
func (r *OrderRepository) getExecutor(ctx context.Context) sqlite.Executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.OrderRepository = (*OrderRepository)(nil)
