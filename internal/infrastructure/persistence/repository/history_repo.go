package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/domain/entity"
	"github.com/minhvu/order-approval/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository. The table is
// append-only; no update or delete statement exists here on purpose.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends one history entry
func (r *HistoryRepository) Create(ctx context.Context, entry *entity.HistoryEntry) error {
	var changes interface{}
	if len(entry.Changes) > 0 {
		raw, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("failed to encode field changes: %w", err)
		}
		changes = string(raw)
	}

	query := `
		INSERT INTO order_history (
			order_id, action, from_status, to_status, actor_id,
			reason, notes, changes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entry.OrderID,
		entry.Action,
		nullString(entry.FromStatus),
		nullString(entry.ToStatus),
		entry.ActorID,
		nullString(entry.Reason),
		nullString(entry.Notes),
		changes,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create history entry", zap.Int64("order_id", entry.OrderID), zap.Error(err))
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// GetByOrderID retrieves the order's entries newest-first. Entries carry
// their timestamps so append order stays reconstructable.
func (r *HistoryRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*entity.HistoryEntry, error) {
	query := `
		SELECT id, order_id, action, from_status, to_status, actor_id,
			reason, notes, changes, created_at
		FROM order_history
		WHERE order_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.HistoryEntry
	for rows.Next() {
		var entry entity.HistoryEntry
		var fromStatus, toStatus, reason, notes, changes sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.Action,
			&fromStatus,
			&toStatus,
			&entry.ActorID,
			&reason,
			&notes,
			&changes,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.FromStatus = fromStatus.String
		entry.ToStatus = toStatus.String
		entry.Reason = reason.String
		entry.Notes = notes.String
		if changes.Valid && changes.String != "" {
			if err := json.Unmarshal([]byte(changes.String), &entry.Changes); err != nil {
				return nil, fmt.Errorf("failed to decode field changes: %w", err)
			}
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// getExecutor returns the context transaction when present
func (r *HistoryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
