package database

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Migration represents one schema migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the registered schema, applied in version order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_orders",
		SQL: `
			CREATE TABLE IF NOT EXISTS orders (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				number TEXT NOT NULL,
				status TEXT NOT NULL,
				customer_name TEXT NOT NULL,
				customer_phone TEXT NOT NULL DEFAULT '',
				customer_address TEXT NOT NULL DEFAULT '',
				total_cents INTEGER NOT NULL DEFAULT 0,
				actual_amount_cents INTEGER,
				created_by TEXT NOT NULL,
				approved_by TEXT,
				approved_at DATETIME,
				rejection_reason TEXT,
				edit_request_reason TEXT,
				warehouse_confirmed_by TEXT,
				warehouse_confirmed_at DATETIME,
				warehouse_rejection_reason TEXT,
				shipped_by TEXT,
				shipped_at DATETIME,
				tracking_number TEXT,
				shipping_notes TEXT,
				completed_at DATETIME,
				completion_notes TEXT,
				failure_reason TEXT,
				cancelled_by TEXT,
				cancelled_at DATETIME,
				cancellation_reason TEXT,
				version INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_number ON orders(number);
			CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
			CREATE INDEX IF NOT EXISTS idx_orders_created_by ON orders(created_by);
		`,
	},
	{
		Version: 2,
		Name:    "create_order_items",
		SQL: `
			CREATE TABLE IF NOT EXISTS order_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				description TEXT,
				sku TEXT,
				unit_price_cents INTEGER NOT NULL,
				quantity INTEGER NOT NULL,
				shipped_quantity INTEGER NOT NULL DEFAULT 0,
				returned_quantity INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
		`,
	},
	{
		Version: 3,
		Name:    "create_order_history",
		SQL: `
			CREATE TABLE IF NOT EXISTS order_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
				action TEXT NOT NULL,
				from_status TEXT,
				to_status TEXT,
				actor_id TEXT NOT NULL,
				reason TEXT,
				notes TEXT,
				changes TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_order_history_order_id ON order_history(order_id);
		`,
	},
	{
		Version: 4,
		Name:    "create_notifications",
		SQL: `
			CREATE TABLE IF NOT EXISTS notifications (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				recipient_id TEXT NOT NULL,
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				type TEXT NOT NULL,
				order_id INTEGER,
				is_read INTEGER NOT NULL DEFAULT 0,
				read_at DATETIME,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, is_read);
		`,
	},
}

// Migrator applies the registered migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := m.db.Exec(query)
	return err
}

func (m *Migrator) getAppliedMigrations() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// Run applies all pending migrations in version order
func (m *Migrator) Run() error {
	m.logger.Info("Starting database migrations")

	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pending := append([]Migration(nil), migrations...)
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, migration := range pending {
		if applied[migration.Version] {
			m.logger.Debug("Skipping applied migration",
				zap.Int("version", migration.Version),
				zap.String("name", migration.Name))
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		tx, err := m.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec(migration.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	m.logger.Info("Database migrations complete")
	return nil
}
