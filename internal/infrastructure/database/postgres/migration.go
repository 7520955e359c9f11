// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/domain/order"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("🔄 Running database auto-migrations...")

	// Dependency order
	models := []interface{}{
		// Inventory domain
		&inventory.Item{},
		&inventory.Movement{},

		// Order domain
		&order.Order{},
		&order.OrderLine{},
		&order.Payment{},

		// Audit domain
		&audit.Entry{},
	}

	for _, model := range models {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	if err := m.createConstraints(); err != nil {
		return err
	}

	m.log.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// createConstraints adds the constraints GORM cannot express through tags
func (m *Migration) createConstraints() error {
	constraints := []struct {
		table string
		name  string
		sql   string
	}{
		{
			table: "audit_entries",
			name:  "fk_audit_entries_order_line",
			sql:   "ALTER TABLE audit_entries ADD CONSTRAINT fk_audit_entries_order_line FOREIGN KEY (order_line_id) REFERENCES order_lines(id) ON UPDATE CASCADE ON DELETE CASCADE",
		},
		{
			table: "stock_movements",
			name:  "chk_stock_movements_quantity_positive",
			sql:   "ALTER TABLE stock_movements ADD CONSTRAINT chk_stock_movements_quantity_positive CHECK (quantity > 0)",
		},
		{
			table: "stock_movements",
			name:  "chk_stock_movements_direction",
			sql:   "ALTER TABLE stock_movements ADD CONSTRAINT chk_stock_movements_direction CHECK (direction IN ('in', 'out'))",
		},
		{
			table: "order_payments",
			name:  "chk_order_payments_amount_positive",
			sql:   "ALTER TABLE order_payments ADD CONSTRAINT chk_order_payments_amount_positive CHECK (amount > 0)",
		},
	}

	for _, c := range constraints {
		if m.db.Migrator().HasConstraint(c.table, c.name) {
			continue
		}
		if err := m.db.Exec(c.sql).Error; err != nil {
			return fmt.Errorf("failed to create constraint %s: %w", c.name, err)
		}
	}
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	m.log.Info("🔄 Creating additional database indexes...")

	indexes := []string{
		// Order indexes
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number_unique ON orders(order_number) WHERE order_number <> ''",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Order line indexes
		"CREATE INDEX IF NOT EXISTS idx_order_lines_order_status ON order_lines(order_id, status)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_order_payments_order_paid_on ON order_payments(order_id, paid_on)",

		// Inventory indexes
		"CREATE INDEX IF NOT EXISTS idx_inventory_items_low_stock ON inventory_items(is_active) WHERE quantity < minimum_quantity",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_item_created ON stock_movements(inventory_item_id, created_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).Warn("⚠️ Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.log.Infof("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts the raw materials the shop starts with
func (m *Migration) SeedInitialData(unit string, minimum decimal.Decimal) error {
	m.log.Info("🌱 Seeding initial data...")

	if err := m.seedInventoryItems(unit, minimum); err != nil {
		return fmt.Errorf("failed to seed inventory items: %w", err)
	}

	m.log.Info("✅ Initial data seeded successfully")
	return nil
}

// seedInventoryItems creates the default powder paints and consumables
func (m *Migration) seedInventoryItems(unit string, minimum decimal.Decimal) error {
	names := []string{
		"Powder paint black matte",
		"Powder paint white gloss",
		"Powder paint textured gray",
		"Degreaser",
		"Masking tape",
	}

	created := 0
	for _, name := range names {
		var existing inventory.Item
		err := m.db.Where("name = ?", name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		item := inventory.Item{
			Name:            name,
			Unit:            unit,
			Quantity:        decimal.Zero,
			MinimumQuantity: minimum,
			IsActive:        true,
		}
		if err := m.db.Create(&item).Error; err != nil {
			m.log.WithError(err).Warnf("⚠️ Failed to create inventory item %s", name)
			continue
		}
		created++
	}

	m.log.Infof("✅ Created %d inventory items", created)
	return nil
}
