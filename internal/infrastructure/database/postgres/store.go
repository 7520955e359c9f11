// internal/infrastructure/database/postgres/store.go
package postgres

import (
	"context"

	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/domain/order"
	"gorm.io/gorm"
)

var (
	_ order.Store          = (*Store)(nil)
	_ inventory.Transactor = (*Store)(nil)
)

// Store gives access to the repositories, either on the connection pool or
// bound to a transaction
type Store struct {
	db *gorm.DB
}

// NewStore creates a store on the given connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn inside a database transaction. Any error returned by
// fn rolls back every write made through the session.
func (s *Store) Transaction(ctx context.Context, fn func(order.Session) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
	return mapError(err, nil)
}

// WithinTransaction runs fn with the inventory repository of a transaction
func (s *Store) WithinTransaction(ctx context.Context, fn func(inventory.Repository) error) error {
	return s.Transaction(ctx, func(sess order.Session) error {
		return fn(sess.Inventory())
	})
}

// Orders returns the order repository
func (s *Store) Orders() order.Repository {
	return &orderRepo{db: s.db}
}

// Inventory returns the inventory repository
func (s *Store) Inventory() inventory.Repository {
	return &inventoryRepo{db: s.db}
}

// Audit returns the audit repository
func (s *Store) Audit() audit.Repository {
	return &auditRepo{db: s.db}
}
