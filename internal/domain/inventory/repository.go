// internal/domain/inventory/repository.go
package inventory

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
)

var (
	ErrItemNotFound     = apperr.New(apperr.ErrNotFound, "inventory item not found")
	ErrInvalidQuantity  = apperr.New(apperr.ErrInvalidInput, "quantity must be greater than zero")
	ErrInvalidDirection = apperr.New(apperr.ErrInvalidInput, "direction must be in or out")
	ErrInvalidOrigin    = apperr.New(apperr.ErrInvalidInput, "origin must be manual, purchase or production")
	ErrMissingItem      = apperr.New(apperr.ErrInvalidInput, "allocation requires an item")
	ErrMissingReference = apperr.New(apperr.ErrInvalidInput, "movement requires a reference")
)

// Repository persists items and movements. Implementations bound to a
// transaction see and lock rows within that transaction.
type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uint) (*Item, error)
	// LockItem loads the item and holds a row lock until the transaction ends
	LockItem(ctx context.Context, id uint) (*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	UpdateQuantity(ctx context.Context, id uint, quantity decimal.Decimal) error
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)

	CreateMovement(ctx context.Context, movement *Movement) error
	DeleteMovement(ctx context.Context, id uint) error
	FindMovements(ctx context.Context, origin Origin, referenceID uint) ([]Movement, error)
	ListMovements(ctx context.Context, itemID uint, limit int) ([]Movement, error)
}

// Transactor runs fn inside a single storage transaction
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(Repository) error) error
}
