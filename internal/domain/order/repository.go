// internal/domain/order/repository.go
package order

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
)

var (
	ErrOrderNotFound  = apperr.New(apperr.ErrNotFound, "order not found")
	ErrLineNotFound   = apperr.New(apperr.ErrNotFound, "order line not found")
	ErrReasonTooShort = apperr.New(apperr.ErrInvalidInput, "cancellation reason is too short")
	ErrDeliveredPaid  = apperr.New(apperr.ErrInvalidInput, "delivered and paid orders cannot be cancelled")
	ErrInvalidTarget  = apperr.New(apperr.ErrInvalidInput, "target status must be a production stage")
	ErrNotSingleMode  = apperr.New(apperr.ErrInvalidInput, "operation requires a single-line order")
)

// ListFilter narrows order listings
type ListFilter struct {
	Status           Status
	Mode             Mode
	IncludeCancelled bool
	Page             int
	Limit            int
}

// LineFilter narrows line listings
type LineFilter struct {
	Statuses []Status
	// ExcludeCancelledOrders drops lines whose order was cancelled
	ExcludeCancelledOrders bool
}

// QueueLine is an order line together with the order data shown in queues
type QueueLine struct {
	OrderLine
	OrderNumber string `json:"order_number"`
	ClientName  string `json:"client_name"`
	OrderMode   Mode   `json:"order_mode"`
}

// Repository persists orders, lines and payments
type Repository interface {
	// Create inserts the order together with its lines
	Create(ctx context.Context, o *Order) error
	// Get loads the order with lines and payments
	Get(ctx context.Context, id uint) (*Order, error)
	// Lock loads the order with its lines and holds row locks on all of
	// them until the transaction ends. Always lock through the order so
	// concurrent requests acquire rows in the same sequence.
	Lock(ctx context.Context, id uint) (*Order, error)
	GetLine(ctx context.Context, id uint) (*OrderLine, error)
	Save(ctx context.Context, o *Order) error
	SaveLine(ctx context.Context, l *OrderLine) error
	List(ctx context.Context, filter ListFilter) ([]Order, int64, error)
	ListLines(ctx context.Context, filter LineFilter) ([]QueueLine, error)

	AddPayment(ctx context.Context, p *Payment) error
	SumPayments(ctx context.Context, orderID uint) (decimal.Decimal, error)
}

// Session groups the repositories bound to one storage transaction
type Session interface {
	Orders() Repository
	Inventory() inventory.Repository
	Audit() audit.Repository
}

// UnitOfWork runs fn in one transaction. Returning an error from fn rolls
// back every write made through the session.
type UnitOfWork interface {
	Transaction(ctx context.Context, fn func(Session) error) error
}

// Store is a session over the whole database that can also open
// transactions
type Store interface {
	Session
	UnitOfWork
}
