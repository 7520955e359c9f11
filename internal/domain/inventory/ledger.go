// internal/domain/inventory/ledger.go
package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ledger applies stock movements. Every method works on the repository it
// is given, so callers decide the transaction boundary.
type Ledger struct {
	log    *logrus.Logger
	tracer trace.Tracer
}

// NewLedger creates a new stock ledger
func NewLedger(log *logrus.Logger) *Ledger {
	return &Ledger{
		log:    log,
		tracer: otel.Tracer("coating-shop/inventory"),
	}
}

// AdjustRequest describes a single movement
type AdjustRequest struct {
	ItemID      uint
	Direction   Direction
	Quantity    decimal.Decimal
	Origin      Origin
	ReferenceID *uint
	ActorID     uint
	Note        string
}

// Adjust records one movement and updates the item balance. Balances may go
// negative.
func (l *Ledger) Adjust(ctx context.Context, repo Repository, req AdjustRequest) (*Movement, error) {
	ctx, span := l.tracer.Start(ctx, "inventory.Adjust", trace.WithAttributes(
		attribute.Int("item.id", int(req.ItemID)),
		attribute.String("movement.direction", string(req.Direction)),
		attribute.String("movement.origin", string(req.Origin)),
	))
	defer span.End()

	movement, err := l.adjust(ctx, repo, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return movement, nil
}

func (l *Ledger) adjust(ctx context.Context, repo Repository, req AdjustRequest) (*Movement, error) {
	if !req.Direction.Valid() {
		return nil, ErrInvalidDirection
	}
	if !req.Origin.Valid() {
		return nil, ErrInvalidOrigin
	}
	quantity := req.Quantity.Round(QuantityPlaces)
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	item, err := repo.LockItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	before := item.Quantity
	after := before.Add(quantity)
	if req.Direction == DirectionOut {
		after = before.Sub(quantity)
	}

	movement := &Movement{
		ItemID:        item.ID,
		Direction:     req.Direction,
		Quantity:      quantity,
		BalanceBefore: before,
		BalanceAfter:  after,
		Origin:        req.Origin,
		ReferenceID:   req.ReferenceID,
		ActorID:       req.ActorID,
		Note:          req.Note,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}
	if err := repo.UpdateQuantity(ctx, item.ID, after); err != nil {
		return nil, fmt.Errorf("failed to update item quantity: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"item_id":        item.ID,
		"direction":      req.Direction,
		"origin":         req.Origin,
		"quantity":       quantity.StringFixed(QuantityPlaces),
		"balance_before": before.StringFixed(QuantityPlaces),
		"balance_after":  after.StringFixed(QuantityPlaces),
	}).Info("Stock movement recorded")

	return movement, nil
}

// ConsumeForLine records one outbound production movement per allocation,
// all referencing the order line. Allocations are validated before any
// movement is written.
func (l *Ledger) ConsumeForLine(ctx context.Context, repo Repository, lineID, actorID uint, allocations []Allocation) ([]Movement, error) {
	ctx, span := l.tracer.Start(ctx, "inventory.ConsumeForLine", trace.WithAttributes(
		attribute.Int("order_line.id", int(lineID)),
		attribute.Int("allocations", len(allocations)),
	))
	defer span.End()

	if err := ValidateAllocations(allocations); err != nil {
		return nil, err
	}

	ref := lineID
	movements := make([]Movement, 0, len(allocations))
	for _, a := range allocations {
		m, err := l.adjust(ctx, repo, AdjustRequest{
			ItemID:      a.ItemID,
			Direction:   DirectionOut,
			Quantity:    a.Quantity,
			Origin:      OriginProduction,
			ReferenceID: &ref,
			ActorID:     actorID,
			Note:        fmt.Sprintf("consumed by order line %d", lineID),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		movements = append(movements, *m)
	}
	return movements, nil
}

// ReverseForLine undoes every production movement of the line: the
// consumed quantities go back to their items and the movements are deleted.
func (l *Ledger) ReverseForLine(ctx context.Context, repo Repository, lineID uint) (int, error) {
	return l.reverse(ctx, repo, OriginProduction, lineID)
}

// ReverseForPurchase undoes the inbound movements of a purchase record
func (l *Ledger) ReverseForPurchase(ctx context.Context, repo Repository, referenceID uint) (int, error) {
	return l.reverse(ctx, repo, OriginPurchase, referenceID)
}

func (l *Ledger) reverse(ctx context.Context, repo Repository, origin Origin, referenceID uint) (int, error) {
	ctx, span := l.tracer.Start(ctx, "inventory.Reverse", trace.WithAttributes(
		attribute.String("movement.origin", string(origin)),
		attribute.Int("reference.id", int(referenceID)),
	))
	defer span.End()

	if referenceID == 0 {
		return 0, ErrMissingReference
	}

	movements, err := repo.FindMovements(ctx, origin, referenceID)
	if err != nil {
		return 0, fmt.Errorf("failed to load movements: %w", err)
	}

	// lock items in a stable order
	sort.Slice(movements, func(i, j int) bool {
		if movements[i].ItemID == movements[j].ItemID {
			return movements[i].ID < movements[j].ID
		}
		return movements[i].ItemID < movements[j].ItemID
	})

	for _, m := range movements {
		item, err := repo.LockItem(ctx, m.ItemID)
		if err != nil {
			span.RecordError(err)
			return 0, err
		}

		restored := item.Quantity.Sub(m.Quantity)
		if m.Direction == DirectionOut {
			restored = item.Quantity.Add(m.Quantity)
		}
		if err := repo.UpdateQuantity(ctx, item.ID, restored); err != nil {
			return 0, fmt.Errorf("failed to restore item quantity: %w", err)
		}
		if err := repo.DeleteMovement(ctx, m.ID); err != nil {
			return 0, fmt.Errorf("failed to delete stock movement: %w", err)
		}
	}

	if len(movements) > 0 {
		l.log.WithFields(logrus.Fields{
			"origin":       origin,
			"reference_id": referenceID,
			"movements":    len(movements),
		}).Info("Stock movements reversed")
	}

	return len(movements), nil
}

// ValidateAllocations checks every allocation names an item and a positive
// quantity
func ValidateAllocations(allocations []Allocation) error {
	for _, a := range allocations {
		if a.ItemID == 0 {
			return ErrMissingItem
		}
		if !a.Quantity.Round(QuantityPlaces).IsPositive() {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// DescribeAllocations renders allocations for audit labels, e.g. "#3 x1.5"
func DescribeAllocations(allocations []Allocation) string {
	parts := make([]string, 0, len(allocations))
	for _, a := range allocations {
		parts = append(parts, fmt.Sprintf("#%d x%s", a.ItemID, a.Quantity.Round(QuantityPlaces).String()))
	}
	return strings.Join(parts, ", ")
}
