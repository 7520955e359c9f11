// internal/domain/order/fulfillment.go
package order

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/config"
	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Audit action labels
const (
	ActionStartedProduction  = "started production"
	ActionFinishedProduction = "finished production"
	ActionDelivered          = "delivered"
	ActionUndoneStart        = "reverted: undone start"
	ActionUndoneFinish       = "reverted: undone finish"
)

// Result describes the outcome of a line transition. Changed is false when
// the request was not a valid transition and nothing was written.
type Result struct {
	Order     *Order               `json:"order"`
	Line      *OrderLine           `json:"line"`
	Changed   bool                 `json:"changed"`
	Action    string               `json:"action,omitempty"`
	Movements []inventory.Movement `json:"movements,omitempty"`
	Reversed  int                  `json:"reversed_movements,omitempty"`
}

// BulkResult describes the outcome of a bulk status change
type BulkResult struct {
	Order        *Order `json:"order"`
	ChangedLines []uint `json:"changed_lines"`
	Reversed     int    `json:"reversed_movements,omitempty"`
}

// Fulfillment moves order lines through the production stages
type Fulfillment struct {
	store  Store
	ledger *inventory.Ledger
	trail  *audit.Trail
	config *config.Config
	log    *logrus.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewFulfillment creates a new fulfillment state machine
func NewFulfillment(store Store, ledger *inventory.Ledger, trail *audit.Trail, cfg *config.Config, log *logrus.Logger) *Fulfillment {
	return &Fulfillment{
		store:  store,
		ledger: ledger,
		trail:  trail,
		config: cfg,
		log:    log,
		tracer: otel.Tracer("coating-shop/fulfillment"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy using now for every stamp
func (f *Fulfillment) WithClock(now func() time.Time) *Fulfillment {
	cp := *f
	cp.now = now
	return &cp
}

// Advance moves a line one stage forward. Allocations are consumed from
// stock only when the line becomes ready.
func (f *Fulfillment) Advance(ctx context.Context, actorID, lineID uint, allocations []inventory.Allocation) (*Result, error) {
	ctx, span := f.tracer.Start(ctx, "fulfillment.Advance", trace.WithAttributes(
		attribute.Int("order_line.id", int(lineID)),
		attribute.Int("actor.id", int(actorID)),
	))
	defer span.End()

	if err := inventory.ValidateAllocations(allocations); err != nil {
		return nil, f.fail(span, err)
	}

	var res *Result
	err := f.store.Transaction(ctx, func(s Session) error {
		o, line, err := f.lockLine(ctx, s, lineID)
		if err != nil {
			return err
		}
		res = &Result{Order: o, Line: line}

		if o.IsCancelled() {
			return nil
		}
		next, ok := line.Status.Next()
		if !ok {
			return nil
		}

		now := f.now()
		from := line.Status
		line.Status = next
		line.StageStamp(next).Set(actorID, now)

		switch next {
		case StatusInProduction:
			res.Action = ActionStartedProduction
		case StatusReady:
			res.Action = ActionFinishedProduction
			if len(allocations) > 0 {
				movements, err := f.ledger.ConsumeForLine(ctx, s.Inventory(), line.ID, actorID, allocations)
				if err != nil {
					return err
				}
				res.Movements = movements
				res.Action = "finished with consumption: " + inventory.DescribeAllocations(allocations)
			}
		case StatusDelivered:
			res.Action = ActionDelivered
		}

		if err := f.commitLine(ctx, s, o, line, actorID, from, res.Action, now); err != nil {
			return err
		}
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, f.fail(span, err)
	}

	f.logResult("Order line advanced", res)
	return res, nil
}

// Revert moves a line one stage back. Leaving ready returns every item the
// line consumed to stock.
func (f *Fulfillment) Revert(ctx context.Context, actorID, lineID uint) (*Result, error) {
	ctx, span := f.tracer.Start(ctx, "fulfillment.Revert", trace.WithAttributes(
		attribute.Int("order_line.id", int(lineID)),
		attribute.Int("actor.id", int(actorID)),
	))
	defer span.End()

	var res *Result
	err := f.store.Transaction(ctx, func(s Session) error {
		o, line, err := f.lockLine(ctx, s, lineID)
		if err != nil {
			return err
		}
		res = &Result{Order: o, Line: line}

		if o.IsCancelled() {
			return nil
		}
		prev, ok := line.Status.Previous()
		if !ok {
			return nil
		}

		now := f.now()
		from := line.Status
		line.StageStamp(from).Clear()
		line.Status = prev

		switch from {
		case StatusInProduction:
			res.Action = ActionUndoneStart
		case StatusReady:
			res.Action = ActionUndoneFinish
			reversed, err := f.ledger.ReverseForLine(ctx, s.Inventory(), line.ID)
			if err != nil {
				return err
			}
			res.Reversed = reversed
		}

		if err := f.commitLine(ctx, s, o, line, actorID, from, res.Action, now); err != nil {
			return err
		}
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, f.fail(span, err)
	}

	f.logResult("Order line reverted", res)
	return res, nil
}

// AdvanceOrder advances the synthetic line of a single-line order
func (f *Fulfillment) AdvanceOrder(ctx context.Context, actorID, orderID uint, allocations []inventory.Allocation) (*Result, error) {
	lineID, err := f.singleLine(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return f.Advance(ctx, actorID, lineID, allocations)
}

// RevertOrder reverts the synthetic line of a single-line order
func (f *Fulfillment) RevertOrder(ctx context.Context, actorID, orderID uint) (*Result, error) {
	lineID, err := f.singleLine(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return f.Revert(ctx, actorID, lineID)
}

// AdvanceOrderBulk forces every line of the order to target and sets the
// order itself to target. Lines leaving ready or delivered for an earlier
// stage return their consumed stock.
func (f *Fulfillment) AdvanceOrderBulk(ctx context.Context, actorID, orderID uint, target Status) (*BulkResult, error) {
	ctx, span := f.tracer.Start(ctx, "fulfillment.AdvanceOrderBulk", trace.WithAttributes(
		attribute.Int("order.id", int(orderID)),
		attribute.String("target", string(target)),
	))
	defer span.End()

	if !target.IsStage() {
		return nil, f.fail(span, ErrInvalidTarget)
	}

	var res *BulkResult
	err := f.store.Transaction(ctx, func(s Session) error {
		o, err := s.Orders().Lock(ctx, orderID)
		if err != nil {
			return err
		}
		res = &BulkResult{Order: o, ChangedLines: []uint{}}

		if o.IsCancelled() {
			return nil
		}

		now := f.now()
		action := fmt.Sprintf("bulk action (%s)", target.Label())
		for i := range o.Lines {
			line := &o.Lines[i]
			if line.Status == target {
				continue
			}
			from := line.Status

			if from.Rank() >= StatusReady.Rank() && target.Rank() < StatusReady.Rank() {
				reversed, err := f.ledger.ReverseForLine(ctx, s.Inventory(), line.ID)
				if err != nil {
					return err
				}
				res.Reversed += reversed
			}

			line.Status = target
			for _, stage := range Stages() {
				st := line.StageStamp(stage)
				switch {
				case st == nil:
				case stage == target:
					st.Set(actorID, now)
				case stage.Rank() > target.Rank():
					st.Clear()
				}
			}

			if err := s.Orders().SaveLine(ctx, line); err != nil {
				return fmt.Errorf("failed to update order line: %w", err)
			}
			if _, err := f.trail.Record(ctx, s.Audit(), actorID, audit.Transition{
				LineID: line.ID,
				From:   string(from),
				To:     string(target),
				Action: action,
				At:     now,
			}); err != nil {
				return err
			}
			res.ChangedLines = append(res.ChangedLines, line.ID)
		}

		if o.Status != target {
			applyOrderStatus(o, target, actorID, now)
			if err := s.Orders().Save(ctx, o); err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, f.fail(span, err)
	}

	f.log.WithFields(logrus.Fields{
		"order_id":      orderID,
		"target":        target,
		"changed_lines": len(res.ChangedLines),
		"actor_id":      actorID,
	}).Info("Order status changed in bulk")

	return res, nil
}

// Cancel cancels the order. Line statuses are left untouched; cancelled
// orders drop out of every production queue.
func (f *Fulfillment) Cancel(ctx context.Context, actorID, orderID uint, reason string) (*Order, error) {
	ctx, span := f.tracer.Start(ctx, "fulfillment.Cancel", trace.WithAttributes(
		attribute.Int("order.id", int(orderID)),
	))
	defer span.End()

	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < f.config.Fulfillment.MinCancelReasonLength {
		return nil, f.fail(span, ErrReasonTooShort)
	}

	var o *Order
	err := f.store.Transaction(ctx, func(s Session) error {
		var err error
		o, err = s.Orders().Lock(ctx, orderID)
		if err != nil {
			return err
		}
		if o.IsCancelled() {
			return nil
		}

		if o.Status == StatusDelivered {
			paid, err := s.Orders().SumPayments(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("failed to sum payments: %w", err)
			}
			if o.FinalAmount.Sub(paid).LessThanOrEqual(f.config.PaidTolerance()) {
				return ErrDeliveredPaid
			}
		}

		o.Status = StatusCancelled
		o.CancelReason = reason
		o.Cancelled.Set(actorID, f.now())
		if err := s.Orders().Save(ctx, o); err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, f.fail(span, err)
	}

	f.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"actor_id": actorID,
	}).Info("Order cancelled")

	return o, nil
}

// lockLine locks the line's order and returns the line as held by it
func (f *Fulfillment) lockLine(ctx context.Context, s Session, lineID uint) (*Order, *OrderLine, error) {
	ref, err := s.Orders().GetLine(ctx, lineID)
	if err != nil {
		return nil, nil, err
	}
	o, err := s.Orders().Lock(ctx, ref.OrderID)
	if err != nil {
		return nil, nil, err
	}
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return o, &o.Lines[i], nil
		}
	}
	return nil, nil, ErrLineNotFound
}

// commitLine persists a transitioned line, records it and re-derives the
// order status
func (f *Fulfillment) commitLine(ctx context.Context, s Session, o *Order, line *OrderLine, actorID uint, from Status, action string, now time.Time) error {
	if err := s.Orders().SaveLine(ctx, line); err != nil {
		return fmt.Errorf("failed to update order line: %w", err)
	}
	if _, err := f.trail.Record(ctx, s.Audit(), actorID, audit.Transition{
		LineID: line.ID,
		From:   string(from),
		To:     string(line.Status),
		Action: action,
		At:     now,
	}); err != nil {
		return err
	}

	next := AggregateStatus(o.Status, o.LineStatuses())
	if o.Mode == ModeSingle {
		next = line.Status
	}
	if next == o.Status {
		return nil
	}
	applyOrderStatus(o, next, actorID, now)
	if err := s.Orders().Save(ctx, o); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (f *Fulfillment) singleLine(ctx context.Context, orderID uint) (uint, error) {
	o, err := f.store.Orders().Get(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if o.Mode != ModeSingle || len(o.Lines) != 1 {
		return 0, ErrNotSingleMode
	}
	return o.Lines[0].ID, nil
}

func (f *Fulfillment) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (f *Fulfillment) logResult(msg string, res *Result) {
	if !res.Changed {
		f.log.WithField("line_id", res.Line.ID).Debug("Order line transition ignored")
		return
	}
	f.log.WithFields(logrus.Fields{
		"order_id":     res.Order.ID,
		"line_id":      res.Line.ID,
		"line_status":  res.Line.Status,
		"order_status": res.Order.Status,
		"action":       res.Action,
	}).Info(msg)
}

// applyOrderStatus moves the order to next. Moving forward stamps the new
// stage; moving back clears the stamps of every later stage.
func applyOrderStatus(o *Order, next Status, actorID uint, now time.Time) {
	prev := o.Status
	o.Status = next
	if next.Rank() > prev.Rank() {
		o.StageStamp(next).Set(actorID, now)
		return
	}
	for _, stage := range Stages() {
		if stage.Rank() > next.Rank() {
			o.StageStamp(stage).Clear()
		}
	}
}
