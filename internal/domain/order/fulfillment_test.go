package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/coating-shop/internal/config"
	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/domain/order"
	"github.com/your-org/coating-shop/internal/infrastructure/database/memory"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
	"github.com/your-org/coating-shop/internal/pkg/logger"
)

const operator = uint(7)

type fixture struct {
	store       *memory.Store
	orders      *order.Service
	fulfillment *order.Fulfillment
	inventory   *inventory.Service
	now         time.Time
}

func testConfig() *config.Config {
	return &config.Config{
		Fulfillment: config.FulfillmentConfig{
			MinCancelReasonLength: 5,
			PaidTolerance:         "0.01",
			DefaultItemUnit:       "CX",
			DefaultItemMinimum:    "5",
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testConfig()
	log := logger.Discard()
	st := memory.NewStore()
	ledger := inventory.NewLedger(log)
	trail := audit.NewTrail(log)

	f := &fixture{
		store:     st,
		orders:    order.NewService(st, trail, cfg, log),
		inventory: inventory.NewService(st.Inventory(), st, ledger, cfg, log),
		now:       time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC),
	}
	f.fulfillment = order.NewFulfillment(st, ledger, trail, cfg, log).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) createOrder(t *testing.T, mode order.Mode, lines int, price string) *order.Order {
	t.Helper()

	req := order.CreateOrderRequest{
		Mode:       mode,
		ClientName: "Metalurgica Silva",
		Lines:      make([]order.LineRequest, lines),
	}
	for i := range req.Lines {
		req.Lines[i] = order.LineRequest{
			ItemName:  "Gate panel",
			UnitPrice: decimal.RequireFromString(price),
			Quantity:  1,
		}
	}

	o, err := f.orders.CreateOrder(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return o
}

func (f *fixture) createItem(t *testing.T, name, quantity string) *inventory.Item {
	t.Helper()

	item, err := f.inventory.CreateItem(context.Background(), 1, inventory.CreateItemRequest{
		Name:            name,
		InitialQuantity: decimal.RequireFromString(quantity),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func (f *fixture) advance(t *testing.T, lineID uint, allocations ...inventory.Allocation) *order.Result {
	t.Helper()
	res, err := f.fulfillment.Advance(context.Background(), operator, lineID, allocations)
	if err != nil {
		t.Fatalf("Advance(%d): %v", lineID, err)
	}
	return res
}

func (f *fixture) revert(t *testing.T, lineID uint) *order.Result {
	t.Helper()
	res, err := f.fulfillment.Revert(context.Background(), operator, lineID)
	if err != nil {
		t.Fatalf("Revert(%d): %v", lineID, err)
	}
	return res
}

func (f *fixture) quantity(t *testing.T, itemID uint) decimal.Decimal {
	t.Helper()
	item, err := f.inventory.GetItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	return item.Quantity
}

func (f *fixture) history(t *testing.T, lineID uint) []audit.Entry {
	t.Helper()
	entries, err := f.orders.LineHistory(context.Background(), lineID)
	if err != nil {
		t.Fatalf("LineHistory: %v", err)
	}
	return entries
}

func (f *fixture) order(t *testing.T, id uint) *order.Order {
	t.Helper()
	o, err := f.orders.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	return o
}

func alloc(itemID uint, quantity string) inventory.Allocation {
	return inventory.Allocation{ItemID: itemID, Quantity: decimal.RequireFromString(quantity)}
}

func TestOrderFollowsLines(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 3, "10.00")
	if o.Status != order.StatusQueued {
		t.Fatalf("new order status = %s", o.Status)
	}
	l1, l2, l3 := o.Lines[0].ID, o.Lines[1].ID, o.Lines[2].ID

	res := f.advance(t, l1)
	if !res.Changed || res.Order.Status != order.StatusInProduction {
		t.Fatalf("after first start: changed=%v order=%s", res.Changed, res.Order.Status)
	}
	if !res.Order.ProductionStarted.IsSet() {
		t.Error("order production stamp not set")
	}

	f.advance(t, l2)
	f.advance(t, l3)
	f.advance(t, l1)
	if res := f.advance(t, l2); res.Order.Status != order.StatusInProduction {
		t.Fatalf("two of three ready: order = %s", res.Order.Status)
	}
	res = f.advance(t, l3)
	if res.Order.Status != order.StatusReady {
		t.Fatalf("all ready: order = %s", res.Order.Status)
	}

	stored := f.order(t, o.ID)
	if stored.Status != order.StatusReady {
		t.Fatalf("stored order = %s", stored.Status)
	}
	for _, l := range stored.Lines {
		if l.Status != order.StatusReady {
			t.Errorf("line %d = %s", l.ID, l.Status)
		}
	}
}

func TestConsumeAndRevertRestoresStock(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 1, "80.00")
	item := f.createItem(t, "Powder paint black", "10")
	lineID := o.Lines[0].ID

	f.advance(t, lineID)
	res := f.advance(t, lineID, alloc(item.ID, "2.5"))

	if got := f.quantity(t, item.ID); !got.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("balance after consumption = %s", got)
	}
	if len(res.Movements) != 1 {
		t.Fatalf("movements = %d", len(res.Movements))
	}
	m := res.Movements[0]
	if m.Direction != inventory.DirectionOut || m.Origin != inventory.OriginProduction ||
		!m.Quantity.Equal(decimal.RequireFromString("2.5")) ||
		!m.BalanceBefore.Equal(decimal.NewFromInt(10)) || !m.BalanceAfter.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("unexpected movement %+v", m)
	}
	if *m.ReferenceID != lineID {
		t.Errorf("movement reference = %d", *m.ReferenceID)
	}

	undo := f.revert(t, lineID)
	if undo.Line.Status != order.StatusInProduction || undo.Reversed != 1 {
		t.Fatalf("revert: status=%s reversed=%d", undo.Line.Status, undo.Reversed)
	}
	if undo.Line.Ready.IsSet() {
		t.Error("ready stamp kept after revert")
	}
	if got := f.quantity(t, item.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance after revert = %s", got)
	}

	left, err := f.store.Inventory().FindMovements(context.Background(), inventory.OriginProduction, lineID)
	if err != nil {
		t.Fatalf("FindMovements: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("production movements left: %d", len(left))
	}
}

func TestRevertSingleOrderRestoresStock(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeSingle, 1, "50.00")
	item := f.createItem(t, "Powder paint white", "4")
	ctx := context.Background()

	if _, err := f.fulfillment.AdvanceOrder(ctx, operator, o.ID, nil); err != nil {
		t.Fatalf("AdvanceOrder: %v", err)
	}
	if _, err := f.fulfillment.AdvanceOrder(ctx, operator, o.ID, []inventory.Allocation{alloc(item.ID, "1.25")}); err != nil {
		t.Fatalf("AdvanceOrder: %v", err)
	}
	res, err := f.fulfillment.RevertOrder(ctx, operator, o.ID)
	if err != nil {
		t.Fatalf("RevertOrder: %v", err)
	}
	if res.Order.Status != order.StatusInProduction || res.Reversed != 1 {
		t.Fatalf("order=%s reversed=%d", res.Order.Status, res.Reversed)
	}
	if got := f.quantity(t, item.ID); !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("balance = %s", got)
	}
}

func TestFailedConsumptionRollsBack(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 1, "80.00")
	item := f.createItem(t, "Degreaser", "10")
	lineID := o.Lines[0].ID
	f.advance(t, lineID)

	_, err := f.fulfillment.Advance(context.Background(), operator, lineID, []inventory.Allocation{
		alloc(item.ID, "1"),
		alloc(999, "1"),
	})
	if !errors.Is(err, inventory.ErrItemNotFound) {
		t.Fatalf("err = %v, want item not found", err)
	}

	if got := f.quantity(t, item.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance = %s, partial consumption persisted", got)
	}
	stored := f.order(t, o.ID)
	if stored.Lines[0].Status != order.StatusInProduction {
		t.Errorf("line status = %s", stored.Lines[0].Status)
	}
	if n := len(f.history(t, lineID)); n != 1 {
		t.Errorf("audit entries = %d, want 1", n)
	}
}

func TestAdvanceRejectsInvalidAllocation(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 1, "80.00")
	item := f.createItem(t, "Masking tape", "10")

	tests := []struct {
		name  string
		alloc inventory.Allocation
		want  error
	}{
		{"zero quantity", alloc(item.ID, "0"), inventory.ErrInvalidQuantity},
		{"negative quantity", alloc(item.ID, "-1"), inventory.ErrInvalidQuantity},
		{"missing item", inventory.Allocation{Quantity: decimal.NewFromInt(1)}, inventory.ErrMissingItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.fulfillment.Advance(context.Background(), operator, o.Lines[0].ID, []inventory.Allocation{tt.alloc})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("err kind = %v", err)
			}
		})
	}

	if got := f.order(t, o.ID).Lines[0].Status; got != order.StatusQueued {
		t.Errorf("line status = %s", got)
	}
}

func TestCancelBlocksTransitions(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 3, "10.00")
	l1, l2 := o.Lines[0].ID, o.Lines[1].ID
	f.advance(t, l1)
	f.advance(t, l1)
	f.advance(t, l2)

	cancelled, err := f.fulfillment.Cancel(context.Background(), operator, o.ID, "client refused service")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != order.StatusCancelled || cancelled.CancelReason != "client refused service" {
		t.Fatalf("cancelled order %+v", cancelled)
	}
	if !cancelled.Cancelled.IsSet() || *cancelled.Cancelled.By != operator {
		t.Error("cancellation stamp missing")
	}

	before := len(f.history(t, l1))
	if res := f.advance(t, l1); res.Changed {
		t.Error("advance on cancelled order changed the line")
	}
	if res := f.revert(t, l2); res.Changed {
		t.Error("revert on cancelled order changed the line")
	}
	if after := len(f.history(t, l1)); after != before {
		t.Errorf("audit entries %d -> %d", before, after)
	}

	stored := f.order(t, o.ID)
	if stored.Status != order.StatusCancelled {
		t.Errorf("order status = %s", stored.Status)
	}
	if stored.Lines[0].Status != order.StatusReady || stored.Lines[1].Status != order.StatusInProduction {
		t.Errorf("line statuses changed: %v", stored.LineStatuses())
	}

	again, err := f.fulfillment.Cancel(context.Background(), operator, o.ID, "second attempt")
	if err != nil {
		t.Fatalf("repeated cancel: %v", err)
	}
	if again.CancelReason != "client refused service" {
		t.Errorf("repeated cancel replaced reason with %q", again.CancelReason)
	}
}

func TestCancelReasonLength(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		reason string
		ok     bool
	}{
		{"bad", false},
		{"   bad    ", false},
		{"", false},
		{"no stock", true},
		{"error", true},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			o := f.createOrder(t, order.ModeMulti, 1, "10.00")
			_, err := f.fulfillment.Cancel(ctx, operator, o.ID, tt.reason)
			if tt.ok && err != nil {
				t.Fatalf("Cancel(%q): %v", tt.reason, err)
			}
			if !tt.ok && !errors.Is(err, order.ErrReasonTooShort) {
				t.Fatalf("Cancel(%q) err = %v", tt.reason, err)
			}
			if !tt.ok && f.order(t, o.ID).Status == order.StatusCancelled {
				t.Fatal("rejected cancel was written")
			}
		})
	}
}

func TestCancelDeliveredOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deliver := func(o *order.Order) {
		for i := 0; i < 3; i++ {
			if _, err := f.fulfillment.AdvanceOrder(ctx, operator, o.ID, nil); err != nil {
				t.Fatalf("AdvanceOrder: %v", err)
			}
		}
	}

	paid := f.createOrder(t, order.ModeSingle, 1, "100.00")
	deliver(paid)
	if _, err := f.orders.RecordPayment(ctx, 1, paid.ID, order.PaymentRequest{Amount: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if _, err := f.fulfillment.Cancel(ctx, operator, paid.ID, "client refused service"); !errors.Is(err, order.ErrDeliveredPaid) {
		t.Fatalf("cancel paid delivered order err = %v", err)
	}

	owing := f.createOrder(t, order.ModeSingle, 1, "100.00")
	deliver(owing)
	if _, err := f.orders.RecordPayment(ctx, 1, owing.ID, order.PaymentRequest{Amount: decimal.NewFromInt(40)}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if _, err := f.fulfillment.Cancel(ctx, operator, owing.ID, "client never paid"); err != nil {
		t.Fatalf("cancel delivered order with balance due: %v", err)
	}
}

func TestBulkAdvanceCascades(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 3, "10.00")
	f.advance(t, o.Lines[0].ID)

	res, err := f.fulfillment.AdvanceOrderBulk(context.Background(), operator, o.ID, order.StatusReady)
	if err != nil {
		t.Fatalf("AdvanceOrderBulk: %v", err)
	}
	if len(res.ChangedLines) != 3 {
		t.Fatalf("changed lines = %v", res.ChangedLines)
	}

	stored := f.order(t, o.ID)
	if stored.Status != order.StatusReady || !stored.Ready.IsSet() {
		t.Fatalf("order status = %s", stored.Status)
	}
	for _, l := range stored.Lines {
		if l.Status != order.StatusReady {
			t.Errorf("line %d = %s", l.ID, l.Status)
		}
		if !l.Ready.IsSet() || !l.Ready.At.Equal(f.now) || *l.Ready.By != operator {
			t.Errorf("line %d ready stamp = %+v", l.ID, l.Ready)
		}

		entries := f.history(t, l.ID)
		last := entries[len(entries)-1]
		if last.Action != "bulk action (Ready)" || last.NewStatus != string(order.StatusReady) {
			t.Errorf("line %d last entry = %+v", l.ID, last)
		}
	}
	if n := len(f.history(t, o.Lines[1].ID)); n != 1 {
		t.Errorf("queued line has %d entries, want 1", n)
	}

	again, err := f.fulfillment.AdvanceOrderBulk(context.Background(), operator, o.ID, order.StatusReady)
	if err != nil {
		t.Fatalf("repeated bulk: %v", err)
	}
	if len(again.ChangedLines) != 0 {
		t.Errorf("repeated bulk changed %v", again.ChangedLines)
	}
}

func TestBulkBackwardReversesStock(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 2, "10.00")
	item := f.createItem(t, "Powder paint gray", "10")
	lineID := o.Lines[0].ID
	f.advance(t, lineID)
	f.advance(t, lineID, alloc(item.ID, "3"))

	res, err := f.fulfillment.AdvanceOrderBulk(context.Background(), operator, o.ID, order.StatusQueued)
	if err != nil {
		t.Fatalf("AdvanceOrderBulk: %v", err)
	}
	if res.Reversed != 1 {
		t.Errorf("reversed = %d", res.Reversed)
	}
	if got := f.quantity(t, item.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance = %s", got)
	}

	stored := f.order(t, o.ID)
	if stored.Status != order.StatusQueued || stored.ProductionStarted.IsSet() {
		t.Errorf("order = %s, production stamp %+v", stored.Status, stored.ProductionStarted)
	}
	if l := stored.Lines[0]; l.ProductionStarted.IsSet() || l.Ready.IsSet() {
		t.Errorf("line stamps kept: %+v", l)
	}
}

func TestBulkRejectsCancelledTarget(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 1, "10.00")

	_, err := f.fulfillment.AdvanceOrderBulk(context.Background(), operator, o.ID, order.StatusCancelled)
	if !errors.Is(err, order.ErrInvalidTarget) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeliveredLineIsTerminal(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 1, "10.00")
	lineID := o.Lines[0].ID
	for i := 0; i < 3; i++ {
		f.advance(t, lineID)
	}
	before := len(f.history(t, lineID))

	for i := 0; i < 2; i++ {
		if res := f.advance(t, lineID); res.Changed || res.Line.Status != order.StatusDelivered {
			t.Fatalf("advance on delivered: changed=%v status=%s", res.Changed, res.Line.Status)
		}
	}
	if res := f.revert(t, lineID); res.Changed {
		t.Fatal("delivered line was reverted")
	}
	if after := len(f.history(t, lineID)); after != before {
		t.Fatalf("audit entries %d -> %d", before, after)
	}
}

func TestSingleOrderMirrorsLine(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeSingle, 1, "10.00")
	ctx := context.Background()

	want := []order.Status{order.StatusInProduction, order.StatusReady, order.StatusDelivered}
	for _, status := range want {
		res, err := f.fulfillment.AdvanceOrder(ctx, operator, o.ID, nil)
		if err != nil {
			t.Fatalf("AdvanceOrder: %v", err)
		}
		if res.Order.Status != status || res.Line.Status != status {
			t.Fatalf("order=%s line=%s want %s", res.Order.Status, res.Line.Status, status)
		}
	}
	if !f.order(t, o.ID).Delivered.IsSet() {
		t.Error("delivered stamp not set on order")
	}

	multi := f.createOrder(t, order.ModeMulti, 2, "10.00")
	if _, err := f.fulfillment.AdvanceOrder(ctx, operator, multi.ID, nil); !errors.Is(err, order.ErrNotSingleMode) {
		t.Fatalf("AdvanceOrder on multi err = %v", err)
	}
}

func TestRevertWritesAudit(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, order.ModeMulti, 2, "10.00")
	lineID := o.Lines[0].ID

	f.advance(t, lineID)
	res := f.revert(t, lineID)
	if res.Order.Status != order.StatusQueued || res.Line.ProductionStarted.IsSet() {
		t.Fatalf("order=%s line=%+v", res.Order.Status, res.Line)
	}
	if res := f.revert(t, lineID); res.Changed {
		t.Fatal("queued line was reverted")
	}

	entries := f.history(t, lineID)
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Action != order.ActionStartedProduction || entries[0].PreviousStatus != "queued" || entries[0].NewStatus != "in_production" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Action != order.ActionUndoneStart || entries[1].ActorID != operator {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestUnknownLine(t *testing.T) {
	f := newFixture(t)

	_, err := f.fulfillment.Advance(context.Background(), operator, 404, nil)
	if !errors.Is(err, order.ErrLineNotFound) || !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.fulfillment.Cancel(context.Background(), operator, 404, "missing order"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("cancel err = %v", err)
	}
}
