//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/your-org/coating-shop/internal/config"
	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/domain/order"
	"github.com/your-org/coating-shop/internal/infrastructure/database/postgres"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
	"github.com/your-org/coating-shop/internal/pkg/logger"
)

type stack struct {
	store       *postgres.Store
	orders      *order.Service
	fulfillment *order.Fulfillment
	inventory   *inventory.Service
}

func setupStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("coating_test"),
		tcpostgres.WithUsername("coating"),
		tcpostgres.WithPassword("coating"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cfg := &config.Config{
		Database: config.DatabaseConfig{Name: "coating_test", MaxOpenConns: 10, MaxIdleConns: 2, MaxLifetime: time.Minute},
		Fulfillment: config.FulfillmentConfig{
			MinCancelReasonLength: 5,
			PaidTolerance:         "0.01",
			DefaultItemUnit:       "CX",
			DefaultItemMinimum:    "5",
		},
	}
	log := logger.Discard()

	db, err := postgres.Open(dsn, cfg, log)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migration := postgres.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		t.Fatalf("create indexes: %v", err)
	}

	st := postgres.NewStore(db.GetDB())
	ledger := inventory.NewLedger(log)
	trail := audit.NewTrail(log)
	return &stack{
		store:       st,
		orders:      order.NewService(st, trail, cfg, log),
		fulfillment: order.NewFulfillment(st, ledger, trail, cfg, log),
		inventory:   inventory.NewService(st.Inventory(), st, ledger, cfg, log),
	}
}

func TestStoreFulfillmentFlow(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	paint, err := s.inventory.CreateItem(ctx, 1, inventory.CreateItemRequest{
		Name:            "Epoxy powder white",
		InitialQuantity: decimal.RequireFromString("10"),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	o, err := s.orders.CreateOrder(ctx, 1, order.CreateOrderRequest{
		Mode:       order.ModeMulti,
		ClientName: "Metalurgica Silva",
		Lines: []order.LineRequest{
			{ItemName: "Gate", UnitPrice: decimal.RequireFromString("120.50"), Quantity: 1},
			{ItemName: "Railing", UnitPrice: decimal.RequireFromString("80"), Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.OrderNumber == "" {
		t.Fatal("order number was not assigned")
	}

	first, second := o.Lines[0].ID, o.Lines[1].ID
	if _, err := s.fulfillment.Advance(ctx, 7, first, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	allocations := []inventory.Allocation{{ItemID: paint.ID, Quantity: decimal.RequireFromString("2.5")}}
	res, err := s.fulfillment.Advance(ctx, 7, first, allocations)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(res.Movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(res.Movements))
	}

	got, err := s.orders.GetOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != order.StatusInProduction {
		t.Errorf("order status = %s, want in_production", got.Status)
	}

	item, err := s.inventory.GetItem(ctx, paint.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if !item.Quantity.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("quantity = %s, want 7.5", item.Quantity)
	}

	if _, err := s.fulfillment.Revert(ctx, 7, first); err != nil {
		t.Fatalf("revert: %v", err)
	}
	item, err = s.inventory.GetItem(ctx, paint.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if !item.Quantity.Equal(decimal.RequireFromString("10")) {
		t.Errorf("quantity after revert = %s, want 10", item.Quantity)
	}

	history, err := s.orders.LineHistory(ctx, first)
	if err != nil {
		t.Fatalf("LineHistory: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history entries = %d, want 3", len(history))
	}

	queue, err := s.orders.ProductionQueue(ctx)
	if err != nil {
		t.Fatalf("ProductionQueue: %v", err)
	}
	if queue == nil {
		t.Fatal("queue is nil")
	}

	if _, err := s.fulfillment.Advance(ctx, 7, second, nil); err != nil {
		t.Fatalf("start second: %v", err)
	}
}

func TestStoreRollsBackFailedTransaction(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.store.Transaction(ctx, func(sess order.Session) error {
		item := &inventory.Item{Name: "Masking tape", Unit: "UN", IsActive: true}
		if err := sess.Inventory().CreateItem(ctx, item); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction error = %v, want boom", err)
	}

	items, err := s.inventory.ListItems(ctx, true)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0 after rollback", len(items))
	}
}

func TestStoreMapsConstraintViolations(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	req := inventory.CreateItemRequest{Name: "Primer grey"}
	if _, err := s.inventory.CreateItem(ctx, 1, req); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	_, err := s.inventory.CreateItem(ctx, 1, req)
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("duplicate item error = %v, want integrity violation", err)
	}

	err = s.store.Audit().Append(ctx, &audit.Entry{OrderLineID: 9999, ActorID: 1, Action: "started production"})
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("orphan audit error = %v, want integrity violation", err)
	}
}

func TestStoreSerializesConcurrentConsumption(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()

	paint, err := s.inventory.CreateItem(ctx, 1, inventory.CreateItemRequest{
		Name:            "Polyester black",
		InitialQuantity: decimal.RequireFromString("20"),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	const workers = 4
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.inventory.ManualAdjust(ctx, 1, paint.ID, inventory.AdjustStockRequest{
				Direction: inventory.DirectionOut,
				Quantity:  decimal.RequireFromString("1.25"),
				Note:      "line touch-up",
			})
			if err != nil && !apperr.IsRetryable(err) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("ManualAdjust: %v", err)
	}

	item, err := s.inventory.GetItem(ctx, paint.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	movements, err := s.inventory.Movements(ctx, paint.ID, 0)
	if err != nil {
		t.Fatalf("Movements: %v", err)
	}

	want := decimal.RequireFromString("20")
	for _, m := range movements {
		if m.Origin == inventory.OriginManual && m.Direction == inventory.DirectionOut {
			want = want.Sub(m.Quantity)
		}
	}
	if !item.Quantity.Equal(want) {
		t.Errorf("quantity = %s, want %s from the recorded movements", item.Quantity, want)
	}
}
