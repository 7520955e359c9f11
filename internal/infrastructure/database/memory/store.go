// internal/infrastructure/database/memory/store.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/domain/order"
)

var (
	_ order.Store          = (*Store)(nil)
	_ inventory.Transactor = (*Store)(nil)
)

// data is one consistent version of every table
type data struct {
	orders    map[uint]order.Order
	lines     map[uint]order.OrderLine
	payments  map[uint]order.Payment
	items     map[uint]inventory.Item
	movements map[uint]inventory.Movement
	entries   []audit.Entry

	nextOrder, nextLine, nextPayment, nextItem, nextMovement, nextEntry uint
}

func newData() *data {
	return &data{
		orders:    map[uint]order.Order{},
		lines:     map[uint]order.OrderLine{},
		payments:  map[uint]order.Payment{},
		items:     map[uint]inventory.Item{},
		movements: map[uint]inventory.Movement{},
	}
}

// clone copies every table. Rows are stored by value and their pointer
// fields are replaced, never mutated, so a shallow row copy is enough.
func (d *data) clone() *data {
	cp := *d
	cp.orders = make(map[uint]order.Order, len(d.orders))
	for k, v := range d.orders {
		cp.orders[k] = v
	}
	cp.lines = make(map[uint]order.OrderLine, len(d.lines))
	for k, v := range d.lines {
		cp.lines[k] = v
	}
	cp.payments = make(map[uint]order.Payment, len(d.payments))
	for k, v := range d.payments {
		cp.payments[k] = v
	}
	cp.items = make(map[uint]inventory.Item, len(d.items))
	for k, v := range d.items {
		cp.items[k] = v
	}
	cp.movements = make(map[uint]inventory.Movement, len(d.movements))
	for k, v := range d.movements {
		cp.movements[k] = v
	}
	cp.entries = append([]audit.Entry(nil), d.entries...)
	return &cp
}

// Store keeps every table in memory. Transactions are serialized and work
// on a private copy that replaces the shared data only on commit, so a
// failed transaction leaves no trace.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *data
	now  func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		data: newData(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Transaction runs fn against a private copy of the data and publishes it
// when fn succeeds
func (s *Store) Transaction(ctx context.Context, fn func(order.Session) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(&session{d: snapshot, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
	return nil
}

// WithinTransaction runs fn with the inventory repository of a transaction
func (s *Store) WithinTransaction(ctx context.Context, fn func(inventory.Repository) error) error {
	return s.Transaction(ctx, func(sess order.Session) error {
		return fn(sess.Inventory())
	})
}

// Orders returns the order repository outside any transaction
func (s *Store) Orders() order.Repository {
	return &orderRepo{exec: s.exec, now: s.now}
}

// Inventory returns the inventory repository outside any transaction
func (s *Store) Inventory() inventory.Repository {
	return &inventoryRepo{exec: s.exec, now: s.now}
}

// Audit returns the audit repository outside any transaction
func (s *Store) Audit() audit.Repository {
	return &auditRepo{exec: s.exec, now: s.now}
}

// exec reads the published data, or runs a write as its own transaction
func (s *Store) exec(write bool, fn func(*data) error) error {
	if !write {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return fn(s.data)
	}
	return s.Transaction(context.Background(), func(sess order.Session) error {
		return fn(sess.(*session).d)
	})
}

type session struct {
	d   *data
	now func() time.Time
}

func (s *session) exec(_ bool, fn func(*data) error) error {
	return fn(s.d)
}

func (s *session) Orders() order.Repository {
	return &orderRepo{exec: s.exec, now: s.now}
}

func (s *session) Inventory() inventory.Repository {
	return &inventoryRepo{exec: s.exec, now: s.now}
}

func (s *session) Audit() audit.Repository {
	return &auditRepo{exec: s.exec, now: s.now}
}

type execFunc func(write bool, fn func(*data) error) error
