// internal/infrastructure/database/memory/inventory.go
package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
)

var _ inventory.Repository = (*inventoryRepo)(nil)

type inventoryRepo struct {
	exec execFunc
	now  func() time.Time
}

func (r *inventoryRepo) CreateItem(_ context.Context, item *inventory.Item) error {
	return r.exec(true, func(d *data) error {
		if nameTaken(d, item.Name, 0) {
			return apperr.Newf(apperr.ErrIntegrity, "inventory item %q already exists", item.Name)
		}
		now := r.now()
		d.nextItem++
		item.ID = d.nextItem
		item.CreatedAt, item.UpdatedAt = now, now
		d.items[item.ID] = *item
		return nil
	})
}

func (r *inventoryRepo) GetItem(_ context.Context, id uint) (*inventory.Item, error) {
	var item inventory.Item
	err := r.exec(false, func(d *data) error {
		stored, ok := d.items[id]
		if !ok {
			return inventory.ErrItemNotFound
		}
		item = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepo) LockItem(ctx context.Context, id uint) (*inventory.Item, error) {
	return r.GetItem(ctx, id)
}

func (r *inventoryRepo) UpdateItem(_ context.Context, item *inventory.Item) error {
	return r.exec(true, func(d *data) error {
		stored, ok := d.items[item.ID]
		if !ok {
			return inventory.ErrItemNotFound
		}
		if nameTaken(d, item.Name, item.ID) {
			return apperr.Newf(apperr.ErrIntegrity, "inventory item %q already exists", item.Name)
		}
		stored.Name = item.Name
		stored.Unit = item.Unit
		stored.MinimumQuantity = item.MinimumQuantity
		stored.IsActive = item.IsActive
		stored.UpdatedAt = r.now()
		d.items[item.ID] = stored
		*item = stored
		return nil
	})
}

func (r *inventoryRepo) UpdateQuantity(_ context.Context, id uint, quantity decimal.Decimal) error {
	return r.exec(true, func(d *data) error {
		stored, ok := d.items[id]
		if !ok {
			return inventory.ErrItemNotFound
		}
		stored.Quantity = quantity
		stored.UpdatedAt = r.now()
		d.items[id] = stored
		return nil
	})
}

func (r *inventoryRepo) ListItems(_ context.Context, filter inventory.ItemFilter) ([]inventory.Item, error) {
	var items []inventory.Item
	err := r.exec(false, func(d *data) error {
		items = make([]inventory.Item, 0)
		for _, it := range d.items {
			if !it.IsActive && (!filter.IncludeInactive || filter.BelowMinimum) {
				continue
			}
			if filter.BelowMinimum && !it.IsBelowMinimum() {
				continue
			}
			items = append(items, it)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
		return nil
	})
	return items, err
}

func (r *inventoryRepo) CreateMovement(_ context.Context, m *inventory.Movement) error {
	return r.exec(true, func(d *data) error {
		if _, ok := d.items[m.ItemID]; !ok {
			return apperr.New(apperr.ErrIntegrity, "stock movement references a missing item")
		}
		d.nextMovement++
		m.ID = d.nextMovement
		m.CreatedAt = r.now()
		d.movements[m.ID] = *m
		return nil
	})
}

func (r *inventoryRepo) DeleteMovement(_ context.Context, id uint) error {
	return r.exec(true, func(d *data) error {
		if _, ok := d.movements[id]; !ok {
			return apperr.New(apperr.ErrNotFound, "stock movement not found")
		}
		delete(d.movements, id)
		return nil
	})
}

func (r *inventoryRepo) FindMovements(_ context.Context, origin inventory.Origin, referenceID uint) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	err := r.exec(false, func(d *data) error {
		movements = make([]inventory.Movement, 0)
		for _, m := range d.movements {
			if m.Origin == origin && m.ReferenceID != nil && *m.ReferenceID == referenceID {
				movements = append(movements, m)
			}
		}
		sort.Slice(movements, func(i, j int) bool { return movements[i].ID < movements[j].ID })
		return nil
	})
	return movements, err
}

func (r *inventoryRepo) ListMovements(_ context.Context, itemID uint, limit int) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	err := r.exec(false, func(d *data) error {
		movements = make([]inventory.Movement, 0)
		for _, m := range d.movements {
			if m.ItemID == itemID {
				movements = append(movements, m)
			}
		}
		sort.Slice(movements, func(i, j int) bool { return movements[i].ID > movements[j].ID })
		if limit > 0 && len(movements) > limit {
			movements = movements[:limit]
		}
		return nil
	})
	return movements, err
}

func nameTaken(d *data, name string, except uint) bool {
	for id, it := range d.items {
		if id != except && strings.EqualFold(it.Name, name) {
			return true
		}
	}
	return false
}
