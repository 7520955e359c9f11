// internal/infrastructure/database/postgres/inventory.go
package postgres

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ inventory.Repository = (*inventoryRepo)(nil)

type inventoryRepo struct {
	db *gorm.DB
}

func (r *inventoryRepo) CreateItem(ctx context.Context, item *inventory.Item) error {
	return mapError(r.db.WithContext(ctx).Create(item).Error, nil)
}

func (r *inventoryRepo) GetItem(ctx context.Context, id uint) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, mapError(err, inventory.ErrItemNotFound)
	}
	return &item, nil
}

func (r *inventoryRepo) LockItem(ctx context.Context, id uint) (*inventory.Item, error) {
	var item inventory.Item
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, id).Error
	if err != nil {
		return nil, mapError(err, inventory.ErrItemNotFound)
	}
	return &item, nil
}

func (r *inventoryRepo) UpdateItem(ctx context.Context, item *inventory.Item) error {
	result := r.db.WithContext(ctx).
		Model(item).
		Select("name", "unit", "minimum_quantity", "is_active").
		Updates(item)
	if result.Error != nil {
		return mapError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return inventory.ErrItemNotFound
	}
	return nil
}

func (r *inventoryRepo) UpdateQuantity(ctx context.Context, id uint, quantity decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.Item{}).
		Where("id = ?", id).
		Update("quantity", quantity)
	if result.Error != nil {
		return mapError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return inventory.ErrItemNotFound
	}
	return nil
}

func (r *inventoryRepo) ListItems(ctx context.Context, filter inventory.ItemFilter) ([]inventory.Item, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Item{})
	if !filter.IncludeInactive || filter.BelowMinimum {
		query = query.Where("is_active = ?", true)
	}
	if filter.BelowMinimum {
		query = query.Where("quantity < minimum_quantity")
	}

	var items []inventory.Item
	if err := query.Order("name ASC").Find(&items).Error; err != nil {
		return nil, mapError(err, nil)
	}
	return items, nil
}

func (r *inventoryRepo) CreateMovement(ctx context.Context, m *inventory.Movement) error {
	return mapError(r.db.WithContext(ctx).Omit("Item").Create(m).Error, nil)
}

func (r *inventoryRepo) DeleteMovement(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&inventory.Movement{}, id)
	if result.Error != nil {
		return mapError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.ErrNotFound, "stock movement not found")
	}
	return nil
}

func (r *inventoryRepo) FindMovements(ctx context.Context, origin inventory.Origin, referenceID uint) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	err := r.db.WithContext(ctx).
		Where("origin = ? AND reference_id = ?", origin, referenceID).
		Order("id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, mapError(err, nil)
	}
	return movements, nil
}

func (r *inventoryRepo) ListMovements(ctx context.Context, itemID uint, limit int) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	query := r.db.WithContext(ctx).
		Where("inventory_item_id = ?", itemID).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&movements).Error; err != nil {
		return nil, mapError(err, nil)
	}
	return movements, nil
}
