// internal/infrastructure/database/postgres/orders.go
package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/coating-shop/internal/domain/order"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ order.Repository = (*orderRepo)(nil)

type orderRepo struct {
	db *gorm.DB
}

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	return mapError(r.db.WithContext(ctx).Omit("Payments").Create(o).Error, nil)
}

func (r *orderRepo) Get(ctx context.Context, id uint) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&o, id).Error
	if err != nil {
		return nil, mapError(err, order.ErrOrderNotFound)
	}
	return &o, nil
}

func (r *orderRepo) Lock(ctx context.Context, id uint) (*order.Order, error) {
	db := r.db.WithContext(ctx)

	var o order.Order
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, id).Error; err != nil {
		return nil, mapError(err, order.ErrOrderNotFound)
	}
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", id).
		Order("id ASC").
		Find(&o.Lines).Error; err != nil {
		return nil, mapError(err, nil)
	}
	return &o, nil
}

func (r *orderRepo) GetLine(ctx context.Context, id uint) (*order.OrderLine, error) {
	var line order.OrderLine
	if err := r.db.WithContext(ctx).First(&line, id).Error; err != nil {
		return nil, mapError(err, order.ErrLineNotFound)
	}
	return &line, nil
}

func (r *orderRepo) Save(ctx context.Context, o *order.Order) error {
	result := r.db.WithContext(ctx).Omit(clause.Associations).Save(o)
	if result.Error != nil {
		return mapError(result.Error, nil)
	}
	return nil
}

func (r *orderRepo) SaveLine(ctx context.Context, l *order.OrderLine) error {
	return mapError(r.db.WithContext(ctx).Save(l).Error, nil)
}

func (r *orderRepo) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Mode != "" {
		query = query.Where("mode = ?", filter.Mode)
	}
	if !filter.IncludeCancelled {
		query = query.Where("status <> ?", order.StatusCancelled)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, mapError(err, nil)
	}

	var orders []order.Order
	offset := (filter.Page - 1) * filter.Limit
	if err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, mapError(err, nil)
	}
	return orders, total, nil
}

func (r *orderRepo) ListLines(ctx context.Context, filter order.LineFilter) ([]order.QueueLine, error) {
	query := r.db.WithContext(ctx).
		Table("order_lines").
		Select("order_lines.*, orders.order_number, orders.client_name, orders.mode AS order_mode").
		Joins("JOIN orders ON orders.id = order_lines.order_id")
	if len(filter.Statuses) > 0 {
		query = query.Where("order_lines.status IN ?", filter.Statuses)
	}
	if filter.ExcludeCancelledOrders {
		query = query.Where("orders.status <> ?", order.StatusCancelled)
	}

	var lines []order.QueueLine
	if err := query.Order("order_lines.id ASC").Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", mapError(err, nil))
	}
	return lines, nil
}

func (r *orderRepo) AddPayment(ctx context.Context, p *order.Payment) error {
	return mapError(r.db.WithContext(ctx).Create(p).Error, nil)
}

func (r *orderRepo) SumPayments(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&order.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("order_id = ?", orderID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, mapError(err, nil)
	}
	return total, nil
}
