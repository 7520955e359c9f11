// internal/infrastructure/database/postgres/audit.go
package postgres

import (
	"context"

	"github.com/your-org/coating-shop/internal/domain/audit"
	"gorm.io/gorm"
)

var _ audit.Repository = (*auditRepo)(nil)

type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) Append(ctx context.Context, entry *audit.Entry) error {
	return mapError(r.db.WithContext(ctx).Create(entry).Error, nil)
}

func (r *auditRepo) ListByLine(ctx context.Context, lineID uint) ([]audit.Entry, error) {
	var entries []audit.Entry
	err := r.db.WithContext(ctx).
		Where("order_line_id = ?", lineID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, mapError(err, nil)
	}
	return entries, nil
}

func (r *auditRepo) ListByLines(ctx context.Context, lineIDs []uint) ([]audit.Entry, error) {
	var entries []audit.Entry
	err := r.db.WithContext(ctx).
		Where("order_line_id IN ?", lineIDs).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, mapError(err, nil)
	}
	return entries, nil
}
