// internal/infrastructure/database/memory/audit.go
package memory

import (
	"context"
	"time"

	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
)

var _ audit.Repository = (*auditRepo)(nil)

type auditRepo struct {
	exec execFunc
	now  func() time.Time
}

func (r *auditRepo) Append(_ context.Context, entry *audit.Entry) error {
	return r.exec(true, func(d *data) error {
		if _, ok := d.lines[entry.OrderLineID]; !ok {
			return apperr.New(apperr.ErrIntegrity, "audit entry references a missing order line")
		}
		d.nextEntry++
		entry.ID = d.nextEntry
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = r.now()
		}
		d.entries = append(d.entries, *entry)
		return nil
	})
}

func (r *auditRepo) ListByLine(ctx context.Context, lineID uint) ([]audit.Entry, error) {
	return r.ListByLines(ctx, []uint{lineID})
}

func (r *auditRepo) ListByLines(_ context.Context, lineIDs []uint) ([]audit.Entry, error) {
	wanted := make(map[uint]bool, len(lineIDs))
	for _, id := range lineIDs {
		wanted[id] = true
	}

	var entries []audit.Entry
	err := r.exec(false, func(d *data) error {
		entries = make([]audit.Entry, 0)
		for _, e := range d.entries {
			if wanted[e.OrderLineID] {
				entries = append(entries, e)
			}
		}
		return nil
	})
	return entries, err
}
