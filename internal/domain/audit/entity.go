// internal/domain/audit/entity.go
package audit

import (
	"context"
	"time"
)

// Entry records one status transition of an order line. Entries are
// never updated or deleted.
type Entry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderLineID    uint      `gorm:"not null;index:idx_audit_entries_line_created,priority:1" json:"order_line_id"`
	ActorID        uint      `gorm:"not null;index" json:"actor_id"`
	PreviousStatus string    `gorm:"not null;size:20" json:"previous_status"`
	NewStatus      string    `gorm:"not null;size:20" json:"new_status"`
	Action         string    `gorm:"not null;size:255" json:"action"`
	CreatedAt      time.Time `gorm:"not null;index:idx_audit_entries_line_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for Entry
func (Entry) TableName() string {
	return "audit_entries"
}

// Repository is append-only by construction
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByLine(ctx context.Context, lineID uint) ([]Entry, error)
	ListByLines(ctx context.Context, lineIDs []uint) ([]Entry, error)
}
