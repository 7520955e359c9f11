package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/your-org/coating-shop/internal/domain/order"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		notFound error
		want     error
	}{
		{"nil", nil, nil, nil},
		{"record not found", gorm.ErrRecordNotFound, order.ErrOrderNotFound, order.ErrOrderNotFound},
		{"wrapped record not found", fmt.Errorf("query: %w", gorm.ErrRecordNotFound), order.ErrLineNotFound, order.ErrLineNotFound},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, nil, apperr.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, nil, apperr.ErrConflict},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, nil, apperr.ErrConflict},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "idx_inventory_items_name"}, nil, apperr.ErrIntegrity},
		{"foreign key violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), nil, apperr.ErrIntegrity},
		{"check violation", &pgconn.PgError{Code: "23514"}, nil, apperr.ErrIntegrity},
		{"context deadline", context.DeadlineExceeded, nil, context.DeadlineExceeded},
		{"unknown", other, nil, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, tt.notFound)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("mapError = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("mapError = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapErrorConflictIsRetryable(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"}, nil)
	if !apperr.IsRetryable(err) {
		t.Fatalf("%v should be retryable", err)
	}
}
