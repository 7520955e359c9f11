// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/config"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
)

// Service handles inventory operations that own their transaction
type Service struct {
	repo   Repository
	tx     Transactor
	ledger *Ledger
	config *config.Config
	log    *logrus.Logger
}

// NewService creates a new inventory service
func NewService(repo Repository, tx Transactor, ledger *Ledger, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		repo:   repo,
		tx:     tx,
		ledger: ledger,
		config: cfg,
		log:    log,
	}
}

// CreateItemRequest represents item creation data
type CreateItemRequest struct {
	Name            string           `json:"name" binding:"required,max=150"`
	Unit            string           `json:"unit" binding:"omitempty,max=20"`
	InitialQuantity decimal.Decimal  `json:"initial_quantity"`
	MinimumQuantity *decimal.Decimal `json:"minimum_quantity"`
}

// UpdateItemRequest represents item update data. Quantity only changes
// through movements.
type UpdateItemRequest struct {
	Name            *string          `json:"name" binding:"omitempty,max=150"`
	Unit            *string          `json:"unit" binding:"omitempty,max=20"`
	MinimumQuantity *decimal.Decimal `json:"minimum_quantity"`
	IsActive        *bool            `json:"is_active"`
}

// AdjustStockRequest represents a manual stock correction
type AdjustStockRequest struct {
	Direction Direction       `json:"direction" binding:"required,oneof=in out"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note" binding:"max=500"`
}

// PurchaseRequest represents stock received against a financial record
type PurchaseRequest struct {
	ReferenceID uint         `json:"reference_id" binding:"required"`
	Items       []Allocation `json:"items" binding:"required,min=1,dive"`
	Note        string       `json:"note" binding:"max=500"`
}

// CreateItem creates an item. A positive initial quantity is booked as a
// manual inbound movement so the ledger starts balanced.
func (s *Service) CreateItem(ctx context.Context, actorID uint, req CreateItemRequest) (*Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "item name is required")
	}
	if req.InitialQuantity.IsNegative() {
		return nil, apperr.New(apperr.ErrInvalidInput, "initial quantity cannot be negative")
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = s.config.Fulfillment.DefaultItemUnit
	}
	minimum := s.config.DefaultItemMinimum()
	if req.MinimumQuantity != nil {
		if req.MinimumQuantity.IsNegative() {
			return nil, apperr.New(apperr.ErrInvalidInput, "minimum quantity cannot be negative")
		}
		minimum = *req.MinimumQuantity
	}

	item := &Item{
		Name:            name,
		Unit:            strings.ToUpper(unit),
		Quantity:        decimal.Zero,
		MinimumQuantity: minimum.Round(QuantityPlaces),
		IsActive:        true,
	}

	err := s.tx.WithinTransaction(ctx, func(repo Repository) error {
		if err := repo.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to create inventory item: %w", err)
		}
		if !req.InitialQuantity.Round(QuantityPlaces).IsPositive() {
			return nil
		}
		m, err := s.ledger.Adjust(ctx, repo, AdjustRequest{
			ItemID:    item.ID,
			Direction: DirectionIn,
			Quantity:  req.InitialQuantity,
			Origin:    OriginManual,
			ActorID:   actorID,
			Note:      "initial stock",
		})
		if err != nil {
			return err
		}
		item.Quantity = m.BalanceAfter
		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// UpdateItem updates descriptive fields of an item
func (s *Service) UpdateItem(ctx context.Context, id uint, req UpdateItemRequest) (*Item, error) {
	var item *Item
	err := s.tx.WithinTransaction(ctx, func(repo Repository) error {
		var err error
		item, err = repo.LockItem(ctx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperr.New(apperr.ErrInvalidInput, "item name is required")
			}
			item.Name = name
		}
		if req.Unit != nil && strings.TrimSpace(*req.Unit) != "" {
			item.Unit = strings.ToUpper(strings.TrimSpace(*req.Unit))
		}
		if req.MinimumQuantity != nil {
			if req.MinimumQuantity.IsNegative() {
				return apperr.New(apperr.ErrInvalidInput, "minimum quantity cannot be negative")
			}
			item.MinimumQuantity = req.MinimumQuantity.Round(QuantityPlaces)
		}
		if req.IsActive != nil {
			item.IsActive = *req.IsActive
		}

		if err := repo.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update inventory item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem gets a specific item
func (s *Service) GetItem(ctx context.Context, id uint) (*Item, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems lists active items, or all of them when asked
func (s *Service) ListItems(ctx context.Context, includeInactive bool) ([]Item, error) {
	items, err := s.repo.ListItems(ctx, ItemFilter{IncludeInactive: includeInactive})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve inventory items: %w", err)
	}
	return items, nil
}

// LowStock lists active items whose quantity is below their minimum
func (s *Service) LowStock(ctx context.Context) ([]Item, error) {
	items, err := s.repo.ListItems(ctx, ItemFilter{BelowMinimum: true})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve low stock items: %w", err)
	}
	return items, nil
}

// Movements returns the latest movements of an item, newest first
func (s *Service) Movements(ctx context.Context, itemID uint, limit int) ([]Movement, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	movements, err := s.repo.ListMovements(ctx, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stock movements: %w", err)
	}
	return movements, nil
}

// ManualAdjust records a manual correction in its own transaction
func (s *Service) ManualAdjust(ctx context.Context, actorID, itemID uint, req AdjustStockRequest) (*Movement, error) {
	var movement *Movement
	err := s.tx.WithinTransaction(ctx, func(repo Repository) error {
		var err error
		movement, err = s.ledger.Adjust(ctx, repo, AdjustRequest{
			ItemID:    itemID,
			Direction: req.Direction,
			Quantity:  req.Quantity,
			Origin:    OriginManual,
			ActorID:   actorID,
			Note:      strings.TrimSpace(req.Note),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// RecordPurchase books inbound stock received against a purchase record
func (s *Service) RecordPurchase(ctx context.Context, actorID uint, req PurchaseRequest) ([]Movement, error) {
	if req.ReferenceID == 0 {
		return nil, ErrMissingReference
	}
	if len(req.Items) == 0 {
		return nil, apperr.New(apperr.ErrInvalidInput, "purchase requires at least one item")
	}
	if err := ValidateAllocations(req.Items); err != nil {
		return nil, err
	}

	ref := req.ReferenceID
	var movements []Movement
	err := s.tx.WithinTransaction(ctx, func(repo Repository) error {
		movements = make([]Movement, 0, len(req.Items))
		for _, a := range req.Items {
			m, err := s.ledger.Adjust(ctx, repo, AdjustRequest{
				ItemID:      a.ItemID,
				Direction:   DirectionIn,
				Quantity:    a.Quantity,
				Origin:      OriginPurchase,
				ReferenceID: &ref,
				ActorID:     actorID,
				Note:        strings.TrimSpace(req.Note),
			})
			if err != nil {
				return err
			}
			movements = append(movements, *m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// ReversePurchase undoes the stock booked for a purchase record
func (s *Service) ReversePurchase(ctx context.Context, referenceID uint) (int, error) {
	var reversed int
	err := s.tx.WithinTransaction(ctx, func(repo Repository) error {
		var err error
		reversed, err = s.ledger.ReverseForPurchase(ctx, repo, referenceID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return reversed, nil
}
