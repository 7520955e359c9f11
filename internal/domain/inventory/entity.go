// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuantityPlaces is the number of fractional digits kept for stock quantities
const QuantityPlaces = 3

// Direction represents the direction of a stock movement
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Origin represents what caused a stock movement
type Origin string

const (
	OriginManual     Origin = "manual"
	OriginPurchase   Origin = "purchase"
	OriginProduction Origin = "production"
)

// Valid reports whether o is a known origin
func (o Origin) Valid() bool {
	switch o {
	case OriginManual, OriginPurchase, OriginProduction:
		return true
	}
	return false
}

// Item represents a raw material kept in stock
type Item struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"not null;size:150;uniqueIndex" json:"name"`
	Unit            string          `gorm:"not null;size:20;default:'CX'" json:"unit"`
	Quantity        decimal.Decimal `gorm:"type:numeric(12,3);not null;default:0" json:"quantity"`
	MinimumQuantity decimal.Decimal `gorm:"type:numeric(12,3);not null;default:5" json:"minimum_quantity"`
	IsActive        bool            `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Item
func (Item) TableName() string {
	return "inventory_items"
}

// IsBelowMinimum checks if the item needs restocking
func (i *Item) IsBelowMinimum() bool {
	return i.Quantity.LessThan(i.MinimumQuantity)
}

// Movement is one entry of the stock ledger
type Movement struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ItemID        uint            `gorm:"column:inventory_item_id;not null;index" json:"inventory_item_id"`
	Direction     Direction       `gorm:"not null;size:3" json:"direction"`
	Quantity      decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"balance_after"`
	Origin        Origin          `gorm:"not null;size:20;index:idx_stock_movements_origin_reference,priority:1" json:"origin"`
	ReferenceID   *uint           `gorm:"index:idx_stock_movements_origin_reference,priority:2" json:"reference_id,omitempty"`
	ActorID       uint            `gorm:"not null;index" json:"actor_id"`
	Note          string          `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`

	// Relationships
	Item *Item `gorm:"foreignKey:ItemID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"item,omitempty"`
}

// TableName specifies the table name for Movement
func (Movement) TableName() string {
	return "stock_movements"
}

// Allocation is the amount of one item consumed while finishing a line
type Allocation struct {
	ItemID   uint            `json:"item_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ItemFilter narrows item listings
type ItemFilter struct {
	IncludeInactive bool
	BelowMinimum    bool
}
