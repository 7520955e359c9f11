// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for amounts
const MoneyPlaces = 2

// Mode distinguishes orders with one synthetic line from multi-line orders
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeSingle || m == ModeMulti
}

// PaymentStatus represents how much of the order has been paid
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// ClientType distinguishes individuals (PF) from companies (PJ)
type ClientType string

const (
	ClientTypeIndividual ClientType = "PF"
	ClientTypeCompany    ClientType = "PJ"
)

// Stamp records when a stage was reached and by whom
type Stamp struct {
	At *time.Time `json:"at,omitempty"`
	By *uint      `json:"by,omitempty"`
}

// Set stamps the stage with the actor and time
func (s *Stamp) Set(actorID uint, at time.Time) {
	s.At = &at
	s.By = &actorID
}

// Clear removes the stamp
func (s *Stamp) Clear() {
	s.At = nil
	s.By = nil
}

// IsSet reports whether the stage was reached
func (s Stamp) IsSet() bool {
	return s.At != nil
}

// Order represents a service order
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"size:30;index" json:"order_number"`
	Mode          Mode          `gorm:"not null;size:10" json:"mode"`
	Status        Status        `gorm:"not null;size:20;default:'queued';index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;size:20;default:'pending'" json:"payment_status"`

	// Client
	ClientType     ClientType `gorm:"size:2;default:'PF'" json:"client_type"`
	ClientName     string     `gorm:"not null;size:150" json:"client_name"`
	Requester      string     `gorm:"size:150" json:"requester,omitempty"`
	ClientDocument string     `gorm:"size:20" json:"client_document,omitempty"`
	ClientPhone    string     `gorm:"size:30" json:"client_phone,omitempty"`
	ClientEmail    string     `gorm:"size:150" json:"client_email,omitempty"`
	ClientAddress  string     `gorm:"type:text" json:"client_address,omitempty"`

	ServiceDescription string `gorm:"type:text" json:"service_description"`
	InternalNotes      string `gorm:"type:text" json:"internal_notes,omitempty"`
	SellerID           *uint  `gorm:"index" json:"seller_id,omitempty"`

	// Financial snapshot
	BaseAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"base_amount"`
	Surcharge   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"surcharge"`
	Discount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	FinalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"final_amount"`

	// Stage stamps
	Queued            Stamp `gorm:"embedded;embeddedPrefix:queued_" json:"queued"`
	ProductionStarted Stamp `gorm:"embedded;embeddedPrefix:production_started_" json:"production_started"`
	Ready             Stamp `gorm:"embedded;embeddedPrefix:ready_" json:"ready"`
	Delivered         Stamp `gorm:"embedded;embeddedPrefix:delivered_" json:"delivered"`

	// Cancellation
	Cancelled    Stamp  `gorm:"embedded;embeddedPrefix:cancelled_" json:"cancelled"`
	CancelReason string `gorm:"type:text" json:"cancel_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Lines    []OrderLine `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lines"`
	Payments []Payment   `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payments,omitempty"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// OrderLine is one produced item or service within an order
type OrderLine struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderID     uint   `gorm:"not null;index" json:"order_id"`
	Description string `gorm:"type:text" json:"description"`

	// Catalog snapshot taken at creation
	CatalogItemID *uint           `gorm:"index" json:"catalog_item_id,omitempty"`
	ItemName      string          `gorm:"not null;size:255" json:"item_name"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"unit_price"`
	Quantity      int             `gorm:"not null;default:1" json:"quantity"`
	LineTotal     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"line_total"`

	Status            Status `gorm:"not null;size:20;default:'queued';index" json:"status"`
	ProductionStarted Stamp  `gorm:"embedded;embeddedPrefix:production_started_" json:"production_started"`
	Ready             Stamp  `gorm:"embedded;embeddedPrefix:ready_" json:"ready"`
	Delivered         Stamp  `gorm:"embedded;embeddedPrefix:delivered_" json:"delivered"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for OrderLine
func (OrderLine) TableName() string {
	return "order_lines"
}

// Payment is money received against an order
type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaidOn    time.Time       `gorm:"type:date;not null" json:"paid_on"`
	Method    string          `gorm:"size:30" json:"method"`
	ActorID   uint            `gorm:"not null" json:"actor_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "order_payments"
}

// Entity methods

// StageStamp returns the line stamp kept for a stage, nil for queued
func (l *OrderLine) StageStamp(s Status) *Stamp {
	switch s {
	case StatusInProduction:
		return &l.ProductionStarted
	case StatusReady:
		return &l.Ready
	case StatusDelivered:
		return &l.Delivered
	}
	return nil
}

// StageStamp returns the order stamp kept for a stage
func (o *Order) StageStamp(s Status) *Stamp {
	switch s {
	case StatusQueued:
		return &o.Queued
	case StatusInProduction:
		return &o.ProductionStarted
	case StatusReady:
		return &o.Ready
	case StatusDelivered:
		return &o.Delivered
	case StatusCancelled:
		return &o.Cancelled
	}
	return nil
}

// IsCancelled checks if the order was cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// LineStatuses returns the current status of every line
func (o *Order) LineStatuses() []Status {
	statuses := make([]Status, len(o.Lines))
	for i, l := range o.Lines {
		statuses[i] = l.Status
	}
	return statuses
}

// LineIDs returns the ids of every line
func (o *Order) LineIDs() []uint {
	ids := make([]uint, len(o.Lines))
	for i, l := range o.Lines {
		ids[i] = l.ID
	}
	return ids
}

// TotalPaid sums the loaded payments
func (o *Order) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// BalanceDue is the final amount minus every payment received
func (o *Order) BalanceDue() decimal.Decimal {
	return o.FinalAmount.Sub(o.TotalPaid()).Round(MoneyPlaces)
}

// GenerateOrderNumber formats the human readable order number
func GenerateOrderNumber(id uint, at time.Time) string {
	// Format: SRV-YYYYMMDD-XXXXX
	return fmt.Sprintf("SRV-%s-%05d", at.Format("20060102"), id)
}
