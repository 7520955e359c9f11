// internal/domain/order/service.go
package order

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/config"
	"github.com/your-org/coating-shop/internal/domain/audit"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
)

// Service handles order creation, queries and payments
type Service struct {
	store  Store
	trail  *audit.Trail
	config *config.Config
	log    *logrus.Logger
	now    func() time.Time
}

// NewService creates a new order service
func NewService(store Store, trail *audit.Trail, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		store:  store,
		trail:  trail,
		config: cfg,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// LineRequest represents one line of a new order. Names and prices arrive
// already resolved by the catalog.
type LineRequest struct {
	Description   string          `json:"description" binding:"max=2000"`
	CatalogItemID *uint           `json:"catalog_item_id"`
	ItemName      string          `json:"item_name" binding:"required,max=255"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest represents order creation data
type CreateOrderRequest struct {
	Mode               Mode          `json:"mode" binding:"required,oneof=single multi"`
	ClientType         ClientType    `json:"client_type" binding:"omitempty,oneof=PF PJ"`
	ClientName         string        `json:"client_name" binding:"required,max=150"`
	Requester          string        `json:"requester" binding:"max=150"`
	ClientDocument     string        `json:"client_document" binding:"max=20"`
	ClientPhone        string        `json:"client_phone" binding:"max=30"`
	ClientEmail        string        `json:"client_email" binding:"omitempty,email,max=150"`
	ClientAddress      string        `json:"client_address"`
	ServiceDescription string        `json:"service_description"`
	InternalNotes      string        `json:"internal_notes"`
	Lines              []LineRequest `json:"lines" binding:"required,min=1,dive"`

	// Sales fields, accepted only from sales managers
	SellerID  *uint           `json:"seller_id"`
	Surcharge decimal.Decimal `json:"surcharge"`
	Discount  decimal.Decimal `json:"discount"`
}

// WithoutSalesFields returns a copy without the fields reserved to sales
// managers
func (r CreateOrderRequest) WithoutSalesFields() CreateOrderRequest {
	r.SellerID = nil
	r.Surcharge = decimal.Zero
	r.Discount = decimal.Zero
	return r
}

// PaymentRequest represents a payment received against an order
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PaidOn string          `json:"paid_on" binding:"omitempty,datetime=2006-01-02"`
	Method string          `json:"method" binding:"max=30"`
}

// Balance is the financial position of an order
type Balance struct {
	OrderID       uint            `json:"order_id"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	Paid          decimal.Decimal `json:"paid"`
	Due           decimal.Decimal `json:"due"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// Queue groups active lines by production stage
type Queue struct {
	Queued       []QueueLine `json:"queued"`
	InProduction []QueueLine `json:"in_production"`
	Ready        []QueueLine `json:"ready"`
}

// CreateOrder creates an order and its lines, all queued. A single-line
// order owns exactly one synthetic line.
func (s *Service) CreateOrder(ctx context.Context, actorID uint, req CreateOrderRequest) (*Order, error) {
	if !req.Mode.Valid() {
		return nil, apperr.Newf(apperr.ErrInvalidInput, "unknown order mode %q", req.Mode)
	}
	if strings.TrimSpace(req.ClientName) == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "client name is required")
	}
	if len(req.Lines) == 0 {
		return nil, apperr.New(apperr.ErrInvalidInput, "order requires at least one line")
	}
	if req.Mode == ModeSingle && len(req.Lines) != 1 {
		return nil, apperr.New(apperr.ErrInvalidInput, "single orders have exactly one line")
	}
	if req.Surcharge.IsNegative() || req.Discount.IsNegative() {
		return nil, apperr.New(apperr.ErrInvalidInput, "surcharge and discount cannot be negative")
	}

	now := s.now()
	lines := make([]OrderLine, 0, len(req.Lines))
	base := decimal.Zero
	for i, lr := range req.Lines {
		if strings.TrimSpace(lr.ItemName) == "" {
			return nil, apperr.Newf(apperr.ErrInvalidInput, "line %d requires an item name", i+1)
		}
		if lr.Quantity < 1 {
			return nil, apperr.Newf(apperr.ErrInvalidInput, "line %d quantity must be at least 1", i+1)
		}
		if lr.UnitPrice.IsNegative() {
			return nil, apperr.Newf(apperr.ErrInvalidInput, "line %d unit price cannot be negative", i+1)
		}

		description := strings.TrimSpace(lr.Description)
		if description == "" && req.Mode == ModeSingle {
			description = strings.TrimSpace(req.ServiceDescription)
		}
		unitPrice := lr.UnitPrice.Round(MoneyPlaces)
		total := unitPrice.Mul(decimal.NewFromInt(int64(lr.Quantity))).Round(MoneyPlaces)
		base = base.Add(total)

		lines = append(lines, OrderLine{
			Description:   description,
			CatalogItemID: lr.CatalogItemID,
			ItemName:      strings.TrimSpace(lr.ItemName),
			UnitPrice:     unitPrice,
			Quantity:      lr.Quantity,
			LineTotal:     total,
			Status:        StatusQueued,
		})
	}

	final := base.Add(req.Surcharge).Sub(req.Discount).Round(MoneyPlaces)
	if final.IsNegative() {
		return nil, apperr.New(apperr.ErrInvalidInput, "discount exceeds order amount")
	}

	clientType := req.ClientType
	if clientType == "" {
		clientType = ClientTypeIndividual
	}

	o := &Order{
		Mode:               req.Mode,
		Status:             StatusQueued,
		PaymentStatus:      PaymentStatusPending,
		ClientType:         clientType,
		ClientName:         strings.TrimSpace(req.ClientName),
		Requester:          strings.TrimSpace(req.Requester),
		ClientDocument:     strings.TrimSpace(req.ClientDocument),
		ClientPhone:        strings.TrimSpace(req.ClientPhone),
		ClientEmail:        strings.TrimSpace(req.ClientEmail),
		ClientAddress:      strings.TrimSpace(req.ClientAddress),
		ServiceDescription: strings.TrimSpace(req.ServiceDescription),
		InternalNotes:      strings.TrimSpace(req.InternalNotes),
		SellerID:           req.SellerID,
		BaseAmount:         base,
		Surcharge:          req.Surcharge.Round(MoneyPlaces),
		Discount:           req.Discount.Round(MoneyPlaces),
		FinalAmount:        final,
		Lines:              lines,
	}
	o.Queued.Set(actorID, now)
	if final.IsZero() {
		o.PaymentStatus = PaymentStatusPaid
	}

	err := s.store.Transaction(ctx, func(sess Session) error {
		if err := sess.Orders().Create(ctx, o); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		// Generate order number
		o.OrderNumber = GenerateOrderNumber(o.ID, now)
		if err := sess.Orders().Save(ctx, o); err != nil {
			return fmt.Errorf("failed to update order number: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"mode":         o.Mode,
		"lines":        len(o.Lines),
		"actor_id":     actorID,
	}).Info("Order created")

	return o, nil
}

// GetOrder gets an order with its lines and payments
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	return s.store.Orders().Get(ctx, id)
}

// ListOrders lists orders, newest first
func (s *Service) ListOrders(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperr.Newf(apperr.ErrInvalidInput, "unknown status %q", filter.Status)
	}
	if filter.Mode != "" && !filter.Mode.Valid() {
		return nil, 0, apperr.Newf(apperr.ErrInvalidInput, "unknown mode %q", filter.Mode)
	}
	if filter.Status == StatusCancelled {
		filter.IncludeCancelled = true
	}

	orders, total, err := s.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve orders: %w", err)
	}
	return orders, total, nil
}

// ProductionQueue returns the lines of active orders grouped by stage,
// oldest first
func (s *Service) ProductionQueue(ctx context.Context) (*Queue, error) {
	lines, err := s.store.Orders().ListLines(ctx, LineFilter{
		Statuses:               []Status{StatusQueued, StatusInProduction, StatusReady},
		ExcludeCancelledOrders: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve production queue: %w", err)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].ID < lines[j].ID
		}
		return lines[i].CreatedAt.Before(lines[j].CreatedAt)
	})

	q := &Queue{Queued: []QueueLine{}, InProduction: []QueueLine{}, Ready: []QueueLine{}}
	for _, l := range lines {
		switch l.Status {
		case StatusQueued:
			q.Queued = append(q.Queued, l)
		case StatusInProduction:
			q.InProduction = append(q.InProduction, l)
		case StatusReady:
			q.Ready = append(q.Ready, l)
		}
	}
	return q, nil
}

// LineHistory returns the audit entries of a line, oldest first
func (s *Service) LineHistory(ctx context.Context, lineID uint) ([]audit.Entry, error) {
	if _, err := s.store.Orders().GetLine(ctx, lineID); err != nil {
		return nil, err
	}
	return s.trail.History(ctx, s.store.Audit(), lineID)
}

// OrderHistory returns the audit entries of every line of an order
func (s *Service) OrderHistory(ctx context.Context, orderID uint) ([]audit.Entry, error) {
	o, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.trail.HistoryForLines(ctx, s.store.Audit(), o.LineIDs())
}

// RecordPayment records money received and updates the payment status
func (s *Service) RecordPayment(ctx context.Context, actorID, orderID uint, req PaymentRequest) (*Payment, error) {
	amount := req.Amount.Round(MoneyPlaces)
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.ErrInvalidInput, "payment amount must be greater than zero")
	}

	paidOn := s.now().Truncate(24 * time.Hour)
	if req.PaidOn != "" {
		parsed, err := time.Parse("2006-01-02", req.PaidOn)
		if err != nil {
			return nil, apperr.New(apperr.ErrInvalidInput, "paid_on must be a date in YYYY-MM-DD format")
		}
		paidOn = parsed
	}

	var payment *Payment
	err := s.store.Transaction(ctx, func(sess Session) error {
		o, err := sess.Orders().Lock(ctx, orderID)
		if err != nil {
			return err
		}
		if o.IsCancelled() {
			return apperr.New(apperr.ErrInvalidInput, "cancelled orders cannot receive payments")
		}

		paid, err := sess.Orders().SumPayments(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}
		due := o.FinalAmount.Sub(paid)
		if amount.GreaterThan(due) {
			return apperr.Newf(apperr.ErrInvalidInput, "payment of %s exceeds balance due of %s",
				amount.StringFixed(MoneyPlaces), due.StringFixed(MoneyPlaces))
		}

		payment = &Payment{
			OrderID: o.ID,
			Amount:  amount,
			PaidOn:  paidOn,
			Method:  strings.TrimSpace(req.Method),
			ActorID: actorID,
		}
		if err := sess.Orders().AddPayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		o.PaymentStatus = s.paymentStatus(o.FinalAmount, paid.Add(amount))
		if err := sess.Orders().Save(ctx, o); err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"amount":   amount.StringFixed(MoneyPlaces),
		"actor_id": actorID,
	}).Info("Payment recorded")

	return payment, nil
}

// BalanceDue returns the final amount minus every payment received
func (s *Service) BalanceDue(ctx context.Context, orderID uint) (*Balance, error) {
	o, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	paid, err := s.store.Orders().SumPayments(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	return &Balance{
		OrderID:       o.ID,
		FinalAmount:   o.FinalAmount,
		Paid:          paid,
		Due:           o.FinalAmount.Sub(paid).Round(MoneyPlaces),
		PaymentStatus: s.paymentStatus(o.FinalAmount, paid),
	}, nil
}

func (s *Service) paymentStatus(final, paid decimal.Decimal) PaymentStatus {
	switch {
	case final.Sub(paid).LessThanOrEqual(s.config.PaidTolerance()):
		return PaymentStatusPaid
	case paid.IsPositive():
		return PaymentStatusPartial
	}
	return PaymentStatusPending
}
