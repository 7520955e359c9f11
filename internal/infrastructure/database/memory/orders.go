// internal/infrastructure/database/memory/orders.go
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/coating-shop/internal/domain/order"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
)

var _ order.Repository = (*orderRepo)(nil)

type orderRepo struct {
	exec execFunc
	now  func() time.Time
}

func (r *orderRepo) Create(_ context.Context, o *order.Order) error {
	return r.exec(true, func(d *data) error {
		now := r.now()
		d.nextOrder++
		o.ID = d.nextOrder
		o.CreatedAt, o.UpdatedAt = now, now

		for i := range o.Lines {
			d.nextLine++
			o.Lines[i].ID = d.nextLine
			o.Lines[i].OrderID = o.ID
			o.Lines[i].CreatedAt, o.Lines[i].UpdatedAt = now, now
			d.lines[o.Lines[i].ID] = o.Lines[i]
		}
		d.orders[o.ID] = bare(o)
		return nil
	})
}

func (r *orderRepo) Get(_ context.Context, id uint) (*order.Order, error) {
	var o *order.Order
	err := r.exec(false, func(d *data) error {
		var err error
		o, err = load(d, id)
		return err
	})
	return o, err
}

func (r *orderRepo) Lock(ctx context.Context, id uint) (*order.Order, error) {
	return r.Get(ctx, id)
}

func (r *orderRepo) GetLine(_ context.Context, id uint) (*order.OrderLine, error) {
	var line order.OrderLine
	err := r.exec(false, func(d *data) error {
		l, ok := d.lines[id]
		if !ok {
			return order.ErrLineNotFound
		}
		line = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *orderRepo) Save(_ context.Context, o *order.Order) error {
	return r.exec(true, func(d *data) error {
		if _, ok := d.orders[o.ID]; !ok {
			return order.ErrOrderNotFound
		}
		o.UpdatedAt = r.now()
		d.orders[o.ID] = bare(o)
		return nil
	})
}

func (r *orderRepo) SaveLine(_ context.Context, l *order.OrderLine) error {
	return r.exec(true, func(d *data) error {
		stored, ok := d.lines[l.ID]
		if !ok {
			return order.ErrLineNotFound
		}
		if stored.OrderID != l.OrderID {
			return apperr.New(apperr.ErrIntegrity, "order line cannot move between orders")
		}
		l.UpdatedAt = r.now()
		d.lines[l.ID] = *l
		return nil
	})
}

func (r *orderRepo) List(_ context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
	var (
		orders []order.Order
		total  int64
	)
	err := r.exec(false, func(d *data) error {
		matched := make([]order.Order, 0)
		for _, o := range d.orders {
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			if filter.Mode != "" && o.Mode != filter.Mode {
				continue
			}
			if !filter.IncludeCancelled && o.Status == order.StatusCancelled {
				continue
			}
			matched = append(matched, o)
		}
		sort.Slice(matched, func(i, j int) bool {
			if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].ID > matched[j].ID
			}
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		})

		total = int64(len(matched))
		start, end := pageBounds(len(matched), filter.Page, filter.Limit)
		orders = make([]order.Order, 0, end-start)
		for _, o := range matched[start:end] {
			full, err := load(d, o.ID)
			if err != nil {
				return err
			}
			orders = append(orders, *full)
		}
		return nil
	})
	return orders, total, err
}

func (r *orderRepo) ListLines(_ context.Context, filter order.LineFilter) ([]order.QueueLine, error) {
	var lines []order.QueueLine
	err := r.exec(false, func(d *data) error {
		wanted := make(map[order.Status]bool, len(filter.Statuses))
		for _, s := range filter.Statuses {
			wanted[s] = true
		}

		lines = make([]order.QueueLine, 0)
		for _, l := range d.lines {
			if len(wanted) > 0 && !wanted[l.Status] {
				continue
			}
			o := d.orders[l.OrderID]
			if filter.ExcludeCancelledOrders && o.Status == order.StatusCancelled {
				continue
			}
			lines = append(lines, order.QueueLine{
				OrderLine:   l,
				OrderNumber: o.OrderNumber,
				ClientName:  o.ClientName,
				OrderMode:   o.Mode,
			})
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
		return nil
	})
	return lines, err
}

func (r *orderRepo) AddPayment(_ context.Context, p *order.Payment) error {
	return r.exec(true, func(d *data) error {
		if _, ok := d.orders[p.OrderID]; !ok {
			return apperr.New(apperr.ErrIntegrity, "payment references a missing order")
		}
		d.nextPayment++
		p.ID = d.nextPayment
		p.CreatedAt = r.now()
		d.payments[p.ID] = *p
		return nil
	})
}

func (r *orderRepo) SumPayments(_ context.Context, orderID uint) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.exec(false, func(d *data) error {
		for _, p := range d.payments {
			if p.OrderID == orderID {
				total = total.Add(p.Amount)
			}
		}
		return nil
	})
	return total, err
}

// bare strips relationships before storing an order row
func bare(o *order.Order) order.Order {
	row := *o
	row.Lines = nil
	row.Payments = nil
	return row
}

// load assembles an order with its lines and payments
func load(d *data, id uint) (*order.Order, error) {
	row, ok := d.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	o := row
	o.Lines = make([]order.OrderLine, 0)
	for _, l := range d.lines {
		if l.OrderID == id {
			o.Lines = append(o.Lines, l)
		}
	}
	sort.Slice(o.Lines, func(i, j int) bool { return o.Lines[i].ID < o.Lines[j].ID })

	o.Payments = make([]order.Payment, 0)
	for _, p := range d.payments {
		if p.OrderID == id {
			o.Payments = append(o.Payments, p)
		}
	}
	sort.Slice(o.Payments, func(i, j int) bool { return o.Payments[i].ID < o.Payments[j].ID })
	return &o, nil
}

func pageBounds(n, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return 0, n
	}
	start := (page - 1) * limit
	if start > n {
		start = n
	}
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}
