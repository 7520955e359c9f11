// internal/domain/order/aggregate.go
package order

// AggregateStatus derives the order status of a multi-line order from the
// current status of its lines. The result depends only on the current order
// status and the multiset of line statuses.
//
//   - all lines ready or delivered: ready. Delivery is never inferred, so an
//     order already delivered stays delivered.
//   - any line in production: in production when the order was queued or
//     ready, otherwise unchanged.
//   - all lines queued: queued.
//   - queued lines mixed with finished ones: in production when the order
//     was ready, otherwise unchanged.
//
// Cancelled orders never change.
func AggregateStatus(current Status, lines []Status) Status {
	if current == StatusCancelled || len(lines) == 0 {
		return current
	}

	var queued, inProduction, finished int
	for _, s := range lines {
		switch s {
		case StatusQueued:
			queued++
		case StatusInProduction:
			inProduction++
		case StatusReady, StatusDelivered:
			finished++
		}
	}

	switch {
	case finished == len(lines):
		if current == StatusDelivered {
			return StatusDelivered
		}
		return StatusReady
	case inProduction > 0:
		if current == StatusQueued || current == StatusReady {
			return StatusInProduction
		}
	case queued == len(lines):
		return StatusQueued
	case queued > 0 && finished > 0:
		if current == StatusReady {
			return StatusInProduction
		}
	}
	return current
}
