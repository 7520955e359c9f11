// internal/domain/order/status.go
package order

// Status is the production stage of a line, or the aggregate stage of an order
type Status string

const (
	StatusQueued       Status = "queued"
	StatusInProduction Status = "in_production"
	StatusReady        Status = "ready"
	StatusDelivered    Status = "delivered"
	StatusCancelled    Status = "cancelled"
)

// step holds the neighbours of a stage in the production chain
type step struct {
	rank     int
	next     Status
	previous Status
}

// transitions is the complete production chain. Delivered has no previous
// stage since a delivered line cannot be reverted. Cancelled is not part of
// the chain: cancellation is an order-level action and is terminal.
var transitions = map[Status]step{
	StatusQueued:       {rank: 0, next: StatusInProduction},
	StatusInProduction: {rank: 1, next: StatusReady, previous: StatusQueued},
	StatusReady:        {rank: 2, next: StatusDelivered, previous: StatusInProduction},
	StatusDelivered:    {rank: 3},
}

// Stages lists the production stages in order
func Stages() []Status {
	return []Status{StatusQueued, StatusInProduction, StatusReady, StatusDelivered}
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s.IsStage() || s == StatusCancelled
}

// IsStage reports whether s belongs to the production chain
func (s Status) IsStage() bool {
	_, ok := transitions[s]
	return ok
}

// Next returns the following stage, false when there is none
func (s Status) Next() (Status, bool) {
	st, ok := transitions[s]
	if !ok || st.next == "" {
		return "", false
	}
	return st.next, true
}

// Previous returns the preceding stage, false when there is none
func (s Status) Previous() (Status, bool) {
	st, ok := transitions[s]
	if !ok || st.previous == "" {
		return "", false
	}
	return st.previous, true
}

// Rank is the position of the stage in the chain, -1 for cancelled or unknown
func (s Status) Rank() int {
	st, ok := transitions[s]
	if !ok {
		return -1
	}
	return st.rank
}

// Label returns the display name of the status
func (s Status) Label() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusInProduction:
		return "In production"
	case StatusReady:
		return "Ready"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}
