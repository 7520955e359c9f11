// internal/domain/audit/trail.go
package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Transition describes a line moving from one status to another. A zero
// At is stamped with the current time.
type Transition struct {
	LineID uint
	From   string
	To     string
	Action string
	At     time.Time
}

// Trail writes and reads the transition history of order lines
type Trail struct {
	log *logrus.Logger
	now func() time.Time
}

// NewTrail creates a new audit trail
func NewTrail(log *logrus.Logger) *Trail {
	return &Trail{
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy of the trail stamping entries with now
func (t *Trail) WithClock(now func() time.Time) *Trail {
	cp := *t
	cp.now = now
	return &cp
}

// Record appends one entry for the transition
func (t *Trail) Record(ctx context.Context, repo Repository, actorID uint, tr Transition) (*Entry, error) {
	at := tr.At
	if at.IsZero() {
		at = t.now()
	}
	entry := &Entry{
		OrderLineID:    tr.LineID,
		ActorID:        actorID,
		PreviousStatus: tr.From,
		NewStatus:      tr.To,
		Action:         tr.Action,
		CreatedAt:      at,
	}
	if err := repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}

	t.log.WithFields(logrus.Fields{
		"line_id":  tr.LineID,
		"actor_id": actorID,
		"from":     tr.From,
		"to":       tr.To,
		"action":   tr.Action,
	}).Debug("Audit entry recorded")

	return entry, nil
}

// History returns the entries of a line, oldest first
func (t *Trail) History(ctx context.Context, repo Repository, lineID uint) ([]Entry, error) {
	entries, err := repo.ListByLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve audit history: %w", err)
	}
	sortEntries(entries)
	return entries, nil
}

// HistoryForLines returns the entries of several lines, oldest first
func (t *Trail) HistoryForLines(ctx context.Context, repo Repository, lineIDs []uint) ([]Entry, error) {
	if len(lineIDs) == 0 {
		return []Entry{}, nil
	}
	entries, err := repo.ListByLines(ctx, lineIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve audit history: %w", err)
	}
	sortEntries(entries)
	return entries, nil
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
