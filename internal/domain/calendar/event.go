package calendar

import (
	"context"
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/utils/functional"
)

// Event is a scheduled calendar entry, optionally recurring. EndDate minus
// StartDate fixes the duration of every occurrence.
type Event struct {
	ID            uint
	Title         string
	Description   *string
	StartDate     time.Time
	EndDate       time.Time
	IsRecurring   bool
	RecurringRule []byte // JSON-encoded RecurringRule, present iff IsRecurring
	CreatedByID   uint
	AssigneeIDs   []uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Occurrence is one concrete instance of an event inside a query window.
type Occurrence struct {
	Event          *Event
	OccurrenceDate time.Time
	StartDate      time.Time
	EndDate        time.Time
}

// Duration returns the span of a single occurrence.
func (e *Event) Duration() time.Duration {
	return e.EndDate.Sub(e.StartDate)
}

// AssignedTo reports whether the event is assigned to the given account.
func (e *Event) AssignedTo(accountID uint) bool {
	return functional.Any(e.AssigneeIDs, func(id uint) bool { return id == accountID })
}

// Public reports whether the event has no assignments and is therefore
// visible to every staff member.
func (e *Event) Public() bool {
	return len(e.AssigneeIDs) == 0
}

type Repository interface {
	// Create persists the event and its assignment rows in one transaction.
	Create(ctx context.Context, event *Event) error
	FindByID(ctx context.Context, id uint) (*Event, error)
	// FindInRange returns events whose own [StartDate, EndDate] overlaps the
	// window, plus every recurring event that started before the window end.
	FindInRange(ctx context.Context, from, to time.Time) ([]*Event, error)
	// Update persists the event and replaces its assignment set in one
	// transaction.
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id uint) error
}
