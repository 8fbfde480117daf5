package responses

import (
	"encoding/json"
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/calendar"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/functional"
)

// EventPayload is the wire form of a calendar event.
type EventPayload struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	Description   *string         `json:"description,omitempty"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	IsRecurring   bool            `json:"isRecurring"`
	RecurringRule json.RawMessage `json:"recurringRule,omitempty"`
	CreatedByID   uint            `json:"createdById"`
	AssigneeIDs   []uint          `json:"assigneeIds"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// OccurrencePayload is one concrete instance of an event inside a window.
type OccurrencePayload struct {
	Event          EventPayload `json:"event"`
	OccurrenceDate time.Time    `json:"occurrenceDate"`
	StartDate      time.Time    `json:"startDate"`
	EndDate        time.Time    `json:"endDate"`
}

// FromEvent maps a domain event to its DTO.
func FromEvent(e *calendar.Event) EventPayload {
	assignees := e.AssigneeIDs
	if assignees == nil {
		assignees = []uint{}
	}
	return EventPayload{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		IsRecurring:   e.IsRecurring,
		RecurringRule: json.RawMessage(e.RecurringRule),
		CreatedByID:   e.CreatedByID,
		AssigneeIDs:   assignees,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// FromOccurrences maps expanded occurrences to DTOs.
func FromOccurrences(occurrences []calendar.Occurrence) []OccurrencePayload {
	return functional.Map(occurrences, func(occ calendar.Occurrence) OccurrencePayload {
		return OccurrencePayload{
			Event:          FromEvent(occ.Event),
			OccurrenceDate: occ.OccurrenceDate,
			StartDate:      occ.StartDate,
			EndDate:        occ.EndDate,
		}
	})
}
