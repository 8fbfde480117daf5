package entities

import (
	"time"

	"gorm.io/datatypes"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/calendar"
)

// CalendarEvent represents the database schema for calendar events. The
// recurrence rule is stored as raw JSON and validated at expansion time.
type CalendarEvent struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Title         string  `gorm:"type:varchar(255);not null"`
	Description   *string `gorm:"type:text"`
	StartDate     time.Time
	EndDate       time.Time      `gorm:"not null;index"`
	IsRecurring   bool           `gorm:"not null;default:false;index"`
	RecurringRule datatypes.JSON `gorm:"type:jsonb"`
	CreatedByID   uint           `gorm:"not null;index"`

	Assignments []CalendarEventAssignment `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for CalendarEvent.
func (CalendarEvent) TableName() string {
	return "calendar_events"
}

// CalendarEventAssignment assigns an event to a staff account.
type CalendarEventAssignment struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	EventID   uint `gorm:"uniqueIndex:idx_event_assignment;not null"`
	AccountID uint `gorm:"uniqueIndex:idx_event_assignment;not null;index"`
}

// TableName specifies the table name for CalendarEventAssignment.
func (CalendarEventAssignment) TableName() string {
	return "calendar_event_assignments"
}

// EtoD converts database entity to domain model
func (e *CalendarEvent) EtoD() *calendar.Event {
	event := &calendar.Event{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		IsRecurring:   e.IsRecurring,
		RecurringRule: []byte(e.RecurringRule),
		CreatedByID:   e.CreatedByID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	for _, a := range e.Assignments {
		event.AssigneeIDs = append(event.AssigneeIDs, a.AccountID)
	}
	return event
}

// NewSchemaCalendarEvent creates a database entity from domain model
func NewSchemaCalendarEvent(e *calendar.Event) *CalendarEvent {
	return &CalendarEvent{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		IsRecurring:   e.IsRecurring,
		RecurringRule: datatypes.JSON(e.RecurringRule),
		CreatedByID:   e.CreatedByID,
	}
}
