package calendar

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/calendar"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/entities"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/transaction"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// EventRepository persists calendar events and their assignments.
type EventRepository struct {
	txDB *transaction.Database
}

// NewEventRepository builds an event repository.
func NewEventRepository(txDB *transaction.Database) *EventRepository {
	return &EventRepository{txDB: txDB}
}

var _ calendar.Repository = (*EventRepository)(nil)

// Create inserts the event and its assignment rows in one transaction.
func (r *EventRepository) Create(ctx context.Context, event *calendar.Event) error {
	entity := entities.NewSchemaCalendarEvent(event)

	err := r.txDB.Transaction(ctx, func(txCtx context.Context) error {
		tx := r.txDB.GetDB(txCtx).WithContext(txCtx)
		if err := tx.Create(entity).Error; err != nil {
			return err
		}
		return r.replaceAssignments(txCtx, entity.ID, event.AssigneeIDs)
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create event",
			err,
			"20d6b1f4-8e53-4c97-a2d0-6f84c5e9b317",
		)
	}

	event.ID = entity.ID
	event.CreatedAt = entity.CreatedAt
	event.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByID fetches an event with its assignments, or nil.
func (r *EventRepository) FindByID(ctx context.Context, id uint) (*calendar.Event, error) {
	var entity entities.CalendarEvent
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Preload("Assignments").
		First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch event",
			err,
			"6b39e7d0-14ac-4f58-92b6-d05f8c2a1e74",
		)
	}
	return entity.EtoD(), nil
}

// FindInRange returns events overlapping the window plus every recurring
// event whose series could produce an in-window occurrence.
func (r *EventRepository) FindInRange(ctx context.Context, from, to time.Time) ([]*calendar.Event, error) {
	var rows []entities.CalendarEvent
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Preload("Assignments").
		Where("(start_date <= ? AND end_date >= ?) OR (is_recurring = true AND start_date <= ?)", to, from, to).
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to load events",
			err,
			"c84f29a1-5d06-4be3-87c2-e91a60d5f438",
		)
	}

	events := make([]*calendar.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].EtoD()
	}
	return events, nil
}

// Update persists the event fields and replaces the assignment set in one
// transaction, so readers never observe a half swapped set.
func (r *EventRepository) Update(ctx context.Context, event *calendar.Event) error {
	entity := entities.NewSchemaCalendarEvent(event)

	err := r.txDB.Transaction(ctx, func(txCtx context.Context) error {
		tx := r.txDB.GetDB(txCtx).WithContext(txCtx)
		err := tx.Model(&entities.CalendarEvent{}).
			Where("id = ?", event.ID).
			Updates(map[string]any{
				"title":          entity.Title,
				"description":    entity.Description,
				"start_date":     entity.StartDate,
				"end_date":       entity.EndDate,
				"is_recurring":   entity.IsRecurring,
				"recurring_rule": entity.RecurringRule,
			}).Error
		if err != nil {
			return err
		}
		return r.replaceAssignments(txCtx, event.ID, event.AssigneeIDs)
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update event",
			err,
			"e15a70c6-92bd-4f38-a6e0-4c87d2b5f109",
		)
	}
	return nil
}

// Delete removes the event and its assignments.
func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	err := r.txDB.Transaction(ctx, func(txCtx context.Context) error {
		tx := r.txDB.GetDB(txCtx).WithContext(txCtx)
		if err := tx.Where("event_id = ?", id).Delete(&entities.CalendarEventAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.CalendarEvent{}, id).Error
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete event",
			err,
			"79c0d4e8-36fa-4251-b9c8-d02e65a1f847",
		)
	}
	return nil
}

func (r *EventRepository) replaceAssignments(ctx context.Context, eventID uint, accountIDs []uint) error {
	tx := r.txDB.GetDB(ctx).WithContext(ctx)
	if err := tx.Where("event_id = ?", eventID).Delete(&entities.CalendarEventAssignment{}).Error; err != nil {
		return err
	}
	if len(accountIDs) == 0 {
		return nil
	}
	rows := make([]entities.CalendarEventAssignment, len(accountIDs))
	for i, accountID := range accountIDs {
		rows[i] = entities.CalendarEventAssignment{EventID: eventID, AccountID: accountID}
	}
	return tx.Create(&rows).Error
}
