package calendar

import (
	"context"
	"sort"
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/functional"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// Notifier delivers assignment notifications. Delivery is best effort and
// must never block or fail a calendar operation.
type Notifier interface {
	EventAssigned(ctx context.Context, event *Event, accountIDs []uint)
}

// CalendarService handles business logic for calendar events and their
// occurrence expansion.
type CalendarService struct {
	repo      Repository
	accounts  account.Repository
	notifier  Notifier
	validator *EventValidator
}

// NewCalendarService creates a new calendar service.
func NewCalendarService(repo Repository, accounts account.Repository, notifier Notifier) *CalendarService {
	return &CalendarService{
		repo:      repo,
		accounts:  accounts,
		notifier:  notifier,
		validator: NewEventValidator(nil), // Use default config
	}
}

// CreateEventInput represents the input for creating an event.
type CreateEventInput struct {
	Title         string
	Description   *string
	StartDate     time.Time
	EndDate       time.Time
	IsRecurring   bool
	RecurringRule []byte
	AssigneeIDs   []uint
}

// CreateEvent validates and persists a new event together with its
// assignments, then notifies the assignees.
func (s *CalendarService) CreateEvent(ctx context.Context, actor account.Actor, input CreateEventInput) (*Event, error) {
	event := &Event{
		Title:         input.Title,
		Description:   input.Description,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		IsRecurring:   input.IsRecurring,
		RecurringRule: input.RecurringRule,
		CreatedByID:   actor.ID,
		AssigneeIDs:   input.AssigneeIDs,
	}

	if err := s.validator.ValidateEvent(event); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "event validation failed", err, "5f1c2a9e-8d34-4b6a-9c71-02e4d8a53f10")
	}
	if err := s.checkAssignees(ctx, input.AssigneeIDs); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create event")
	}

	if len(input.AssigneeIDs) > 0 {
		s.notifier.EventAssigned(ctx, event, input.AssigneeIDs)
	}
	return event, nil
}

// GetEvent retrieves an event visible to the actor. Events outside the
// actor's visibility report not found rather than forbidden.
func (s *CalendarService) GetEvent(ctx context.Context, actor account.Actor, id uint) (*Event, error) {
	event, err := s.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.visibleTo(event, actor) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "event not found", nil, "c8a94d12-6f0b-4e3d-8a57-91bc30e7f246")
	}
	return event, nil
}

// UpdateEventInput represents the input for updating an event.
type UpdateEventInput struct {
	Title         string
	Description   *string
	StartDate     time.Time
	EndDate       time.Time
	IsRecurring   bool
	RecurringRule []byte
	AssigneeIDs   []uint
}

// UpdateEvent replaces an event's fields and assignment set. Only the
// creator may modify an event.
func (s *CalendarService) UpdateEvent(ctx context.Context, actor account.Actor, id uint, input UpdateEventInput) (*Event, error) {
	event, err := s.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.CreatedByID != actor.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the event creator may modify it", nil, "b6e02c58-3a19-4d7f-b482-5c90f1d6a37e")
	}

	previous := make(map[uint]struct{}, len(event.AssigneeIDs))
	for _, aid := range event.AssigneeIDs {
		previous[aid] = struct{}{}
	}

	event.Title = input.Title
	event.Description = input.Description
	event.StartDate = input.StartDate
	event.EndDate = input.EndDate
	event.IsRecurring = input.IsRecurring
	event.RecurringRule = input.RecurringRule
	event.AssigneeIDs = input.AssigneeIDs

	if err := s.validator.ValidateEvent(event); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "event validation failed", err, "e4d71f06-92ab-4c58-b0e3-7a16c85d924b")
	}
	if err := s.checkAssignees(ctx, input.AssigneeIDs); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update event")
	}

	var added []uint
	for _, aid := range input.AssigneeIDs {
		if _, ok := previous[aid]; !ok {
			added = append(added, aid)
		}
	}
	if len(added) > 0 {
		s.notifier.EventAssigned(ctx, event, added)
	}
	return event, nil
}

// DeleteEvent removes an event. Only the creator may delete it.
func (s *CalendarService) DeleteEvent(ctx context.Context, actor account.Actor, id uint) error {
	event, err := s.findEvent(ctx, id)
	if err != nil {
		return err
	}
	if event.CreatedByID != actor.ID {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the event creator may delete it", nil, "2d9f47ac-05be-4681-93cd-6e82a1b05f73")
	}
	if err := s.repo.Delete(ctx, event.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete event")
	}
	return nil
}

// ListOccurrences expands every event visible to the actor across the given
// window, sorted by occurrence start.
func (s *CalendarService) ListOccurrences(ctx context.Context, actor account.Actor, from, to time.Time) ([]Occurrence, error) {
	if err := s.validator.ValidateRange(from, to); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid date range", err, "7a30d5f8-14cb-4e92-a6d0-3b85e9c2471f")
	}

	events, err := s.repo.FindInRange(ctx, from, to)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list events")
	}

	visible := functional.Filter(events, func(ev *Event) bool {
		return s.visibleTo(ev, actor)
	})

	occurrences := ExpandEvents(visible, from, to)
	sort.Slice(occurrences, func(i, j int) bool {
		if !occurrences[i].StartDate.Equal(occurrences[j].StartDate) {
			return occurrences[i].StartDate.Before(occurrences[j].StartDate)
		}
		return occurrences[i].Event.ID < occurrences[j].Event.ID
	})
	return occurrences, nil
}

// OccurrenceCounts returns the number of visible occurrences per calendar
// day inside the window, keyed by YYYY-MM-DD.
func (s *CalendarService) OccurrenceCounts(ctx context.Context, actor account.Actor, from, to time.Time) (map[string]int, error) {
	occurrences, err := s.ListOccurrences(ctx, actor, from, to)
	if err != nil {
		return nil, err
	}
	return CountOccurrencesByDay(occurrences), nil
}

// CountOccurrencesByDay buckets occurrences by the calendar day they start on.
func CountOccurrencesByDay(occurrences []Occurrence) map[string]int {
	counts := make(map[string]int, len(occurrences))
	for _, occ := range occurrences {
		counts[occ.StartDate.Format("2006-01-02")]++
	}
	return counts
}

// visibleTo applies the role scoped visibility rules. Owners see everything,
// other roles see events assigned to them, events they created, and events
// with no assignments at all.
func (s *CalendarService) visibleTo(event *Event, actor account.Actor) bool {
	if actor.Role.SeesAllEvents() {
		return true
	}
	return event.CreatedByID == actor.ID || event.AssignedTo(actor.ID) || event.Public()
}

// findEvent loads an event by id. A missing row maps to a not found error;
// the repository reports it as a nil event without an error.
func (s *CalendarService) findEvent(ctx context.Context, id uint) (*Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load event")
	}
	if event == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "event not found", nil, "f3b8a1c6-27de-49f5-860b-d4e91a7c5328")
	}
	return event, nil
}

// checkAssignees verifies every referenced assignee account exists.
func (s *CalendarService) checkAssignees(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	accounts, err := s.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve assignees")
	}
	found := make(map[uint]struct{}, len(accounts))
	for _, acc := range accounts {
		found[acc.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "assigneeIds", "assignee account does not exist", "91c5e2d7-48fa-4b06-a3d9-60fe2b84c175")
		}
	}
	return nil
}
