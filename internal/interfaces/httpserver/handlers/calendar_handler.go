package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/calendar"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/metrics"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/observability"
	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver/requests"
	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver/responses"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// CalendarHandler exposes HTTP entrypoints for calendar events and their
// occurrence expansion.
type CalendarHandler struct {
	service *calendar.CalendarService
	log     zerolog.Logger
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(service *calendar.CalendarService, log zerolog.Logger) *CalendarHandler {
	return &CalendarHandler{
		service: service,
		log:     log.With().Str("handler", "calendar").Logger(),
	}
}

// Create handles POST /v1/calendar/events
func (h *CalendarHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req requests.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "f7c2d189-40ae-4b65-93d8-e51a06b72c94")
		return
	}

	rule, ok := marshalRule(c, req.RecurringRule)
	if !ok {
		return
	}

	event, err := h.service.CreateEvent(c.Request.Context(), actor, calendar.CreateEventInput{
		Title:         req.Title,
		Description:   req.Description,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		IsRecurring:   req.IsRecurring,
		RecurringRule: rule,
		AssigneeIDs:   req.AssigneeIDs,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to create event")
		return
	}

	c.JSON(http.StatusCreated, responses.FromEvent(event))
}

// Get handles GET /v1/calendar/events/:event_id
func (h *CalendarHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "event_id")
	if !ok {
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), actor, id)
	if err != nil {
		responses.HandleError(c, err, "failed to get event")
		return
	}

	c.JSON(http.StatusOK, responses.FromEvent(event))
}

// Update handles PUT /v1/calendar/events/:event_id
func (h *CalendarHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "event_id")
	if !ok {
		return
	}

	var req requests.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "2d94c07e-61b5-4fa8-8c23-b70e1d85f346")
		return
	}

	rule, ok := marshalRule(c, req.RecurringRule)
	if !ok {
		return
	}

	event, err := h.service.UpdateEvent(c.Request.Context(), actor, id, calendar.UpdateEventInput{
		Title:         req.Title,
		Description:   req.Description,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		IsRecurring:   req.IsRecurring,
		RecurringRule: rule,
		AssigneeIDs:   req.AssigneeIDs,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to update event")
		return
	}

	c.JSON(http.StatusOK, responses.FromEvent(event))
}

// Delete handles DELETE /v1/calendar/events/:event_id
func (h *CalendarHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "event_id")
	if !ok {
		return
	}

	if err := h.service.DeleteEvent(c.Request.Context(), actor, id); err != nil {
		responses.HandleError(c, err, "failed to delete event")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListOccurrences handles GET /v1/calendar/occurrences
func (h *CalendarHandler) ListOccurrences(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var query requests.RangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid query parameters", "a05e83d1-49c7-4b62-b8f0-36d12e97c584")
		return
	}

	ctx, span := observability.StartExpansionSpan(c.Request.Context(), query.From.Format(time.RFC3339), query.To.Format(time.RFC3339))
	started := time.Now()
	occurrences, err := h.service.ListOccurrences(ctx, actor, query.From, query.To)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		responses.HandleError(c, err, "failed to list occurrences")
		return
	}
	span.End()
	metrics.OccurrenceExpansionDuration.Observe(time.Since(started).Seconds())

	c.JSON(http.StatusOK, gin.H{"occurrences": responses.FromOccurrences(occurrences)})
}

// CountOccurrences handles GET /v1/calendar/occurrences/counts
func (h *CalendarHandler) CountOccurrences(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var query requests.RangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid query parameters", "e91d0b47-25f8-4c36-a07d-84b3c6f15a29")
		return
	}

	counts, err := h.service.OccurrenceCounts(c.Request.Context(), actor, query.From, query.To)
	if err != nil {
		responses.HandleError(c, err, "failed to count occurrences")
		return
	}

	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// marshalRule re-encodes the request rule for storage. Validation of the
// rule's content happens in the service.
func marshalRule(c *gin.Context, rule *requests.RecurringRule) ([]byte, bool) {
	if rule == nil {
		return nil, true
	}
	encoded, err := json.Marshal(rule)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid recurring rule", "7b3f92e0-d815-4a67-bc49-50e26d18f7a3")
		return nil, false
	}
	return encoded, true
}
