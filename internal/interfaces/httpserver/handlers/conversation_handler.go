package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/auth"
	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver/requests"
	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver/responses"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// ConversationHandler exposes HTTP entrypoints for conversations.
type ConversationHandler struct {
	service *chat.ConversationService
	log     zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(service *chat.ConversationService, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		log:     log.With().Str("handler", "conversation").Logger(),
	}
}

// Create handles POST /v1/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req requests.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "c4a90f1e-7d26-4583-b1c9-e06d84f2a357")
		return
	}

	conv, err := h.service.CreateConversation(c.Request.Context(), actor, chat.CreateConversationInput{
		Type:           chat.ConversationType(req.Type),
		Name:           req.Name,
		Avatar:         req.Avatar,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to create conversation")
		return
	}

	c.JSON(http.StatusCreated, responses.FromConversation(conv))
}

// List handles GET /v1/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var query requests.ListConversationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid query parameters", "5b72e8d0-31fc-49a6-bd45-9a08c1e67f23")
		return
	}

	filter := chat.ListConversationsFilter{
		AccountID: actor.ID,
		Search:    query.Search,
		SortBy:    chat.ConversationSort(query.SortBy),
		SortDesc:  query.Order != "asc",
		Page:      query.Page,
		Limit:     query.Limit,
	}
	if query.Type != nil {
		convType := chat.ConversationType(*query.Type)
		filter.Type = &convType
	}

	summaries, total, err := h.service.ListConversations(c.Request.Context(), actor, filter)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	payloads := make([]responses.ConversationSummaryPayload, 0, len(summaries))
	for _, summary := range summaries {
		payloads = append(payloads, responses.FromConversationSummary(summary))
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": payloads,
		"meta": responses.ListMeta{
			Total: total,
			Page:  query.Page,
			Limit: query.Limit,
		},
	})
}

// Get handles GET /v1/conversations/:conversation_id
func (h *ConversationHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}

	conv, err := h.service.GetConversation(c.Request.Context(), actor, id)
	if err != nil {
		responses.HandleError(c, err, "failed to get conversation")
		return
	}

	c.JSON(http.StatusOK, responses.FromConversation(conv))
}

// Update handles PUT /v1/conversations/:conversation_id
func (h *ConversationHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}

	var req requests.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "8f30ad6b-2c57-4e91-a84d-f165c09b3e72")
		return
	}

	conv, err := h.service.UpdateConversation(c.Request.Context(), actor, id, chat.UpdateConversationInput{
		Name:   req.Name,
		Avatar: req.Avatar,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to update conversation")
		return
	}

	c.JSON(http.StatusOK, responses.FromConversation(conv))
}

// Delete handles DELETE /v1/conversations/:conversation_id
func (h *ConversationHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}

	if err := h.service.DeleteConversation(c.Request.Context(), actor, id); err != nil {
		responses.HandleError(c, err, "failed to delete conversation")
		return
	}

	c.Status(http.StatusNoContent)
}

// AddParticipants handles POST /v1/conversations/:conversation_id/participants
func (h *ConversationHandler) AddParticipants(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}

	var req requests.AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "d1e84f29-65b0-4c73-92af-38c5d07b1e64")
		return
	}

	conv, err := h.service.AddParticipants(c.Request.Context(), actor, id, req.ParticipantIDs)
	if err != nil {
		responses.HandleError(c, err, "failed to add participants")
		return
	}

	c.JSON(http.StatusOK, responses.FromConversation(conv))
}

// RemoveParticipant handles DELETE /v1/conversations/:conversation_id/participants/:account_id
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}
	accountID, ok := uintParam(c, "account_id")
	if !ok {
		return
	}

	if err := h.service.RemoveParticipant(c.Request.Context(), actor, id, accountID); err != nil {
		responses.HandleError(c, err, "failed to remove participant")
		return
	}

	c.Status(http.StatusNoContent)
}

// Pin handles POST /v1/conversations/:conversation_id/pin
func (h *ConversationHandler) Pin(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}

	if err := h.service.PinConversation(c.Request.Context(), actor, id); err != nil {
		responses.HandleError(c, err, "failed to pin conversation")
		return
	}

	c.Status(http.StatusNoContent)
}

// Unpin handles DELETE /v1/conversations/:conversation_id/pin
func (h *ConversationHandler) Unpin(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}

	if err := h.service.UnpinConversation(c.Request.Context(), actor, id); err != nil {
		responses.HandleError(c, err, "failed to unpin conversation")
		return
	}

	c.Status(http.StatusNoContent)
}

// Mute handles PUT /v1/conversations/:conversation_id/mute
func (h *ConversationHandler) Mute(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}

	var req requests.MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "72c05b9e-4d18-4f6a-b3e7-a9f21d08c546")
		return
	}

	if err := h.service.SetMuted(c.Request.Context(), actor, id, req.Muted); err != nil {
		responses.HandleError(c, err, "failed to update mute state")
		return
	}

	c.Status(http.StatusNoContent)
}

// currentActor pulls the authenticated actor set by the auth middleware.
func currentActor(c *gin.Context) (account.Actor, bool) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "not authenticated", "09e61b3d-84cf-4a25-b7d0-5f38a2c96e17")
		return account.Actor{}, false
	}
	return actor, true
}

// uintParam parses a numeric path parameter.
func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid "+name, "ba2757f0-9c41-4e86-8d3a-17e09c5b24f8")
		return 0, false
	}
	return uint(id), true
}
