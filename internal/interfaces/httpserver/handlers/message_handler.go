package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/metrics"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/observability"
	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver/requests"
	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver/responses"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// MessageHandler exposes HTTP entrypoints for messages, reactions and read
// receipts.
type MessageHandler struct {
	service *chat.MessageService
	log     zerolog.Logger
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(service *chat.MessageService, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		log:     log.With().Str("handler", "message").Logger(),
	}
}

// Send handles POST /v1/conversations/:conversation_id/messages
func (h *MessageHandler) Send(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	conversationID, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}

	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "e83b61a5-0f29-4d74-bc18-62d90a4f7c35")
		return
	}

	input := chat.SendMessageInput{
		ConversationID: conversationID,
		Content:        req.Content,
		Type:           chat.MessageType(req.Type),
		ReplyToID:      req.ReplyToID,
	}
	for _, a := range req.Attachments {
		input.Attachments = append(input.Attachments, chat.AttachmentInput{
			URL:      a.URL,
			Name:     a.Name,
			Size:     a.Size,
			MimeType: a.MimeType,
		})
	}

	ctx, span := observability.StartSendSpan(c.Request.Context(), conversationID)
	msg, err := h.service.SendMessage(ctx, actor, input)
	if err != nil {
		observability.RecordError(span, err)
		span.End()
		responses.HandleError(c, err, "failed to send message")
		return
	}
	span.End()

	metrics.RecordMessageSent(string(msg.Type))
	c.JSON(http.StatusCreated, responses.FromMessage(msg))
}

// List handles GET /v1/conversations/:conversation_id/messages
func (h *MessageHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	conversationID, ok := uintParam(c, "conversation_id")
	if !ok {
		return
	}

	var query requests.ListMessagesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid query parameters", "471c29e8-b63d-4a05-97f2-d80e13c5a6b9")
		return
	}

	page, err := h.service.ListMessages(c.Request.Context(), actor, conversationID, query.Before, query.Limit)
	if err != nil {
		responses.HandleError(c, err, "failed to list messages")
		return
	}

	c.JSON(http.StatusOK, responses.FromMessagePage(page))
}

// Edit handles PUT /v1/messages/:message_id
func (h *MessageHandler) Edit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	messageID, ok := uintParam(c, "message_id")
	if !ok {
		return
	}

	var req requests.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "90dfe2b4-17c8-46a3-85d0-3b6a92c1e748")
		return
	}

	msg, err := h.service.EditMessage(c.Request.Context(), actor, messageID, req.Content)
	if err != nil {
		responses.HandleError(c, err, "failed to edit message")
		return
	}

	c.JSON(http.StatusOK, responses.FromMessage(msg))
}

// Delete handles DELETE /v1/messages/:message_id
func (h *MessageHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	messageID, ok := uintParam(c, "message_id")
	if !ok {
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), actor, messageID); err != nil {
		responses.HandleError(c, err, "failed to delete message")
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkRead handles POST /v1/messages/:message_id/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	messageID, ok := uintParam(c, "message_id")
	if !ok {
		return
	}

	receipt, err := h.service.MarkRead(c.Request.Context(), actor, messageID)
	if err != nil {
		responses.HandleError(c, err, "failed to mark message read")
		return
	}

	c.JSON(http.StatusOK, responses.FromReadReceipt(receipt))
}

// AddReaction handles POST /v1/messages/:message_id/reactions
func (h *MessageHandler) AddReaction(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	messageID, ok := uintParam(c, "message_id")
	if !ok {
		return
	}

	var req requests.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "b2048c7d-5e91-4f36-a8d2-70c3e59d16fa")
		return
	}

	if err := h.service.AddReaction(c.Request.Context(), actor, messageID, req.Emoji); err != nil {
		responses.HandleError(c, err, "failed to add reaction")
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveReaction handles DELETE /v1/messages/:message_id/reactions
func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	messageID, ok := uintParam(c, "message_id")
	if !ok {
		return
	}

	var req requests.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "63f1a08c-29d4-45e7-b9a1-8e52c07d34f6")
		return
	}

	if _, err := h.service.RemoveReaction(c.Request.Context(), actor, messageID, req.Emoji); err != nil {
		responses.HandleError(c, err, "failed to remove reaction")
		return
	}

	c.Status(http.StatusNoContent)
}

// Search handles GET /v1/messages/search
func (h *MessageHandler) Search(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var query requests.SearchMessagesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid query parameters", "15da74e9-38b0-42c6-9f5d-c27e60a81b34")
		return
	}

	messages, total, err := h.service.SearchMessages(c.Request.Context(), actor, chat.SearchMessagesFilter{
		AccountID:      actor.ID,
		Query:          query.Query,
		ConversationID: query.ConversationID,
		Page:           query.Page,
		Limit:          query.Limit,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to search messages")
		return
	}

	payloads := make([]responses.MessagePayload, 0, len(messages))
	for _, msg := range messages {
		payloads = append(payloads, responses.FromMessage(msg))
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": payloads,
		"meta": responses.ListMeta{
			Total: total,
			Page:  query.Page,
			Limit: query.Limit,
		},
	})
}
