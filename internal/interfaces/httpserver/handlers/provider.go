package handlers

import (
	"github.com/rs/zerolog"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/calendar"
	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
	"github.com/quangtuanitmo18/qr-order-server/internal/realtime"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Conversation *ConversationHandler
	Message      *MessageHandler
	Calendar     *CalendarHandler
	WS           *WSHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(
	conversationService *chat.ConversationService,
	messageService *chat.MessageService,
	calendarService *calendar.CalendarService,
	hub *realtime.Hub,
	memberships realtime.Memberships,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Conversation: NewConversationHandler(conversationService, log),
		Message:      NewMessageHandler(messageService, log),
		Calendar:     NewCalendarHandler(calendarService, log),
		WS:           NewWSHandler(hub, memberships, log),
	}
}
