package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver/handlers"
)

func registerChatRoutes(group *gin.RouterGroup, conversation *handlers.ConversationHandler, message *handlers.MessageHandler) {
	conversations := group.Group("/conversations")
	{
		conversations.POST("", conversation.Create)
		conversations.GET("", conversation.List)
		conversations.GET("/:conversation_id", conversation.Get)
		conversations.PUT("/:conversation_id", conversation.Update)
		conversations.DELETE("/:conversation_id", conversation.Delete)

		conversations.POST("/:conversation_id/participants", conversation.AddParticipants)
		conversations.DELETE("/:conversation_id/participants/:account_id", conversation.RemoveParticipant)

		conversations.POST("/:conversation_id/pin", conversation.Pin)
		conversations.DELETE("/:conversation_id/pin", conversation.Unpin)
		conversations.PUT("/:conversation_id/mute", conversation.Mute)

		conversations.POST("/:conversation_id/messages", message.Send)
		conversations.GET("/:conversation_id/messages", message.List)
	}

	messages := group.Group("/messages")
	{
		messages.GET("/search", message.Search)
		messages.PUT("/:message_id", message.Edit)
		messages.DELETE("/:message_id", message.Delete)
		messages.POST("/:message_id/read", message.MarkRead)
		messages.POST("/:message_id/reactions", message.AddReaction)
		messages.DELETE("/:message_id/reactions", message.RemoveReaction)
	}
}
