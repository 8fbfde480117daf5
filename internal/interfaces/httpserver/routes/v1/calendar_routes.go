package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver/handlers"
)

func registerCalendarRoutes(group *gin.RouterGroup, calendar *handlers.CalendarHandler) {
	events := group.Group("/calendar/events")
	{
		events.POST("", calendar.Create)
		events.GET("/:event_id", calendar.Get)
		events.PUT("/:event_id", calendar.Update)
		events.DELETE("/:event_id", calendar.Delete)
	}

	occurrences := group.Group("/calendar/occurrences")
	{
		occurrences.GET("", calendar.ListOccurrences)
		occurrences.GET("/counts", calendar.CountOccurrences)
	}
}
