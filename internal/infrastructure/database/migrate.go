package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes for the chat and calendar
// domains.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.Account{},
		&entities.Conversation{},
		&entities.ConversationParticipant{},
		&entities.ConversationPin{},
		&entities.Message{},
		&entities.MessageAttachment{},
		&entities.MessageReaction{},
		&entities.MessageReadReceipt{},
		&entities.CalendarEvent{},
		&entities.CalendarEventAssignment{},
	); err != nil {
		return err
	}

	log.Info().Msg("database schema up to date")
	return nil
}
