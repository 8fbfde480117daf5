package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/entities"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/transaction"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// MessageRepository persists messages, reactions and read receipts.
type MessageRepository struct {
	txDB *transaction.Database
}

// NewMessageRepository builds a message repository.
func NewMessageRepository(txDB *transaction.Database) *MessageRepository {
	return &MessageRepository{txDB: txDB}
}

var _ chat.MessageRepository = (*MessageRepository)(nil)

// Create inserts the message and its attachment rows in one transaction.
func (r *MessageRepository) Create(ctx context.Context, msg *chat.Message) error {
	entity := entities.NewSchemaMessage(msg)
	if err := r.txDB.GetDB(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create message",
			err,
			"f30c82a6-15de-4b94-a7c0-68d1e5b2f943",
		)
	}

	msg.ID = entity.ID
	msg.CreatedAt = entity.CreatedAt
	msg.UpdatedAt = entity.UpdatedAt
	for i := range entity.Attachments {
		msg.Attachments[i].ID = entity.Attachments[i].ID
		msg.Attachments[i].MessageID = entity.ID
	}
	return nil
}

// FindVisibleByID fetches a message the viewer may see, or nil. The soft
// delete rule is part of the query.
func (r *MessageRepository) FindVisibleByID(ctx context.Context, id, viewerID uint) (*chat.Message, error) {
	var entity entities.Message
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Preload("Sender").
		Preload("Attachments").
		Preload("Reactions.Account").
		Preload("ReplyTo").
		Where("id = ? AND (is_deleted = false OR sender_id = ?)", id, viewerID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch message",
			err,
			"85d1f4c0-3a7e-4629-b8d5-02c9e6a5f1b7",
		)
	}
	return entity.EtoD(), nil
}

// Update persists the mutable message fields.
func (r *MessageRepository) Update(ctx context.Context, msg *chat.Message) error {
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.Message{}).
		Where("id = ?", msg.ID).
		Updates(map[string]any{
			"content":    msg.Content,
			"is_edited":  msg.IsEdited,
			"is_deleted": msg.IsDeleted,
		}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update message",
			err,
			"4c97a2e5-d08b-4f61-93a4-7e250d6c8bf1",
		)
	}
	return nil
}

// FindPageRows fetches up to limit+1 visible messages newest first, strictly
// older than before when a cursor is given. The extra row lets the caller
// detect further history.
func (r *MessageRepository) FindPageRows(ctx context.Context, conversationID, viewerID uint, before *time.Time, limit int) ([]*chat.Message, error) {
	query := r.txDB.GetDB(ctx).WithContext(ctx).
		Preload("Sender").
		Preload("Attachments").
		Preload("Reactions.Account").
		Preload("ReplyTo").
		Where("conversation_id = ? AND (is_deleted = false OR sender_id = ?)", conversationID, viewerID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var rows []entities.Message
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to page messages",
			err,
			"b61e50d9-27cf-4a83-96e1-d48a03c5f762",
		)
	}

	messages := make([]*chat.Message, len(rows))
	for i := range rows {
		messages[i] = rows[i].EtoD()
	}
	return messages, nil
}

// LatestVisible returns the newest non deleted message per conversation in
// one query, keyed by conversation id.
func (r *MessageRepository) LatestVisible(ctx context.Context, conversationIDs []uint) (map[uint]*chat.Message, error) {
	var rows []entities.Message
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Preload("Sender").
		Preload("Attachments").
		Where(`id IN (
			SELECT DISTINCT ON (conversation_id) id FROM messages
			WHERE conversation_id IN ? AND is_deleted = false
			ORDER BY conversation_id, created_at DESC, id DESC
		)`, conversationIDs).
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to load latest messages",
			err,
			"0da86f21-4e95-4c07-b3a8-51f2c6d0e849",
		)
	}

	out := make(map[uint]*chat.Message, len(rows))
	for i := range rows {
		out[rows[i].ConversationID] = rows[i].EtoD()
	}
	return out, nil
}

// StampsForUnread fetches the minimal projection used to aggregate unread
// counts for a whole page of conversations in one pass.
func (r *MessageRepository) StampsForUnread(ctx context.Context, conversationIDs []uint, accountID uint, after *time.Time) ([]chat.MessageStamp, error) {
	query := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.Message{}).
		Select("conversation_id", "sender_id", "created_at").
		Where("conversation_id IN ? AND sender_id <> ? AND is_deleted = false", conversationIDs, accountID)
	if after != nil {
		query = query.Where("created_at > ?", *after)
	}

	var stamps []chat.MessageStamp
	if err := query.Scan(&stamps).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to load unread candidates",
			err,
			"c25f90b4-7d1a-4e68-82c5-3a90d6e1f507",
		)
	}
	return stamps, nil
}

// Search matches message content case-insensitively across the account's
// conversations, newest first, excluding deleted messages.
func (r *MessageRepository) Search(ctx context.Context, filter chat.SearchMessagesFilter) ([]*chat.Message, int64, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Query)) + "%"
	query := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.Message{}).
		Joins("JOIN conversation_participants membership ON membership.conversation_id = messages.conversation_id AND membership.account_id = ?", filter.AccountID).
		Where("messages.is_deleted = false AND LOWER(messages.content) LIKE ?", pattern)
	if filter.ConversationID != nil {
		query = query.Where("messages.conversation_id = ?", *filter.ConversationID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count search results",
			err,
			"97a0c5d2-e38f-4b16-8d72-60b4e1a2f593",
		)
	}

	var rows []entities.Message
	err := query.
		Order("messages.created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit).
		Preload("Sender").
		Preload("Attachments").
		Find(&rows).Error
	if err != nil {
		return nil, 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to search messages",
			err,
			"1e64b0f8-52ad-4c93-b7e0-d96c38a5f214",
		)
	}

	messages := make([]*chat.Message, len(rows))
	for i := range rows {
		messages[i] = rows[i].EtoD()
	}
	return messages, total, nil
}

// AddReaction inserts the reaction triple. A conflicting identical row is
// left untouched, making re-adds no-op successes.
func (r *MessageRepository) AddReaction(ctx context.Context, reaction *chat.Reaction) error {
	row := entities.MessageReaction{
		MessageID: reaction.MessageID,
		AccountID: reaction.AccountID,
		Emoji:     reaction.Emoji,
	}
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "account_id"}, {Name: "emoji"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to add reaction",
			err,
			"ad52e871-06cf-4d39-b1a4-8e60c2d5f790",
		)
	}
	return nil
}

// RemoveReaction deletes the triple, reporting whether a row existed.
func (r *MessageRepository) RemoveReaction(ctx context.Context, messageID, accountID uint, emoji string) (bool, error) {
	result := r.txDB.GetDB(ctx).WithContext(ctx).
		Where("message_id = ? AND account_id = ? AND emoji = ?", messageID, accountID, emoji).
		Delete(&entities.MessageReaction{})
	if result.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to remove reaction",
			result.Error,
			"38c6d9e0-f17b-4a52-96d8-c04e2a7b5f18",
		)
	}
	return result.RowsAffected > 0, nil
}

// UpsertReceipt inserts or refreshes the (message, account) receipt with the
// latest readAt. Last write wins.
func (r *MessageRepository) UpsertReceipt(ctx context.Context, receipt *chat.ReadReceipt) error {
	row := entities.MessageReadReceipt{
		MessageID: receipt.MessageID,
		AccountID: receipt.AccountID,
		ReadAt:    receipt.ReadAt,
	}
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"read_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to upsert receipt",
			err,
			"5f90a3c7-2d84-4e61-b0f9-8a16d5c2e473",
		)
	}
	return nil
}
