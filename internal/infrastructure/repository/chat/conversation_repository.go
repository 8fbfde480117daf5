package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/entities"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/transaction"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// ConversationRepository persists conversations, membership and pin state.
type ConversationRepository struct {
	txDB *transaction.Database
}

// NewConversationRepository builds a conversation repository.
func NewConversationRepository(txDB *transaction.Database) *ConversationRepository {
	return &ConversationRepository{txDB: txDB}
}

var _ chat.ConversationRepository = (*ConversationRepository)(nil)

// Create inserts the conversation row and one participant row per member in
// a single transaction.
func (r *ConversationRepository) Create(ctx context.Context, conv *chat.Conversation, participantIDs []uint) error {
	entity := entities.NewSchemaConversation(conv)

	err := r.txDB.Transaction(ctx, func(txCtx context.Context) error {
		tx := r.txDB.GetDB(txCtx)
		if err := tx.WithContext(txCtx).Create(entity).Error; err != nil {
			return err
		}
		participants := make([]entities.ConversationParticipant, len(participantIDs))
		for i, accountID := range participantIDs {
			participants[i] = entities.ConversationParticipant{
				ConversationID: entity.ID,
				AccountID:      accountID,
			}
		}
		return tx.WithContext(txCtx).Create(&participants).Error
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create conversation",
			err,
			"7a2e94c1-d60b-4f38-8a5d-13c6e0b9f247",
		)
	}

	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	for _, accountID := range participantIDs {
		conv.Participants = append(conv.Participants, chat.Participant{
			ConversationID: entity.ID,
			AccountID:      accountID,
		})
	}
	return nil
}

// FindByID fetches a conversation with its participants, or nil.
func (r *ConversationRepository) FindByID(ctx context.Context, id uint) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Preload("Participants.Account").
		First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch conversation",
			err,
			"d418c7f2-9e05-4b6a-83d1-570fa2c6e9b4",
		)
	}
	return entity.EtoD(), nil
}

// FindDirectBetween fetches the direct conversation whose two participants
// are exactly the given accounts, or nil.
func (r *ConversationRepository) FindDirectBetween(ctx context.Context, accountA, accountB uint) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Joins("JOIN conversation_participants cp_a ON cp_a.conversation_id = conversations.id AND cp_a.account_id = ?", accountA).
		Joins("JOIN conversation_participants cp_b ON cp_b.conversation_id = conversations.id AND cp_b.account_id = ?", accountB).
		Where("conversations.type = ?", string(chat.ConversationDirect)).
		Preload("Participants.Account").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to look up direct conversation",
			err,
			"09b3f6d8-24ae-4c51-b7e0-86d29c5a1f43",
		)
	}
	return entity.EtoD(), nil
}

// FindForAccount lists conversations the account participates in, optionally
// filtered by type and a case-insensitive search over conversation names and
// the other participants' names.
func (r *ConversationRepository) FindForAccount(ctx context.Context, filter chat.ListConversationsFilter) ([]*chat.Conversation, int64, error) {
	query := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.Conversation{}).
		Joins("JOIN conversation_participants membership ON membership.conversation_id = conversations.id AND membership.account_id = ?", filter.AccountID)

	if filter.Type != nil {
		query = query.Where("conversations.type = ?", string(*filter.Type))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			`LOWER(COALESCE(conversations.name, '')) LIKE ? OR EXISTS (
				SELECT 1 FROM conversation_participants cp
				JOIN accounts a ON a.id = cp.account_id
				WHERE cp.conversation_id = conversations.id
				  AND cp.account_id <> ?
				  AND LOWER(a.name) LIKE ?
			)`, pattern, filter.AccountID, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count conversations",
			err,
			"e58d01f7-3c2b-4a69-9d84-b06f5e7a21c3",
		)
	}

	column := "conversations.updated_at"
	if filter.SortBy == chat.SortByCreatedAt {
		column = "conversations.created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	var rows []entities.Conversation
	err := query.
		Order(fmt.Sprintf("%s %s", column, direction)).
		Offset(filter.Offset()).
		Limit(filter.Limit).
		Preload("Participants.Account").
		Find(&rows).Error
	if err != nil {
		return nil, 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list conversations",
			err,
			"3f71a0d5-8b4e-4c92-a6f3-d25c80e1b769",
		)
	}

	conversations := make([]*chat.Conversation, len(rows))
	for i := range rows {
		conversations[i] = rows[i].EtoD()
	}
	return conversations, total, nil
}

// UpdateDetails persists name and avatar changes.
func (r *ConversationRepository) UpdateDetails(ctx context.Context, id uint, name, avatar *string) error {
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "avatar": avatar}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update conversation",
			err,
			"b924e6c0-57df-4a18-b3e9-0c61f8d5a274",
		)
	}
	return nil
}

// Touch bumps the conversation's updatedAt.
func (r *ConversationRepository) Touch(ctx context.Context, id uint, at time.Time) error {
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to touch conversation",
			err,
			"61c0d8f3-a2b5-4e97-8d40-f92e5a1c76b8",
		)
	}
	return nil
}

// Delete removes the conversation and everything hanging off it: messages
// with their attachments, reactions and receipts, plus participants and
// pins. All rows go in one transaction.
func (r *ConversationRepository) Delete(ctx context.Context, id uint) error {
	err := r.txDB.Transaction(ctx, func(txCtx context.Context) error {
		tx := r.txDB.GetDB(txCtx).WithContext(txCtx)
		messageIDs := tx.Session(&gorm.Session{NewDB: true}).
			Model(&entities.Message{}).
			Select("id").
			Where("conversation_id = ?", id)

		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&entities.MessageReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&entities.MessageReadReceipt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&entities.MessageAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&entities.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&entities.ConversationPin{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&entities.ConversationParticipant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Conversation{}, id).Error
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete conversation",
			err,
			"8d35f1a9-60cb-4e72-95d8-2a40c7e6b1f5",
		)
	}
	return nil
}

// IsParticipant reports current membership.
func (r *ConversationRepository) IsParticipant(ctx context.Context, conversationID, accountID uint) (bool, error) {
	var count int64
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ? AND account_id = ?", conversationID, accountID).
		Count(&count).Error
	if err != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to check membership",
			err,
			"cf62b8d4-19e0-4a35-b7c2-64d90f5e8a13",
		)
	}
	return count > 0, nil
}

// CountParticipants returns the current member count.
func (r *ConversationRepository) CountParticipants(ctx context.Context, conversationID uint) (int64, error) {
	var count int64
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count participants",
			err,
			"40a7d2e9-c51f-4b86-a0d3-97e2c6b5f481",
		)
	}
	return count, nil
}

// AddParticipants inserts membership rows, silently skipping accounts that
// are already members.
func (r *ConversationRepository) AddParticipants(ctx context.Context, conversationID uint, accountIDs []uint) error {
	rows := make([]entities.ConversationParticipant, len(accountIDs))
	for i, accountID := range accountIDs {
		rows[i] = entities.ConversationParticipant{
			ConversationID: conversationID,
			AccountID:      accountID,
		}
	}
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "account_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to add participants",
			err,
			"a6e13f58-02d9-4c47-8b60-d5f29a7c04e1",
		)
	}
	return nil
}

// RemoveParticipant deletes one membership row.
func (r *ConversationRepository) RemoveParticipant(ctx context.Context, conversationID, accountID uint) error {
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Where("conversation_id = ? AND account_id = ?", conversationID, accountID).
		Delete(&entities.ConversationParticipant{}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to remove participant",
			err,
			"5b08c4f1-e76a-4d92-b358-1c9d60e2a7f4",
		)
	}
	return nil
}

// SetMuted flips the participant's own mute flag.
func (r *ConversationRepository) SetMuted(ctx context.Context, conversationID, accountID uint, muted bool) error {
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ? AND account_id = ?", conversationID, accountID).
		Update("is_muted", muted).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update mute flag",
			err,
			"92d5a0c7-48fb-4e13-a6d9-e07c2b5f8164",
		)
	}
	return nil
}

// AdvanceLastRead moves lastReadAt forward only. The guard in the WHERE
// clause makes concurrent markers safe: the newest timestamp wins.
func (r *ConversationRepository) AdvanceLastRead(ctx context.Context, conversationID, accountID uint, at time.Time) error {
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ? AND account_id = ?", conversationID, accountID).
		Where("last_read_at IS NULL OR last_read_at < ?", at).
		Update("last_read_at", at).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to advance read marker",
			err,
			"6e81d3c5-f94a-4207-b6e8-3d50a2c7f916",
		)
	}
	return nil
}

// LastReadTimes returns lastReadAt per conversation for the account.
func (r *ConversationRepository) LastReadTimes(ctx context.Context, conversationIDs []uint, accountID uint) (map[uint]*time.Time, error) {
	var rows []entities.ConversationParticipant
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Select("conversation_id", "last_read_at").
		Where("conversation_id IN ? AND account_id = ?", conversationIDs, accountID).
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to load read markers",
			err,
			"17f4c8a2-d05e-4b61-93f7-a8d20c6e5b39",
		)
	}
	out := make(map[uint]*time.Time, len(rows))
	for _, row := range rows {
		out[row.ConversationID] = row.LastReadAt
	}
	return out, nil
}

// Pin upserts the pin row, refreshing pinnedAt on re-pin.
func (r *ConversationRepository) Pin(ctx context.Context, conversationID, accountID uint) error {
	row := entities.ConversationPin{
		ConversationID: conversationID,
		AccountID:      accountID,
		PinnedAt:       time.Now(),
	}
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"pinned_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to pin conversation",
			err,
			"e03b7d95-62af-4c18-8e54-90c1f6a2d7b3",
		)
	}
	return nil
}

// Unpin deletes the pin row, reporting whether one existed.
func (r *ConversationRepository) Unpin(ctx context.Context, conversationID, accountID uint) (bool, error) {
	result := r.txDB.GetDB(ctx).WithContext(ctx).
		Where("conversation_id = ? AND account_id = ?", conversationID, accountID).
		Delete(&entities.ConversationPin{})
	if result.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to unpin conversation",
			result.Error,
			"74c2e0b8-9f51-4da6-b3c7-25e8d1a0f694",
		)
	}
	return result.RowsAffected > 0, nil
}

// FindPins returns the account's pins among the given conversations.
func (r *ConversationRepository) FindPins(ctx context.Context, accountID uint, conversationIDs []uint) ([]*chat.Pin, error) {
	var rows []entities.ConversationPin
	err := r.txDB.GetDB(ctx).WithContext(ctx).
		Where("account_id = ? AND conversation_id IN ?", accountID, conversationIDs).
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to load pins",
			err,
			"2a9f65d0-8c3e-4b71-a2d8-06e5c4b1f983",
		)
	}
	pins := make([]*chat.Pin, len(rows))
	for i := range rows {
		pins[i] = rows[i].EtoD()
	}
	return pins, nil
}
