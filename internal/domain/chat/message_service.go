package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// MessageService handles business logic for messages, reactions and read
// receipts, and emits room broadcasts after each mutation.
type MessageService struct {
	messages      MessageRepository
	conversations ConversationRepository
	broadcaster   Broadcaster
	validator     *ChatValidator
	now           func() time.Time
}

// NewMessageService creates a new message service. The broadcaster is the
// injected room fan-out capability; pass NopBroadcaster{} when no transport
// is attached.
func NewMessageService(messages MessageRepository, conversations ConversationRepository, broadcaster Broadcaster) *MessageService {
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		broadcaster:   broadcaster,
		validator:     NewChatValidator(nil), // Use default config
		now:           time.Now,
	}
}

// NewMessageServiceWithConfig creates a message service with custom policy
// limits.
func NewMessageServiceWithConfig(messages MessageRepository, conversations ConversationRepository, broadcaster Broadcaster, config *ChatValidatorConfig) *MessageService {
	service := NewMessageService(messages, conversations, broadcaster)
	service.validator = NewChatValidator(config)
	return service
}

// AttachmentInput describes one uploaded file accompanying a message.
type AttachmentInput struct {
	URL      string
	Name     string
	Size     int64
	MimeType string
}

// SendMessageInput represents the input for sending a message.
type SendMessageInput struct {
	ConversationID uint
	Content        string
	Type           MessageType
	ReplyToID      *uint
	Attachments    []AttachmentInput
}

// SendMessage creates a message, bumps the conversation's updatedAt and
// broadcasts new-message to the room. A message needs trimmed content, an
// attachment, or both.
func (s *MessageService) SendMessage(ctx context.Context, actor account.Actor, input SendMessageInput) (*Message, error) {
	if err := s.requireParticipant(ctx, actor, input.ConversationID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(input.Content)
	if content == "" && len(input.Attachments) == 0 {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "content", "a message needs content or an attachment", "82f4d1c7-3a09-4e65-b8d2-60c5e97a14fb")
	}
	if err := s.validator.ValidateContent(content); err != nil {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "content", err.Error(), "cd28a650-97e3-4f41-8b06-1d5a3c9e72b8")
	}
	if input.ReplyToID != nil {
		parent, err := s.messages.FindVisibleByID(ctx, *input.ReplyToID, actor.ID)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load replied message")
		}
		if parent == nil || parent.ConversationID != input.ConversationID {
			return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "replyToId", "replied message not found in this conversation", "5b90e3d8-26cf-4a17-94e0-8f72a1c6d534")
		}
	}

	msgType := input.Type
	if msgType == "" {
		msgType = MessageText
	}
	msg := &Message{
		ConversationID: input.ConversationID,
		SenderID:       actor.ID,
		Content:        content,
		Type:           msgType,
		ReplyToID:      input.ReplyToID,
	}
	for _, att := range input.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{
			URL:      att.URL,
			Name:     att.Name,
			Size:     att.Size,
			MimeType: att.MimeType,
		})
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to send message")
	}

	// Bumping updatedAt is a side effect of sending, not atomic with the
	// insert. A lost bump only affects list ordering.
	if err := s.conversations.Touch(ctx, input.ConversationID, s.now()); err != nil {
		log.Warn().Err(err).Uint("conversation_id", input.ConversationID).Msg("failed to bump conversation updatedAt")
	}

	s.broadcaster.Broadcast(msg.ConversationID, EventNewMessage, MessageEventPayload{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Message:        msg,
	})
	return msg, nil
}

// ListMessages returns one ascending page of the conversation's messages,
// ending before the cursor when one is given.
func (s *MessageService) ListMessages(ctx context.Context, actor account.Actor, conversationID uint, before *time.Time, limit int) (*MessagePage, error) {
	if err := s.requireParticipant(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.messages.FindPageRows(ctx, conversationID, actor.ID, before, limit)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list messages")
	}
	return BuildMessagePage(rows, limit), nil
}

// EditMessage replaces a message's content. Only the sender may edit, and
// the edited flag is set permanently.
func (s *MessageService) EditMessage(ctx context.Context, actor account.Actor, messageID uint, content string) (*Message, error) {
	msg, err := s.findOwnMessage(ctx, actor, messageID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "content", "content is required", "e61d90b5-7f28-4ca3-85d4-02b9c6a3f157")
	}
	if err := s.validator.ValidateContent(content); err != nil {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "content", err.Error(), "19c38e72-b4a6-4d05-9e81-f50d2c7a6394")
	}

	msg.Content = content
	msg.IsEdited = true
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to edit message")
	}

	s.broadcaster.Broadcast(msg.ConversationID, EventMessageUpdated, MessageEventPayload{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Message:        msg,
	})
	return msg, nil
}

// DeleteMessage soft deletes a message. The row is retained so replies,
// reactions and receipts keep their references; only the sender keeps seeing
// it.
func (s *MessageService) DeleteMessage(ctx context.Context, actor account.Actor, messageID uint) error {
	msg, err := s.findOwnMessage(ctx, actor, messageID)
	if err != nil {
		return err
	}
	if msg.IsDeleted {
		return nil
	}
	msg.IsDeleted = true
	if err := s.messages.Update(ctx, msg); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete message")
	}

	s.broadcaster.Broadcast(msg.ConversationID, EventMessageDeleted, MessageEventPayload{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	})
	return nil
}

// MarkRead upserts the actor's receipt for the message and advances the
// participant's lastReadAt, then broadcasts read-receipt.
func (s *MessageService) MarkRead(ctx context.Context, actor account.Actor, messageID uint) (*ReadReceipt, error) {
	msg, err := s.findVisibleMessage(ctx, actor, messageID)
	if err != nil {
		return nil, err
	}

	receipt := &ReadReceipt{
		MessageID: msg.ID,
		AccountID: actor.ID,
		ReadAt:    s.now(),
	}
	if err := s.messages.UpsertReceipt(ctx, receipt); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to record receipt")
	}
	if err := s.conversations.AdvanceLastRead(ctx, msg.ConversationID, actor.ID, receipt.ReadAt); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to advance read marker")
	}

	s.broadcaster.Broadcast(msg.ConversationID, EventReadReceipt, ReadReceiptEventPayload{
		ConversationID: msg.ConversationID,
		Receipt:        receipt,
	})
	return receipt, nil
}

// AddReaction adds the (message, account, emoji) triple. Re-adding an
// existing reaction succeeds without creating a second row.
func (s *MessageService) AddReaction(ctx context.Context, actor account.Actor, messageID uint, emoji string) error {
	if emoji == "" {
		return platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "emoji", "emoji is required", "74b0c2f9-e815-4d63-a927-56d8e0a1c3b4")
	}
	msg, err := s.findVisibleMessage(ctx, actor, messageID)
	if err != nil {
		return err
	}

	if err := s.messages.AddReaction(ctx, &Reaction{MessageID: msg.ID, AccountID: actor.ID, Emoji: emoji}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add reaction")
	}

	s.broadcaster.Broadcast(msg.ConversationID, EventReactionAdded, ReactionEventPayload{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		AccountID:      actor.ID,
		Emoji:          emoji,
	})
	return nil
}

// RemoveReaction removes the actor's reaction. The removed result lets
// callers distinguish "removed" from "nothing to remove"; neither is an
// error.
func (s *MessageService) RemoveReaction(ctx context.Context, actor account.Actor, messageID uint, emoji string) (bool, error) {
	msg, err := s.findVisibleMessage(ctx, actor, messageID)
	if err != nil {
		return false, err
	}

	removed, err := s.messages.RemoveReaction(ctx, msg.ID, actor.ID, emoji)
	if err != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to remove reaction")
	}
	if removed {
		s.broadcaster.Broadcast(msg.ConversationID, EventReactionRemoved, ReactionEventPayload{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			AccountID:      actor.ID,
			Emoji:          emoji,
		})
	}
	return removed, nil
}

// SearchMessages finds non deleted messages matching the query across the
// actor's conversations, newest first.
func (s *MessageService) SearchMessages(ctx context.Context, actor account.Actor, filter SearchMessagesFilter) ([]*Message, int64, error) {
	filter.AccountID = actor.ID
	if strings.TrimSpace(filter.Query) == "" {
		return nil, 0, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "query", "search query is required", "0fd8a364-51c9-4e72-b08d-9a23e6c5f017")
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.ConversationID != nil {
		if err := s.requireParticipant(ctx, actor, *filter.ConversationID); err != nil {
			return nil, 0, err
		}
	}

	msgs, total, err := s.messages.Search(ctx, filter)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to search messages")
	}
	return msgs, total, nil
}

// requireParticipant conflates non-membership with not found.
func (s *MessageService) requireParticipant(ctx context.Context, actor account.Actor, conversationID uint) error {
	ok, err := s.conversations.IsParticipant(ctx, conversationID, actor.ID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to check membership")
	}
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "2e75c1b9-d046-4f83-a5e2-98c0d3f6a147")
	}
	return nil
}

// findVisibleMessage loads a message the actor can see, requiring room
// membership.
func (s *MessageService) findVisibleMessage(ctx context.Context, actor account.Actor, messageID uint) (*Message, error) {
	msg, err := s.messages.FindVisibleByID(ctx, messageID, actor.ID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load message")
	}
	if msg == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "message not found", nil, "c5a0f623-9d18-4e47-b3a6-71e2d8c09f54")
	}
	if err := s.requireParticipant(ctx, actor, msg.ConversationID); err != nil {
		return nil, err
	}
	return msg, nil
}

// findOwnMessage loads a message and enforces sender ownership for edit and
// delete.
func (s *MessageService) findOwnMessage(ctx context.Context, actor account.Actor, messageID uint) (*Message, error) {
	msg, err := s.findVisibleMessage(ctx, actor, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actor.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the sender may modify a message", nil, "8a4e62d0-1cb7-4f95-b2d8-e3056c9a71f4")
	}
	return msg, nil
}
