package chat

import (
	"context"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

// ConversationService handles business logic for conversations, membership
// and the per-account pin and mute state.
type ConversationService struct {
	conversations ConversationRepository
	messages      MessageRepository
	accounts      account.Repository
	validator     *ChatValidator
}

// NewConversationService creates a new conversation service.
func NewConversationService(conversations ConversationRepository, messages MessageRepository, accounts account.Repository) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		accounts:      accounts,
		validator:     NewChatValidator(nil), // Use default config
	}
}

// NewConversationServiceWithConfig creates a conversation service with
// custom policy limits.
func NewConversationServiceWithConfig(conversations ConversationRepository, messages MessageRepository, accounts account.Repository, config *ChatValidatorConfig) *ConversationService {
	service := NewConversationService(conversations, messages, accounts)
	service.validator = NewChatValidator(config)
	return service
}

// CreateConversationInput represents the input for creating a conversation.
type CreateConversationInput struct {
	Type           ConversationType
	Name           *string
	Avatar         *string
	ParticipantIDs []uint
}

// CreateConversation creates a direct or group conversation. Direct creation
// is idempotent: an existing direct conversation between the two accounts is
// returned instead of creating a duplicate.
func (s *ConversationService) CreateConversation(ctx context.Context, actor account.Actor, input CreateConversationInput) (*Conversation, error) {
	switch input.Type {
	case ConversationDirect, ConversationGroup:
	default:
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "type", "type must be direct or group", "3e8b1c4a-97f2-4d60-8b5e-12a4c7d9f036")
	}
	if len(input.ParticipantIDs) == 0 {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "participantIds", "at least one participant is required", "a1f63d82-40cb-4975-bd1e-8c29e5a7d410")
	}

	if input.Type == ConversationGroup && !actor.Role.CanCreateGroup() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only owners may create group conversations", nil, "d25c09b7-6e18-4f42-a3d6-90b1e84c527f")
	}
	if input.Type == ConversationDirect && len(input.ParticipantIDs) != 1 {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "participantIds", "direct conversations take exactly one other participant", "68d4a2e0-b395-4c17-8f6a-d07c31e9b584")
	}
	if input.Type == ConversationGroup {
		if err := s.validator.ValidateGroupName(input.Name); err != nil {
			return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "name", err.Error(), "f90b36c1-52ad-4e88-9d04-7e1fa8c26b53")
		}
	}

	// Creator is always a member. Deduplicate the requested set.
	memberIDs := dedupeIDs(append([]uint{actor.ID}, input.ParticipantIDs...))
	if input.Type == ConversationGroup && len(memberIDs) > s.validator.MaxGroupParticipants() {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "participantIds", "group conversations are limited to 50 participants", "07c5e9a4-d183-4b60-92cf-3a68d1e40b72")
	}
	if err := s.checkChatAccounts(ctx, memberIDs); err != nil {
		return nil, err
	}

	if input.Type == ConversationDirect {
		if len(memberIDs) != 2 {
			return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "participantIds", "direct conversations require a participant other than yourself", "4b2d80f6-19ce-47a3-b5d8-62e09a3c17f4")
		}
		existing, err := s.conversations.FindDirectBetween(ctx, memberIDs[0], memberIDs[1])
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up direct conversation")
		}
		if existing != nil {
			return existing, nil
		}
	}

	conv := &Conversation{
		Type:        input.Type,
		Avatar:      input.Avatar,
		CreatedByID: actor.ID,
	}
	if input.Type == ConversationGroup {
		conv.Name = input.Name
	}
	if err := s.conversations.Create(ctx, conv, memberIDs); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create conversation")
	}
	return conv, nil
}

// GetConversation retrieves a conversation the actor participates in.
// Membership failures report not found so non-members cannot probe for
// existence.
func (s *ConversationService) GetConversation(ctx context.Context, actor account.Actor, id uint) (*Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load conversation")
	}
	if conv == nil || !conv.HasParticipant(actor.ID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "b7e31a58-0d96-4c24-8f7b-519ce06d2a83")
	}
	return conv, nil
}

// ListConversations returns the actor's conversations annotated with pin
// state, latest message preview and unread counts. Unread counts for the
// whole page are computed from one stamp query plus in-memory aggregation.
func (s *ConversationService) ListConversations(ctx context.Context, actor account.Actor, filter ListConversationsFilter) ([]ConversationSummary, int64, error) {
	filter.AccountID = actor.ID
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.SortBy == "" {
		filter.SortBy = SortByUpdatedAt
		filter.SortDesc = true
	}

	convs, total, err := s.conversations.FindForAccount(ctx, filter)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	if len(convs) == 0 {
		return []ConversationSummary{}, total, nil
	}

	ids := make([]uint, len(convs))
	for i, conv := range convs {
		ids[i] = conv.ID
	}

	pins, err := s.conversations.FindPins(ctx, actor.ID, ids)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load pins")
	}
	pinByConv := make(map[uint]*Pin, len(pins))
	for _, pin := range pins {
		pinByConv[pin.ConversationID] = pin
	}

	previews, err := s.messages.LatestVisible(ctx, ids)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load previews")
	}

	lastRead, err := s.conversations.LastReadTimes(ctx, ids, actor.ID)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load read state")
	}
	// When every conversation has a cutoff the stamp query can skip anything
	// older than the earliest one without changing the counts.
	stamps, err := s.messages.StampsForUnread(ctx, ids, actor.ID, EarliestCutoff(ids, lastRead))
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load unread candidates")
	}
	unread := CountUnread(stamps, actor.ID, lastRead)

	summaries := make([]ConversationSummary, len(convs))
	for i, conv := range convs {
		summaries[i] = ConversationSummary{
			Conversation: conv,
			Pin:          pinByConv[conv.ID],
			LastMessage:  previews[conv.ID],
			UnreadCount:  unread[conv.ID],
		}
	}
	return summaries, total, nil
}

// UpdateConversationInput represents the input for renaming a group.
type UpdateConversationInput struct {
	Name   *string
	Avatar *string
}

// UpdateConversation renames a group conversation or changes its avatar.
// Direct conversations have no mutable details.
func (s *ConversationService) UpdateConversation(ctx context.Context, actor account.Actor, id uint, input UpdateConversationInput) (*Conversation, error) {
	conv, err := s.GetConversation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if conv.Type != ConversationGroup {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "type", "only group conversations can be updated", "91d7f2c8-35ab-4e06-bd41-c82a60e95d37")
	}
	if input.Name != nil {
		if err := s.validator.ValidateGroupName(input.Name); err != nil {
			return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "name", err.Error(), "ab05d9e3-7c41-4862-90fd-1e53b8a6c2f0")
		}
		conv.Name = input.Name
	}
	if input.Avatar != nil {
		conv.Avatar = input.Avatar
	}
	if err := s.conversations.UpdateDetails(ctx, conv.ID, conv.Name, conv.Avatar); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update conversation")
	}
	return conv, nil
}

// DeleteConversation removes a direct conversation outright, cascading to
// messages. For a group it removes the actor's membership and deletes the
// conversation only when nobody is left.
func (s *ConversationService) DeleteConversation(ctx context.Context, actor account.Actor, id uint) error {
	conv, err := s.GetConversation(ctx, actor, id)
	if err != nil {
		return err
	}

	if conv.Type == ConversationDirect {
		if err := s.conversations.Delete(ctx, conv.ID); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
		}
		return nil
	}

	if err := s.conversations.RemoveParticipant(ctx, conv.ID, actor.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to leave conversation")
	}
	remaining, err := s.conversations.CountParticipants(ctx, conv.ID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to count participants")
	}
	if remaining == 0 {
		if err := s.conversations.Delete(ctx, conv.ID); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete empty conversation")
		}
	}
	return nil
}

// AddParticipants adds accounts to a group conversation. Only the creator
// may manage membership; accounts already present are skipped.
func (s *ConversationService) AddParticipants(ctx context.Context, actor account.Actor, id uint, accountIDs []uint) (*Conversation, error) {
	conv, err := s.GetConversation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if conv.Type != ConversationGroup {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "type", "participants can only be managed on group conversations", "c4f81b26-d950-4a73-8e12-67d3a0b9c5e8")
	}
	if conv.CreatedByID != actor.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the conversation creator may manage participants", nil, "58a2c7d0-341f-4b9e-a6c5-0f97d13e82b4")
	}
	if len(accountIDs) == 0 {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "participantIds", "at least one participant is required", "ea639f05-1d78-4c24-b0a9-835e6c2d41f7")
	}

	accountIDs = dedupeIDs(accountIDs)
	if err := s.checkChatAccounts(ctx, accountIDs); err != nil {
		return nil, err
	}

	newcomers := 0
	for _, id := range accountIDs {
		if !conv.HasParticipant(id) {
			newcomers++
		}
	}
	if len(conv.Participants)+newcomers > s.validator.MaxGroupParticipants() {
		return nil, platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "participantIds", "group conversations are limited to 50 participants", "16e0d8b3-a947-4f52-8c60-d21b7f3a94e5")
	}

	if err := s.conversations.AddParticipants(ctx, conv.ID, accountIDs); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add participants")
	}
	return s.GetConversation(ctx, actor, conv.ID)
}

// RemoveParticipant removes an account from a group conversation. The
// creator cannot be removed.
func (s *ConversationService) RemoveParticipant(ctx context.Context, actor account.Actor, id, accountID uint) error {
	conv, err := s.GetConversation(ctx, actor, id)
	if err != nil {
		return err
	}
	if conv.Type != ConversationGroup {
		return platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "type", "participants can only be managed on group conversations", "7d94e1a6-08cf-4b35-92d8-4a60f5c3e17b")
	}
	if conv.CreatedByID != actor.ID {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the conversation creator may manage participants", nil, "30b8f5d2-c671-4e09-ad43-95c2e8061fab")
	}
	if accountID == conv.CreatedByID {
		return platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "accountId", "the conversation creator cannot be removed", "f2c60a97-84de-4b18-93f5-07a1d6e45c29")
	}
	if !conv.HasParticipant(accountID) {
		return platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "accountId", "account is not a participant", "9a17b4e8-53c0-46df-82a1-6e94d0c3f586")
	}
	if err := s.conversations.RemoveParticipant(ctx, conv.ID, accountID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to remove participant")
	}
	return nil
}

// PinConversation pins the conversation for the actor. Re-pinning refreshes
// pinnedAt.
func (s *ConversationService) PinConversation(ctx context.Context, actor account.Actor, id uint) error {
	if _, err := s.GetConversation(ctx, actor, id); err != nil {
		return err
	}
	if err := s.conversations.Pin(ctx, id, actor.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to pin conversation")
	}
	return nil
}

// UnpinConversation removes the actor's pin. Unpinning a conversation that
// is not pinned reports a validation error.
func (s *ConversationService) UnpinConversation(ctx context.Context, actor account.Actor, id uint) error {
	if _, err := s.GetConversation(ctx, actor, id); err != nil {
		return err
	}
	removed, err := s.conversations.Unpin(ctx, id, actor.ID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to unpin conversation")
	}
	if !removed {
		return platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "conversationId", "conversation is not pinned", "6f3a92d1-b508-4e67-8cd2-13e7a5b0f948")
	}
	return nil
}

// SetMuted toggles the actor's own mute flag.
func (s *ConversationService) SetMuted(ctx context.Context, actor account.Actor, id uint, muted bool) error {
	if _, err := s.GetConversation(ctx, actor, id); err != nil {
		return err
	}
	if err := s.conversations.SetMuted(ctx, id, actor.ID, muted); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update mute state")
	}
	return nil
}

// checkChatAccounts verifies every account exists and holds a role allowed
// to chat.
func (s *ConversationService) checkChatAccounts(ctx context.Context, ids []uint) error {
	accounts, err := s.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve participants")
	}
	byID := make(map[uint]*account.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}
	for _, id := range ids {
		acc, ok := byID[id]
		if !ok {
			return platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "participantIds", "participant account does not exist", "d06b59e2-f137-4a84-bc50-28e9d4a6c371")
		}
		if !acc.Role.CanChat() {
			return platformerrors.NewFieldError(ctx, platformerrors.LayerDomain, "participantIds", "participant role is not allowed in conversations", "41e8c0a5-29d6-4f13-b782-c5f06a9d3e18")
		}
	}
	return nil
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
