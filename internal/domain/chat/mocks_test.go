package chat

import (
	"context"
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
)

// MockConversationRepository is a mock implementation of
// ConversationRepository for testing. Unset funcs return zero values.
type MockConversationRepository struct {
	CreateFunc            func(ctx context.Context, conv *Conversation, participantIDs []uint) error
	FindByIDFunc          func(ctx context.Context, id uint) (*Conversation, error)
	FindDirectBetweenFunc func(ctx context.Context, accountA, accountB uint) (*Conversation, error)
	FindForAccountFunc    func(ctx context.Context, filter ListConversationsFilter) ([]*Conversation, int64, error)
	UpdateDetailsFunc     func(ctx context.Context, id uint, name, avatar *string) error
	TouchFunc             func(ctx context.Context, id uint, at time.Time) error
	DeleteFunc            func(ctx context.Context, id uint) error
	IsParticipantFunc     func(ctx context.Context, conversationID, accountID uint) (bool, error)
	CountParticipantsFunc func(ctx context.Context, conversationID uint) (int64, error)
	AddParticipantsFunc   func(ctx context.Context, conversationID uint, accountIDs []uint) error
	RemoveParticipantFunc func(ctx context.Context, conversationID, accountID uint) error
	SetMutedFunc          func(ctx context.Context, conversationID, accountID uint, muted bool) error
	AdvanceLastReadFunc   func(ctx context.Context, conversationID, accountID uint, at time.Time) error
	LastReadTimesFunc     func(ctx context.Context, conversationIDs []uint, accountID uint) (map[uint]*time.Time, error)
	PinFunc               func(ctx context.Context, conversationID, accountID uint) error
	UnpinFunc             func(ctx context.Context, conversationID, accountID uint) (bool, error)
	FindPinsFunc          func(ctx context.Context, accountID uint, conversationIDs []uint) ([]*Pin, error)
}

func (m *MockConversationRepository) Create(ctx context.Context, conv *Conversation, participantIDs []uint) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, conv, participantIDs)
	}
	return nil
}

func (m *MockConversationRepository) FindByID(ctx context.Context, id uint) (*Conversation, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockConversationRepository) FindDirectBetween(ctx context.Context, accountA, accountB uint) (*Conversation, error) {
	if m.FindDirectBetweenFunc != nil {
		return m.FindDirectBetweenFunc(ctx, accountA, accountB)
	}
	return nil, nil
}

func (m *MockConversationRepository) FindForAccount(ctx context.Context, filter ListConversationsFilter) ([]*Conversation, int64, error) {
	if m.FindForAccountFunc != nil {
		return m.FindForAccountFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockConversationRepository) UpdateDetails(ctx context.Context, id uint, name, avatar *string) error {
	if m.UpdateDetailsFunc != nil {
		return m.UpdateDetailsFunc(ctx, id, name, avatar)
	}
	return nil
}

func (m *MockConversationRepository) Touch(ctx context.Context, id uint, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, id, at)
	}
	return nil
}

func (m *MockConversationRepository) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockConversationRepository) IsParticipant(ctx context.Context, conversationID, accountID uint) (bool, error) {
	if m.IsParticipantFunc != nil {
		return m.IsParticipantFunc(ctx, conversationID, accountID)
	}
	return false, nil
}

func (m *MockConversationRepository) CountParticipants(ctx context.Context, conversationID uint) (int64, error) {
	if m.CountParticipantsFunc != nil {
		return m.CountParticipantsFunc(ctx, conversationID)
	}
	return 0, nil
}

func (m *MockConversationRepository) AddParticipants(ctx context.Context, conversationID uint, accountIDs []uint) error {
	if m.AddParticipantsFunc != nil {
		return m.AddParticipantsFunc(ctx, conversationID, accountIDs)
	}
	return nil
}

func (m *MockConversationRepository) RemoveParticipant(ctx context.Context, conversationID, accountID uint) error {
	if m.RemoveParticipantFunc != nil {
		return m.RemoveParticipantFunc(ctx, conversationID, accountID)
	}
	return nil
}

func (m *MockConversationRepository) SetMuted(ctx context.Context, conversationID, accountID uint, muted bool) error {
	if m.SetMutedFunc != nil {
		return m.SetMutedFunc(ctx, conversationID, accountID, muted)
	}
	return nil
}

func (m *MockConversationRepository) AdvanceLastRead(ctx context.Context, conversationID, accountID uint, at time.Time) error {
	if m.AdvanceLastReadFunc != nil {
		return m.AdvanceLastReadFunc(ctx, conversationID, accountID, at)
	}
	return nil
}

func (m *MockConversationRepository) LastReadTimes(ctx context.Context, conversationIDs []uint, accountID uint) (map[uint]*time.Time, error) {
	if m.LastReadTimesFunc != nil {
		return m.LastReadTimesFunc(ctx, conversationIDs, accountID)
	}
	return map[uint]*time.Time{}, nil
}

func (m *MockConversationRepository) Pin(ctx context.Context, conversationID, accountID uint) error {
	if m.PinFunc != nil {
		return m.PinFunc(ctx, conversationID, accountID)
	}
	return nil
}

func (m *MockConversationRepository) Unpin(ctx context.Context, conversationID, accountID uint) (bool, error) {
	if m.UnpinFunc != nil {
		return m.UnpinFunc(ctx, conversationID, accountID)
	}
	return false, nil
}

func (m *MockConversationRepository) FindPins(ctx context.Context, accountID uint, conversationIDs []uint) ([]*Pin, error) {
	if m.FindPinsFunc != nil {
		return m.FindPinsFunc(ctx, accountID, conversationIDs)
	}
	return nil, nil
}

// MockMessageRepository is a mock implementation of MessageRepository.
type MockMessageRepository struct {
	CreateFunc          func(ctx context.Context, msg *Message) error
	FindVisibleByIDFunc func(ctx context.Context, id, viewerID uint) (*Message, error)
	UpdateFunc          func(ctx context.Context, msg *Message) error
	FindPageRowsFunc    func(ctx context.Context, conversationID, viewerID uint, before *time.Time, limit int) ([]*Message, error)
	LatestVisibleFunc   func(ctx context.Context, conversationIDs []uint) (map[uint]*Message, error)
	StampsForUnreadFunc func(ctx context.Context, conversationIDs []uint, accountID uint, after *time.Time) ([]MessageStamp, error)
	SearchFunc          func(ctx context.Context, filter SearchMessagesFilter) ([]*Message, int64, error)
	AddReactionFunc     func(ctx context.Context, reaction *Reaction) error
	RemoveReactionFunc  func(ctx context.Context, messageID, accountID uint, emoji string) (bool, error)
	UpsertReceiptFunc   func(ctx context.Context, receipt *ReadReceipt) error
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *Message) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, msg)
	}
	return nil
}

func (m *MockMessageRepository) FindVisibleByID(ctx context.Context, id, viewerID uint) (*Message, error) {
	if m.FindVisibleByIDFunc != nil {
		return m.FindVisibleByIDFunc(ctx, id, viewerID)
	}
	return nil, nil
}

func (m *MockMessageRepository) Update(ctx context.Context, msg *Message) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, msg)
	}
	return nil
}

func (m *MockMessageRepository) FindPageRows(ctx context.Context, conversationID, viewerID uint, before *time.Time, limit int) ([]*Message, error) {
	if m.FindPageRowsFunc != nil {
		return m.FindPageRowsFunc(ctx, conversationID, viewerID, before, limit)
	}
	return nil, nil
}

func (m *MockMessageRepository) LatestVisible(ctx context.Context, conversationIDs []uint) (map[uint]*Message, error) {
	if m.LatestVisibleFunc != nil {
		return m.LatestVisibleFunc(ctx, conversationIDs)
	}
	return map[uint]*Message{}, nil
}

func (m *MockMessageRepository) StampsForUnread(ctx context.Context, conversationIDs []uint, accountID uint, after *time.Time) ([]MessageStamp, error) {
	if m.StampsForUnreadFunc != nil {
		return m.StampsForUnreadFunc(ctx, conversationIDs, accountID, after)
	}
	return nil, nil
}

func (m *MockMessageRepository) Search(ctx context.Context, filter SearchMessagesFilter) ([]*Message, int64, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockMessageRepository) AddReaction(ctx context.Context, reaction *Reaction) error {
	if m.AddReactionFunc != nil {
		return m.AddReactionFunc(ctx, reaction)
	}
	return nil
}

func (m *MockMessageRepository) RemoveReaction(ctx context.Context, messageID, accountID uint, emoji string) (bool, error) {
	if m.RemoveReactionFunc != nil {
		return m.RemoveReactionFunc(ctx, messageID, accountID, emoji)
	}
	return false, nil
}

func (m *MockMessageRepository) UpsertReceipt(ctx context.Context, receipt *ReadReceipt) error {
	if m.UpsertReceiptFunc != nil {
		return m.UpsertReceiptFunc(ctx, receipt)
	}
	return nil
}

// MockAccountRepository is a mock implementation of account.Repository. By
// default every looked-up account exists with the Employee role.
type MockAccountRepository struct {
	FindByIDFunc  func(ctx context.Context, id uint) (*account.Account, error)
	FindByIDsFunc func(ctx context.Context, ids []uint) ([]*account.Account, error)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uint) (*account.Account, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return &account.Account{ID: id, Role: account.RoleEmployee}, nil
}

func (m *MockAccountRepository) FindByIDs(ctx context.Context, ids []uint) ([]*account.Account, error) {
	if m.FindByIDsFunc != nil {
		return m.FindByIDsFunc(ctx, ids)
	}
	out := make([]*account.Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, &account.Account{ID: id, Role: account.RoleEmployee})
	}
	return out, nil
}

// RecordingBroadcaster captures emitted room events for assertions.
type RecordingBroadcaster struct {
	Events []RecordedEvent
}

type RecordedEvent struct {
	ConversationID uint
	Event          string
	Payload        any
}

func (b *RecordingBroadcaster) Broadcast(conversationID uint, event string, payload any) {
	b.Events = append(b.Events, RecordedEvent{ConversationID: conversationID, Event: event, Payload: payload})
}
