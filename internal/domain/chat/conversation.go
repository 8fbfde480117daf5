package chat

import (
	"context"
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/functional"
)

// ConversationType discriminates the two conversation shapes.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Conversation is a chat thread between staff accounts. Type and creator are
// immutable after creation. UpdatedAt is bumped on every send and drives the
// default list ordering.
type Conversation struct {
	ID           uint
	Type         ConversationType
	Name         *string
	Avatar       *string
	CreatedByID  uint
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []Participant
}

// Participant joins an account to a conversation. IsMuted and LastReadAt are
// mutated only by the owning account. LastReadAt only ever advances.
type Participant struct {
	ConversationID uint
	AccountID      uint
	IsMuted        bool
	LastReadAt     *time.Time
	JoinedAt       time.Time
	Account        *account.Account
}

// Pin is a per-account pin marker. Existence means pinned.
type Pin struct {
	ConversationID uint
	AccountID      uint
	PinnedAt       time.Time
}

// HasParticipant reports whether the account is currently a member.
func (c *Conversation) HasParticipant(accountID uint) bool {
	return functional.Any(c.Participants, func(p Participant) bool { return p.AccountID == accountID })
}

// ParticipantFor returns the membership record for the account, or nil.
func (c *Conversation) ParticipantFor(accountID uint) *Participant {
	for i := range c.Participants {
		if c.Participants[i].AccountID == accountID {
			return &c.Participants[i]
		}
	}
	return nil
}

// ConversationSummary is one row of a conversation listing, annotated for
// list rendering.
type ConversationSummary struct {
	Conversation *Conversation
	Pin          *Pin
	LastMessage  *Message
	UnreadCount  int
}

// ConversationSort names the supported list orderings.
type ConversationSort string

const (
	SortByUpdatedAt ConversationSort = "updated_at"
	SortByCreatedAt ConversationSort = "created_at"
)

// ListConversationsFilter restricts and orders a conversation listing. Search
// matches conversation names and other participants' account names, never the
// requester's own name.
type ListConversationsFilter struct {
	AccountID uint
	Type      *ConversationType
	Search    string
	SortBy    ConversationSort
	SortDesc  bool
	Page      int
	Limit     int
}

// Offset converts page/limit into a query offset.
func (f ListConversationsFilter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.Limit
}

// ConversationRepository is the persistence contract for conversations and
// their membership state. Lookups return nil rather than an error when the
// row does not exist; the service layer translates that into the error
// taxonomy.
type ConversationRepository interface {
	// Create persists the conversation row and all participant rows in one
	// transaction.
	Create(ctx context.Context, conv *Conversation, participantIDs []uint) error
	FindByID(ctx context.Context, id uint) (*Conversation, error)
	// FindDirectBetween returns the existing direct conversation containing
	// exactly the two accounts, regardless of creation order, or nil.
	FindDirectBetween(ctx context.Context, accountA, accountB uint) (*Conversation, error)
	FindForAccount(ctx context.Context, filter ListConversationsFilter) ([]*Conversation, int64, error)
	UpdateDetails(ctx context.Context, id uint, name, avatar *string) error
	// Touch bumps UpdatedAt, used as a side effect of sending a message.
	Touch(ctx context.Context, id uint, at time.Time) error
	// Delete removes the conversation and cascades to participants, pins and
	// messages.
	Delete(ctx context.Context, id uint) error

	IsParticipant(ctx context.Context, conversationID, accountID uint) (bool, error)
	CountParticipants(ctx context.Context, conversationID uint) (int64, error)
	// AddParticipants skips accounts that are already members.
	AddParticipants(ctx context.Context, conversationID uint, accountIDs []uint) error
	RemoveParticipant(ctx context.Context, conversationID, accountID uint) error
	SetMuted(ctx context.Context, conversationID, accountID uint, muted bool) error
	// AdvanceLastRead moves the participant's lastReadAt forward to at, never
	// backward.
	AdvanceLastRead(ctx context.Context, conversationID, accountID uint, at time.Time) error
	// LastReadTimes returns each conversation's lastReadAt for the account,
	// keyed by conversation id. Absent key means no membership row.
	LastReadTimes(ctx context.Context, conversationIDs []uint, accountID uint) (map[uint]*time.Time, error)

	// Pin is an idempotent upsert refreshing pinnedAt.
	Pin(ctx context.Context, conversationID, accountID uint) error
	// Unpin reports false when no pin row existed.
	Unpin(ctx context.Context, conversationID, accountID uint) (bool, error)
	FindPins(ctx context.Context, accountID uint, conversationIDs []uint) ([]*Pin, error)
}
