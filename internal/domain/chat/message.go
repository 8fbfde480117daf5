package chat

import (
	"context"
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
)

// MessageType discriminates message payloads. Text is the default.
type MessageType string

const (
	MessageText MessageType = "text"
	MessageFile MessageType = "file"
)

// Message is a single chat message. Conversation, sender and reply reference
// are immutable. Content is editable by the sender only. IsDeleted is a one
// way soft delete flag; deleted messages stay visible to their sender and
// disappear from every other participant's queries.
type Message struct {
	ID             uint
	ConversationID uint
	SenderID       uint
	Content        string
	Type           MessageType
	ReplyToID      *uint
	IsEdited       bool
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Sender      *account.Account
	ReplyTo     *Message
	Attachments []Attachment
	Reactions   []Reaction
}

// Attachment is file metadata owned by exactly one message.
type Attachment struct {
	ID        uint
	MessageID uint
	URL       string
	Name      string
	Size      int64
	MimeType  string
}

// Reaction is unique per (message, account, emoji). Adds are idempotent.
type Reaction struct {
	MessageID uint
	AccountID uint
	Emoji     string
	CreatedAt time.Time
	Account   *account.Account
}

// ReadReceipt is unique per (message, account), upserted with the latest
// readAt.
type ReadReceipt struct {
	MessageID uint
	AccountID uint
	ReadAt    time.Time
}

// VisibleTo applies the soft delete rule.
func (m *Message) VisibleTo(accountID uint) bool {
	return !m.IsDeleted || m.SenderID == accountID
}

// MessagePage is one page of a cursor paginated message listing, ordered
// oldest first. NextCursor is the createdAt of the oldest included message
// when more history exists.
type MessagePage struct {
	Messages   []*Message
	HasMore    bool
	NextCursor *time.Time
}

// MessageStamp is the minimal projection needed to aggregate unread counts.
type MessageStamp struct {
	ConversationID uint
	SenderID       uint
	CreatedAt      time.Time
}

// SearchMessagesFilter scopes a content search. ConversationID narrows the
// search to one thread; otherwise every conversation the account participates
// in is searched.
type SearchMessagesFilter struct {
	AccountID      uint
	Query          string
	ConversationID *uint
	Page           int
	Limit          int
}

// Offset converts page/limit into a query offset.
func (f SearchMessagesFilter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.Limit
}

// MessageRepository is the persistence contract for messages, reactions and
// receipts. Lookups return nil for missing or invisible rows.
type MessageRepository interface {
	// Create persists the message and its attachment rows in one transaction.
	Create(ctx context.Context, msg *Message) error
	// FindVisibleByID applies the soft delete visibility rule for viewerID
	// inside the query.
	FindVisibleByID(ctx context.Context, id, viewerID uint) (*Message, error)
	Update(ctx context.Context, msg *Message) error

	// FindPageRows fetches up to limit+1 visible messages strictly older than
	// before (or the newest when before is nil), newest first. Callers turn
	// the raw rows into a MessagePage.
	FindPageRows(ctx context.Context, conversationID, viewerID uint, before *time.Time, limit int) ([]*Message, error)
	// LatestVisible returns each conversation's most recent non deleted
	// message, keyed by conversation id.
	LatestVisible(ctx context.Context, conversationIDs []uint) (map[uint]*Message, error)
	// StampsForUnread returns (conversationID, senderID, createdAt) for non
	// deleted messages in the given conversations not authored by accountID.
	// A non-nil after cutoff restricts to strictly newer messages.
	StampsForUnread(ctx context.Context, conversationIDs []uint, accountID uint, after *time.Time) ([]MessageStamp, error)
	Search(ctx context.Context, filter SearchMessagesFilter) ([]*Message, int64, error)

	// AddReaction inserts the triple, treating an existing identical row as
	// success.
	AddReaction(ctx context.Context, reaction *Reaction) error
	// RemoveReaction reports false when no matching row existed.
	RemoveReaction(ctx context.Context, messageID, accountID uint, emoji string) (bool, error)
	// UpsertReceipt inserts or refreshes the (message, account) receipt.
	UpsertReceipt(ctx context.Context, receipt *ReadReceipt) error
}
