package entities

import (
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
)

// Message stores each message of a conversation. Rows are never physically
// removed; IsDeleted hides them from everyone but the sender.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_message_conversation_created"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	ConversationID uint   `gorm:"not null;index:idx_message_conversation_created"`
	SenderID       uint   `gorm:"not null;index"`
	Content        string `gorm:"type:text"`
	Type           string `gorm:"type:varchar(20);not null;default:'text'"`
	ReplyToID      *uint
	IsEdited       bool `gorm:"not null;default:false"`
	IsDeleted      bool `gorm:"not null;default:false"`

	Sender      *Account            `gorm:"foreignKey:SenderID"`
	ReplyTo     *Message            `gorm:"foreignKey:ReplyToID"`
	Attachments []MessageAttachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	Reactions   []MessageReaction   `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// MessageAttachment stores file metadata owned by one message.
type MessageAttachment struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	MessageID uint   `gorm:"not null;index"`
	URL       string `gorm:"type:varchar(512);not null"`
	Name      string `gorm:"type:varchar(255);not null"`
	Size      int64  `gorm:"not null;default:0"`
	MimeType  string `gorm:"type:varchar(100)"`
}

// TableName specifies the table name for MessageAttachment.
func (MessageAttachment) TableName() string {
	return "message_attachments"
}

// MessageReaction is unique per (message, account, emoji).
type MessageReaction struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	MessageID uint   `gorm:"uniqueIndex:idx_message_reaction;not null"`
	AccountID uint   `gorm:"uniqueIndex:idx_message_reaction;not null"`
	Emoji     string `gorm:"type:varchar(32);uniqueIndex:idx_message_reaction;not null"`

	Account *Account `gorm:"foreignKey:AccountID"`
}

// TableName specifies the table name for MessageReaction.
func (MessageReaction) TableName() string {
	return "message_reactions"
}

// MessageReadReceipt is unique per (message, account), refreshed on each
// mark-as-read.
type MessageReadReceipt struct {
	ID uint `gorm:"primaryKey"`

	MessageID uint      `gorm:"uniqueIndex:idx_message_receipt;not null"`
	AccountID uint      `gorm:"uniqueIndex:idx_message_receipt;not null"`
	ReadAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for MessageReadReceipt.
func (MessageReadReceipt) TableName() string {
	return "message_read_receipts"
}

// ===============================================
// Conversion Functions
// ===============================================

// EtoD converts database entity to domain model
func (m *Message) EtoD() *chat.Message {
	msg := &chat.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Type:           chat.MessageType(m.Type),
		ReplyToID:      m.ReplyToID,
		IsEdited:       m.IsEdited,
		IsDeleted:      m.IsDeleted,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Sender != nil {
		msg.Sender = m.Sender.EtoD()
	}
	if m.ReplyTo != nil {
		msg.ReplyTo = m.ReplyTo.EtoD()
	}
	for _, att := range m.Attachments {
		msg.Attachments = append(msg.Attachments, chat.Attachment{
			ID:        att.ID,
			MessageID: att.MessageID,
			URL:       att.URL,
			Name:      att.Name,
			Size:      att.Size,
			MimeType:  att.MimeType,
		})
	}
	for _, r := range m.Reactions {
		msg.Reactions = append(msg.Reactions, *r.EtoD())
	}
	return msg
}

// EtoD converts database entity to domain model
func (r *MessageReaction) EtoD() *chat.Reaction {
	reaction := &chat.Reaction{
		MessageID: r.MessageID,
		AccountID: r.AccountID,
		Emoji:     r.Emoji,
		CreatedAt: r.CreatedAt,
	}
	if r.Account != nil {
		reaction.Account = r.Account.EtoD()
	}
	return reaction
}

// EtoD converts database entity to domain model
func (r *MessageReadReceipt) EtoD() *chat.ReadReceipt {
	return &chat.ReadReceipt{
		MessageID: r.MessageID,
		AccountID: r.AccountID,
		ReadAt:    r.ReadAt,
	}
}

// NewSchemaMessage creates a database entity from domain model
func NewSchemaMessage(m *chat.Message) *Message {
	entity := &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Type:           string(m.Type),
		ReplyToID:      m.ReplyToID,
		IsEdited:       m.IsEdited,
		IsDeleted:      m.IsDeleted,
	}
	for _, att := range m.Attachments {
		entity.Attachments = append(entity.Attachments, MessageAttachment{
			URL:      att.URL,
			Name:     att.Name,
			Size:     att.Size,
			MimeType: att.MimeType,
		})
	}
	return entity
}
