package entities

import (
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
)

// Conversation represents the database schema for conversations
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"index"`

	Type        string  `gorm:"type:varchar(10);not null;index"`
	Name        *string `gorm:"type:varchar(100)"`
	Avatar      *string `gorm:"type:varchar(512)"`
	CreatedByID uint    `gorm:"not null;index"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant represents the membership join table
type ConversationParticipant struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	ConversationID uint       `gorm:"uniqueIndex:idx_conversation_participant;not null"`
	AccountID      uint       `gorm:"uniqueIndex:idx_conversation_participant;not null;index"`
	IsMuted        bool       `gorm:"not null;default:false"`
	LastReadAt     *time.Time `gorm:"type:timestamptz"`

	Account *Account `gorm:"foreignKey:AccountID"`
}

// TableName specifies the table name for ConversationParticipant.
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// ConversationPin represents a per-account pin marker
type ConversationPin struct {
	ID       uint      `gorm:"primaryKey"`
	PinnedAt time.Time `gorm:"autoCreateTime"`

	ConversationID uint `gorm:"uniqueIndex:idx_conversation_pin;not null"`
	AccountID      uint `gorm:"uniqueIndex:idx_conversation_pin;not null;index"`
}

// TableName specifies the table name for ConversationPin.
func (ConversationPin) TableName() string {
	return "conversation_pins"
}

// ===============================================
// Conversion Functions
// ===============================================

// EtoD converts database entity to domain model
func (c *Conversation) EtoD() *chat.Conversation {
	conv := &chat.Conversation{
		ID:          c.ID,
		Type:        chat.ConversationType(c.Type),
		Name:        c.Name,
		Avatar:      c.Avatar,
		CreatedByID: c.CreatedByID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, p := range c.Participants {
		conv.Participants = append(conv.Participants, *p.EtoD())
	}
	return conv
}

// EtoD converts database entity to domain model
func (p *ConversationParticipant) EtoD() *chat.Participant {
	participant := &chat.Participant{
		ConversationID: p.ConversationID,
		AccountID:      p.AccountID,
		IsMuted:        p.IsMuted,
		LastReadAt:     p.LastReadAt,
		JoinedAt:       p.CreatedAt,
	}
	if p.Account != nil {
		participant.Account = p.Account.EtoD()
	}
	return participant
}

// EtoD converts database entity to domain model
func (p *ConversationPin) EtoD() *chat.Pin {
	return &chat.Pin{
		ConversationID: p.ConversationID,
		AccountID:      p.AccountID,
		PinnedAt:       p.PinnedAt,
	}
}

// NewSchemaConversation creates a database entity from domain model
func NewSchemaConversation(c *chat.Conversation) *Conversation {
	return &Conversation{
		ID:          c.ID,
		Type:        string(c.Type),
		Name:        c.Name,
		Avatar:      c.Avatar,
		CreatedByID: c.CreatedByID,
	}
}
