package responses

import (
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/functional"
)

// AccountPayload is the embedded representation of a staff account.
type AccountPayload struct {
	ID     uint    `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar,omitempty"`
	Role   string  `json:"role"`
}

// ParticipantPayload is one conversation membership row.
type ParticipantPayload struct {
	AccountID  uint            `json:"accountId"`
	IsMuted    bool            `json:"isMuted"`
	LastReadAt *time.Time      `json:"lastReadAt,omitempty"`
	JoinedAt   time.Time       `json:"joinedAt"`
	Account    *AccountPayload `json:"account,omitempty"`
}

// ConversationPayload is returned for single-conversation fetches.
type ConversationPayload struct {
	ID           uint                 `json:"id"`
	Type         string               `json:"type"`
	Name         *string              `json:"name,omitempty"`
	Avatar       *string              `json:"avatar,omitempty"`
	CreatedByID  uint                 `json:"createdById"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	Participants []ParticipantPayload `json:"participants"`
}

// ConversationSummaryPayload is one row of a conversation listing.
type ConversationSummaryPayload struct {
	ConversationPayload
	IsPinned    bool            `json:"isPinned"`
	PinnedAt    *time.Time      `json:"pinnedAt,omitempty"`
	LastMessage *MessagePayload `json:"lastMessage,omitempty"`
	UnreadCount int             `json:"unreadCount"`
}

// AttachmentPayload is file metadata owned by a message.
type AttachmentPayload struct {
	ID       uint   `json:"id"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// ReactionPayload is one emoji reaction on a message.
type ReactionPayload struct {
	AccountID uint            `json:"accountId"`
	Emoji     string          `json:"emoji"`
	CreatedAt time.Time       `json:"createdAt"`
	Account   *AccountPayload `json:"account,omitempty"`
}

// MessagePayload is the wire form of a chat message.
type MessagePayload struct {
	ID             uint                `json:"id"`
	ConversationID uint                `json:"conversationId"`
	SenderID       uint                `json:"senderId"`
	Content        string              `json:"content"`
	Type           string              `json:"type"`
	ReplyToID      *uint               `json:"replyToId,omitempty"`
	ReplyTo        *MessagePayload     `json:"replyTo,omitempty"`
	IsEdited       bool                `json:"isEdited"`
	IsDeleted      bool                `json:"isDeleted"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	Sender         *AccountPayload     `json:"sender,omitempty"`
	Attachments    []AttachmentPayload `json:"attachments,omitempty"`
	Reactions      []ReactionPayload   `json:"reactions,omitempty"`
}

// MessagePagePayload is one page of message history, oldest first.
type MessagePagePayload struct {
	Messages   []MessagePayload `json:"messages"`
	HasMore    bool             `json:"hasMore"`
	NextCursor *time.Time       `json:"nextCursor,omitempty"`
}

// ReadReceiptPayload marks a message read by an account.
type ReadReceiptPayload struct {
	MessageID uint      `json:"messageId"`
	AccountID uint      `json:"accountId"`
	ReadAt    time.Time `json:"readAt"`
}

// FromAccount maps a domain account to its DTO.
func FromAccount(a *account.Account) *AccountPayload {
	if a == nil {
		return nil
	}
	return &AccountPayload{
		ID:     a.ID,
		Name:   a.Name,
		Email:  a.Email,
		Avatar: a.Avatar,
		Role:   string(a.Role),
	}
}

// FromConversation maps a domain conversation to its DTO.
func FromConversation(c *chat.Conversation) ConversationPayload {
	participants := functional.Map(c.Participants, func(p chat.Participant) ParticipantPayload {
		return ParticipantPayload{
			AccountID:  p.AccountID,
			IsMuted:    p.IsMuted,
			LastReadAt: p.LastReadAt,
			JoinedAt:   p.JoinedAt,
			Account:    FromAccount(p.Account),
		}
	})
	return ConversationPayload{
		ID:           c.ID,
		Type:         string(c.Type),
		Name:         c.Name,
		Avatar:       c.Avatar,
		CreatedByID:  c.CreatedByID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Participants: participants,
	}
}

// FromConversationSummary maps one annotated listing row to its DTO.
func FromConversationSummary(s chat.ConversationSummary) ConversationSummaryPayload {
	payload := ConversationSummaryPayload{
		ConversationPayload: FromConversation(s.Conversation),
		UnreadCount:         s.UnreadCount,
	}
	if s.Pin != nil {
		payload.IsPinned = true
		pinnedAt := s.Pin.PinnedAt
		payload.PinnedAt = &pinnedAt
	}
	if s.LastMessage != nil {
		last := FromMessage(s.LastMessage)
		payload.LastMessage = &last
	}
	return payload
}

// FromMessage maps a domain message to its DTO.
func FromMessage(m *chat.Message) MessagePayload {
	payload := MessagePayload{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Type:           string(m.Type),
		ReplyToID:      m.ReplyToID,
		IsEdited:       m.IsEdited,
		IsDeleted:      m.IsDeleted,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		Sender:         FromAccount(m.Sender),
	}
	if m.ReplyTo != nil {
		replyTo := FromMessage(m.ReplyTo)
		payload.ReplyTo = &replyTo
	}
	for _, a := range m.Attachments {
		payload.Attachments = append(payload.Attachments, AttachmentPayload{
			ID:       a.ID,
			URL:      a.URL,
			Name:     a.Name,
			Size:     a.Size,
			MimeType: a.MimeType,
		})
	}
	for _, r := range m.Reactions {
		payload.Reactions = append(payload.Reactions, ReactionPayload{
			AccountID: r.AccountID,
			Emoji:     r.Emoji,
			CreatedAt: r.CreatedAt,
			Account:   FromAccount(r.Account),
		})
	}
	return payload
}

// FromMessagePage maps a history page to its DTO.
func FromMessagePage(page *chat.MessagePage) MessagePagePayload {
	return MessagePagePayload{
		Messages:   functional.Map(page.Messages, FromMessage),
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	}
}

// FromReadReceipt maps a receipt to its DTO.
func FromReadReceipt(r *chat.ReadReceipt) ReadReceiptPayload {
	return ReadReceiptPayload{
		MessageID: r.MessageID,
		AccountID: r.AccountID,
		ReadAt:    r.ReadAt,
	}
}
