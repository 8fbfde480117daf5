package requests

import "time"

// CreateConversationRequest opens a direct or group conversation.
type CreateConversationRequest struct {
	Type           string  `json:"type" binding:"required"`
	Name           *string `json:"name"`
	Avatar         *string `json:"avatar"`
	ParticipantIDs []uint  `json:"participantIds" binding:"required"`
}

// UpdateConversationRequest renames a group or changes its avatar.
type UpdateConversationRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

// AddParticipantsRequest adds accounts to a group conversation.
type AddParticipantsRequest struct {
	ParticipantIDs []uint `json:"participantIds" binding:"required"`
}

// MuteRequest toggles the caller's mute flag on a conversation.
type MuteRequest struct {
	Muted bool `json:"muted"`
}

// AttachmentRequest is one uploaded file accompanying a message.
type AttachmentRequest struct {
	URL      string `json:"url" binding:"required"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// SendMessageRequest creates a message in a conversation.
type SendMessageRequest struct {
	Content     string              `json:"content"`
	Type        string              `json:"type"`
	ReplyToID   *uint               `json:"replyToId"`
	Attachments []AttachmentRequest `json:"attachments"`
}

// EditMessageRequest replaces a message's content.
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ReactionRequest adds or removes an emoji reaction.
type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// ListConversationsQuery filters and pages a conversation listing.
type ListConversationsQuery struct {
	Type   *string `form:"type"`
	Search string  `form:"search"`
	SortBy string  `form:"sortBy"`
	Order  string  `form:"order"`
	Page   int     `form:"page,default=1"`
	Limit  int     `form:"limit,default=20"`
}

// ListMessagesQuery pages a message history fetch, newest page last.
type ListMessagesQuery struct {
	Before *time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit  int        `form:"limit,default=50"`
}

// SearchMessagesQuery scopes a content search.
type SearchMessagesQuery struct {
	Query          string `form:"q" binding:"required"`
	ConversationID *uint  `form:"conversationId"`
	Page           int    `form:"page,default=1"`
	Limit          int    `form:"limit,default=20"`
}

// CreateEventRequest creates a calendar event.
type CreateEventRequest struct {
	Title         string         `json:"title" binding:"required"`
	Description   *string        `json:"description"`
	StartDate     time.Time      `json:"startDate" binding:"required"`
	EndDate       time.Time      `json:"endDate" binding:"required"`
	IsRecurring   bool           `json:"isRecurring"`
	RecurringRule *RecurringRule `json:"recurringRule"`
	AssigneeIDs   []uint         `json:"assigneeIds"`
}

// UpdateEventRequest replaces an event's fields and assignment set.
type UpdateEventRequest struct {
	Title         string         `json:"title" binding:"required"`
	Description   *string        `json:"description"`
	StartDate     time.Time      `json:"startDate" binding:"required"`
	EndDate       time.Time      `json:"endDate" binding:"required"`
	IsRecurring   bool           `json:"isRecurring"`
	RecurringRule *RecurringRule `json:"recurringRule"`
	AssigneeIDs   []uint         `json:"assigneeIds"`
}

// RecurringRule mirrors the stored recurrence schema.
type RecurringRule struct {
	Type       string `json:"type"`
	Interval   int    `json:"interval"`
	DayOfWeek  *int   `json:"dayOfWeek,omitempty"`
	DayOfMonth *int   `json:"dayOfMonth,omitempty"`
}

// RangeQuery bounds a calendar window.
type RangeQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}
