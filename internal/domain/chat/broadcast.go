package chat

// Broadcast event names emitted to a conversation's room after each mutating
// operation. Payloads carry the conversation id plus the mutated entity so
// subscribers can reconcile their caches without a follow-up fetch.
const (
	EventNewMessage      = "new-message"
	EventMessageUpdated  = "message-updated"
	EventMessageDeleted  = "message-deleted"
	EventReadReceipt     = "read-receipt"
	EventReactionAdded   = "reaction-added"
	EventReactionRemoved = "reaction-removed"
)

// Broadcaster delivers an event to every subscriber of a conversation's
// room. Delivery is best effort and must never block the calling operation.
// The transport implementation is injected at construction time.
type Broadcaster interface {
	Broadcast(conversationID uint, event string, payload any)
}

// NopBroadcaster discards all events.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(conversationID uint, event string, payload any) {}

// MessageEventPayload accompanies the three message lifecycle events.
type MessageEventPayload struct {
	ConversationID uint     `json:"conversationId"`
	Message        *Message `json:"message,omitempty"`
	MessageID      uint     `json:"messageId"`
}

// ReactionEventPayload accompanies reaction-added and reaction-removed.
type ReactionEventPayload struct {
	ConversationID uint   `json:"conversationId"`
	MessageID      uint   `json:"messageId"`
	AccountID      uint   `json:"accountId"`
	Emoji          string `json:"emoji"`
}

// ReadReceiptEventPayload accompanies read-receipt.
type ReadReceiptEventPayload struct {
	ConversationID uint         `json:"conversationId"`
	Receipt        *ReadReceipt `json:"receipt"`
}
