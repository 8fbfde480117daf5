package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

func memberOf(conversationID uint, memberIDs ...uint) *MockConversationRepository {
	return &MockConversationRepository{
		IsParticipantFunc: func(ctx context.Context, convID, accountID uint) (bool, error) {
			if convID != conversationID {
				return false, nil
			}
			for _, id := range memberIDs {
				if id == accountID {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

func TestSendMessage(t *testing.T) {
	actor := account.Actor{ID: 1, Role: account.RoleEmployee}

	t.Run("creates, bumps conversation and broadcasts", func(t *testing.T) {
		convs := memberOf(10, 1, 2)
		touched := false
		convs.TouchFunc = func(ctx context.Context, id uint, at time.Time) error {
			touched = true
			return nil
		}
		msgs := &MockMessageRepository{
			CreateFunc: func(ctx context.Context, msg *Message) error {
				msg.ID = 77
				return nil
			},
		}
		broadcaster := &RecordingBroadcaster{}
		svc := NewMessageService(msgs, convs, broadcaster)

		msg, err := svc.SendMessage(context.Background(), actor, SendMessageInput{
			ConversationID: 10,
			Content:        "  order up  ",
		})
		if err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
		if msg.Content != "order up" {
			t.Errorf("content not trimmed: %q", msg.Content)
		}
		if msg.Type != MessageText {
			t.Errorf("type = %s, want default text", msg.Type)
		}
		if !touched {
			t.Error("conversation updatedAt was not bumped")
		}
		if len(broadcaster.Events) != 1 || broadcaster.Events[0].Event != EventNewMessage || broadcaster.Events[0].ConversationID != 10 {
			t.Errorf("unexpected broadcasts: %+v", broadcaster.Events)
		}
	})

	t.Run("requires content or attachment", func(t *testing.T) {
		svc := NewMessageService(&MockMessageRepository{}, memberOf(10, 1), NopBroadcaster{})

		_, err := svc.SendMessage(context.Background(), actor, SendMessageInput{
			ConversationID: 10,
			Content:        "   ",
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}

		// Attachment alone is enough.
		_, err = svc.SendMessage(context.Background(), actor, SendMessageInput{
			ConversationID: 10,
			Attachments:    []AttachmentInput{{URL: "/files/menu.pdf", Name: "menu.pdf"}},
		})
		if err != nil {
			t.Errorf("attachment-only send error = %v", err)
		}
	})

	t.Run("enforces the content bound", func(t *testing.T) {
		svc := NewMessageService(&MockMessageRepository{}, memberOf(10, 1), NopBroadcaster{})

		_, err := svc.SendMessage(context.Background(), actor, SendMessageInput{
			ConversationID: 10,
			Content:        strings.Repeat("a", 5001),
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("counts the content bound in runes", func(t *testing.T) {
		msgs := &MockMessageRepository{
			CreateFunc: func(ctx context.Context, msg *Message) error { return nil },
		}
		svc := NewMessageService(msgs, memberOf(10, 1), NopBroadcaster{})

		// 5000 three-byte runes must fit even though they exceed 5000 bytes.
		_, err := svc.SendMessage(context.Background(), actor, SendMessageInput{
			ConversationID: 10,
			Content:        strings.Repeat("食", 5000),
		})
		if err != nil {
			t.Errorf("multibyte content at the limit rejected: %v", err)
		}

		_, err = svc.SendMessage(context.Background(), actor, SendMessageInput{
			ConversationID: 10,
			Content:        strings.Repeat("食", 5001),
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("non member gets not found", func(t *testing.T) {
		svc := NewMessageService(&MockMessageRepository{}, memberOf(10, 2, 3), NopBroadcaster{})

		_, err := svc.SendMessage(context.Background(), actor, SendMessageInput{
			ConversationID: 10,
			Content:        "hi",
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("rejects reply to a message in another conversation", func(t *testing.T) {
		replyTo := uint(5)
		msgs := &MockMessageRepository{
			FindVisibleByIDFunc: func(ctx context.Context, id, viewerID uint) (*Message, error) {
				return &Message{ID: id, ConversationID: 99}, nil
			},
		}
		svc := NewMessageService(msgs, memberOf(10, 1), NopBroadcaster{})

		_, err := svc.SendMessage(context.Background(), actor, SendMessageInput{
			ConversationID: 10,
			Content:        "hi",
			ReplyToID:      &replyTo,
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestEditMessage(t *testing.T) {
	newMsg := func() *Message {
		return &Message{ID: 7, ConversationID: 10, SenderID: 1, Content: "orig"}
	}

	t.Run("sender edits and the flag sticks", func(t *testing.T) {
		var updated *Message
		msgs := &MockMessageRepository{
			FindVisibleByIDFunc: func(ctx context.Context, id, viewerID uint) (*Message, error) {
				return newMsg(), nil
			},
			UpdateFunc: func(ctx context.Context, msg *Message) error {
				updated = msg
				return nil
			},
		}
		broadcaster := &RecordingBroadcaster{}
		svc := NewMessageService(msgs, memberOf(10, 1, 2), broadcaster)

		msg, err := svc.EditMessage(context.Background(), account.Actor{ID: 1}, 7, "fixed")
		if err != nil {
			t.Fatalf("EditMessage() error = %v", err)
		}
		if msg.Content != "fixed" || !msg.IsEdited {
			t.Errorf("edit not applied: %+v", msg)
		}
		if updated == nil {
			t.Error("message not persisted")
		}
		if len(broadcaster.Events) != 1 || broadcaster.Events[0].Event != EventMessageUpdated {
			t.Errorf("unexpected broadcasts: %+v", broadcaster.Events)
		}
	})

	t.Run("non sender forbidden", func(t *testing.T) {
		msgs := &MockMessageRepository{
			FindVisibleByIDFunc: func(ctx context.Context, id, viewerID uint) (*Message, error) {
				return newMsg(), nil
			},
		}
		svc := NewMessageService(msgs, memberOf(10, 1, 2), NopBroadcaster{})

		_, err := svc.EditMessage(context.Background(), account.Actor{ID: 2}, 7, "hijack")
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})
}

func TestDeleteMessage_SoftDelete(t *testing.T) {
	msg := &Message{ID: 7, ConversationID: 10, SenderID: 1, Content: "oops"}
	msgs := &MockMessageRepository{
		FindVisibleByIDFunc: func(ctx context.Context, id, viewerID uint) (*Message, error) {
			if msg.VisibleTo(viewerID) {
				return msg, nil
			}
			return nil, nil
		},
	}
	broadcaster := &RecordingBroadcaster{}
	svc := NewMessageService(msgs, memberOf(10, 1, 2), broadcaster)

	if err := svc.DeleteMessage(context.Background(), account.Actor{ID: 1}, 7); err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}
	if !msg.IsDeleted {
		t.Error("message not soft deleted")
	}
	if len(broadcaster.Events) != 1 || broadcaster.Events[0].Event != EventMessageDeleted {
		t.Errorf("unexpected broadcasts: %+v", broadcaster.Events)
	}

	// The sender still resolves the deleted message; others see not found.
	if _, err := svc.EditMessage(context.Background(), account.Actor{ID: 1}, 7, "still mine"); err != nil {
		t.Errorf("sender lost access to deleted message: %v", err)
	}
	_, err := svc.EditMessage(context.Background(), account.Actor{ID: 2}, 7, "gone")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("expected not found for other participant, got %v", err)
	}
}

func TestMessageVisibleTo(t *testing.T) {
	msg := &Message{SenderID: 1, IsDeleted: true}
	if !msg.VisibleTo(1) {
		t.Error("deleted message hidden from its sender")
	}
	if msg.VisibleTo(2) {
		t.Error("deleted message visible to another participant")
	}
}

func TestMarkRead(t *testing.T) {
	var advancedTo time.Time
	var receipt *ReadReceipt
	msgs := &MockMessageRepository{
		FindVisibleByIDFunc: func(ctx context.Context, id, viewerID uint) (*Message, error) {
			return &Message{ID: 20, ConversationID: 10, SenderID: 2}, nil
		},
		UpsertReceiptFunc: func(ctx context.Context, r *ReadReceipt) error {
			receipt = r
			return nil
		},
	}
	convs := memberOf(10, 1, 2)
	convs.AdvanceLastReadFunc = func(ctx context.Context, conversationID, accountID uint, at time.Time) error {
		advancedTo = at
		return nil
	}
	broadcaster := &RecordingBroadcaster{}
	svc := NewMessageService(msgs, convs, broadcaster)
	now := ts(30)
	svc.now = func() time.Time { return now }

	got, err := svc.MarkRead(context.Background(), account.Actor{ID: 1}, 20)
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if receipt == nil || !receipt.ReadAt.Equal(now) || receipt.AccountID != 1 {
		t.Errorf("receipt not upserted correctly: %+v", receipt)
	}
	if !advancedTo.Equal(now) {
		t.Errorf("lastReadAt advanced to %v, want %v", advancedTo, now)
	}
	if got.MessageID != 20 {
		t.Errorf("receipt message = %d, want 20", got.MessageID)
	}
	if len(broadcaster.Events) != 1 || broadcaster.Events[0].Event != EventReadReceipt {
		t.Errorf("unexpected broadcasts: %+v", broadcaster.Events)
	}
}

func TestReactions(t *testing.T) {
	visible := func() *MockMessageRepository {
		return &MockMessageRepository{
			FindVisibleByIDFunc: func(ctx context.Context, id, viewerID uint) (*Message, error) {
				return &Message{ID: id, ConversationID: 10, SenderID: 2}, nil
			},
		}
	}

	t.Run("add is idempotent through the store upsert", func(t *testing.T) {
		rows := map[string]struct{}{}
		msgs := visible()
		msgs.AddReactionFunc = func(ctx context.Context, r *Reaction) error {
			rows[r.Emoji] = struct{}{} // second insert is a no-op
			return nil
		}
		svc := NewMessageService(msgs, memberOf(10, 1, 2), NopBroadcaster{})

		for i := 0; i < 2; i++ {
			if err := svc.AddReaction(context.Background(), account.Actor{ID: 1}, 20, "🔥"); err != nil {
				t.Fatalf("AddReaction() #%d error = %v", i+1, err)
			}
		}
		if len(rows) != 1 {
			t.Errorf("reaction rows = %d, want 1", len(rows))
		}
	})

	t.Run("remove reports absence without error", func(t *testing.T) {
		msgs := visible()
		msgs.RemoveReactionFunc = func(ctx context.Context, messageID, accountID uint, emoji string) (bool, error) {
			return false, nil
		}
		broadcaster := &RecordingBroadcaster{}
		svc := NewMessageService(msgs, memberOf(10, 1, 2), broadcaster)

		removed, err := svc.RemoveReaction(context.Background(), account.Actor{ID: 1}, 20, "🔥")
		if err != nil {
			t.Fatalf("RemoveReaction() error = %v", err)
		}
		if removed {
			t.Error("reported removal of a reaction that did not exist")
		}
		if len(broadcaster.Events) != 0 {
			t.Error("no broadcast expected when nothing was removed")
		}
	})

	t.Run("remove broadcasts on success", func(t *testing.T) {
		msgs := visible()
		msgs.RemoveReactionFunc = func(ctx context.Context, messageID, accountID uint, emoji string) (bool, error) {
			return true, nil
		}
		broadcaster := &RecordingBroadcaster{}
		svc := NewMessageService(msgs, memberOf(10, 1, 2), broadcaster)

		removed, err := svc.RemoveReaction(context.Background(), account.Actor{ID: 1}, 20, "🔥")
		if err != nil || !removed {
			t.Fatalf("RemoveReaction() = %v, %v", removed, err)
		}
		if len(broadcaster.Events) != 1 || broadcaster.Events[0].Event != EventReactionRemoved {
			t.Errorf("unexpected broadcasts: %+v", broadcaster.Events)
		}
	})
}

func TestListMessages_UsesPageBuilder(t *testing.T) {
	rows := []*Message{ // newest first with one over-fetch row
		{ID: 6, CreatedAt: ts(6)},
		{ID: 5, CreatedAt: ts(5)},
		{ID: 4, CreatedAt: ts(4)},
	}
	msgs := &MockMessageRepository{
		FindPageRowsFunc: func(ctx context.Context, conversationID, viewerID uint, before *time.Time, limit int) ([]*Message, error) {
			return rows, nil
		},
	}
	svc := NewMessageService(msgs, memberOf(10, 1), NopBroadcaster{})

	page, err := svc.ListMessages(context.Background(), account.Actor{ID: 1}, 10, nil, 2)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if !page.HasMore || len(page.Messages) != 2 {
		t.Fatalf("page = %+v, want 2 ascending messages with more history", page)
	}
	if page.Messages[0].ID != 5 || page.Messages[1].ID != 6 {
		t.Errorf("page order = %d,%d want 5,6", page.Messages[0].ID, page.Messages[1].ID)
	}
}

func TestSearchMessages(t *testing.T) {
	actor := account.Actor{ID: 1}

	t.Run("requires a query", func(t *testing.T) {
		svc := NewMessageService(&MockMessageRepository{}, memberOf(10, 1), NopBroadcaster{})
		_, _, err := svc.SearchMessages(context.Background(), actor, SearchMessagesFilter{Query: "  "})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("scopes to the requester", func(t *testing.T) {
		msgs := &MockMessageRepository{
			SearchFunc: func(ctx context.Context, filter SearchMessagesFilter) ([]*Message, int64, error) {
				if filter.AccountID != actor.ID {
					t.Errorf("search account = %d, want requester", filter.AccountID)
				}
				return []*Message{{ID: 1}}, 1, nil
			},
		}
		svc := NewMessageService(msgs, memberOf(10, 1), NopBroadcaster{})

		found, total, err := svc.SearchMessages(context.Background(), actor, SearchMessagesFilter{Query: "special"})
		if err != nil || total != 1 || len(found) != 1 {
			t.Errorf("SearchMessages() = %v, %d, %v", found, total, err)
		}
	})

	t.Run("conversation narrowing requires membership", func(t *testing.T) {
		conv := uint(99)
		svc := NewMessageService(&MockMessageRepository{}, memberOf(10, 1), NopBroadcaster{})

		_, _, err := svc.SearchMessages(context.Background(), actor, SearchMessagesFilter{Query: "x", ConversationID: &conv})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}
