package chat

import (
	"context"
	"testing"
	"time"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
	"github.com/quangtuanitmo18/qr-order-server/internal/utils/platformerrors"
)

func strPtr(s string) *string { return &s }

func newConversationService(convs *MockConversationRepository, msgs *MockMessageRepository, accounts *MockAccountRepository) *ConversationService {
	if msgs == nil {
		msgs = &MockMessageRepository{}
	}
	if accounts == nil {
		accounts = &MockAccountRepository{}
	}
	return NewConversationService(convs, msgs, accounts)
}

func TestCreateConversation_Direct(t *testing.T) {
	actor := account.Actor{ID: 1, Role: account.RoleEmployee}

	t.Run("creates with creator and the other participant", func(t *testing.T) {
		var gotMembers []uint
		repo := &MockConversationRepository{
			CreateFunc: func(ctx context.Context, conv *Conversation, participantIDs []uint) error {
				conv.ID = 5
				gotMembers = participantIDs
				return nil
			},
		}
		svc := newConversationService(repo, nil, nil)

		conv, err := svc.CreateConversation(context.Background(), actor, CreateConversationInput{
			Type:           ConversationDirect,
			ParticipantIDs: []uint{2},
		})
		if err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
		if conv.ID != 5 || conv.CreatedByID != actor.ID {
			t.Errorf("conversation not persisted correctly: %+v", conv)
		}
		if len(gotMembers) != 2 {
			t.Errorf("direct conversation created with %d members, want 2", len(gotMembers))
		}
	})

	t.Run("idempotent create returns the existing conversation", func(t *testing.T) {
		existing := &Conversation{ID: 9, Type: ConversationDirect}
		created := false
		repo := &MockConversationRepository{
			FindDirectBetweenFunc: func(ctx context.Context, a, b uint) (*Conversation, error) {
				return existing, nil
			},
			CreateFunc: func(ctx context.Context, conv *Conversation, participantIDs []uint) error {
				created = true
				return nil
			},
		}
		svc := newConversationService(repo, nil, nil)

		for range [2]struct{}{} {
			conv, err := svc.CreateConversation(context.Background(), actor, CreateConversationInput{
				Type:           ConversationDirect,
				ParticipantIDs: []uint{2},
			})
			if err != nil {
				t.Fatalf("CreateConversation() error = %v", err)
			}
			if conv.ID != existing.ID {
				t.Errorf("got conversation %d, want existing %d", conv.ID, existing.ID)
			}
		}
		if created {
			t.Error("a second direct conversation row was created")
		}
	})

	t.Run("rejects multiple participants", func(t *testing.T) {
		svc := newConversationService(&MockConversationRepository{}, nil, nil)

		_, err := svc.CreateConversation(context.Background(), actor, CreateConversationInput{
			Type:           ConversationDirect,
			ParticipantIDs: []uint{2, 3},
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects self only", func(t *testing.T) {
		svc := newConversationService(&MockConversationRepository{}, nil, nil)

		_, err := svc.CreateConversation(context.Background(), actor, CreateConversationInput{
			Type:           ConversationDirect,
			ParticipantIDs: []uint{actor.ID},
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestCreateConversation_Group(t *testing.T) {
	owner := account.Actor{ID: 1, Role: account.RoleOwner}

	t.Run("non owner always forbidden", func(t *testing.T) {
		svc := newConversationService(&MockConversationRepository{}, nil, nil)

		for _, role := range []account.Role{account.RoleEmployee, account.RoleGuest} {
			_, err := svc.CreateConversation(context.Background(), account.Actor{ID: 2, Role: role}, CreateConversationInput{
				Type:           ConversationGroup,
				Name:           strPtr("kitchen"),
				ParticipantIDs: []uint{3, 4},
			})
			if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
				t.Errorf("role %s: expected forbidden, got %v", role, err)
			}
		}
	})

	t.Run("requires a name", func(t *testing.T) {
		svc := newConversationService(&MockConversationRepository{}, nil, nil)

		_, err := svc.CreateConversation(context.Background(), owner, CreateConversationInput{
			Type:           ConversationGroup,
			Name:           strPtr("   "),
			ParticipantIDs: []uint{2},
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("enforces the participant cap", func(t *testing.T) {
		svc := newConversationService(&MockConversationRepository{}, nil, nil)

		ids := make([]uint, 50) // plus the creator makes 51
		for i := range ids {
			ids[i] = uint(i + 2)
		}
		_, err := svc.CreateConversation(context.Background(), owner, CreateConversationInput{
			Type:           ConversationGroup,
			Name:           strPtr("everyone"),
			ParticipantIDs: ids,
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects participants that cannot chat", func(t *testing.T) {
		accounts := &MockAccountRepository{
			FindByIDsFunc: func(ctx context.Context, ids []uint) ([]*account.Account, error) {
				out := make([]*account.Account, 0, len(ids))
				for _, id := range ids {
					role := account.RoleEmployee
					if id == 4 {
						role = account.RoleGuest
					}
					out = append(out, &account.Account{ID: id, Role: role})
				}
				return out, nil
			},
		}
		svc := newConversationService(&MockConversationRepository{}, nil, accounts)

		_, err := svc.CreateConversation(context.Background(), owner, CreateConversationInput{
			Type:           ConversationGroup,
			Name:           strPtr("kitchen"),
			ParticipantIDs: []uint{3, 4},
		})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("deduplicates requested participants", func(t *testing.T) {
		var gotMembers []uint
		repo := &MockConversationRepository{
			CreateFunc: func(ctx context.Context, conv *Conversation, participantIDs []uint) error {
				gotMembers = participantIDs
				return nil
			},
		}
		svc := newConversationService(repo, nil, nil)

		_, err := svc.CreateConversation(context.Background(), owner, CreateConversationInput{
			Type:           ConversationGroup,
			Name:           strPtr("kitchen"),
			ParticipantIDs: []uint{2, 2, 3, 1},
		})
		if err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
		if len(gotMembers) != 3 {
			t.Errorf("members = %v, want creator plus 2 distinct others", gotMembers)
		}
	})
}

func TestGetConversation_ConflatesMembership(t *testing.T) {
	conv := &Conversation{
		ID:   7,
		Type: ConversationGroup,
		Participants: []Participant{
			{ConversationID: 7, AccountID: 1},
			{ConversationID: 7, AccountID: 2},
		},
	}
	repo := &MockConversationRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*Conversation, error) {
			if id == conv.ID {
				return conv, nil
			}
			return nil, nil
		},
	}
	svc := newConversationService(repo, nil, nil)

	if _, err := svc.GetConversation(context.Background(), account.Actor{ID: 1}, 7); err != nil {
		t.Errorf("member GetConversation() error = %v", err)
	}
	_, err := svc.GetConversation(context.Background(), account.Actor{ID: 9}, 7)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("non member: expected not found, got %v", err)
	}
	_, err = svc.GetConversation(context.Background(), account.Actor{ID: 1}, 404)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("missing conversation: expected not found, got %v", err)
	}
}

func TestAddParticipants(t *testing.T) {
	newGroup := func(memberIDs ...uint) *Conversation {
		conv := &Conversation{ID: 7, Type: ConversationGroup, CreatedByID: 1}
		for _, id := range memberIDs {
			conv.Participants = append(conv.Participants, Participant{ConversationID: 7, AccountID: id})
		}
		return conv
	}

	t.Run("cap violation leaves the set unchanged", func(t *testing.T) {
		members := make([]uint, 49)
		for i := range members {
			members[i] = uint(i + 1)
		}
		added := false
		repo := &MockConversationRepository{
			FindByIDFunc: func(ctx context.Context, id uint) (*Conversation, error) {
				return newGroup(members...), nil
			},
			AddParticipantsFunc: func(ctx context.Context, conversationID uint, accountIDs []uint) error {
				added = true
				return nil
			},
		}
		svc := newConversationService(repo, nil, nil)

		_, err := svc.AddParticipants(context.Background(), account.Actor{ID: 1, Role: account.RoleOwner}, 7, []uint{100, 101})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
		if added {
			t.Error("participants were added despite the cap")
		}
	})

	t.Run("existing members do not count against the cap twice", func(t *testing.T) {
		members := make([]uint, 49)
		for i := range members {
			members[i] = uint(i + 1)
		}
		repo := &MockConversationRepository{
			FindByIDFunc: func(ctx context.Context, id uint) (*Conversation, error) {
				return newGroup(members...), nil
			},
		}
		svc := newConversationService(repo, nil, nil)

		// 49 current + 1 duplicate + 1 new = 50, allowed.
		_, err := svc.AddParticipants(context.Background(), account.Actor{ID: 1, Role: account.RoleOwner}, 7, []uint{2, 100})
		if err != nil {
			t.Errorf("AddParticipants() error = %v", err)
		}
	})

	t.Run("non creator forbidden", func(t *testing.T) {
		repo := &MockConversationRepository{
			FindByIDFunc: func(ctx context.Context, id uint) (*Conversation, error) {
				return newGroup(1, 2), nil
			},
		}
		svc := newConversationService(repo, nil, nil)

		_, err := svc.AddParticipants(context.Background(), account.Actor{ID: 2, Role: account.RoleOwner}, 7, []uint{3})
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})
}

func TestRemoveParticipant_CreatorProtected(t *testing.T) {
	repo := &MockConversationRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*Conversation, error) {
			return &Conversation{
				ID: 7, Type: ConversationGroup, CreatedByID: 1,
				Participants: []Participant{{AccountID: 1}, {AccountID: 2}},
			}, nil
		},
	}
	svc := newConversationService(repo, nil, nil)
	creator := account.Actor{ID: 1, Role: account.RoleOwner}

	err := svc.RemoveParticipant(context.Background(), creator, 7, 1)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("removing the creator: expected validation error, got %v", err)
	}

	if err := svc.RemoveParticipant(context.Background(), creator, 7, 2); err != nil {
		t.Errorf("RemoveParticipant() error = %v", err)
	}
}

func TestDeleteConversation(t *testing.T) {
	t.Run("direct delete removes the conversation", func(t *testing.T) {
		deleted := false
		repo := &MockConversationRepository{
			FindByIDFunc: func(ctx context.Context, id uint) (*Conversation, error) {
				return &Conversation{
					ID: 3, Type: ConversationDirect,
					Participants: []Participant{{AccountID: 1}, {AccountID: 2}},
				}, nil
			},
			DeleteFunc: func(ctx context.Context, id uint) error {
				deleted = true
				return nil
			},
		}
		svc := newConversationService(repo, nil, nil)

		if err := svc.DeleteConversation(context.Background(), account.Actor{ID: 2}, 3); err != nil {
			t.Fatalf("DeleteConversation() error = %v", err)
		}
		if !deleted {
			t.Error("direct conversation was not deleted")
		}
	})

	t.Run("group delete leaves, keeping the conversation for others", func(t *testing.T) {
		var removedAccount uint
		deleted := false
		repo := &MockConversationRepository{
			FindByIDFunc: func(ctx context.Context, id uint) (*Conversation, error) {
				return &Conversation{
					ID: 4, Type: ConversationGroup, CreatedByID: 1,
					Participants: []Participant{{AccountID: 1}, {AccountID: 2}, {AccountID: 3}},
				}, nil
			},
			RemoveParticipantFunc: func(ctx context.Context, conversationID, accountID uint) error {
				removedAccount = accountID
				return nil
			},
			CountParticipantsFunc: func(ctx context.Context, conversationID uint) (int64, error) {
				return 2, nil
			},
			DeleteFunc: func(ctx context.Context, id uint) error {
				deleted = true
				return nil
			},
		}
		svc := newConversationService(repo, nil, nil)

		if err := svc.DeleteConversation(context.Background(), account.Actor{ID: 2}, 4); err != nil {
			t.Fatalf("DeleteConversation() error = %v", err)
		}
		if removedAccount != 2 {
			t.Errorf("removed account %d, want the requester", removedAccount)
		}
		if deleted {
			t.Error("group deleted while members remain")
		}
	})

	t.Run("last member leaving deletes the group", func(t *testing.T) {
		deleted := false
		repo := &MockConversationRepository{
			FindByIDFunc: func(ctx context.Context, id uint) (*Conversation, error) {
				return &Conversation{
					ID: 4, Type: ConversationGroup, CreatedByID: 1,
					Participants: []Participant{{AccountID: 1}},
				}, nil
			},
			CountParticipantsFunc: func(ctx context.Context, conversationID uint) (int64, error) {
				return 0, nil
			},
			DeleteFunc: func(ctx context.Context, id uint) error {
				deleted = true
				return nil
			},
		}
		svc := newConversationService(repo, nil, nil)

		if err := svc.DeleteConversation(context.Background(), account.Actor{ID: 1}, 4); err != nil {
			t.Fatalf("DeleteConversation() error = %v", err)
		}
		if !deleted {
			t.Error("empty group was not deleted")
		}
	})
}

func TestUnpin_NotPinned(t *testing.T) {
	repo := &MockConversationRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*Conversation, error) {
			return &Conversation{ID: 7, Participants: []Participant{{AccountID: 1}}}, nil
		},
		UnpinFunc: func(ctx context.Context, conversationID, accountID uint) (bool, error) {
			return false, nil
		},
	}
	svc := newConversationService(repo, nil, nil)

	err := svc.UnpinConversation(context.Background(), account.Actor{ID: 1}, 7)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("expected not-pinned validation error, got %v", err)
	}
}

func TestListConversations_Annotations(t *testing.T) {
	me := account.Actor{ID: 1, Role: account.RoleEmployee}
	convs := []*Conversation{
		{ID: 10, Type: ConversationDirect},
		{ID: 11, Type: ConversationGroup},
	}
	repo := &MockConversationRepository{
		FindForAccountFunc: func(ctx context.Context, filter ListConversationsFilter) ([]*Conversation, int64, error) {
			if filter.AccountID != me.ID {
				t.Errorf("filter account = %d, want requester", filter.AccountID)
			}
			return convs, 2, nil
		},
		FindPinsFunc: func(ctx context.Context, accountID uint, conversationIDs []uint) ([]*Pin, error) {
			return []*Pin{{ConversationID: 11, AccountID: me.ID}}, nil
		},
		LastReadTimesFunc: func(ctx context.Context, conversationIDs []uint, accountID uint) (map[uint]*time.Time, error) {
			return map[uint]*time.Time{10: tsPtr(10), 11: nil}, nil
		},
	}
	msgs := &MockMessageRepository{
		LatestVisibleFunc: func(ctx context.Context, conversationIDs []uint) (map[uint]*Message, error) {
			return map[uint]*Message{10: {ID: 100, ConversationID: 10}}, nil
		},
		StampsForUnreadFunc: func(ctx context.Context, conversationIDs []uint, accountID uint, after *time.Time) ([]MessageStamp, error) {
			if after != nil {
				t.Error("expected full fetch when a lastReadAt is null")
			}
			return []MessageStamp{
				{ConversationID: 10, SenderID: 2, CreatedAt: ts(5)},  // read
				{ConversationID: 10, SenderID: 2, CreatedAt: ts(15)}, // unread
				{ConversationID: 11, SenderID: 3, CreatedAt: ts(1)},  // unread, nil cutoff
			}, nil
		},
	}
	svc := newConversationService(repo, msgs, nil)

	summaries, total, err := svc.ListConversations(context.Background(), me, ListConversationsFilter{})
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if total != 2 || len(summaries) != 2 {
		t.Fatalf("got %d summaries (total %d), want 2", len(summaries), total)
	}
	if summaries[0].UnreadCount != 1 {
		t.Errorf("conversation 10 unread = %d, want 1", summaries[0].UnreadCount)
	}
	if summaries[1].UnreadCount != 1 {
		t.Errorf("conversation 11 unread = %d, want 1", summaries[1].UnreadCount)
	}
	if summaries[0].LastMessage == nil || summaries[0].LastMessage.ID != 100 {
		t.Error("conversation 10 missing its preview message")
	}
	if summaries[0].Pin != nil || summaries[1].Pin == nil {
		t.Error("pin annotations misplaced")
	}
}
