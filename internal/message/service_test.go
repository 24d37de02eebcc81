package message

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clipnest/messaging/internal/conversation"
	"github.com/clipnest/messaging/internal/user"
)

// fakeStore is an in-memory Store for exercising the service without a
// database
type fakeStore struct {
	messages map[int64]*Message
	users    map[int64]*user.User
	nextID   int64
	now      time.Time
}

func newFakeStore(users map[int64]*user.User) *fakeStore {
	return &fakeStore{
		messages: make(map[int64]*Message),
		users:    users,
		now:      time.Now(),
	}
}

func (s *fakeStore) Create(_ context.Context, m *Message) (*Message, error) {
	s.nextID++
	s.now = s.now.Add(time.Second)
	stored := *m
	stored.ID = s.nextID
	stored.Status = StatusSent
	stored.CreatedAt = s.now
	s.messages[stored.ID] = &stored
	return &stored, nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*Message, error) {
	return s.messages[id], nil
}

func (s *fakeStore) ListBetween(_ context.Context, userA, userB int64, limit, offset int) ([]*Message, int, error) {
	var result []*Message
	for _, m := range s.messages {
		if (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA) {
			result = append(result, m)
		}
	}
	sortByCreated(result)
	return result, len(result), nil
}

func (s *fakeStore) ListByConversation(_ context.Context, conversationID int64, limit, offset int) ([]*Message, int, error) {
	var result []*Message
	for _, m := range s.messages {
		if m.ConversationID != nil && *m.ConversationID == conversationID {
			result = append(result, m)
		}
	}
	sortByCreated(result)
	return result, len(result), nil
}

func (s *fakeStore) MarkRead(_ context.Context, id int64) (*Message, error) {
	m, ok := s.messages[id]
	if !ok || m.ReadAt != nil {
		return nil, nil
	}
	now := time.Now()
	m.ReadAt = &now
	m.Status = StatusRead
	return m, nil
}

func (s *fakeStore) ListUnreadFromSender(_ context.Context, recipientID, senderID int64) ([]*Message, error) {
	var result []*Message
	for _, m := range s.messages {
		if m.RecipientID == recipientID && m.SenderID == senderID && m.ReadAt == nil {
			result = append(result, m)
		}
	}
	sortByCreated(result)
	return result, nil
}

func (s *fakeStore) CountUnread(_ context.Context, recipientID int64) (int64, error) {
	var count int64
	for _, m := range s.messages {
		if m.RecipientID == recipientID && m.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) RecentPartners(_ context.Context, userID int64, limit, offset int) ([]*user.User, int, error) {
	lastAt := make(map[int64]time.Time)
	for _, m := range s.messages {
		var partnerID int64
		switch {
		case m.SenderID == userID:
			partnerID = m.RecipientID
		case m.RecipientID == userID:
			partnerID = m.SenderID
		default:
			continue
		}
		if m.CreatedAt.After(lastAt[partnerID]) {
			lastAt[partnerID] = m.CreatedAt
		}
	}

	var partners []*user.User
	for partnerID := range lastAt {
		partners = append(partners, s.users[partnerID])
	}
	sort.Slice(partners, func(i, j int) bool {
		return lastAt[partners[i].ID].After(lastAt[partners[j].ID])
	})
	return partners, len(partners), nil
}

func sortByCreated(messages []*Message) {
	sort.Slice(messages, func(i, j int) bool { return messages[i].CreatedAt.Before(messages[j].CreatedAt) })
}

// fakeUsers resolves identities
type fakeUsers map[int64]*user.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	return f[id], nil
}

// fakeConversations tracks conversations and their membership
type fakeConversations struct {
	conversations map[int64]*conversation.Conversation
	members       map[int64]map[int64]bool
}

func (f *fakeConversations) GetByID(_ context.Context, id int64) (*conversation.Conversation, error) {
	return f.conversations[id], nil
}

func (f *fakeConversations) IsParticipant(_ context.Context, conversationID, userID int64) (bool, error) {
	return f.members[conversationID][userID], nil
}

// capturingNotifier records every delivery for assertions
type capturingNotifier struct {
	deliveries []delivery
}

type delivery struct {
	userID  int64
	event   string
	payload interface{}
}

func (n *capturingNotifier) Deliver(userID int64, event string, payload interface{}) {
	n.deliveries = append(n.deliveries, delivery{userID: userID, event: event, payload: payload})
}

func newService() (*Service, *fakeStore, *fakeConversations, *capturingNotifier) {
	users := map[int64]*user.User{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "bob"},
		3: {ID: 3, Username: "carol"},
	}
	store := newFakeStore(users)
	conversations := &fakeConversations{
		conversations: map[int64]*conversation.Conversation{
			10: {ID: 10, Name: "weekend plans", CreatedBy: 1},
			11: {ID: 11, Name: "book club", CreatedBy: 3},
		},
		members: map[int64]map[int64]bool{
			10: {1: true, 2: true},
			11: {3: true},
		},
	}
	notifier := &capturingNotifier{}
	return NewService(store, fakeUsers(users), conversations, notifier), store, conversations, notifier
}

func TestSendNotifiesRecipient(t *testing.T) {
	service, _, _, notifier := newService()

	resp, err := service.Send(context.Background(), 1, &SendMessageRequest{
		RecipientID: 2,
		Content:     "hello",
	})
	require.NoError(t, err)
	require.Equal(t, StatusSent, resp.Status)
	require.Equal(t, TypeText, resp.Type)

	require.Len(t, notifier.deliveries, 1)
	require.Equal(t, int64(2), notifier.deliveries[0].userID)
	require.Equal(t, EventNewMessage, notifier.deliveries[0].event)
}

func TestSendEmptyContent(t *testing.T) {
	service, _, _, _ := newService()

	_, err := service.Send(context.Background(), 1, &SendMessageRequest{
		RecipientID: 2,
		Content:     "   ",
	})
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestSendUnknownRecipient(t *testing.T) {
	service, _, _, _ := newService()

	_, err := service.Send(context.Background(), 1, &SendMessageRequest{
		RecipientID: 99,
		Content:     "hello",
	})
	require.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestSendConversationRequiresParticipant(t *testing.T) {
	service, _, _, _ := newService()

	conversationID := int64(11)
	_, err := service.Send(context.Background(), 1, &SendMessageRequest{
		RecipientID:    3,
		Content:        "hello",
		ConversationID: &conversationID,
	})
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestSendUnknownConversation(t *testing.T) {
	service, _, _, _ := newService()

	conversationID := int64(99)
	_, err := service.Send(context.Background(), 1, &SendMessageRequest{
		RecipientID:    2,
		Content:        "hello",
		ConversationID: &conversationID,
	})
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSendReplyMustExist(t *testing.T) {
	service, _, _, _ := newService()

	replyToID := int64(99)
	_, err := service.Send(context.Background(), 1, &SendMessageRequest{
		RecipientID: 2,
		Content:     "hello",
		ReplyToID:   &replyToID,
	})
	require.ErrorIs(t, err, ErrReplyNotFound)
}

func TestSendReplyAcrossConversations(t *testing.T) {
	service, _, _, _ := newService()

	conversationID := int64(10)
	original, err := service.Send(context.Background(), 1, &SendMessageRequest{
		RecipientID:    2,
		Content:        "see you there?",
		ConversationID: &conversationID,
	})
	require.NoError(t, err)

	// A reply may reference a message from any conversation, only existence
	// is checked
	resp, err := service.Send(context.Background(), 2, &SendMessageRequest{
		RecipientID: 1,
		Content:     "yes",
		ReplyToID:   &original.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ReplyTo)
	require.Equal(t, original.ID, resp.ReplyTo.ID)
	require.Nil(t, resp.ConversationID)
}

func TestMarkRead(t *testing.T) {
	service, _, _, notifier := newService()

	sent, err := service.Send(context.Background(), 1, &SendMessageRequest{
		RecipientID: 2,
		Content:     "hello",
	})
	require.NoError(t, err)

	require.NoError(t, service.MarkRead(context.Background(), 2, sent.ID))

	// Read receipt goes back to the sender
	require.Len(t, notifier.deliveries, 2)
	receipt := notifier.deliveries[1]
	require.Equal(t, int64(1), receipt.userID)
	require.Equal(t, EventReadReceipt, receipt.event)

	// Repeat call is a no-op and emits nothing
	require.NoError(t, service.MarkRead(context.Background(), 2, sent.ID))
	require.Len(t, notifier.deliveries, 2)
}

func TestMarkReadOnlyRecipient(t *testing.T) {
	service, _, _, _ := newService()

	sent, err := service.Send(context.Background(), 1, &SendMessageRequest{
		RecipientID: 2,
		Content:     "hello",
	})
	require.NoError(t, err)

	require.ErrorIs(t, service.MarkRead(context.Background(), 1, sent.ID), ErrNotRecipient)
	require.ErrorIs(t, service.MarkRead(context.Background(), 3, sent.ID), ErrNotRecipient)
}

func TestMarkReadUnknownMessage(t *testing.T) {
	service, _, _, _ := newService()

	require.ErrorIs(t, service.MarkRead(context.Background(), 1, 99), ErrMessageNotFound)
}

func TestMarkThreadRead(t *testing.T) {
	service, _, _, notifier := newService()

	for i := 0; i < 3; i++ {
		_, err := service.Send(context.Background(), 1, &SendMessageRequest{
			RecipientID: 2,
			Content:     "hello",
		})
		require.NoError(t, err)
	}
	// A message in the other direction must stay untouched
	_, err := service.Send(context.Background(), 2, &SendMessageRequest{
		RecipientID: 1,
		Content:     "hi back",
	})
	require.NoError(t, err)

	notifier.deliveries = nil
	require.NoError(t, service.MarkThreadRead(context.Background(), 2, 1))

	// One receipt per message, all to the sender
	require.Len(t, notifier.deliveries, 3)
	for _, d := range notifier.deliveries {
		require.Equal(t, int64(1), d.userID)
		require.Equal(t, EventReadReceipt, d.event)
	}

	count, err := service.UnreadCount(context.Background(), 2)
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = service.UnreadCount(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestUnreadCountAccounting(t *testing.T) {
	service, _, _, _ := newService()

	var ids []int64
	for i := 0; i < 5; i++ {
		sent, err := service.Send(context.Background(), 1, &SendMessageRequest{
			RecipientID: 2,
			Content:     "hello",
		})
		require.NoError(t, err)
		ids = append(ids, sent.ID)
	}

	require.NoError(t, service.MarkRead(context.Background(), 2, ids[0]))
	require.NoError(t, service.MarkRead(context.Background(), 2, ids[1]))

	count, err := service.UnreadCount(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestGetDirectThread(t *testing.T) {
	service, _, _, _ := newService()

	_, err := service.Send(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: "first"})
	require.NoError(t, err)
	_, err = service.Send(context.Background(), 2, &SendMessageRequest{RecipientID: 1, Content: "second"})
	require.NoError(t, err)
	_, err = service.Send(context.Background(), 1, &SendMessageRequest{RecipientID: 3, Content: "other thread"})
	require.NoError(t, err)

	messages, total, err := service.GetDirectThread(context.Background(), 1, 2, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	// Oldest first
	require.Equal(t, "first", messages[0].Content)
	require.Equal(t, "second", messages[1].Content)
}

func TestGetConversationThreadRequiresParticipant(t *testing.T) {
	service, _, _, _ := newService()

	_, _, err := service.GetConversationThread(context.Background(), 3, 10, 1, 20)
	require.ErrorIs(t, err, ErrNotParticipant)

	_, _, err = service.GetConversationThread(context.Background(), 1, 99, 1, 20)
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRecentPartners(t *testing.T) {
	service, _, _, _ := newService()

	_, err := service.Send(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: "to bob"})
	require.NoError(t, err)
	_, err = service.Send(context.Background(), 3, &SendMessageRequest{RecipientID: 1, Content: "from carol"})
	require.NoError(t, err)

	partners, total, err := service.RecentPartners(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	// Most recent interaction first
	require.Equal(t, "carol", partners[0].Username)
	require.Equal(t, "bob", partners[1].Username)
}
