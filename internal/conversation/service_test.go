package conversation

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clipnest/messaging/internal/user"
)

// fakeStore is an in-memory Store for exercising the service without a
// database
type fakeStore struct {
	conversations map[int64]*Conversation
	participants  map[int64]map[int64]time.Time
	admins        map[int64]map[int64]bool
	usernames     map[int64]string
	nextID        int64
}

func newFakeStore(usernames map[int64]string) *fakeStore {
	return &fakeStore{
		conversations: make(map[int64]*Conversation),
		participants:  make(map[int64]map[int64]time.Time),
		admins:        make(map[int64]map[int64]bool),
		usernames:     usernames,
	}
}

func (s *fakeStore) Create(_ context.Context, name string, description *string, creatorID int64, participantIDs []int64) (*Conversation, error) {
	s.nextID++
	c := &Conversation{
		ID:          s.nextID,
		Name:        name,
		Description: description,
		Type:        TypeGroup,
		CreatedBy:   creatorID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	s.conversations[c.ID] = c
	s.participants[c.ID] = map[int64]time.Time{creatorID: time.Now()}
	s.admins[c.ID] = map[int64]bool{creatorID: true}
	for _, id := range participantIDs {
		s.participants[c.ID][id] = time.Now()
	}
	return c, nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*Conversation, error) {
	return s.conversations[id], nil
}

func (s *fakeStore) ListByParticipant(_ context.Context, userID int64, limit, offset int) ([]*Conversation, int, error) {
	var result []*Conversation
	for id, members := range s.participants {
		if _, ok := members[userID]; ok {
			result = append(result, s.conversations[id])
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return result, len(result), nil
}

func (s *fakeStore) GetParticipants(_ context.Context, conversationID int64) ([]*Participant, error) {
	var result []*Participant
	for userID, joinedAt := range s.participants[conversationID] {
		result = append(result, &Participant{
			ConversationID: conversationID,
			UserID:         userID,
			IsAdmin:        s.admins[conversationID][userID],
			JoinedAt:       joinedAt,
			Username:       s.usernames[userID],
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (s *fakeStore) IsParticipant(_ context.Context, conversationID, userID int64) (bool, error) {
	_, ok := s.participants[conversationID][userID]
	return ok, nil
}

func (s *fakeStore) IsAdmin(_ context.Context, conversationID, userID int64) (bool, error) {
	return s.admins[conversationID][userID], nil
}

func (s *fakeStore) AddParticipant(_ context.Context, conversationID, userID int64) error {
	s.participants[conversationID][userID] = time.Now()
	return nil
}

func (s *fakeStore) RemoveParticipant(_ context.Context, conversationID, userID int64) error {
	delete(s.participants[conversationID], userID)
	delete(s.admins[conversationID], userID)
	return nil
}

func (s *fakeStore) AddAdmin(_ context.Context, conversationID, userID int64) error {
	s.admins[conversationID][userID] = true
	return nil
}

// fakeUsers resolves identities for the service's existence checks
type fakeUsers map[int64]*user.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	return f[id], nil
}

func newService() (*Service, *fakeStore) {
	usernames := map[int64]string{1: "alice", 2: "bob", 3: "carol"}
	store := newFakeStore(usernames)
	users := fakeUsers{}
	for id, name := range usernames {
		users[id] = &user.User{ID: id, Username: name}
	}
	return NewService(store, users), store
}

func TestCreateConversation(t *testing.T) {
	service, store := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{
		Name:           "weekend plans",
		ParticipantIDs: []int64{2, 3},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.CreatedBy)
	require.Len(t, resp.Participants, 3)

	// Creator is participant and sole admin
	isAdmin, err := store.IsAdmin(context.Background(), resp.ID, 1)
	require.NoError(t, err)
	require.True(t, isAdmin)

	isAdmin, err = store.IsAdmin(context.Background(), resp.ID, 2)
	require.NoError(t, err)
	require.False(t, isAdmin)
}

func TestCreateConversationUnknownParticipant(t *testing.T) {
	service, _ := newService()

	_, err := service.Create(context.Background(), 1, &CreateConversationRequest{
		Name:           "weekend plans",
		ParticipantIDs: []int64{99},
	})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetRequiresParticipant(t *testing.T) {
	service, _ := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{Name: "private chat"})
	require.NoError(t, err)

	_, err = service.Get(context.Background(), 2, resp.ID)
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestAddParticipantRequiresAdmin(t *testing.T) {
	service, _ := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{
		Name:           "weekend plans",
		ParticipantIDs: []int64{2},
	})
	require.NoError(t, err)

	_, err = service.AddParticipant(context.Background(), 2, resp.ID, 3)
	require.ErrorIs(t, err, ErrNotAdmin)

	added, err := service.AddParticipant(context.Background(), 1, resp.ID, 3)
	require.NoError(t, err)
	require.Len(t, added.Participants, 3)
}

func TestAddParticipantTwice(t *testing.T) {
	service, _ := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{
		Name:           "weekend plans",
		ParticipantIDs: []int64{2},
	})
	require.NoError(t, err)

	_, err = service.AddParticipant(context.Background(), 1, resp.ID, 2)
	require.ErrorIs(t, err, ErrAlreadyParticipant)
}

func TestRemoveParticipantDropsAdminRole(t *testing.T) {
	service, store := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{
		Name:           "weekend plans",
		ParticipantIDs: []int64{2},
	})
	require.NoError(t, err)

	_, err = service.MakeAdmin(context.Background(), 1, resp.ID, 2)
	require.NoError(t, err)

	_, err = service.RemoveParticipant(context.Background(), 1, resp.ID, 2)
	require.NoError(t, err)

	isAdmin, err := store.IsAdmin(context.Background(), resp.ID, 2)
	require.NoError(t, err)
	require.False(t, isAdmin)
}

func TestRemoveCreatorBlocked(t *testing.T) {
	service, _ := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{
		Name:           "weekend plans",
		ParticipantIDs: []int64{2},
	})
	require.NoError(t, err)

	// Even another admin cannot remove the creator
	_, err = service.MakeAdmin(context.Background(), 1, resp.ID, 2)
	require.NoError(t, err)

	_, err = service.RemoveParticipant(context.Background(), 2, resp.ID, 1)
	require.ErrorIs(t, err, ErrCannotRemoveCreator)
}

func TestMakeAdminRequiresParticipant(t *testing.T) {
	service, _ := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{Name: "weekend plans"})
	require.NoError(t, err)

	_, err = service.MakeAdmin(context.Background(), 1, resp.ID, 3)
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestMakeAdminIdempotent(t *testing.T) {
	service, _ := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{
		Name:           "weekend plans",
		ParticipantIDs: []int64{2},
	})
	require.NoError(t, err)

	_, err = service.MakeAdmin(context.Background(), 1, resp.ID, 2)
	require.NoError(t, err)

	_, err = service.MakeAdmin(context.Background(), 1, resp.ID, 2)
	require.NoError(t, err)
}

func TestLeave(t *testing.T) {
	service, store := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{
		Name:           "weekend plans",
		ParticipantIDs: []int64{2},
	})
	require.NoError(t, err)

	require.NoError(t, service.Leave(context.Background(), 2, resp.ID))

	isParticipant, err := store.IsParticipant(context.Background(), resp.ID, 2)
	require.NoError(t, err)
	require.False(t, isParticipant)

	// Leaving again is a membership error
	require.ErrorIs(t, service.Leave(context.Background(), 2, resp.ID), ErrNotParticipant)
}

func TestCreatorCannotLeave(t *testing.T) {
	service, _ := newService()

	resp, err := service.Create(context.Background(), 1, &CreateConversationRequest{Name: "weekend plans"})
	require.NoError(t, err)

	require.ErrorIs(t, service.Leave(context.Background(), 1, resp.ID), ErrCreatorCannotLeave)
}

func TestListForUser(t *testing.T) {
	service, _ := newService()

	first, err := service.Create(context.Background(), 1, &CreateConversationRequest{Name: "first"})
	require.NoError(t, err)
	_, err = service.Create(context.Background(), 2, &CreateConversationRequest{Name: "second"})
	require.NoError(t, err)

	list, total, err := service.ListForUser(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, first.ID, list[0].ID)
}
