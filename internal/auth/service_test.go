package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clipnest/messaging/internal/user"
)

// fakeStore keeps refresh tokens in memory
type fakeStore struct {
	tokens map[string]*RefreshToken
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{tokens: make(map[string]*RefreshToken)}
}

func (s *fakeStore) CreateRefreshToken(_ context.Context, userID int64, token string, expiresAt time.Time) (*RefreshToken, error) {
	for value, rt := range s.tokens {
		if rt.UserID == userID {
			delete(s.tokens, value)
		}
	}
	s.nextID++
	rt := &RefreshToken{
		ID:        s.nextID,
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	s.tokens[token] = rt
	return rt, nil
}

func (s *fakeStore) GetRefreshToken(_ context.Context, token string) (*RefreshToken, error) {
	return s.tokens[token], nil
}

func (s *fakeStore) DeleteRefreshToken(_ context.Context, token string) error {
	delete(s.tokens, token)
	return nil
}

// fakeUsers keeps accounts in memory
type fakeUsers struct {
	users  map[int64]*user.User
	nextID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[int64]*user.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *user.User) (*user.User, error) {
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	return f.users[id], nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := f.GetByEmail(ctx, email)
	return u != nil, nil
}

func newService() (*Service, *fakeStore, *fakeUsers) {
	store := newFakeStore()
	users := newFakeUsers()
	return NewService(store, users, "secret", time.Minute, time.Hour), store, users
}

func register(t *testing.T, service *Service) *AuthResponse {
	t.Helper()
	resp, err := service.Register(context.Background(), &RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return resp
}

func TestRegister(t *testing.T) {
	service, _, users := newService()

	resp := register(t, service)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "alice", resp.User.Username)

	// Password is stored hashed
	require.NotEqual(t, "correct-horse", users.users[resp.User.ID].PasswordHash)

	claims, err := ParseToken(resp.AccessToken, "secret")
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)
}

func TestRegisterDuplicate(t *testing.T) {
	service, _, _ := newService()
	register(t, service)

	_, err := service.Register(context.Background(), &RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "correct-horse",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = service.Register(context.Background(), &RegisterRequest{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.ErrorIs(t, err, ErrEmailAlreadyInUse)
}

func TestLogin(t *testing.T) {
	service, _, _ := newService()
	register(t, service)

	resp, err := service.Login(context.Background(), &LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	_, err = service.Login(context.Background(), &LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(context.Background(), &LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	service, store, _ := newService()
	first := register(t, service)

	second, err := service.Refresh(context.Background(), &RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The old refresh token is gone after rotation
	_, err = service.Refresh(context.Background(), &RefreshRequest{RefreshToken: first.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.Contains(t, store.tokens, second.RefreshToken)
}

func TestRefreshExpired(t *testing.T) {
	service, store, _ := newService()
	resp := register(t, service)

	store.tokens[resp.RefreshToken].ExpiresAt = time.Now().Add(-time.Minute)

	_, err := service.Refresh(context.Background(), &RefreshRequest{RefreshToken: resp.RefreshToken})
	require.ErrorIs(t, err, ErrRefreshTokenExpired)

	// Expired token is purged on use
	require.NotContains(t, store.tokens, resp.RefreshToken)
}

func TestLogout(t *testing.T) {
	service, store, _ := newService()
	resp := register(t, service)

	require.NoError(t, service.Logout(context.Background(), resp.RefreshToken))
	require.NotContains(t, store.tokens, resp.RefreshToken)

	// Logging out twice is fine
	require.NoError(t, service.Logout(context.Background(), resp.RefreshToken))
}
