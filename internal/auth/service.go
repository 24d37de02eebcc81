package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clipnest/messaging/internal/user"
)

// Common errors
var (
	ErrUsernameTaken       = errors.New("username is already taken")
	ErrEmailAlreadyInUse   = errors.New("email is already in use")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// Store is the persistence surface the auth service depends on, implemented
// by *Repository.
type Store interface {
	CreateRefreshToken(ctx context.Context, userID int64, token string, expiresAt time.Time) (*RefreshToken, error)
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

// Users is the user persistence surface the auth service depends on,
// implemented by *user.Repository
type Users interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// Service handles registration, login and token rotation
type Service struct {
	repo       Store
	users      Users
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a new auth service
func NewService(repo Store, users Users, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		users:      users,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new account and issues its first token pair
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	taken, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	inUse, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, ErrEmailAlreadyInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, &user.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, u)
}

// Login exchanges email and password for a token pair
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, u)
}

// Refresh exchanges a live refresh token for a fresh token pair. The old
// refresh token is invalidated by the rotation.
func (s *Service) Refresh(ctx context.Context, req *RefreshRequest) (*AuthResponse, error) {
	rt, err := s.repo.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, ErrInvalidRefreshToken
	}

	if rt.IsExpired() {
		if err := s.repo.DeleteRefreshToken(ctx, rt.Token); err != nil {
			return nil, err
		}
		return nil, ErrRefreshTokenExpired
	}

	u, err := s.users.GetByID(ctx, rt.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidRefreshToken
	}

	return s.issueTokens(ctx, u)
}

// Logout invalidates a refresh token. Unknown tokens are ignored so logout
// is idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *Service) issueTokens(ctx context.Context, u *user.User) (*AuthResponse, error) {
	access, err := GenerateToken(u.ID, u.Username, s.secret, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := s.repo.CreateRefreshToken(ctx, u.ID, uuid.NewString(), time.Now().Add(s.refreshTTL))
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		User:         u.ToResponse(),
	}, nil
}
