package user

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrCannotFollowSelf   = errors.New("cannot follow yourself")
	ErrAlreadyFollowing   = errors.New("already following this user")
	ErrNotFollowing       = errors.New("not following this user")
	ErrRequestAlreadySent = errors.New("follow request already sent")
	ErrRequestNotFound    = errors.New("follow request not found")
	ErrNotRequestee       = errors.New("not authorized to respond to this request")
	ErrRequestNotPending  = errors.New("request is not pending")
)

// Store is the persistence surface the user service depends on,
// implemented by *Repository.
type Store interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, u *User) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Search(ctx context.Context, query string, limit, offset int) ([]*User, int, error)

	InsertFollow(ctx context.Context, followerID, followeeID int64) error
	DeleteFollow(ctx context.Context, followerID, followeeID int64) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error)
	CountFollowers(ctx context.Context, userID int64) (int, error)
	CountFollowing(ctx context.Context, userID int64) (int, error)
	ListFollowers(ctx context.Context, userID int64, limit, offset int) ([]*User, int, error)
	ListFollowing(ctx context.Context, userID int64, limit, offset int) ([]*User, int, error)

	CreateFollowRequest(ctx context.Context, requesterID, requesteeID int64) (*FollowRequest, error)
	GetFollowRequest(ctx context.Context, id int64) (*FollowRequest, error)
	HasFollowRequest(ctx context.Context, requesterID, requesteeID int64) (bool, error)
	ListPendingRequests(ctx context.Context, requesteeID int64, limit, offset int) ([]*FollowRequest, int, error)
	AcceptFollowRequest(ctx context.Context, id int64) (*FollowRequest, error)
	RejectFollowRequest(ctx context.Context, id int64) (*FollowRequest, error)
}

// Service handles profile and follow-graph business logic
type Service struct {
	repo Store
}

// NewService creates a new user service with repository dependency injected
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// GetMe retrieves the current user's own profile
func (s *Service) GetMe(ctx context.Context, userID int64) (*UserResponse, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return s.toResponse(ctx, u, userID)
}

// GetByUsername retrieves a user's profile from the viewer's perspective
func (s *Service) GetByUsername(ctx context.Context, viewerID int64, username string) (*UserResponse, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return s.toResponse(ctx, u, viewerID)
}

// UpdateProfile applies profile changes for the current user, enforcing
// username/email uniqueness
func (s *Service) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*UserResponse, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	if req.Username != nil && *req.Username != u.Username {
		taken, err := s.repo.ExistsByUsername(ctx, *req.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
		u.Username = *req.Username
	}

	if req.Email != nil && *req.Email != u.Email {
		inUse, err := s.repo.ExistsByEmail(ctx, *req.Email)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, ErrEmailAlreadyInUse
		}
		u.Email = *req.Email
	}

	if req.FirstName != nil {
		u.FirstName = req.FirstName
	}
	if req.LastName != nil {
		u.LastName = req.LastName
	}
	if req.Bio != nil {
		u.Bio = req.Bio
	}
	if req.ProfilePictureURL != nil {
		u.ProfilePictureURL = req.ProfilePictureURL
	}
	if req.IsPrivate != nil {
		u.IsPrivate = *req.IsPrivate
	}

	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}

	return s.toResponse(ctx, updated, userID)
}

// ChangePassword verifies the current password and stores a new hash
func (s *Service) ChangePassword(ctx context.Context, userID int64, req *ChangePasswordRequest) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// Search retrieves users matching the query, annotated for the viewer
func (s *Service) Search(ctx context.Context, viewerID int64, query string, page, perPage int) ([]*UserResponse, int, error) {
	limit, offset := clampPage(page, perPage)

	users, total, err := s.repo.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses, err := s.toResponses(ctx, users, viewerID)
	if err != nil {
		return nil, 0, err
	}

	return responses, total, nil
}

// Follow makes the actor follow the target, or creates a follow request when
// the target account is private. Returns the target's view for the actor.
func (s *Service) Follow(ctx context.Context, actorID int64, targetUsername string) (*UserResponse, error) {
	target, err := s.repo.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	if target.ID == actorID {
		return nil, ErrCannotFollowSelf
	}

	following, err := s.repo.IsFollowing(ctx, actorID, target.ID)
	if err != nil {
		return nil, err
	}
	if following {
		return nil, ErrAlreadyFollowing
	}

	if target.IsPrivate {
		requested, err := s.repo.HasFollowRequest(ctx, actorID, target.ID)
		if err != nil {
			return nil, err
		}
		if requested {
			return nil, ErrRequestAlreadySent
		}

		if _, err := s.repo.CreateFollowRequest(ctx, actorID, target.ID); err != nil {
			return nil, err
		}

		return s.toResponse(ctx, target, actorID)
	}

	if err := s.repo.InsertFollow(ctx, actorID, target.ID); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, target, actorID)
}

// Unfollow removes the actor's follow edge to the target
func (s *Service) Unfollow(ctx context.Context, actorID int64, targetUsername string) (*UserResponse, error) {
	target, err := s.repo.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	removed, err := s.repo.DeleteFollow(ctx, actorID, target.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrNotFollowing
	}

	return s.toResponse(ctx, target, actorID)
}

// Followers retrieves the followers of a user, annotated for the viewer
func (s *Service) Followers(ctx context.Context, viewerID int64, username string, page, perPage int) ([]*UserResponse, int, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}
	if u == nil {
		return nil, 0, ErrUserNotFound
	}

	limit, offset := clampPage(page, perPage)
	followers, total, err := s.repo.ListFollowers(ctx, u.ID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses, err := s.toResponses(ctx, followers, viewerID)
	if err != nil {
		return nil, 0, err
	}

	return responses, total, nil
}

// Following retrieves the users a user follows, annotated for the viewer
func (s *Service) Following(ctx context.Context, viewerID int64, username string, page, perPage int) ([]*UserResponse, int, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}
	if u == nil {
		return nil, 0, ErrUserNotFound
	}

	limit, offset := clampPage(page, perPage)
	following, total, err := s.repo.ListFollowing(ctx, u.ID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses, err := s.toResponses(ctx, following, viewerID)
	if err != nil {
		return nil, 0, err
	}

	return responses, total, nil
}

// FollowRequests retrieves the pending requests addressed to the current user,
// newest first
func (s *Service) FollowRequests(ctx context.Context, userID int64, page, perPage int) ([]*FollowRequestResponse, int, error) {
	limit, offset := clampPage(page, perPage)

	requests, total, err := s.repo.ListPendingRequests(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*FollowRequestResponse, 0, len(requests))
	for _, request := range requests {
		requester, err := s.repo.GetByID(ctx, request.RequesterID)
		if err != nil {
			return nil, 0, err
		}
		if requester == nil {
			continue
		}

		requesterView, err := s.toResponse(ctx, requester, userID)
		if err != nil {
			return nil, 0, err
		}

		responses = append(responses, &FollowRequestResponse{
			ID:        request.ID,
			Requester: requesterView,
			Status:    request.Status,
			CreatedAt: request.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	return responses, total, nil
}

// AcceptFollowRequest accepts a pending request addressed to the actor and
// creates the follow edge. Returns the requester's view for the actor.
func (s *Service) AcceptFollowRequest(ctx context.Context, actorID, requestID int64) (*UserResponse, error) {
	request, err := s.repo.GetFollowRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}

	if request.RequesteeID != actorID {
		return nil, ErrNotRequestee
	}

	if request.Status != RequestStatusPending {
		return nil, ErrRequestNotPending
	}

	accepted, err := s.repo.AcceptFollowRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if accepted == nil {
		// lost the race to another accept/reject
		return nil, ErrRequestNotPending
	}

	requester, err := s.repo.GetByID(ctx, accepted.RequesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, ErrUserNotFound
	}

	return s.toResponse(ctx, requester, actorID)
}

// RejectFollowRequest rejects a pending request addressed to the actor.
// No follow edge is created.
func (s *Service) RejectFollowRequest(ctx context.Context, actorID, requestID int64) error {
	request, err := s.repo.GetFollowRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return ErrRequestNotFound
	}

	if request.RequesteeID != actorID {
		return ErrNotRequestee
	}

	if request.Status != RequestStatusPending {
		return ErrRequestNotPending
	}

	rejected, err := s.repo.RejectFollowRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if rejected == nil {
		return ErrRequestNotPending
	}

	return nil
}

// toResponse projects a user for the given viewer, including relation flags
// and counts computed at projection time
func (s *Service) toResponse(ctx context.Context, u *User, viewerID int64) (*UserResponse, error) {
	resp := u.ToResponse()

	followerCount, err := s.repo.CountFollowers(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	followingCount, err := s.repo.CountFollowing(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	resp.FollowerCount = followerCount
	resp.FollowingCount = followingCount

	if viewerID != u.ID {
		isFollowing, err := s.repo.IsFollowing(ctx, viewerID, u.ID)
		if err != nil {
			return nil, err
		}
		isFollowedBy, err := s.repo.IsFollowing(ctx, u.ID, viewerID)
		if err != nil {
			return nil, err
		}
		hasRequested, err := s.repo.HasFollowRequest(ctx, viewerID, u.ID)
		if err != nil {
			return nil, err
		}
		resp.IsFollowing = isFollowing
		resp.IsFollowedBy = isFollowedBy
		resp.HasRequestedFollow = hasRequested
	}

	return resp, nil
}

func (s *Service) toResponses(ctx context.Context, users []*User, viewerID int64) ([]*UserResponse, error) {
	responses := make([]*UserResponse, len(users))
	for i, u := range users {
		resp, err := s.toResponse(ctx, u, viewerID)
		if err != nil {
			return nil, err
		}
		responses[i] = resp
	}
	return responses, nil
}

func clampPage(page, perPage int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return perPage, (page - 1) * perPage
}
