package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/clipnest/messaging/internal/user"
)

// Common errors
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotParticipant       = errors.New("not a participant in this conversation")
	ErrNotAdmin             = errors.New("only admins can perform this action")
	ErrAlreadyParticipant   = errors.New("user is already a participant")
	ErrCannotRemoveCreator  = errors.New("cannot remove conversation creator")
	ErrCreatorCannotLeave   = errors.New("creator cannot leave conversation, transfer ownership first")
)

// Store is the persistence surface the conversation service depends on,
// implemented by *Repository.
type Store interface {
	Create(ctx context.Context, name string, description *string, creatorID int64, participantIDs []int64) (*Conversation, error)
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	ListByParticipant(ctx context.Context, userID int64, limit, offset int) ([]*Conversation, int, error)
	GetParticipants(ctx context.Context, conversationID int64) ([]*Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	IsAdmin(ctx context.Context, conversationID, userID int64) (bool, error)
	AddParticipant(ctx context.Context, conversationID, userID int64) error
	RemoveParticipant(ctx context.Context, conversationID, userID int64) error
	AddAdmin(ctx context.Context, conversationID, userID int64) error
}

// UserDirectory resolves user identities, implemented by *user.Repository
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Service handles conversation business logic
type Service struct {
	repo  Store
	users UserDirectory
}

// NewService creates a new conversation service
func NewService(repo Store, users UserDirectory) *Service {
	return &Service{repo: repo, users: users}
}

// Create creates a conversation with the actor as creator, sole admin and
// participant, plus the resolved participant ids
func (s *Service) Create(ctx context.Context, actorID int64, req *CreateConversationRequest) (*ConversationResponse, error) {
	for _, participantID := range req.ParticipantIDs {
		u, err := s.users.GetByID(ctx, participantID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("%w: %d", ErrUserNotFound, participantID)
		}
	}

	c, err := s.repo.Create(ctx, req.Name, req.Description, actorID, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	return s.toResponse(ctx, c)
}

// Get retrieves a conversation; the actor must be a participant
func (s *Service) Get(ctx context.Context, actorID, conversationID int64) (*ConversationResponse, error) {
	c, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	isParticipant, err := s.repo.IsParticipant(ctx, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, ErrNotParticipant
	}

	return s.toResponse(ctx, c)
}

// ListForUser retrieves the actor's conversations, most recently updated first
func (s *Service) ListForUser(ctx context.Context, actorID int64, page, perPage int) ([]*ConversationResponse, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	conversations, total, err := s.repo.ListByParticipant(ctx, actorID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*ConversationResponse, len(conversations))
	for i, c := range conversations {
		resp, err := s.toResponse(ctx, c)
		if err != nil {
			return nil, 0, err
		}
		responses[i] = resp
	}

	return responses, total, nil
}

// AddParticipant adds a user to a conversation; only admins may do this
func (s *Service) AddParticipant(ctx context.Context, actorID, conversationID, userID int64) (*ConversationResponse, error) {
	c, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	isParticipant, err := s.repo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if isParticipant {
		return nil, ErrAlreadyParticipant
	}

	if err := s.repo.AddParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, c)
}

// RemoveParticipant removes a user from a conversation; only admins may do
// this and the creator can never be removed. Admin status is dropped with
// participation.
func (s *Service) RemoveParticipant(ctx context.Context, actorID, conversationID, userID int64) (*ConversationResponse, error) {
	c, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	isParticipant, err := s.repo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, ErrNotParticipant
	}

	if c.CreatedBy == userID {
		return nil, ErrCannotRemoveCreator
	}

	if err := s.repo.RemoveParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, c)
}

// MakeAdmin grants admin rights to a participant; only admins may do this.
// Idempotent when the target is already an admin.
func (s *Service) MakeAdmin(ctx context.Context, actorID, conversationID, userID int64) (*ConversationResponse, error) {
	c, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	isParticipant, err := s.repo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, ErrNotParticipant
	}

	if err := s.repo.AddAdmin(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, c)
}

// Leave removes the actor from a conversation. The creator cannot leave;
// ownership transfer is intentionally unimplemented.
func (s *Service) Leave(ctx context.Context, actorID, conversationID int64) error {
	c, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}

	isParticipant, err := s.repo.IsParticipant(ctx, conversationID, actorID)
	if err != nil {
		return err
	}
	if !isParticipant {
		return ErrNotParticipant
	}

	if c.CreatedBy == actorID {
		return ErrCreatorCannotLeave
	}

	return s.repo.RemoveParticipant(ctx, conversationID, actorID)
}

func (s *Service) getConversation(ctx context.Context, id int64) (*Conversation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrConversationNotFound
	}
	return c, nil
}

func (s *Service) requireAdmin(ctx context.Context, conversationID, actorID int64) error {
	isAdmin, err := s.repo.IsAdmin(ctx, conversationID, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrNotAdmin
	}
	return nil
}

func (s *Service) toResponse(ctx context.Context, c *Conversation) (*ConversationResponse, error) {
	resp := c.ToResponse()

	participants, err := s.repo.GetParticipants(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	resp.Participants = make([]*ParticipantResponse, len(participants))
	for i, p := range participants {
		resp.Participants[i] = p.ToResponse()
	}

	return resp, nil
}
