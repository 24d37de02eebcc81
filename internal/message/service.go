package message

import (
	"context"
	"errors"
	"strings"

	"github.com/clipnest/messaging/internal/conversation"
	"github.com/clipnest/messaging/internal/user"
)

// Common errors
var (
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrReplyNotFound        = errors.New("reply message not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant in this conversation")
	ErrNotRecipient         = errors.New("not authorized to mark this message as read")
	ErrEmptyContent         = errors.New("message content cannot be empty")
)

// Store is the persistence surface the messaging service depends on,
// implemented by *Repository.
type Store interface {
	Create(ctx context.Context, m *Message) (*Message, error)
	GetByID(ctx context.Context, id int64) (*Message, error)
	ListBetween(ctx context.Context, userA, userB int64, limit, offset int) ([]*Message, int, error)
	ListByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*Message, int, error)
	MarkRead(ctx context.Context, id int64) (*Message, error)
	ListUnreadFromSender(ctx context.Context, recipientID, senderID int64) ([]*Message, error)
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
	RecentPartners(ctx context.Context, userID int64, limit, offset int) ([]*user.User, int, error)
}

// UserDirectory resolves user identities, implemented by *user.Repository
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// ConversationDirectory checks conversation existence and membership,
// implemented by *conversation.Repository
type ConversationDirectory interface {
	GetByID(ctx context.Context, id int64) (*conversation.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
}

// Service orchestrates message creation, read-state transitions and unread
// accounting, and emits events for the realtime notifier
type Service struct {
	repo          Store
	users         UserDirectory
	conversations ConversationDirectory
	notifier      Notifier
}

// NewService creates a new messaging service
func NewService(repo Store, users UserDirectory, conversations ConversationDirectory, notifier Notifier) *Service {
	return &Service{repo: repo, users: users, conversations: conversations, notifier: notifier}
}

// Send persists a new message with status SENT and notifies the recipient.
// A conversation tag requires the sender to be a participant. A reply link
// only requires the referenced message to exist; replying across
// conversations is permitted.
func (s *Service) Send(ctx context.Context, actorID int64, req *SendMessageRequest) (*MessageResponse, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}

	recipient, err := s.users.GetByID(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}

	if req.ConversationID != nil {
		c, err := s.conversations.GetByID(ctx, *req.ConversationID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, ErrConversationNotFound
		}

		isParticipant, err := s.conversations.IsParticipant(ctx, *req.ConversationID, actorID)
		if err != nil {
			return nil, err
		}
		if !isParticipant {
			return nil, ErrNotParticipant
		}
	}

	if req.ReplyToID != nil {
		replyTo, err := s.repo.GetByID(ctx, *req.ReplyToID)
		if err != nil {
			return nil, err
		}
		if replyTo == nil {
			return nil, ErrReplyNotFound
		}
	}

	m, err := s.repo.Create(ctx, &Message{
		SenderID:       actorID,
		RecipientID:    req.RecipientID,
		Content:        req.Content,
		Type:           TypeText,
		ConversationID: req.ConversationID,
		ReplyToID:      req.ReplyToID,
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.toResponse(ctx, m)
	if err != nil {
		return nil, err
	}

	// best-effort push; the persisted message is the source of truth
	s.notifier.Deliver(m.RecipientID, EventNewMessage, resp)

	return resp, nil
}

// GetDirectThread retrieves the messages between the actor and another user,
// oldest first
func (s *Service) GetDirectThread(ctx context.Context, actorID, otherUserID int64, page, perPage int) ([]*MessageResponse, int, error) {
	other, err := s.users.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, 0, err
	}
	if other == nil {
		return nil, 0, ErrUserNotFound
	}

	limit, offset := clampPage(page, perPage)
	messages, total, err := s.repo.ListBetween(ctx, actorID, otherUserID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses, err := s.toResponses(ctx, messages)
	if err != nil {
		return nil, 0, err
	}

	return responses, total, nil
}

// GetConversationThread retrieves a conversation's messages, oldest first;
// the actor must be a participant
func (s *Service) GetConversationThread(ctx context.Context, actorID, conversationID int64, page, perPage int) ([]*MessageResponse, int, error) {
	c, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if c == nil {
		return nil, 0, ErrConversationNotFound
	}

	isParticipant, err := s.conversations.IsParticipant(ctx, conversationID, actorID)
	if err != nil {
		return nil, 0, err
	}
	if !isParticipant {
		return nil, 0, ErrNotParticipant
	}

	limit, offset := clampPage(page, perPage)
	messages, total, err := s.repo.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses, err := s.toResponses(ctx, messages)
	if err != nil {
		return nil, 0, err
	}

	return responses, total, nil
}

// MarkRead transitions a message to READ and notifies the sender. Only the
// true recipient may perform the transition; marking an already-read message
// is a no-op.
func (s *Service) MarkRead(ctx context.Context, actorID, messageID int64) error {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrMessageNotFound
	}

	if m.RecipientID != actorID {
		return ErrNotRecipient
	}

	if m.IsRead() {
		return nil
	}

	updated, err := s.repo.MarkRead(ctx, messageID)
	if err != nil {
		return err
	}
	if updated == nil {
		// already read by a concurrent call
		return nil
	}

	resp, err := s.toResponse(ctx, updated)
	if err != nil {
		return err
	}

	s.notifier.Deliver(updated.SenderID, EventReadReceipt, resp)

	return nil
}

// MarkThreadRead applies the read transition to every unread message the
// given sender addressed to the actor, emitting one receipt per message
func (s *Service) MarkThreadRead(ctx context.Context, actorID, otherUserID int64) error {
	other, err := s.users.GetByID(ctx, otherUserID)
	if err != nil {
		return err
	}
	if other == nil {
		return ErrUserNotFound
	}

	unread, err := s.repo.ListUnreadFromSender(ctx, actorID, otherUserID)
	if err != nil {
		return err
	}

	for _, m := range unread {
		updated, err := s.repo.MarkRead(ctx, m.ID)
		if err != nil {
			return err
		}
		if updated == nil {
			continue
		}

		resp, err := s.toResponse(ctx, updated)
		if err != nil {
			return err
		}
		s.notifier.Deliver(updated.SenderID, EventReadReceipt, resp)
	}

	return nil
}

// UnreadCount counts the messages addressed to the actor with no read
// timestamp
func (s *Service) UnreadCount(ctx context.Context, actorID int64) (int64, error) {
	return s.repo.CountUnread(ctx, actorID)
}

// RecentPartners retrieves the distinct users the actor has exchanged
// messages with, most recent interaction first
func (s *Service) RecentPartners(ctx context.Context, actorID int64, page, perPage int) ([]*user.UserResponse, int, error) {
	limit, offset := clampPage(page, perPage)

	partners, total, err := s.repo.RecentPartners(ctx, actorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*user.UserResponse, len(partners))
	for i, p := range partners {
		responses[i] = p.ToResponse()
	}

	return responses, total, nil
}

// toResponse projects a message, resolving the reply chain by reference
func (s *Service) toResponse(ctx context.Context, m *Message) (*MessageResponse, error) {
	resp := m.ToResponse()

	if m.ReplyToID != nil {
		replyTo, err := s.repo.GetByID(ctx, *m.ReplyToID)
		if err != nil {
			return nil, err
		}
		if replyTo != nil {
			nested, err := s.toResponse(ctx, replyTo)
			if err != nil {
				return nil, err
			}
			resp.ReplyTo = nested
		}
	}

	return resp, nil
}

func (s *Service) toResponses(ctx context.Context, messages []*Message) ([]*MessageResponse, error) {
	responses := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		resp, err := s.toResponse(ctx, m)
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
