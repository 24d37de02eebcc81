package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clipnest/messaging/internal/user"
)

const messageColumns = `
	m.id, m.sender_id, m.recipient_id, m.content, m.status, m.type,
	m.conversation_id, m.reply_to_id, m.created_at, m.read_at,
	s.username, r.username`

const messageFrom = `
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.recipient_id`

// Repository handles message persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new message repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanMessage(row interface{ Scan(...any) error }) (*Message, error) {
	m := &Message{}
	err := row.Scan(
		&m.ID,
		&m.SenderID,
		&m.RecipientID,
		&m.Content,
		&m.Status,
		&m.Type,
		&m.ConversationID,
		&m.ReplyToID,
		&m.CreatedAt,
		&m.ReadAt,
		&m.SenderUsername,
		&m.RecipientUsername,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a new message with status SENT
func (r *Repository) Create(ctx context.Context, m *Message) (*Message, error) {
	query := `
		INSERT INTO messages (sender_id, recipient_id, content, status, type, conversation_id, reply_to_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		m.SenderID, m.RecipientID, m.Content, StatusSent, m.Type, m.ConversationID, m.ReplyToID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a message by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Message, error) {
	query := `SELECT ` + messageColumns + messageFrom + ` WHERE m.id = $1`

	m, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return m, nil
}

// ListBetween retrieves the messages exchanged between two users in either
// direction, oldest first
func (r *Repository) ListBetween(ctx context.Context, userA, userB int64, limit, offset int) ([]*Message, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM messages m
		WHERE (m.sender_id = $1 AND m.recipient_id = $2)
		   OR (m.sender_id = $2 AND m.recipient_id = $1)
	`
	if err := r.db.QueryRowContext(ctx, countQuery, userA, userB).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `
		SELECT ` + messageColumns + messageFrom + `
		WHERE (m.sender_id = $1 AND m.recipient_id = $2)
		   OR (m.sender_id = $2 AND m.recipient_id = $1)
		ORDER BY m.created_at ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, userA, userB, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// ListByConversation retrieves the messages tagged with a conversation,
// oldest first
func (r *Repository) ListByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*Message, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `
		SELECT ` + messageColumns + messageFrom + `
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversation messages: %w", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkRead transitions a message from SENT to READ, setting read_at.
// The guard on read_at makes the transition happen at most once; nil is
// returned when the message was already read.
func (r *Repository) MarkRead(ctx context.Context, id int64) (*Message, error) {
	query := `
		UPDATE messages
		SET read_at = NOW(), status = $2
		WHERE id = $1 AND read_at IS NULL
		RETURNING id
	`

	var updatedID int64
	err := r.db.QueryRowContext(ctx, query, id, StatusRead).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}

	return r.GetByID(ctx, updatedID)
}

// ListUnreadFromSender retrieves the unread messages addressed to a recipient
// from one sender, oldest first
func (r *Repository) ListUnreadFromSender(ctx context.Context, recipientID, senderID int64) ([]*Message, error) {
	query := `
		SELECT ` + messageColumns + messageFrom + `
		WHERE m.recipient_id = $1 AND m.sender_id = $2 AND m.read_at IS NULL
		ORDER BY m.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, recipientID, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// CountUnread counts the messages addressed to a user with no read_at
func (r *Repository) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read_at IS NULL`
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// RecentPartners retrieves the distinct counterparts of a user's messages,
// ordered by the most recent message exchanged with each, descending
func (r *Repository) RecentPartners(ctx context.Context, userID int64, limit, offset int) ([]*user.User, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(DISTINCT CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END)
		FROM messages m
		WHERE m.sender_id = $1 OR m.recipient_id = $1
	`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count partners: %w", err)
	}

	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name,
		       u.bio, u.profile_picture_url, u.is_private, u.created_at, u.updated_at
		FROM (
			SELECT CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS partner_id,
			       MAX(m.created_at) AS last_at
			FROM messages m
			WHERE m.sender_id = $1 OR m.recipient_id = $1
			GROUP BY partner_id
		) p
		JOIN users u ON u.id = p.partner_id
		ORDER BY p.last_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list partners: %w", err)
	}
	defer rows.Close()

	var partners []*user.User
	for rows.Next() {
		u := &user.User{}
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.FirstName,
			&u.LastName,
			&u.Bio,
			&u.ProfilePictureURL,
			&u.IsPrivate,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, u)
	}

	return partners, total, rows.Err()
}

func collectMessages(rows *sql.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
