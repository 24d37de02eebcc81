package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const conversationColumns = `id, name, description, type, created_by, created_at, updated_at`

// Repository handles conversation and membership persistence.
// Membership lives in the conversation_participants and conversation_admins
// join tables; multi-row mutations run inside a single transaction so
// concurrent admin operations never observe a half-applied membership set.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new conversation repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	c := &Conversation{}
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Type,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a conversation with its initial membership in one transaction.
// The creator becomes a participant and the sole admin.
func (r *Repository) Create(ctx context.Context, name string, description *string, creatorID int64, participantIDs []int64) (*Conversation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO conversations (name, description, type, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + conversationColumns

	c, err := scanConversation(tx.QueryRowContext(ctx, query, name, description, TypeGroup, creatorID))
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	participantQuery := `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, participantQuery, c.ID, creatorID); err != nil {
		return nil, fmt.Errorf("failed to add creator: %w", err)
	}
	for _, participantID := range participantIDs {
		if _, err := tx.ExecContext(ctx, participantQuery, c.ID, participantID); err != nil {
			return nil, fmt.Errorf("failed to add participant: %w", err)
		}
	}

	adminQuery := `INSERT INTO conversation_admins (conversation_id, user_id) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, adminQuery, c.ID, creatorID); err != nil {
		return nil, fmt.Errorf("failed to add creator as admin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return c, nil
}

// GetByID retrieves a conversation by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	c, err := scanConversation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return c, nil
}

// ListByParticipant retrieves the conversations a user participates in,
// most recently updated first
func (r *Repository) ListByParticipant(ctx context.Context, userID int64, limit, offset int) ([]*Conversation, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM conversations c
		JOIN conversation_participants cp ON c.id = cp.conversation_id
		WHERE cp.user_id = $1
	`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	query := `
		SELECT c.id, c.name, c.description, c.type, c.created_by, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants cp ON c.id = cp.conversation_id
		WHERE cp.user_id = $1
		ORDER BY c.updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}

	return conversations, total, rows.Err()
}

// GetParticipants retrieves the members of a conversation with their admin flag
func (r *Repository) GetParticipants(ctx context.Context, conversationID int64) ([]*Participant, error) {
	query := `
		SELECT cp.conversation_id, cp.user_id, cp.joined_at, u.username, u.profile_picture_url,
		       EXISTS(SELECT 1 FROM conversation_admins ca
		              WHERE ca.conversation_id = cp.conversation_id AND ca.user_id = cp.user_id) AS is_admin
		FROM conversation_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.conversation_id = $1
		ORDER BY cp.joined_at
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p := &Participant{}
		if err := rows.Scan(
			&p.ConversationID,
			&p.UserID,
			&p.JoinedAt,
			&p.Username,
			&p.ProfilePictureURL,
			&p.IsAdmin,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// IsParticipant reports whether a user is a member of a conversation
func (r *Repository) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return exists, nil
}

// IsAdmin reports whether a user is an admin of a conversation
func (r *Repository) IsAdmin(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM conversation_admins WHERE conversation_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return exists, nil
}

// AddParticipant inserts a membership row and bumps the conversation's updated_at
func (r *Repository) AddParticipant(ctx context.Context, conversationID, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, conversationID, userID); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}

	if err := touchConversation(ctx, tx, conversationID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RemoveParticipant removes a membership row and any admin row in one
// transaction, so admin status never outlives participation
func (r *Repository) RemoveParticipant(ctx context.Context, conversationID, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	participantQuery := `DELETE FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2`
	if _, err := tx.ExecContext(ctx, participantQuery, conversationID, userID); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	adminQuery := `DELETE FROM conversation_admins WHERE conversation_id = $1 AND user_id = $2`
	if _, err := tx.ExecContext(ctx, adminQuery, conversationID, userID); err != nil {
		return fmt.Errorf("failed to remove admin: %w", err)
	}

	if err := touchConversation(ctx, tx, conversationID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AddAdmin grants admin rights to a participant. Idempotent.
func (r *Repository) AddAdmin(ctx context.Context, conversationID, userID int64) error {
	query := `
		INSERT INTO conversation_admins (conversation_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, conversationID, userID); err != nil {
		return fmt.Errorf("failed to add admin: %w", err)
	}
	return nil
}

func touchConversation(ctx context.Context, tx *sql.Tx, conversationID int64) error {
	query := `UPDATE conversations SET updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, conversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}
