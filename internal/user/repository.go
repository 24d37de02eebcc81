package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, bio, profile_picture_url, is_private, created_at, updated_at`

// Repository handles user, follow-edge and follow-request persistence.
// The user_follows edge table is the sole source of truth for the
// follower/following relation; both directions are derived queries over it.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Bio,
		&user.ProfilePictureURL,
		&user.IsPrivate,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// GetByID retrieves a user by their ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user by their username
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by their email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// ExistsByUsername reports whether a user with the given username exists
func (r *Repository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// ExistsByEmail reports whether a user with the given email exists
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// Update writes all mutable profile columns of an existing user
func (r *Repository) Update(ctx context.Context, u *User) (*User, error) {
	query := `
		UPDATE users
		SET username = $2,
		    email = $3,
		    first_name = $4,
		    last_name = $5,
		    bio = $6,
		    profile_picture_url = $7,
		    is_private = $8,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	updated, err := scanUser(r.db.QueryRowContext(ctx, query,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.Bio, u.ProfilePictureURL, u.IsPrivate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return updated, nil
}

// UpdatePassword replaces a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Search retrieves users matching the query on username or name, with pagination
func (r *Repository) Search(ctx context.Context, query string, limit, offset int) ([]*User, int, error) {
	pattern := "%" + query + "%"

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM users
		WHERE username ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1
	`
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	listQuery := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1
		ORDER BY username
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, listQuery, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// InsertFollow inserts a follow edge. The insert is idempotent so a concurrent
// duplicate never half-applies the relation.
func (r *Repository) InsertFollow(ctx context.Context, followerID, followeeID int64) error {
	query := `
		INSERT INTO user_follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, followerID, followeeID); err != nil {
		return fmt.Errorf("failed to insert follow edge: %w", err)
	}
	return nil
}

// DeleteFollow removes a follow edge, reporting whether it existed
func (r *Repository) DeleteFollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `DELETE FROM user_follows WHERE follower_id = $1 AND followee_id = $2`

	result, err := r.db.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow edge: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// IsFollowing reports whether follower currently follows followee
func (r *Repository) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM user_follows WHERE follower_id = $1 AND followee_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, followerID, followeeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check follow edge: %w", err)
	}
	return exists, nil
}

// CountFollowers counts inbound follow edges for a user
func (r *Repository) CountFollowers(ctx context.Context, userID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM user_follows WHERE followee_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

// CountFollowing counts outbound follow edges for a user
func (r *Repository) CountFollowing(ctx context.Context, userID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM user_follows WHERE follower_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return count, nil
}

// ListFollowers retrieves the users following userID, ordered by username
func (r *Repository) ListFollowers(ctx context.Context, userID int64, limit, offset int) ([]*User, int, error) {
	total, err := r.CountFollowers(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + prefixedUserColumns("u") + `
		FROM user_follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1
		ORDER BY u.username
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list followers: %w", err)
	}
	defer rows.Close()

	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ListFollowing retrieves the users userID follows, ordered by username
func (r *Repository) ListFollowing(ctx context.Context, userID int64, limit, offset int) ([]*User, int, error) {
	total, err := r.CountFollowing(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + prefixedUserColumns("u") + `
		FROM user_follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1
		ORDER BY u.username
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list following: %w", err)
	}
	defer rows.Close()

	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// CreateFollowRequest inserts a PENDING follow request for the ordered pair.
// ErrRequestAlreadySent is returned when the unique constraint on the pair trips,
// so two concurrent follow calls cannot create duplicate rows.
func (r *Repository) CreateFollowRequest(ctx context.Context, requesterID, requesteeID int64) (*FollowRequest, error) {
	query := `
		INSERT INTO follow_requests (requester_id, requestee_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, requester_id, requestee_id, status, created_at, responded_at
	`

	request := &FollowRequest{}
	err := r.db.QueryRowContext(ctx, query, requesterID, requesteeID, RequestStatusPending).Scan(
		&request.ID,
		&request.RequesterID,
		&request.RequesteeID,
		&request.Status,
		&request.CreatedAt,
		&request.RespondedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrRequestAlreadySent
		}
		return nil, fmt.Errorf("failed to create follow request: %w", err)
	}

	return request, nil
}

// GetFollowRequest retrieves a follow request by its ID
func (r *Repository) GetFollowRequest(ctx context.Context, id int64) (*FollowRequest, error) {
	query := `
		SELECT id, requester_id, requestee_id, status, created_at, responded_at
		FROM follow_requests
		WHERE id = $1
	`

	request := &FollowRequest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&request.ID,
		&request.RequesterID,
		&request.RequesteeID,
		&request.Status,
		&request.CreatedAt,
		&request.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get follow request: %w", err)
	}

	return request, nil
}

// HasFollowRequest reports whether any request exists for the ordered pair
func (r *Repository) HasFollowRequest(ctx context.Context, requesterID, requesteeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM follow_requests WHERE requester_id = $1 AND requestee_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, requesterID, requesteeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check follow request: %w", err)
	}
	return exists, nil
}

// ListPendingRequests retrieves the pending requests addressed to a user, newest first
func (r *Repository) ListPendingRequests(ctx context.Context, requesteeID int64, limit, offset int) ([]*FollowRequest, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM follow_requests WHERE requestee_id = $1 AND status = $2`
	if err := r.db.QueryRowContext(ctx, countQuery, requesteeID, RequestStatusPending).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count follow requests: %w", err)
	}

	query := `
		SELECT fr.id, fr.requester_id, fr.requestee_id, fr.status, fr.created_at, fr.responded_at, u.username
		FROM follow_requests fr
		JOIN users u ON u.id = fr.requester_id
		WHERE fr.requestee_id = $1 AND fr.status = $2
		ORDER BY fr.created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, requesteeID, RequestStatusPending, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list follow requests: %w", err)
	}
	defer rows.Close()

	var requests []*FollowRequest
	for rows.Next() {
		request := &FollowRequest{}
		if err := rows.Scan(
			&request.ID,
			&request.RequesterID,
			&request.RequesteeID,
			&request.Status,
			&request.CreatedAt,
			&request.RespondedAt,
			&request.RequesterUsername,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan follow request: %w", err)
		}
		requests = append(requests, request)
	}

	return requests, total, nil
}

// AcceptFollowRequest transitions a PENDING request to ACCEPTED and inserts the
// follow edge in one transaction. Returns nil when the request was no longer
// pending, so a concurrent double-accept resolves to exactly one edge.
func (r *Repository) AcceptFollowRequest(ctx context.Context, id int64) (*FollowRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE follow_requests
		SET status = $2, responded_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING id, requester_id, requestee_id, status, created_at, responded_at
	`

	request := &FollowRequest{}
	err = tx.QueryRowContext(ctx, query, id, RequestStatusAccepted, RequestStatusPending).Scan(
		&request.ID,
		&request.RequesterID,
		&request.RequesteeID,
		&request.Status,
		&request.CreatedAt,
		&request.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to accept follow request: %w", err)
	}

	edgeQuery := `
		INSERT INTO user_follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, edgeQuery, request.RequesterID, request.RequesteeID); err != nil {
		return nil, fmt.Errorf("failed to insert follow edge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return request, nil
}

// RejectFollowRequest transitions a PENDING request to REJECTED.
// Returns nil when the request was no longer pending.
func (r *Repository) RejectFollowRequest(ctx context.Context, id int64) (*FollowRequest, error) {
	query := `
		UPDATE follow_requests
		SET status = $2, responded_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING id, requester_id, requestee_id, status, created_at, responded_at
	`

	request := &FollowRequest{}
	err := r.db.QueryRowContext(ctx, query, id, RequestStatusRejected, RequestStatusPending).Scan(
		&request.ID,
		&request.RequesterID,
		&request.RequesteeID,
		&request.Status,
		&request.CreatedAt,
		&request.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reject follow request: %w", err)
	}

	return request, nil
}

func prefixedUserColumns(alias string) string {
	return alias + `.id, ` + alias + `.username, ` + alias + `.email, ` + alias + `.password_hash, ` +
		alias + `.first_name, ` + alias + `.last_name, ` + alias + `.bio, ` + alias + `.profile_picture_url, ` +
		alias + `.is_private, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func collectUsers(rows *sql.Rows) ([]*User, error) {
	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
