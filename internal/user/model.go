package user

import "time"

// RequestStatus represents the status of a follow request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusAccepted RequestStatus = "ACCEPTED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// User represents a user in the system
type User struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	FirstName         *string   `json:"first_name,omitempty"`
	LastName          *string   `json:"last_name,omitempty"`
	Bio               *string   `json:"bio,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	IsPrivate         bool      `json:"is_private"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FollowRequest represents a pending approval gate for following a private account.
// At most one row exists per ordered (requester, requestee) pair.
type FollowRequest struct {
	ID          int64         `json:"id"`
	RequesterID int64         `json:"requester_id"`
	RequesteeID int64         `json:"requestee_id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`

	// Populated from JOIN
	RequesterUsername string `json:"requester_username,omitempty"`
}
