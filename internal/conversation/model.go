package conversation

import "time"

// ConversationType represents the kind of conversation.
// DIRECT is reserved for future 1:1 semantics; explicit conversations are GROUP.
type ConversationType string

const (
	TypeDirect ConversationType = "DIRECT"
	TypeGroup  ConversationType = "GROUP"
)

// Conversation represents a group conversation in the system
type Conversation struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Type        ConversationType `json:"type"`
	CreatedBy   int64            `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Participant represents a user's membership in a conversation.
// Admins are always a subset of participants; the creator is always both.
type Participant struct {
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	IsAdmin        bool      `json:"is_admin"`
	JoinedAt       time.Time `json:"joined_at"`

	// Populated from JOIN
	Username          string  `json:"username,omitempty"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
}
