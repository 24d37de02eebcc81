package user

// UpdateProfileRequest represents the request body for updating the current user's profile
type UpdateProfileRequest struct {
	Username          *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName         *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName          *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Bio               *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
	IsPrivate         *bool   `json:"is_private,omitempty"`
}

// ChangePasswordRequest represents the request body for changing the current user's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// UserResponse represents a user as seen by the requesting viewer.
// The relation flags are computed at projection time and never persisted.
type UserResponse struct {
	ID                 int64   `json:"id"`
	Username           string  `json:"username"`
	Email              string  `json:"email,omitempty"`
	FirstName          *string `json:"first_name,omitempty"`
	LastName           *string `json:"last_name,omitempty"`
	Bio                *string `json:"bio,omitempty"`
	ProfilePictureURL  *string `json:"profile_picture_url,omitempty"`
	IsPrivate          bool    `json:"is_private"`
	FollowerCount      int     `json:"follower_count"`
	FollowingCount     int     `json:"following_count"`
	IsFollowing        bool    `json:"is_following"`
	IsFollowedBy       bool    `json:"is_followed_by"`
	HasRequestedFollow bool    `json:"has_requested_follow"`
	CreatedAt          string  `json:"created_at"`
}

// FollowRequestResponse represents a pending follow request shown to the requestee
type FollowRequestResponse struct {
	ID        int64         `json:"id"`
	Requester *UserResponse `json:"requester"`
	Status    RequestStatus `json:"status"`
	CreatedAt string        `json:"created_at"`
}

// ToResponse converts a User model to a UserResponse DTO without viewer-relative fields
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Bio:               u.Bio,
		ProfilePictureURL: u.ProfilePictureURL,
		IsPrivate:         u.IsPrivate,
		CreatedAt:         u.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
