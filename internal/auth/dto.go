package auth

import "github.com/clipnest/messaging/internal/user"

// RegisterRequest represents the payload for creating an account
type RegisterRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=50"`
}

// LoginRequest represents the payload for exchanging credentials for tokens
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the payload for rotating an access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse carries a fresh token pair and the authenticated user
type AuthResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	User         *user.UserResponse `json:"user"`
}
