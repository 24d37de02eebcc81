package conversation

// CreateConversationRequest represents the request to create a new conversation
type CreateConversationRequest struct {
	Name           string  `json:"name" validate:"required,min=1,max=100"`
	Description    *string `json:"description,omitempty" validate:"omitempty,max=500"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

// AddParticipantRequest represents the request to add a participant
type AddParticipantRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// MakeAdminRequest represents the request to grant admin rights to a participant
type MakeAdminRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// ConversationResponse represents the response for a conversation
type ConversationResponse struct {
	ID           int64                  `json:"id"`
	Name         string                 `json:"name"`
	Description  *string                `json:"description,omitempty"`
	Type         ConversationType       `json:"type"`
	CreatedBy    int64                  `json:"created_by"`
	Participants []*ParticipantResponse `json:"participants,omitempty"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at"`
}

// ParticipantResponse represents a participant in a conversation response
type ParticipantResponse struct {
	UserID            int64   `json:"user_id"`
	Username          string  `json:"username"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
	IsAdmin           bool    `json:"is_admin"`
	JoinedAt          string  `json:"joined_at"`
}

// ToResponse converts a Conversation model to a ConversationResponse DTO
func (c *Conversation) ToResponse() *ConversationResponse {
	return &ConversationResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Type:        c.Type,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   c.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Participant model to a ParticipantResponse DTO
func (p *Participant) ToResponse() *ParticipantResponse {
	return &ParticipantResponse{
		UserID:            p.UserID,
		Username:          p.Username,
		ProfilePictureURL: p.ProfilePictureURL,
		IsAdmin:           p.IsAdmin,
		JoinedAt:          p.JoinedAt.Format("2006-01-02T15:04:05Z"),
	}
}
