package message

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	RecipientID    int64  `json:"recipient_id" validate:"required"`
	Content        string `json:"content" validate:"required"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
	ReplyToID      *int64 `json:"reply_to_id,omitempty"`
}

// MessageResponse represents the response for a single message
type MessageResponse struct {
	ID                int64            `json:"id"`
	SenderID          int64            `json:"sender_id"`
	SenderUsername    string           `json:"sender_username,omitempty"`
	RecipientID       int64            `json:"recipient_id"`
	RecipientUsername string           `json:"recipient_username,omitempty"`
	Content           string           `json:"content"`
	Status            MessageStatus    `json:"status"`
	Type              MessageType      `json:"type"`
	ConversationID    *int64           `json:"conversation_id,omitempty"`
	ReplyTo           *MessageResponse `json:"reply_to,omitempty"`
	CreatedAt         string           `json:"created_at"`
	ReadAt            *string          `json:"read_at,omitempty"`
}

// ToResponse converts a Message model to a MessageResponse DTO without the
// nested reply, which the service resolves separately
func (m *Message) ToResponse() *MessageResponse {
	resp := &MessageResponse{
		ID:                m.ID,
		SenderID:          m.SenderID,
		SenderUsername:    m.SenderUsername,
		RecipientID:       m.RecipientID,
		RecipientUsername: m.RecipientUsername,
		Content:           m.Content,
		Status:            m.Status,
		Type:              m.Type,
		ConversationID:    m.ConversationID,
		CreatedAt:         m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if m.ReadAt != nil {
		readAt := m.ReadAt.Format("2006-01-02T15:04:05Z")
		resp.ReadAt = &readAt
	}
	return resp
}
