package message

import "time"

// MessageStatus represents the delivery state of a message.
// The only transition performed here is SENT to READ, by the true recipient.
// DELIVERED exists for wire compatibility but no transition produces it.
type MessageStatus string

const (
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

// MessageType represents the content type of a message
type MessageType string

const (
	TypeText  MessageType = "TEXT"
	TypeImage MessageType = "IMAGE"
	TypeFile  MessageType = "FILE"
	TypeAudio MessageType = "AUDIO"
	TypeVideo MessageType = "VIDEO"
)

// Message represents a message in the system.
// read_at is set exactly once; read_at != nil holds iff status == READ.
type Message struct {
	ID             int64         `json:"id"`
	SenderID       int64         `json:"sender_id"`
	RecipientID    int64         `json:"recipient_id"`
	Content        string        `json:"content"`
	Status         MessageStatus `json:"status"`
	Type           MessageType   `json:"type"`
	ConversationID *int64        `json:"conversation_id,omitempty"`
	ReplyToID      *int64        `json:"reply_to_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`

	// Populated from JOIN
	SenderUsername    string `json:"sender_username,omitempty"`
	RecipientUsername string `json:"recipient_username,omitempty"`
}

// IsRead reports whether the message has been read
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}
