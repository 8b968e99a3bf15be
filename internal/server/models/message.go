package models

import "time"

// Message is a chat message. A nil RecipientID marks a broadcast.
type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"senderId"`
	RecipientID *string    `json:"recipientId"`
	Text        string     `json:"text"`
	Timestamp   time.Time  `json:"timestamp"`
	EditedAt    *time.Time `json:"editedAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}

// Conversation is derived from message history; nothing is stored for it.
type Conversation struct {
	CounterpartID string   `json:"counterpartId"`
	LastMessage   *Message `json:"lastMessage"`
	UnreadCount   int      `json:"unreadCount"`
}
