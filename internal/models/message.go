package models

import "time"

// Message is a directed user-to-user record. Append-only except for the
// read flag, which only the receiver may set.
type Message struct {
	ID         string    `db:"id" json:"id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	ReceiverID string    `db:"receiver_id" json:"receiver_id"`
	Content    string    `db:"content" json:"content"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MessageDetail decorates a message with participant names for inbox views.
type MessageDetail struct {
	Message
	SenderName   string `db:"sender_name" json:"sender_name"`
	ReceiverName string `db:"receiver_name" json:"receiver_name"`
}
