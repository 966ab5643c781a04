package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/idir-saidi/campus-records-api/internal/models"
)

// MessageRepository persists directed user-to-user messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message. Rows are never updated afterwards except for
// the read flag.
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, sender_id, receiver_id, content, is_read, created_at)
		VALUES (:id, :sender_id, :receiver_id, :content, :is_read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// Inbox returns messages received by one user, newest first.
func (r *MessageRepository) Inbox(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	const query = `
SELECT m.id, m.sender_id, m.receiver_id, m.content, m.is_read, m.created_at,
       s.first_name || ' ' || s.last_name AS sender_name,
       t.first_name || ' ' || t.last_name AS receiver_name
FROM messages m
JOIN users s ON s.id = m.sender_id
JOIN users t ON t.id = m.receiver_id
WHERE m.receiver_id = $1
ORDER BY m.created_at DESC`
	var messages []models.MessageDetail
	if err := r.db.SelectContext(ctx, &messages, query, userID); err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return messages, nil
}

// Conversation returns the full exchange between two users in
// chronological order.
func (r *MessageRepository) Conversation(ctx context.Context, userA, userB string) ([]models.MessageDetail, error) {
	const query = `
SELECT m.id, m.sender_id, m.receiver_id, m.content, m.is_read, m.created_at,
       s.first_name || ' ' || s.last_name AS sender_name,
       t.first_name || ' ' || t.last_name AS receiver_name
FROM messages m
JOIN users s ON s.id = m.sender_id
JOIN users t ON t.id = m.receiver_id
WHERE (m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1)
ORDER BY m.created_at ASC`
	var messages []models.MessageDetail
	if err := r.db.SelectContext(ctx, &messages, query, userA, userB); err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return messages, nil
}

// MarkRead flips the read flag; scoped to the receiver.
func (r *MessageRepository) MarkRead(ctx context.Context, id, receiverID string) error {
	const query = `UPDATE messages SET is_read = TRUE WHERE id = $1 AND receiver_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, receiverID)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check message rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UnreadCount counts unread messages for a receiver.
func (r *MessageRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND is_read = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}
