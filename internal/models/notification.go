package models

import "time"

// NotificationType classifies system notifications.
type NotificationType string

const (
	NotificationExam  NotificationType = "EXAM"
	NotificationGrade NotificationType = "GRADE"
	NotificationInfo  NotificationType = "INFO"
	NotificationReg   NotificationType = "REG"
)

// Notification is a write-once record targeted at one user. Only the
// owner may flip the read flag.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Type      NotificationType `db:"type" json:"type"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
