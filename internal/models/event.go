package models

import "time"

// EventType identifies a domain event consumed by the notification
// dispatcher.
type EventType string

const (
	EventStudentApproved EventType = "student.approved"
	EventStudentRejected EventType = "student.rejected"
	EventGradePublished  EventType = "grade.published"
)

// DomainEvent is emitted by the core after a state change commits.
type DomainEvent struct {
	Type       EventType
	UserID     string
	CourseID   string
	Reason     string
	OccurredAt time.Time
}
