package models

import "time"

// CourseAssignment binds one teacher to a course/group/academic-year tuple.
// The (course, group, academic_year) triple is unique: it is the sole source
// of grading and attendance authority.
type CourseAssignment struct {
	ID           string    `db:"id" json:"id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	GroupID      string    `db:"group_id" json:"group_id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CourseAssignmentDetail enriches assignments with descriptive fields.
type CourseAssignmentDetail struct {
	CourseAssignment
	CourseCode  string  `db:"course_code" json:"course_code"`
	CourseName  string  `db:"course_name" json:"course_name"`
	GroupName   string  `db:"group_name" json:"group_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// SessionType classifies a scheduled session.
type SessionType string

const (
	SessionLecture  SessionType = "LECTURE"
	SessionLab      SessionType = "LAB"
	SessionTutorial SessionType = "TUTORIAL"
)

// Valid returns true when the session type is a supported value.
func (t SessionType) Valid() bool {
	switch t {
	case SessionLecture, SessionLab, SessionTutorial:
		return true
	default:
		return false
	}
}

// Weekday values accepted for schedule sessions.
var SessionDays = map[string]struct{}{
	"MONDAY": {}, "TUESDAY": {}, "WEDNESDAY": {}, "THURSDAY": {},
	"FRIDAY": {}, "SATURDAY": {}, "SUNDAY": {},
}

// ScheduleSession is a time slot owned by a course assignment. Overlap
// between sessions is not validated here; callers that need exclusivity
// must check it themselves.
type ScheduleSession struct {
	ID           string      `db:"id" json:"id"`
	AssignmentID string      `db:"assignment_id" json:"assignment_id"`
	Day          string      `db:"day" json:"day"`
	StartTime    string      `db:"start_time" json:"start_time"`
	EndTime      string      `db:"end_time" json:"end_time"`
	Room         string      `db:"room" json:"room"`
	SessionType  SessionType `db:"session_type" json:"session_type"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}
