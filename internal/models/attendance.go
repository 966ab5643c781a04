package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// Attendance records one session occurrence for a student in a course.
// The (student, course, date, week_number) tuple is unique; repeated
// writes update the stored status in place.
type Attendance struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	Date       time.Time        `db:"date" json:"date"`
	WeekNumber int              `db:"week_number" json:"week_number"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Notes      *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends the row with student and course metadata.
type AttendanceRecord struct {
	Attendance
	StudentName string `db:"student_name" json:"student_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
}

// AttendanceFilter defines query filters.
type AttendanceFilter struct {
	StudentID  string
	CourseID   string
	WeekNumber *int
	Status     *AttendanceStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// AttendanceSummary summarises counts for a student in a course.
type AttendanceSummary struct {
	Present int     `db:"present" json:"present"`
	Absent  int     `db:"absent" json:"absent"`
	Late    int     `db:"late" json:"late"`
	Excused int     `db:"excused" json:"excused"`
	Total   int     `db:"total" json:"total"`
	Percent float64 `db:"-" json:"percent"`
}

// AttendanceBulkFailure captures a single rejected entry in a bulk mark.
type AttendanceBulkFailure struct {
	StudentID string    `json:"student_id"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
}
