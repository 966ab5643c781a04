package models

import "time"

// Group represents a student group, e.g. "IFA-G1".
type Group struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GroupDetail enriches a group with membership and catalog counts.
type GroupDetail struct {
	Group
	StudentCount int `db:"student_count" json:"student_count"`
	CourseCount  int `db:"course_count" json:"course_count"`
}

// GroupCourse is the many-to-many link between groups and courses.
type GroupCourse struct {
	GroupID   string    `db:"group_id" json:"group_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
