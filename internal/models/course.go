package models

import "time"

// Course represents an academic course identified by its immutable code.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Credits     int       `db:"credits" json:"credits"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter encapsulates allowed search parameters for listing courses.
type CourseFilter struct {
	Search    string
	GroupID   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
