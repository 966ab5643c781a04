package models

import "time"

// FileType classifies uploaded course material.
type FileType string

const (
	FileLecture    FileType = "LECTURE"
	FileLab        FileType = "LAB"
	FileAssignment FileType = "ASSIGNMENT"
	FileSolution   FileType = "SOLUTION"
	FileOther      FileType = "OTHER"
)

// Valid returns true when the type is a supported value.
func (t FileType) Valid() bool {
	switch t {
	case FileLecture, FileLab, FileAssignment, FileSolution, FileOther:
		return true
	default:
		return false
	}
}

// CourseFile stores metadata for an uploaded course document. The blob
// itself lives in the storage collaborator; only the path reference is kept.
type CourseFile struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	UploaderID  string    `db:"uploader_id" json:"uploader_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	FileType    FileType  `db:"file_type" json:"file_type"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Timetable stores a schedule image published for one group.
type Timetable struct {
	ID           string    `db:"id" json:"id"`
	GroupID      string    `db:"group_id" json:"group_id"`
	Title        string    `db:"title" json:"title"`
	ImagePath    string    `db:"image_path" json:"image_path"`
	Semester     string    `db:"semester" json:"semester"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
