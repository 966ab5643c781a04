package models

import "time"

// MarkMin and MarkMax bound every stored mark.
const (
	MarkMin = 0.0
	MarkMax = 20.0
)

// MarkInRange reports whether a mark lies inside the closed [0, 20] range.
func MarkInRange(mark float64) bool {
	return mark >= MarkMin && mark <= MarkMax
}

// Grade holds the per-course marks for a single student. One row exists
// per (student, course) pair. The average is never stored.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	TDMark    *float64  `db:"td_mark" json:"td_mark,omitempty"`
	TPMark    *float64  `db:"tp_mark" json:"tp_mark,omitempty"`
	ExamMark  *float64  `db:"exam_mark" json:"exam_mark,omitempty"`
	Comments  string    `db:"comments" json:"comments"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Average returns the arithmetic mean of the present marks, or nil when
// no mark has been recorded yet. It is recomputed on every call so it can
// never go stale.
func (g *Grade) Average() *float64 {
	var sum float64
	var n int
	for _, mark := range []*float64{g.TDMark, g.TPMark, g.ExamMark} {
		if mark != nil {
			sum += *mark
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// GradeDetail decorates a grade row with course context and the derived
// average for read paths.
type GradeDetail struct {
	Grade
	CourseCode  string   `db:"course_code" json:"course_code"`
	CourseName  string   `db:"course_name" json:"course_name"`
	StudentName string   `db:"student_name" json:"student_name"`
	AverageMark *float64 `json:"average,omitempty"`
}

// GradeFilter allows querying of grade entries.
type GradeFilter struct {
	StudentID string
	CourseID  string
}

// GradeBulkFailure captures a single rejected entry in a bulk upsert.
type GradeBulkFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}
