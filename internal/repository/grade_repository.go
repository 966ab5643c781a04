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

// GradeRepository persists per-student per-course marks.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Get returns the grade row for one (student, course) pair.
func (r *GradeRepository) Get(ctx context.Context, studentID, courseID string) (*models.Grade, error) {
	const query = `SELECT id, student_id, course_id, td_mark, tp_mark, exam_mark, comments, created_at, updated_at
		FROM grades WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get grade: %w", err)
	}
	return &grade, nil
}

// Upsert writes marks for a (student, course) pair in one atomic
// statement. Marks passed as nil leave the stored value untouched:
// COALESCE prefers the incoming value and falls back to the current row.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) (*models.Grade, error) {
	now := time.Now().UTC()
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, student_id, course_id, td_mark, tp_mark, exam_mark, comments, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (student_id, course_id)
DO UPDATE SET td_mark = COALESCE(EXCLUDED.td_mark, grades.td_mark),
              tp_mark = COALESCE(EXCLUDED.tp_mark, grades.tp_mark),
              exam_mark = COALESCE(EXCLUDED.exam_mark, grades.exam_mark),
              comments = CASE WHEN EXCLUDED.comments <> '' THEN EXCLUDED.comments ELSE grades.comments END,
              updated_at = EXCLUDED.updated_at
RETURNING id, student_id, course_id, td_mark, tp_mark, exam_mark, comments, created_at, updated_at`
	var stored models.Grade
	if err := r.db.GetContext(ctx, &stored, query,
		grade.ID, grade.StudentID, grade.CourseID, grade.TDMark, grade.TPMark, grade.ExamMark,
		grade.Comments, grade.CreatedAt, grade.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert grade: %w", err)
	}
	return &stored, nil
}

// ListByStudent returns a student's grades with course context.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	const query = `
SELECT g.id, g.student_id, g.course_id, g.td_mark, g.tp_mark, g.exam_mark, g.comments, g.created_at, g.updated_at,
       c.code AS course_code, c.name AS course_name,
       u.first_name || ' ' || u.last_name AS student_name
FROM grades g
JOIN courses c ON c.id = g.course_id
JOIN users u ON u.id = g.student_id
WHERE g.student_id = $1
ORDER BY c.code ASC`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// ListByCourseAndGroup returns the grade sheet for one course restricted
// to the students of one group.
func (r *GradeRepository) ListByCourseAndGroup(ctx context.Context, courseID, groupID string) ([]models.GradeDetail, error) {
	const query = `
SELECT g.id, g.student_id, g.course_id, g.td_mark, g.tp_mark, g.exam_mark, g.comments, g.created_at, g.updated_at,
       c.code AS course_code, c.name AS course_name,
       u.first_name || ' ' || u.last_name AS student_name
FROM grades g
JOIN courses c ON c.id = g.course_id
JOIN users u ON u.id = g.student_id
WHERE g.course_id = $1 AND u.group_id = $2
ORDER BY student_name ASC`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, courseID, groupID); err != nil {
		return nil, fmt.Errorf("list course grades: %w", err)
	}
	return grades, nil
}
