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

// AssignmentRepository persists course assignments, the sole source of
// grading and attendance authority.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts an assignment. The insert is atomic against the unique
// (course_id, group_id, academic_year) constraint: when a concurrent
// writer wins the race, no row is inserted and ErrNoRows is returned so
// callers can report the conflict.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.CourseAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_assignments (id, teacher_id, course_id, group_id, academic_year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (course_id, group_id, academic_year) DO NOTHING
		RETURNING id`
	var inserted string
	err := r.db.GetContext(ctx, &inserted, query,
		assignment.ID, assignment.TeacherID, assignment.CourseID, assignment.GroupID, assignment.AcademicYear, assignment.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("create course assignment: %w", err)
	}
	return nil
}

// FindByID returns an assignment by identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.CourseAssignment, error) {
	const query = `SELECT id, teacher_id, course_id, group_id, academic_year, created_at
		FROM course_assignments WHERE id = $1 LIMIT 1`
	var assignment models.CourseAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &assignment, nil
}

// Resolve returns the unique assignment covering the tuple, or
// sql.ErrNoRows when no teacher holds authority over it.
func (r *AssignmentRepository) Resolve(ctx context.Context, courseID, groupID, academicYear string) (*models.CourseAssignment, error) {
	const query = `SELECT id, teacher_id, course_id, group_id, academic_year, created_at
		FROM course_assignments WHERE course_id = $1 AND group_id = $2 AND academic_year = $3 LIMIT 1`
	var assignment models.CourseAssignment
	if err := r.db.GetContext(ctx, &assignment, query, courseID, groupID, academicYear); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("resolve teaching authority: %w", err)
	}
	return &assignment, nil
}

// ListByTeacher returns assignments owned by a teacher.
func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseAssignmentDetail, error) {
	const query = `
SELECT ca.id, ca.teacher_id, ca.course_id, ca.group_id, ca.academic_year, ca.created_at,
       c.code AS course_code, c.name AS course_name, g.name AS group_name,
       u.first_name || ' ' || u.last_name AS teacher_name
FROM course_assignments ca
JOIN courses c ON c.id = ca.course_id
JOIN groups g ON g.id = ca.group_id
JOIN users u ON u.id = ca.teacher_id
WHERE ca.teacher_id = $1
ORDER BY ca.academic_year DESC, c.code ASC`
	var assignments []models.CourseAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}

// ListByGroup returns assignments covering a group, newest year first.
func (r *AssignmentRepository) ListByGroup(ctx context.Context, groupID string) ([]models.CourseAssignmentDetail, error) {
	const query = `
SELECT ca.id, ca.teacher_id, ca.course_id, ca.group_id, ca.academic_year, ca.created_at,
       c.code AS course_code, c.name AS course_name, g.name AS group_name,
       u.first_name || ' ' || u.last_name AS teacher_name
FROM course_assignments ca
JOIN courses c ON c.id = ca.course_id
JOIN groups g ON g.id = ca.group_id
JOIN users u ON u.id = ca.teacher_id
WHERE ca.group_id = $1
ORDER BY ca.academic_year DESC, c.code ASC`
	var assignments []models.CourseAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, groupID); err != nil {
		return nil, fmt.Errorf("list group assignments: %w", err)
	}
	return assignments, nil
}

// Delete removes an assignment and its schedule sessions in one
// transaction.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_sessions WHERE assignment_id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment sessions: %w", err)
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM course_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	var affected int64
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete assignment: %w", err)
	}
	return nil
}

// CreateSession appends a schedule session to an assignment.
func (r *AssignmentRepository) CreateSession(ctx context.Context, session *models.ScheduleSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_sessions (id, assignment_id, day, start_time, end_time, room, session_type, created_at)
		VALUES (:id, :assignment_id, :day, :start_time, :end_time, :room, :session_type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create schedule session: %w", err)
	}
	return nil
}

// ListSessions returns the ordered session set of an assignment.
func (r *AssignmentRepository) ListSessions(ctx context.Context, assignmentID string) ([]models.ScheduleSession, error) {
	const query = `SELECT id, assignment_id, day, start_time, end_time, room, session_type, created_at
		FROM schedule_sessions WHERE assignment_id = $1
		ORDER BY CASE day
			WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3
			WHEN 'THURSDAY' THEN 4 WHEN 'FRIDAY' THEN 5 WHEN 'SATURDAY' THEN 6 ELSE 7
		END, start_time ASC`
	var sessions []models.ScheduleSession
	if err := r.db.SelectContext(ctx, &sessions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list schedule sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes one schedule session from an assignment.
func (r *AssignmentRepository) DeleteSession(ctx context.Context, assignmentID, sessionID string) error {
	const query = `DELETE FROM schedule_sessions WHERE id = $1 AND assignment_id = $2`
	result, err := r.db.ExecContext(ctx, query, sessionID, assignmentID)
	if err != nil {
		return fmt.Errorf("delete schedule session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted session rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
