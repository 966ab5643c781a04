package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/idir-saidi/campus-records-api/internal/models"
)

// CourseRepository persists the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a new course. The code column carries a unique
// constraint; a duplicate insert surfaces as a database error.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, name, description, credits, created_at, updated_at)
		VALUES (:id, :code, :name, :description, :credits, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, description, credits, created_at, updated_at FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// ExistsByCode checks code uniqueness before creation.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT 1 FROM courses WHERE code = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// List returns courses matching the filter with a total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := `FROM courses c`
	where := []string{"1=1"}
	var args []interface{}
	if filter.GroupID != "" {
		base += ` JOIN group_courses gc ON gc.course_id = c.id`
		where = append(where, fmt.Sprintf("gc.group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(LOWER(c.code) LIKE $%d OR LOWER(c.name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.code, c.name, c.description, c.credits, c.created_at, c.updated_at
		%s WHERE %s ORDER BY c.code ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// Update edits the mutable fields of a course. The code is immutable.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, description = :description, credits = :credits, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated course rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a course and every record referencing it inside one
// transaction.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete course: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cascade := []string{
		`DELETE FROM schedule_sessions WHERE assignment_id IN (SELECT id FROM course_assignments WHERE course_id = $1)`,
		`DELETE FROM course_assignments WHERE course_id = $1`,
		`DELETE FROM grades WHERE course_id = $1`,
		`DELETE FROM attendance WHERE course_id = $1`,
		`DELETE FROM course_files WHERE course_id = $1`,
		`DELETE FROM group_courses WHERE course_id = $1`,
	}
	for _, q := range cascade {
		if _, err = tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("cascade delete course records: %w", err)
		}
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	var affected int64
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted course rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete course: %w", err)
	}
	return nil
}
