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

// GroupRepository persists student groups and their course catalog links.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a new group. The name column is unique.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	const query = `INSERT INTO groups (id, name, academic_year, created_at, updated_at)
		VALUES (:id, :name, :academic_year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// FindByID returns a group by identifier.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, name, academic_year, created_at, updated_at FROM groups WHERE id = $1 LIMIT 1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find group by id: %w", err)
	}
	return &group, nil
}

// ExistsByName checks name uniqueness before creation.
func (r *GroupRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	const query = `SELECT 1 FROM groups WHERE name = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check group name: %w", err)
	}
	return true, nil
}

// List returns all groups with membership and catalog counts.
func (r *GroupRepository) List(ctx context.Context) ([]models.GroupDetail, error) {
	const query = `
SELECT g.id, g.name, g.academic_year, g.created_at, g.updated_at,
       (SELECT COUNT(*) FROM users u WHERE u.group_id = g.id) AS student_count,
       (SELECT COUNT(*) FROM group_courses gc WHERE gc.group_id = g.id) AS course_count
FROM groups g
ORDER BY g.name ASC`
	var groups []models.GroupDetail
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// Update edits group name and academic year.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE groups SET name = :name, academic_year = :academic_year, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, group)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated group rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a group inside one transaction. Member students are
// detached, never deleted; everything the group owns is removed.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete group: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE users SET group_id = NULL, updated_at = $2 WHERE group_id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("detach group students: %w", err)
	}

	cascade := []string{
		`DELETE FROM schedule_sessions WHERE assignment_id IN (SELECT id FROM course_assignments WHERE group_id = $1)`,
		`DELETE FROM course_assignments WHERE group_id = $1`,
		`DELETE FROM timetables WHERE group_id = $1`,
		`DELETE FROM group_courses WHERE group_id = $1`,
	}
	for _, q := range cascade {
		if _, err = tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("cascade delete group records: %w", err)
		}
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	var affected int64
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted group rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete group: %w", err)
	}
	return nil
}

// AddCourse links a course into the group catalog. Idempotent.
func (r *GroupRepository) AddCourse(ctx context.Context, groupID, courseID string) error {
	const query = `INSERT INTO group_courses (group_id, course_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (group_id, course_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, groupID, courseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add group course: %w", err)
	}
	return nil
}

// RemoveCourse unlinks a course from the group catalog.
func (r *GroupRepository) RemoveCourse(ctx context.Context, groupID, courseID string) error {
	const query = `DELETE FROM group_courses WHERE group_id = $1 AND course_id = $2`
	result, err := r.db.ExecContext(ctx, query, groupID, courseID)
	if err != nil {
		return fmt.Errorf("remove group course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check removed course rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasCourse reports whether the course belongs to the group catalog.
func (r *GroupRepository) HasCourse(ctx context.Context, groupID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM group_courses WHERE group_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, groupID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check group course: %w", err)
	}
	return true, nil
}

// ListStudents returns the student members of a group.
func (r *GroupRepository) ListStudents(ctx context.Context, groupID string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE group_id = $1 AND role = 'STUDENT' ORDER BY last_name, first_name`
	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, groupID); err != nil {
		return nil, fmt.Errorf("list group students: %w", err)
	}
	return students, nil
}
