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

// TimetableRepository persists per-group timetable images.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create inserts a timetable record.
func (r *TimetableRepository) Create(ctx context.Context, t *models.Timetable) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO timetables (id, group_id, title, image_path, semester, academic_year, is_active, created_at)
		VALUES (:id, :group_id, :title, :image_path, :semester, :academic_year, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// ListByGroup returns timetables for a group, newest first.
func (r *TimetableRepository) ListByGroup(ctx context.Context, groupID string, activeOnly bool) ([]models.Timetable, error) {
	query := `SELECT id, group_id, title, image_path, semester, academic_year, is_active, created_at
		FROM timetables WHERE group_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, groupID); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// Deactivate hides a timetable from student views without removing it.
func (r *TimetableRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE timetables SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check timetable rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a timetable record.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted timetable rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
