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

// CourseFileRepository persists course file metadata. Blobs live in the
// storage collaborator.
type CourseFileRepository struct {
	db *sqlx.DB
}

// NewCourseFileRepository constructs the repository.
func NewCourseFileRepository(db *sqlx.DB) *CourseFileRepository {
	return &CourseFileRepository{db: db}
}

// Create inserts file metadata.
func (r *CourseFileRepository) Create(ctx context.Context, file *models.CourseFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_files (id, course_id, uploader_id, title, description, file_type, storage_path, size_bytes, created_at)
		VALUES (:id, :course_id, :uploader_id, :title, :description, :file_type, :storage_path, :size_bytes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create course file: %w", err)
	}
	return nil
}

// FindByID returns file metadata by identifier.
func (r *CourseFileRepository) FindByID(ctx context.Context, id string) (*models.CourseFile, error) {
	const query = `SELECT id, course_id, uploader_id, title, description, file_type, storage_path, size_bytes, created_at
		FROM course_files WHERE id = $1 LIMIT 1`
	var file models.CourseFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course file: %w", err)
	}
	return &file, nil
}

// ListByCourse returns files attached to a course, newest first.
func (r *CourseFileRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseFile, error) {
	const query = `SELECT id, course_id, uploader_id, title, description, file_type, storage_path, size_bytes, created_at
		FROM course_files WHERE course_id = $1 ORDER BY created_at DESC`
	var files []models.CourseFile
	if err := r.db.SelectContext(ctx, &files, query, courseID); err != nil {
		return nil, fmt.Errorf("list course files: %w", err)
	}
	return files, nil
}

// Delete removes one file row.
func (r *CourseFileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM course_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course file: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted file rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
