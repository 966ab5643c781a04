package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idir-saidi/campus-records-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("INSERT INTO course_assignments").
		WithArgs(sqlmock.AnyArg(), "teacher-1", "course-1", "group-1", "2025-2026", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("assignment-1"))

	err := repo.Create(context.Background(), &models.CourseAssignment{
		TeacherID:    "teacher-1",
		CourseID:     "course-1",
		GroupID:      "group-1",
		AcademicYear: "2025-2026",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateConflict(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	// ON CONFLICT DO NOTHING inserts no row, so RETURNING yields none.
	mock.ExpectQuery("INSERT INTO course_assignments").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := repo.Create(context.Background(), &models.CourseAssignment{
		TeacherID:    "teacher-2",
		CourseID:     "course-1",
		GroupID:      "group-1",
		AcademicYear: "2025-2026",
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryResolve(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "course_id", "group_id", "academic_year", "created_at"}).
		AddRow("assignment-1", "teacher-1", "course-1", "group-1", "2025-2026", time.Now())
	mock.ExpectQuery("SELECT id, teacher_id, course_id, group_id, academic_year, created_at").
		WithArgs("course-1", "group-1", "2025-2026").
		WillReturnRows(rows)

	assignment, err := repo.Resolve(context.Background(), "course-1", "group-1", "2025-2026")
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", assignment.TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryResolveNoAuthority(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("SELECT id, teacher_id, course_id, group_id, academic_year, created_at").
		WithArgs("course-1", "group-2", "2025-2026").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Resolve(context.Background(), "course-1", "group-2", "2025-2026")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteCascadesSessions(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM schedule_sessions").
		WithArgs("assignment-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM course_assignments").
		WithArgs("assignment-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "assignment-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM schedule_sessions").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM course_assignments").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteSession(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("DELETE FROM schedule_sessions").
		WithArgs("session-1", "assignment-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteSession(context.Background(), "assignment-1", "session-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
