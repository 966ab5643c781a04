package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idir-saidi/campus-records-api/internal/models"
)

func gradeColumns() []string {
	return []string{"id", "student_id", "course_id", "td_mark", "tp_mark", "exam_mark", "comments", "created_at", "updated_at"}
}

func TestGradeRepositoryUpsertInsert(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	td := 12.5
	rows := sqlmock.NewRows(gradeColumns()).
		AddRow("grade-1", "student-1", "course-1", td, nil, nil, "", time.Now(), time.Now())
	mock.ExpectQuery("INSERT INTO grades").
		WithArgs(sqlmock.AnyArg(), "student-1", "course-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.Grade{
		StudentID: "student-1",
		CourseID:  "course-1",
		TDMark:    &td,
	})
	require.NoError(t, err)
	require.NotNil(t, stored.TDMark)
	assert.InDelta(t, 12.5, *stored.TDMark, 0.0001)
	assert.Nil(t, stored.ExamMark)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpsertKeepsExistingMarks(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	// A nil exam mark must not clobber the stored one; the query
	// COALESCEs per column, so the returned row still carries it.
	exam := 15.0
	td := 10.0
	rows := sqlmock.NewRows(gradeColumns()).
		AddRow("grade-1", "student-1", "course-1", td, nil, exam, "good progress", time.Now(), time.Now())
	mock.ExpectQuery("INSERT INTO grades").
		WithArgs(sqlmock.AnyArg(), "student-1", "course-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.Grade{
		StudentID: "student-1",
		CourseID:  "course-1",
		TDMark:    &td,
	})
	require.NoError(t, err)
	require.NotNil(t, stored.ExamMark)
	assert.InDelta(t, 15.0, *stored.ExamMark, 0.0001)
	assert.Equal(t, "good progress", stored.Comments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery("SELECT id, student_id, course_id").
		WithArgs("student-1", "course-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "student-1", "course-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	cols := append(gradeColumns(), "course_code", "course_name", "student_name")
	rows := sqlmock.NewRows(cols).
		AddRow("grade-1", "student-1", "course-1", 12.0, 14.0, 10.0, "", time.Now(), time.Now(), "MATH101", "Analysis", "Ada Lovelace").
		AddRow("grade-2", "student-1", "course-2", nil, nil, 16.0, "", time.Now(), time.Now(), "PHYS101", "Mechanics", "Ada Lovelace")
	mock.ExpectQuery("SELECT g.id, g.student_id").
		WithArgs("student-1").
		WillReturnRows(rows)

	grades, err := repo.ListByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Equal(t, "MATH101", grades[0].CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
