package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idir-saidi/campus-records-api/internal/models"
)

func TestAttendanceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "date", "week_number", "status", "notes", "created_at", "updated_at"}).
		AddRow("att-1", "student-1", "course-1", date, 3, models.AttendanceAbsent, nil, time.Now(), time.Now())
	mock.ExpectQuery("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), "student-1", "course-1", date, 3, models.AttendanceAbsent, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.Attendance{
		StudentID:  "student-1",
		CourseID:   "course-1",
		Date:       date,
		WeekNumber: 3,
		Status:     models.AttendanceAbsent,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, stored.Status)
	assert.Equal(t, 3, stored.WeekNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListFiltered(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	week := 3
	cols := []string{"id", "student_id", "course_id", "date", "week_number", "status", "notes", "created_at", "updated_at", "student_name", "course_code"}
	rows := sqlmock.NewRows(cols).
		AddRow("att-1", "student-1", "course-1", time.Now(), week, models.AttendancePresent, nil, time.Now(), time.Now(), "Ada Lovelace", "MATH101")
	mock.ExpectQuery("SELECT a.id, a.student_id").
		WithArgs("student-1", week).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("student-1", week).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.AttendanceFilter{
		StudentID:  "student-1",
		WeekNumber: &week,
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "MATH101", records[0].CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStudentSummary(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"present", "absent", "late", "excused", "total"}).
		AddRow(8, 1, 1, 0, 10)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FILTER`).
		WithArgs("student-1", "course-1").
		WillReturnRows(rows)

	summary, err := repo.StudentSummary(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Present)
	// Late counts as attended for the rate.
	assert.InDelta(t, 90.0, summary.Percent, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
