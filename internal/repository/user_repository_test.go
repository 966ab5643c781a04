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

func userRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "first_name", "last_name", "role", "approval_state",
		"rejection_reason", "group_id", "student_number", "program", "semester", "phone", "picture_path",
		"last_login", "created_at", "updated_at",
	}).AddRow(
		"user-1", "ada", "ada@example.edu", "hash", "Ada", "Lovelace", models.RoleStudent, models.ApprovalPending,
		nil, nil, nil, nil, nil, nil, nil,
		nil, time.Now(), time.Now(),
	)
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Username:      "ada",
		Email:         "ada@example.edu",
		PasswordHash:  "hash",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Role:          models.RoleStudent,
		ApprovalState: models.ApprovalPending,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID, "missing ID is generated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT id, username, email").
		WithArgs("ada").
		WillReturnRows(userRow())

	user, err := repo.FindByUsername(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, user.ApprovalState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsByUsernameOrEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT 1 FROM users").
		WithArgs("ada", "ada@example.edu").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByUsernameOrEmail(context.Background(), "ada", "ada@example.edu")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM users").
		WithArgs("new", "new@example.edu").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsByUsernameOrEmail(context.Background(), "new", "new@example.edu")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateApproval(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	reason := "Requirements not met"
	mock.ExpectExec("UPDATE users SET approval_state").
		WithArgs("user-1", models.ApprovalRejected, &reason, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateApproval(context.Background(), "user-1", models.ApprovalRejected, &reason))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateApprovalOnlyTouchesStudents(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	// The UPDATE is scoped to role = 'STUDENT'; a staff id matches no row.
	mock.ExpectExec("UPDATE users SET approval_state").
		WithArgs("teacher-1", models.ApprovalApproved, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateApproval(context.Background(), "teacher-1", models.ApprovalApproved, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	for _, table := range []string{"grades", "attendance", "course_files", "notifications", "messages", "refresh_tokens"} {
		mock.ExpectExec("DELETE FROM " + table).
			WithArgs("user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("DELETE FROM users").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	role := models.RoleStudent
	state := models.ApprovalPending
	mock.ExpectQuery("SELECT id, username, email").
		WithArgs(role, state).
		WillReturnRows(userRow())
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(role, state).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, ApprovalState: &state})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
