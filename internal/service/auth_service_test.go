package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type stubUserRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken

	created        []*models.User
	revokedAll     []string
	passwordHashes map[string]string
}

func newStubUserRepo(users ...*models.User) *stubUserRepo {
	r := &stubUserRepo{
		users:          make(map[string]*models.User),
		refreshTokens:  make(map[string]*models.RefreshToken),
		passwordHashes: make(map[string]string),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *stubUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *models.User) error {
	r.created = append(r.created, user)
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if u, ok := r.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	r.passwordHashes[id] = hash
	if u, ok := r.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (r *stubUserRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	r.refreshTokens[token.Token] = token
	return nil
}

func (r *stubUserRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := r.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (r *stubUserRepo) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	for _, t := range r.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (r *stubUserRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	r.revokedAll = append(r.revokedAll, userID)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "campus-records",
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func testUser(id, username string, role models.UserRole, state models.ApprovalState, passwordHash string) *models.User {
	return &models.User{
		ID:            id,
		Username:      username,
		Email:         username + "@example.edu",
		PasswordHash:  passwordHash,
		FirstName:     "Test",
		LastName:      "User",
		Role:          role,
		ApprovalState: state,
	}
}

func TestAuthServiceRegisterAlwaysCreatesPendingStudent(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	user, err := svc.Register(context.Background(), RegisterRequest{
		Username:  "NewStudent",
		Email:     "New@Example.edu",
		Password:  "password123",
		FirstName: "New",
		LastName:  "Student",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, models.ApprovalPending, user.ApprovalState)
	assert.Equal(t, "newstudent", user.Username, "username is lowercased")
	assert.Equal(t, "new@example.edu", user.Email)
	require.Len(t, repo.created, 1)
}

func TestAuthServiceRegisterConflict(t *testing.T) {
	existing := testUser("u-1", "taken", models.RoleStudent, models.ApprovalApproved, "hash")
	svc := NewAuthService(newStubUserRepo(existing), nil, nil, testAuthConfig())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username:  "taken",
		Email:     "other@example.edu",
		Password:  "password123",
		FirstName: "A",
		LastName:  "B",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc := NewAuthService(newStubUserRepo(), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginWrongPasswordBeforeApprovalGate(t *testing.T) {
	// A pending student with a wrong password must see an invalid
	// credentials error, never a hint that the account exists but is
	// unapproved.
	pending := testUser("u-1", "pending", models.RoleStudent, models.ApprovalPending, hashPassword(t, "correct-pass"))
	svc := NewAuthService(newStubUserRepo(pending), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "pending", Password: "wrong-pass"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginPendingStudentBlocked(t *testing.T) {
	pending := testUser("u-1", "pending", models.RoleStudent, models.ApprovalPending, hashPassword(t, "correct-pass"))
	svc := NewAuthService(newStubUserRepo(pending), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "pending", Password: "correct-pass"})
	assert.True(t, appErrors.Is(err, appErrors.ErrAccountNotApproved))
}

func TestAuthServiceLoginRejectedStudentBlocked(t *testing.T) {
	rejected := testUser("u-1", "rejected", models.RoleStudent, models.ApprovalRejected, hashPassword(t, "correct-pass"))
	svc := NewAuthService(newStubUserRepo(rejected), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "rejected", Password: "correct-pass"})
	assert.True(t, appErrors.Is(err, appErrors.ErrAccountNotApproved))
}

func TestAuthServiceLoginApprovedStudent(t *testing.T) {
	repo := newStubUserRepo(testUser("u-1", "ada", models.RoleStudent, models.ApprovalApproved, hashPassword(t, "correct-pass")))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "correct-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "u-1", resp.User.ID)
	assert.Contains(t, repo.refreshTokens, resp.RefreshToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginStaffIgnoresApprovalGate(t *testing.T) {
	teacher := testUser("t-1", "teach", models.RoleTeacher, models.ApprovalApproved, hashPassword(t, "correct-pass"))
	svc := NewAuthService(newStubUserRepo(teacher), nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "teach", Password: "correct-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	repo := newStubUserRepo(testUser("u-1", "ada", models.RoleStudent, models.ApprovalApproved, hashPassword(t, "correct-pass")))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "correct-pass"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The original token is revoked and cannot be replayed.
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLogoutRequiresOwnership(t *testing.T) {
	repo := newStubUserRepo(testUser("u-1", "ada", models.RoleStudent, models.ApprovalApproved, hashPassword(t, "correct-pass")))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "correct-pass"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u-1"))
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newStubUserRepo(testUser("u-1", "ada", models.RoleStudent, models.ApprovalApproved, hashPassword(t, "old-pass-123")))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u-1", ChangePasswordRequest{OldPassword: "nope", NewPassword: "new-pass-123"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.ChangePassword(context.Background(), "u-1", ChangePasswordRequest{OldPassword: "old-pass-123", NewPassword: "new-pass-123"}))
	assert.Contains(t, repo.revokedAll, "u-1", "all sessions are invalidated")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u-1"].PasswordHash), []byte("new-pass-123")))
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newStubUserRepo(), nil, nil, testAuthConfig())
	_, err := svc.ValidateToken("not-a-jwt")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
