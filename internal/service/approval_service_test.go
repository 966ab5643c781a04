package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type stubApprovalRepo struct {
	users       map[string]*models.User
	lastState   models.ApprovalState
	lastReason  *string
	updateCalls int
}

func (r *stubApprovalRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *stubApprovalRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.ApprovalState != nil && u.ApprovalState != *filter.ApprovalState {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (r *stubApprovalRepo) UpdateApproval(_ context.Context, id string, state models.ApprovalState, reason *string) error {
	u, ok := r.users[id]
	if !ok || u.Role != models.RoleStudent {
		return sql.ErrNoRows
	}
	r.updateCalls++
	r.lastState = state
	r.lastReason = reason
	u.ApprovalState = state
	u.RejectionReason = reason
	return nil
}

type capturingPublisher struct {
	events []models.DomainEvent
}

func (p *capturingPublisher) Publish(event models.DomainEvent) {
	p.events = append(p.events, event)
}

func adminActor() authz.Actor {
	return authz.Actor{ID: "admin-1", Role: models.RoleAdmin, ApprovalState: models.ApprovalApproved}
}

func pendingStudentRepo(id string) *stubApprovalRepo {
	return &stubApprovalRepo{users: map[string]*models.User{
		id: {ID: id, Username: "s", Role: models.RoleStudent, ApprovalState: models.ApprovalPending},
	}}
}

func TestApprovalServiceApprove(t *testing.T) {
	repo := pendingStudentRepo("s-1")
	events := &capturingPublisher{}
	svc := NewApprovalService(repo, events, nil, nil)

	student, err := svc.Approve(context.Background(), adminActor(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, student.ApprovalState)
	assert.Nil(t, student.RejectionReason)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventStudentApproved, events.events[0].Type)
	assert.Equal(t, "s-1", events.events[0].UserID)
}

func TestApprovalServiceApproveIdempotent(t *testing.T) {
	repo := &stubApprovalRepo{users: map[string]*models.User{
		"s-1": {ID: "s-1", Role: models.RoleStudent, ApprovalState: models.ApprovalApproved},
	}}
	events := &capturingPublisher{}
	svc := NewApprovalService(repo, events, nil, nil)

	_, err := svc.Approve(context.Background(), adminActor(), "s-1")
	require.NoError(t, err)
	assert.Zero(t, repo.updateCalls, "an already approved account is left untouched")
	assert.Empty(t, events.events)
}

func TestApprovalServiceApproveAfterRejection(t *testing.T) {
	reason := "Requirements not met"
	repo := &stubApprovalRepo{users: map[string]*models.User{
		"s-1": {ID: "s-1", Role: models.RoleStudent, ApprovalState: models.ApprovalRejected, RejectionReason: &reason},
	}}
	svc := NewApprovalService(repo, &capturingPublisher{}, nil, nil)

	student, err := svc.Approve(context.Background(), adminActor(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, student.ApprovalState)
	assert.Nil(t, student.RejectionReason, "rejection reason is cleared on approval")
}

func TestApprovalServiceApproveRequiresAdmin(t *testing.T) {
	svc := NewApprovalService(pendingStudentRepo("s-1"), nil, nil, nil)

	teacher := authz.Actor{ID: "t-1", Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved}
	_, err := svc.Approve(context.Background(), teacher, "s-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestApprovalServiceNonStudentReadsAsNotFound(t *testing.T) {
	repo := &stubApprovalRepo{users: map[string]*models.User{
		"t-1": {ID: "t-1", Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved},
	}}
	svc := NewApprovalService(repo, nil, nil, nil)

	_, err := svc.Approve(context.Background(), adminActor(), "t-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound), "approving a staff id reads as missing student")

	_, err = svc.Reject(context.Background(), adminActor(), "t-1", RejectStudentRequest{Reason: "n/a"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound), "rejecting a staff id reads as missing student")
	assert.Equal(t, models.ApprovalApproved, repo.users["t-1"].ApprovalState)
}

func TestApprovalServiceRejectWithReason(t *testing.T) {
	repo := pendingStudentRepo("s-1")
	events := &capturingPublisher{}
	svc := NewApprovalService(repo, events, nil, nil)

	student, err := svc.Reject(context.Background(), adminActor(), "s-1", RejectStudentRequest{Reason: "Incomplete transcript"})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, student.ApprovalState)
	require.NotNil(t, student.RejectionReason)
	assert.Equal(t, "Incomplete transcript", *student.RejectionReason)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventStudentRejected, events.events[0].Type)
	assert.Equal(t, "Incomplete transcript", events.events[0].Reason)
}

func TestApprovalServiceRejectDefaultsReason(t *testing.T) {
	repo := pendingStudentRepo("s-1")
	svc := NewApprovalService(repo, &capturingPublisher{}, nil, nil)

	student, err := svc.Reject(context.Background(), adminActor(), "s-1", RejectStudentRequest{Reason: "   "})
	require.NoError(t, err)
	require.NotNil(t, student.RejectionReason)
	assert.Equal(t, DefaultRejectionReason, *student.RejectionReason)
}

func TestApprovalServiceListPendingRequiresAdmin(t *testing.T) {
	svc := NewApprovalService(pendingStudentRepo("s-1"), nil, nil, nil)

	_, _, err := svc.ListPending(context.Background(), authz.Actor{ID: "s-2", Role: models.RoleStudent}, 1, 20)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	users, page, err := svc.ListPending(context.Background(), adminActor(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, page.TotalCount)
}
