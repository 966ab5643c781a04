package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type stubAssignmentRepo struct {
	created  []*models.CourseAssignment
	conflict bool
	byID     map[string]*models.CourseAssignment
	sessions []*models.ScheduleSession
}

func (r *stubAssignmentRepo) Create(_ context.Context, assignment *models.CourseAssignment) error {
	if r.conflict {
		return sql.ErrNoRows
	}
	r.created = append(r.created, assignment)
	return nil
}

func (r *stubAssignmentRepo) FindByID(_ context.Context, id string) (*models.CourseAssignment, error) {
	if a, ok := r.byID[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (r *stubAssignmentRepo) Resolve(_ context.Context, courseID, groupID, academicYear string) (*models.CourseAssignment, error) {
	return nil, sql.ErrNoRows
}

func (r *stubAssignmentRepo) ListByTeacher(_ context.Context, teacherID string) ([]models.CourseAssignmentDetail, error) {
	return nil, nil
}

func (r *stubAssignmentRepo) ListByGroup(_ context.Context, groupID string) ([]models.CourseAssignmentDetail, error) {
	return nil, nil
}

func (r *stubAssignmentRepo) Delete(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func (r *stubAssignmentRepo) CreateSession(_ context.Context, session *models.ScheduleSession) error {
	r.sessions = append(r.sessions, session)
	return nil
}

func (r *stubAssignmentRepo) ListSessions(_ context.Context, assignmentID string) ([]models.ScheduleSession, error) {
	return nil, nil
}

func (r *stubAssignmentRepo) DeleteSession(_ context.Context, assignmentID, sessionID string) error {
	return sql.ErrNoRows
}

type stubCourseDirectory struct {
	courses map[string]*models.Course
}

func (r *stubCourseDirectory) FindByID(_ context.Context, id string) (*models.Course, error) {
	if c, ok := r.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type stubGroupDirectory struct {
	groups  map[string]*models.Group
	catalog map[string]bool // groupID|courseID
}

func (r *stubGroupDirectory) FindByID(_ context.Context, id string) (*models.Group, error) {
	if g, ok := r.groups[id]; ok {
		return g, nil
	}
	return nil, sql.ErrNoRows
}

func (r *stubGroupDirectory) HasCourse(_ context.Context, groupID, courseID string) (bool, error) {
	return r.catalog[groupID+"|"+courseID], nil
}

type assignmentFixture struct {
	svc       *AssignmentService
	repo      *stubAssignmentRepo
	teacherID string
	courseID  string
	groupID   string
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()
	teacherID := uuid.NewString()
	courseID := uuid.NewString()
	groupID := uuid.NewString()

	repo := &stubAssignmentRepo{byID: make(map[string]*models.CourseAssignment)}
	users := &stubStudentDirectory{users: map[string]*models.User{
		teacherID: {ID: teacherID, Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved},
	}}
	courses := &stubCourseDirectory{courses: map[string]*models.Course{
		courseID: {ID: courseID, Code: "MATH101", Name: "Analysis"},
	}}
	groups := &stubGroupDirectory{
		groups:  map[string]*models.Group{groupID: {ID: groupID, Name: "G1", AcademicYear: testYear}},
		catalog: map[string]bool{groupID + "|" + courseID: true},
	}

	return &assignmentFixture{
		svc:       NewAssignmentService(repo, users, courses, groups, nil, nil),
		repo:      repo,
		teacherID: teacherID,
		courseID:  courseID,
		groupID:   groupID,
	}
}

func (f *assignmentFixture) request() CreateAssignmentRequest {
	return CreateAssignmentRequest{
		TeacherID:    f.teacherID,
		CourseID:     f.courseID,
		GroupID:      f.groupID,
		AcademicYear: testYear,
	}
}

func TestAssignmentServiceCreate(t *testing.T) {
	f := newAssignmentFixture(t)

	assignment, err := f.svc.Create(context.Background(), adminActor(), f.request())
	require.NoError(t, err)
	assert.Equal(t, f.teacherID, assignment.TeacherID)
	assert.Len(t, f.repo.created, 1)
}

func TestAssignmentServiceCreateRequiresAdmin(t *testing.T) {
	f := newAssignmentFixture(t)

	teacher := authz.Actor{ID: f.teacherID, Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved}
	_, err := f.svc.Create(context.Background(), teacher, f.request())
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAssignmentServiceCreateRejectsNonTeacher(t *testing.T) {
	f := newAssignmentFixture(t)

	studentID := uuid.NewString()
	f.svc.users.(*stubStudentDirectory).users[studentID] = &models.User{
		ID: studentID, Role: models.RoleStudent, ApprovalState: models.ApprovalApproved,
	}

	req := f.request()
	req.TeacherID = studentID
	_, err := f.svc.Create(context.Background(), adminActor(), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrRoleViolation))
}

func TestAssignmentServiceCreateRequiresCatalogMembership(t *testing.T) {
	f := newAssignmentFixture(t)

	// Remove the course from the group catalog.
	f.svc.groups.(*stubGroupDirectory).catalog = map[string]bool{}

	_, err := f.svc.Create(context.Background(), adminActor(), f.request())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "catalog")
}

func TestAssignmentServiceCreateAuthorityConflict(t *testing.T) {
	f := newAssignmentFixture(t)
	f.repo.conflict = true

	_, err := f.svc.Create(context.Background(), adminActor(), f.request())
	assert.True(t, appErrors.Is(err, appErrors.ErrAuthorityConflict))
}

func TestAssignmentServiceListForTeacherScoping(t *testing.T) {
	f := newAssignmentFixture(t)

	self := authz.Actor{ID: f.teacherID, Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved}
	_, err := f.svc.ListForTeacher(context.Background(), self, f.teacherID)
	assert.NoError(t, err)

	_, err = f.svc.ListForTeacher(context.Background(), self, uuid.NewString())
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	student := authz.Actor{ID: uuid.NewString(), Role: models.RoleStudent, ApprovalState: models.ApprovalApproved}
	_, err = f.svc.ListForTeacher(context.Background(), student, f.teacherID)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.ListForTeacher(context.Background(), adminActor(), f.teacherID)
	assert.NoError(t, err)
}

func TestAssignmentServiceAddSession(t *testing.T) {
	f := newAssignmentFixture(t)
	f.repo.byID["a-1"] = &models.CourseAssignment{ID: "a-1"}

	session, err := f.svc.AddSession(context.Background(), adminActor(), "a-1", CreateSessionRequest{
		Day:         "monday",
		StartTime:   "08:00",
		EndTime:     "09:30",
		Room:        "B-204",
		SessionType: models.SessionLecture,
	})
	require.NoError(t, err)
	assert.Equal(t, "MONDAY", session.Day, "weekday is normalised")
	assert.Len(t, f.repo.sessions, 1)
}

func TestAssignmentServiceAddSessionValidation(t *testing.T) {
	f := newAssignmentFixture(t)
	f.repo.byID["a-1"] = &models.CourseAssignment{ID: "a-1"}

	_, err := f.svc.AddSession(context.Background(), adminActor(), "a-1", CreateSessionRequest{
		Day: "FUNDAY", StartTime: "08:00", EndTime: "09:30", Room: "B-204", SessionType: models.SessionLecture,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.AddSession(context.Background(), adminActor(), "a-1", CreateSessionRequest{
		Day: "MONDAY", StartTime: "10:00", EndTime: "09:00", Room: "B-204", SessionType: models.SessionLecture,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end after it starts")
}

func TestAssignmentServiceRemoveSessionMissing(t *testing.T) {
	f := newAssignmentFixture(t)

	err := f.svc.RemoveSession(context.Background(), adminActor(), "a-1", "s-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
