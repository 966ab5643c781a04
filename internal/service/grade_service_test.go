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

type stubGradeRepo struct {
	upserted  []*models.Grade
	byStudent map[string][]models.GradeDetail
}

func (r *stubGradeRepo) Get(_ context.Context, studentID, courseID string) (*models.Grade, error) {
	return nil, sql.ErrNoRows
}

func (r *stubGradeRepo) Upsert(_ context.Context, grade *models.Grade) (*models.Grade, error) {
	r.upserted = append(r.upserted, grade)
	return grade, nil
}

func (r *stubGradeRepo) ListByStudent(_ context.Context, studentID string) ([]models.GradeDetail, error) {
	return r.byStudent[studentID], nil
}

func (r *stubGradeRepo) ListByCourseAndGroup(_ context.Context, courseID, groupID string) ([]models.GradeDetail, error) {
	return nil, nil
}

type stubStudentDirectory struct {
	users map[string]*models.User
}

func (r *stubStudentDirectory) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type stubAuthority struct {
	assignments map[string]*models.CourseAssignment // keyed course|group|year
}

func (r *stubAuthority) Resolve(_ context.Context, courseID, groupID, academicYear string) (*models.CourseAssignment, error) {
	if a, ok := r.assignments[courseID+"|"+groupID+"|"+academicYear]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

const testYear = "2025-2026"

type gradeFixture struct {
	svc       *GradeService
	repo      *stubGradeRepo
	events    *capturingPublisher
	studentID string
	courseID  string
	groupID   string
	teacherID string
}

func newGradeFixture(t *testing.T) *gradeFixture {
	t.Helper()
	studentID := uuid.NewString()
	courseID := uuid.NewString()
	groupID := uuid.NewString()
	teacherID := uuid.NewString()

	students := &stubStudentDirectory{users: map[string]*models.User{
		studentID: {ID: studentID, Role: models.RoleStudent, ApprovalState: models.ApprovalApproved, GroupID: &groupID},
	}}
	authority := &stubAuthority{assignments: map[string]*models.CourseAssignment{
		courseID + "|" + groupID + "|" + testYear: {ID: uuid.NewString(), TeacherID: teacherID, CourseID: courseID, GroupID: groupID, AcademicYear: testYear},
	}}
	repo := &stubGradeRepo{byStudent: make(map[string][]models.GradeDetail)}
	events := &capturingPublisher{}

	return &gradeFixture{
		svc:       NewGradeService(repo, students, authority, events, testYear, nil, nil),
		repo:      repo,
		events:    events,
		studentID: studentID,
		courseID:  courseID,
		groupID:   groupID,
		teacherID: teacherID,
	}
}

func (f *gradeFixture) assignedTeacher() authz.Actor {
	return authz.Actor{ID: f.teacherID, Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved}
}

func markOf(v float64) *float64 { return &v }

func TestGradeServiceUpsertByAssignedTeacher(t *testing.T) {
	f := newGradeFixture(t)

	grade, err := f.svc.Upsert(context.Background(), f.assignedTeacher(), UpsertGradeRequest{
		StudentID: f.studentID,
		CourseID:  f.courseID,
		TDMark:    markOf(14),
	})
	require.NoError(t, err)
	assert.Equal(t, f.studentID, grade.StudentID)
	require.Len(t, f.repo.upserted, 1)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventGradePublished, f.events.events[0].Type)
	assert.Equal(t, f.courseID, f.events.events[0].CourseID)
}

func TestGradeServiceUpsertDeniedForOtherTeacher(t *testing.T) {
	f := newGradeFixture(t)

	other := authz.Actor{ID: uuid.NewString(), Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved}
	_, err := f.svc.Upsert(context.Background(), other, UpsertGradeRequest{
		StudentID: f.studentID,
		CourseID:  f.courseID,
		ExamMark:  markOf(11),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, f.repo.upserted)
}

func TestGradeServiceUpsertDeniedWithoutAssignment(t *testing.T) {
	f := newGradeFixture(t)

	// A course nobody is assigned to for this group: no teacher, not
	// even the fixture's, may grade it.
	unassigned := uuid.NewString()
	_, err := f.svc.Upsert(context.Background(), f.assignedTeacher(), UpsertGradeRequest{
		StudentID: f.studentID,
		CourseID:  unassigned,
		ExamMark:  markOf(11),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestGradeServiceUpsertAdminBypassesAuthority(t *testing.T) {
	f := newGradeFixture(t)

	unassigned := uuid.NewString()
	_, err := f.svc.Upsert(context.Background(), adminActor(), UpsertGradeRequest{
		StudentID: f.studentID,
		CourseID:  unassigned,
		ExamMark:  markOf(11),
	})
	require.NoError(t, err)
}

func TestGradeServiceUpsertRejectsOutOfRangeMarks(t *testing.T) {
	f := newGradeFixture(t)

	for _, bad := range []float64{-0.5, 20.5} {
		_, err := f.svc.Upsert(context.Background(), f.assignedTeacher(), UpsertGradeRequest{
			StudentID: f.studentID,
			CourseID:  f.courseID,
			TDMark:    markOf(bad),
		})
		assert.True(t, appErrors.Is(err, appErrors.ErrOutOfRange))
	}
	assert.Empty(t, f.repo.upserted, "nothing is stored when any mark is out of range")
}

func TestGradeServiceUpsertRequiresAtLeastOneMark(t *testing.T) {
	f := newGradeFixture(t)

	_, err := f.svc.Upsert(context.Background(), f.assignedTeacher(), UpsertGradeRequest{
		StudentID: f.studentID,
		CourseID:  f.courseID,
		Comments:  "no marks",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestGradeServiceUpsertRejectsNonStudentTarget(t *testing.T) {
	f := newGradeFixture(t)

	teacherID := uuid.NewString()
	f.svc.students.(*stubStudentDirectory).users[teacherID] = &models.User{
		ID: teacherID, Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved,
	}

	_, err := f.svc.Upsert(context.Background(), adminActor(), UpsertGradeRequest{
		StudentID: teacherID,
		CourseID:  f.courseID,
		TDMark:    markOf(10),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrRoleViolation))
}

func TestGradeServiceBulkUpsertPartialFailure(t *testing.T) {
	f := newGradeFixture(t)

	missing := uuid.NewString()
	result, err := f.svc.BulkUpsert(context.Background(), f.assignedTeacher(), []UpsertGradeRequest{
		{StudentID: f.studentID, CourseID: f.courseID, TDMark: markOf(12)},
		{StudentID: missing, CourseID: f.courseID, TDMark: markOf(9)},
		{StudentID: f.studentID, CourseID: f.courseID, ExamMark: markOf(25)},
	})
	require.NoError(t, err)

	assert.Len(t, result.Saved, 1)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, missing, result.Failures[0].StudentID)
	assert.Contains(t, result.Failures[1].Reason, "between 0 and 20")
}

func TestGradeServiceStudentGradesDerivesAverage(t *testing.T) {
	f := newGradeFixture(t)
	f.repo.byStudent[f.studentID] = []models.GradeDetail{
		{Grade: models.Grade{StudentID: f.studentID, TDMark: markOf(10), ExamMark: markOf(14)}},
	}

	owner := authz.Actor{ID: f.studentID, Role: models.RoleStudent, ApprovalState: models.ApprovalApproved}
	grades, err := f.svc.StudentGrades(context.Background(), owner, f.studentID)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	require.NotNil(t, grades[0].AverageMark)
	assert.InDelta(t, 12.0, *grades[0].AverageMark, 0.0001)
}

func TestGradeServiceStudentGradesOwnershipGate(t *testing.T) {
	f := newGradeFixture(t)

	other := authz.Actor{ID: uuid.NewString(), Role: models.RoleStudent, ApprovalState: models.ApprovalApproved}
	_, err := f.svc.StudentGrades(context.Background(), other, f.studentID)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
