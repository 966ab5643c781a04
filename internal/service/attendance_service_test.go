package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type stubAttendanceRepo struct {
	upserted []*models.Attendance
	records  []models.AttendanceRecord
	summary  *models.AttendanceSummary
	lastList models.AttendanceFilter
}

func (r *stubAttendanceRepo) Upsert(_ context.Context, record *models.Attendance) (*models.Attendance, error) {
	r.upserted = append(r.upserted, record)
	return record, nil
}

func (r *stubAttendanceRepo) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	r.lastList = filter
	return r.records, len(r.records), nil
}

func (r *stubAttendanceRepo) StudentSummary(_ context.Context, studentID, courseID string) (*models.AttendanceSummary, error) {
	return r.summary, nil
}

type attendanceFixture struct {
	svc       *AttendanceService
	repo      *stubAttendanceRepo
	studentID string
	courseID  string
	teacherID string
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
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
	repo := &stubAttendanceRepo{}

	return &attendanceFixture{
		svc:       NewAttendanceService(repo, students, authority, testYear, nil, nil),
		repo:      repo,
		studentID: studentID,
		courseID:  courseID,
		teacherID: teacherID,
	}
}

func (f *attendanceFixture) assignedTeacher() authz.Actor {
	return authz.Actor{ID: f.teacherID, Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved}
}

func (f *attendanceFixture) markRequest() MarkAttendanceRequest {
	return MarkAttendanceRequest{
		StudentID:  f.studentID,
		CourseID:   f.courseID,
		Date:       time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC),
		WeekNumber: 9,
		Status:     models.AttendancePresent,
	}
}

func TestAttendanceServiceMarkByAssignedTeacher(t *testing.T) {
	f := newAttendanceFixture(t)

	stored, err := f.svc.Mark(context.Background(), f.assignedTeacher(), f.markRequest())
	require.NoError(t, err)
	assert.Equal(t, f.studentID, stored.StudentID)
	require.Len(t, f.repo.upserted, 1)
}

func TestAttendanceServiceMarkNormalizesDate(t *testing.T) {
	f := newAttendanceFixture(t)

	stored, err := f.svc.Mark(context.Background(), f.assignedTeacher(), f.markRequest())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC), stored.Date)
}

func TestAttendanceServiceMarkDeniedForOtherTeacher(t *testing.T) {
	f := newAttendanceFixture(t)
	other := authz.Actor{ID: uuid.NewString(), Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved}

	_, err := f.svc.Mark(context.Background(), other, f.markRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, f.repo.upserted)
}

func TestAttendanceServiceMarkAdminBypassesAuthority(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.Mark(context.Background(), adminActor(), f.markRequest())
	require.NoError(t, err)
	require.Len(t, f.repo.upserted, 1)
}

func TestAttendanceServiceMarkUnknownStatus(t *testing.T) {
	f := newAttendanceFixture(t)
	req := f.markRequest()
	req.Status = models.AttendanceStatus("NAPPING")

	_, err := f.svc.Mark(context.Background(), f.assignedTeacher(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceServiceMarkNonStudentTarget(t *testing.T) {
	f := newAttendanceFixture(t)
	teacherTarget := uuid.NewString()
	f.svc.students.(*stubStudentDirectory).users[teacherTarget] = &models.User{
		ID: teacherTarget, Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved,
	}
	req := f.markRequest()
	req.StudentID = teacherTarget

	_, err := f.svc.Mark(context.Background(), f.assignedTeacher(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRoleViolation))
}

func TestAttendanceServiceBulkMarkPartialFailure(t *testing.T) {
	f := newAttendanceFixture(t)
	bad := f.markRequest()
	bad.StudentID = uuid.NewString() // unknown student

	result, err := f.svc.BulkMark(context.Background(), f.assignedTeacher(), []MarkAttendanceRequest{
		f.markRequest(),
		bad,
	})
	require.NoError(t, err)
	assert.Len(t, result.Saved, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, bad.StudentID, result.Failures[0].StudentID)
	assert.Contains(t, result.Failures[0].Reason, "student not found")
}

func TestAttendanceServiceBulkMarkEmptyBatch(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.BulkMark(context.Background(), f.assignedTeacher(), nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceServiceListPinsStudentToOwnRecords(t *testing.T) {
	f := newAttendanceFixture(t)
	student := authz.Actor{ID: f.studentID, Role: models.RoleStudent, ApprovalState: models.ApprovalApproved}

	_, page, err := f.svc.List(context.Background(), student, models.AttendanceFilter{StudentID: uuid.NewString()})
	require.NoError(t, err)
	assert.Equal(t, f.studentID, f.repo.lastList.StudentID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}

func TestAttendanceServiceListDeniedForPendingStudent(t *testing.T) {
	f := newAttendanceFixture(t)
	pending := authz.Actor{ID: f.studentID, Role: models.RoleStudent, ApprovalState: models.ApprovalPending}

	_, _, err := f.svc.List(context.Background(), pending, models.AttendanceFilter{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAttendanceServiceSummaryOwnershipGate(t *testing.T) {
	f := newAttendanceFixture(t)
	f.repo.summary = &models.AttendanceSummary{Present: 8, Late: 1, Absent: 1, Total: 10, Percent: 90}

	summary, err := f.svc.Summary(context.Background(), authz.Actor{ID: f.studentID, Role: models.RoleStudent, ApprovalState: models.ApprovalApproved}, f.studentID, f.courseID)
	require.NoError(t, err)
	assert.InDelta(t, 90.0, summary.Percent, 0.001)

	other := authz.Actor{ID: uuid.NewString(), Role: models.RoleStudent, ApprovalState: models.ApprovalApproved}
	_, err = f.svc.Summary(context.Background(), other, f.studentID, f.courseID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
