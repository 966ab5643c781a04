package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	StudentSummary(ctx context.Context, studentID, courseID string) (*models.AttendanceSummary, error)
}

// MarkAttendanceRequest records one session occurrence for a student.
// Re-marking the same (student, course, date, week) updates in place.
type MarkAttendanceRequest struct {
	StudentID  string                  `json:"student_id" validate:"required,uuid4"`
	CourseID   string                  `json:"course_id" validate:"required,uuid4"`
	Date       time.Time               `json:"date" validate:"required"`
	WeekNumber int                     `json:"week_number" validate:"required,min=1,max=52"`
	Status     models.AttendanceStatus `json:"status" validate:"required"`
	Notes      *string                 `json:"notes,omitempty"`
}

// BulkAttendanceResult reports the outcome of a bulk mark.
type BulkAttendanceResult struct {
	Saved    []models.Attendance            `json:"saved"`
	Failures []models.AttendanceBulkFailure `json:"failures"`
}

// AttendanceService enforces marking authority and records attendance.
type AttendanceService struct {
	repo       attendanceRepository
	students   gradeStudentRepository
	authority  authorityResolver
	activeYear string
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService creates an AttendanceService.
func NewAttendanceService(repo attendanceRepository, students gradeStudentRepository, authority authorityResolver, activeYear string, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{
		repo:       repo,
		students:   students,
		authority:  authority,
		activeYear: activeYear,
		validator:  validate,
		logger:     logger,
	}
}

// Mark records attendance for one student in one course session. The
// write is idempotent on the (student, course, date, week) tuple, so a
// corrected status simply replaces the stored one.
func (s *AttendanceService) Mark(ctx context.Context, actor authz.Actor, req MarkAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}

	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	teacherID, err := s.resolveAuthority(ctx, req.CourseID, student)
	if err != nil {
		return nil, err
	}

	if decision := authz.CanPerform(actor, authz.OpMarkAttendance, authz.Target{OwnerID: student.ID, AuthorityTeacherID: teacherID}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	now := time.Now().UTC()
	record := &models.Attendance{
		ID:         uuid.NewString(),
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		Date:       req.Date.UTC().Truncate(24 * time.Hour),
		WeekNumber: req.WeekNumber,
		Status:     req.Status,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	stored, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance")
	}

	s.logger.Debug("attendance marked",
		zap.String("student_id", stored.StudentID),
		zap.String("course_id", stored.CourseID),
		zap.String("status", string(stored.Status)),
		zap.String("marked_by", actor.ID))

	return stored, nil
}

// BulkMark records a whole session roster at once. Entries are handled
// independently; rejected ones are reported, not fatal.
func (s *AttendanceService) BulkMark(ctx context.Context, actor authz.Actor, reqs []MarkAttendanceRequest) (*BulkAttendanceResult, error) {
	if len(reqs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty attendance batch")
	}

	result := &BulkAttendanceResult{}
	for _, req := range reqs {
		stored, err := s.Mark(ctx, actor, req)
		if err != nil {
			result.Failures = append(result.Failures, models.AttendanceBulkFailure{
				StudentID: req.StudentID,
				Date:      req.Date,
				Reason:    err.Error(),
			})
			continue
		}
		result.Saved = append(result.Saved, *stored)
	}
	return result, nil
}

// List returns attendance records matching the filter. Students are
// pinned to their own records.
func (s *AttendanceService) List(ctx context.Context, actor authz.Actor, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	if actor.Role == models.RoleStudent {
		if decision := authz.CanPerform(actor, authz.OpReadOwnRecords, authz.Target{OwnerID: actor.ID}); !decision.Allowed {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
		}
		filter.StudentID = actor.ID
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return records, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Summary aggregates a student's attendance in one course. Present and
// late both count toward the attendance rate.
func (s *AttendanceService) Summary(ctx context.Context, actor authz.Actor, studentID, courseID string) (*models.AttendanceSummary, error) {
	if decision := authz.CanPerform(actor, authz.OpReadOwnRecords, authz.Target{OwnerID: studentID}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	summary, err := s.repo.StudentSummary(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute summary")
	}
	return summary, nil
}

func (s *AttendanceService) loadStudent(ctx context.Context, studentID string) (*models.User, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrRoleViolation, "attendance can only target student accounts")
	}
	if student.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not assigned to a group")
	}
	return student, nil
}

func (s *AttendanceService) resolveAuthority(ctx context.Context, courseID string, student *models.User) (string, error) {
	assignment, err := s.authority.Resolve(ctx, courseID, *student.GroupID, s.activeYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve authority")
	}
	return assignment.TeacherID, nil
}
