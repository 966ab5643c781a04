package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.CourseAssignment) error
	FindByID(ctx context.Context, id string) (*models.CourseAssignment, error)
	Resolve(ctx context.Context, courseID, groupID, academicYear string) (*models.CourseAssignment, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseAssignmentDetail, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.CourseAssignmentDetail, error)
	Delete(ctx context.Context, id string) error
	CreateSession(ctx context.Context, session *models.ScheduleSession) error
	ListSessions(ctx context.Context, assignmentID string) ([]models.ScheduleSession, error)
	DeleteSession(ctx context.Context, assignmentID, sessionID string) error
}

type assignmentUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type assignmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type assignmentGroupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	HasCourse(ctx context.Context, groupID, courseID string) (bool, error)
}

// CreateAssignmentRequest binds a teacher to a course/group/year tuple.
type CreateAssignmentRequest struct {
	TeacherID    string `json:"teacher_id" validate:"required,uuid4"`
	CourseID     string `json:"course_id" validate:"required,uuid4"`
	GroupID      string `json:"group_id" validate:"required,uuid4"`
	AcademicYear string `json:"academic_year" validate:"required,len=9"`
}

// CreateSessionRequest adds a schedule slot to an assignment.
type CreateSessionRequest struct {
	Day         string             `json:"day" validate:"required"`
	StartTime   string             `json:"start_time" validate:"required,len=5"`
	EndTime     string             `json:"end_time" validate:"required,len=5"`
	Room        string             `json:"room" validate:"required,max=64"`
	SessionType models.SessionType `json:"session_type" validate:"required"`
}

// AssignmentService manages teaching assignments, the sole source of
// grading and attendance authority.
type AssignmentService struct {
	repo      assignmentRepository
	users     assignmentUserRepository
	courses   assignmentCourseRepository
	groups    assignmentGroupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService creates an AssignmentService.
func NewAssignmentService(repo assignmentRepository, users assignmentUserRepository, courses assignmentCourseRepository, groups assignmentGroupRepository, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{repo: repo, users: users, courses: courses, groups: groups, validator: validate, logger: logger}
}

// Create assigns a teacher to a course and group for one academic year.
// Exactly one assignment may exist per (course, group, year) triple; a
// concurrent duplicate loses with an authority conflict, decided by the
// database rather than a read-then-write check.
func (s *AssignmentService) Create(ctx context.Context, actor authz.Actor, req CreateAssignmentRequest) (*models.CourseAssignment, error) {
	if decision := authz.CanPerform(actor, authz.OpCreateAssignment, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrRoleViolation, "assignments can only target teacher accounts")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.groups.FindByID(ctx, req.GroupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	inCatalog, err := s.groups.HasCourse(ctx, req.GroupID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group catalog")
	}
	if !inCatalog {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not in the group catalog")
	}

	assignment := &models.CourseAssignment{
		ID:           uuid.NewString(),
		TeacherID:    req.TeacherID,
		CourseID:     req.CourseID,
		GroupID:      req.GroupID,
		AcademicYear: req.AcademicYear,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAuthorityConflict, "course and group already assigned for this academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.logger.Info("assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.String("teacher_id", assignment.TeacherID),
		zap.String("course_id", assignment.CourseID),
		zap.String("group_id", assignment.GroupID),
		zap.String("academic_year", assignment.AcademicYear))

	return assignment, nil
}

// Get returns a single assignment.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.CourseAssignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// ListForTeacher returns the assignments held by one teacher. Teachers
// may list their own; administrators may list anyone's.
func (s *AssignmentService) ListForTeacher(ctx context.Context, actor authz.Actor, teacherID string) ([]models.CourseAssignmentDetail, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher or administrator role required")
	}
	if actor.Role == models.RoleTeacher && actor.ID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignments belong to another teacher")
	}

	assignments, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// ListForGroup returns the assignments covering one group.
func (s *AssignmentService) ListForGroup(ctx context.Context, groupID string) ([]models.CourseAssignmentDetail, error) {
	assignments, err := s.repo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Delete removes an assignment and its schedule sessions. Grades and
// attendance already recorded under its authority are untouched.
func (s *AssignmentService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if decision := authz.CanPerform(actor, authz.OpDeleteAssignment, authz.Target{}); !decision.Allowed {
		return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}

	s.logger.Info("assignment deleted", zap.String("assignment_id", id), zap.String("deleted_by", actor.ID))
	return nil
}

// AddSession attaches a schedule slot to an assignment. Overlapping
// slots are accepted; the schedule is advisory.
func (s *AssignmentService) AddSession(ctx context.Context, actor authz.Actor, assignmentID string, req CreateSessionRequest) (*models.ScheduleSession, error) {
	if decision := authz.CanPerform(actor, authz.OpManageSessions, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	day := strings.ToUpper(strings.TrimSpace(req.Day))
	if _, ok := models.SessionDays[day]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday")
	}
	if !req.SessionType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown session type")
	}
	if req.EndTime <= req.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session must end after it starts")
	}

	if _, err := s.repo.FindByID(ctx, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	session := &models.ScheduleSession{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		Day:          day,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Room:         strings.TrimSpace(req.Room),
		SessionType:  req.SessionType,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// ListSessions returns the schedule slots of an assignment ordered by
// weekday and start time.
func (s *AssignmentService) ListSessions(ctx context.Context, assignmentID string) ([]models.ScheduleSession, error) {
	sessions, err := s.repo.ListSessions(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// RemoveSession deletes one schedule slot.
func (s *AssignmentService) RemoveSession(ctx context.Context, actor authz.Actor, assignmentID, sessionID string) error {
	if decision := authz.CanPerform(actor, authz.OpManageSessions, authz.Target{}); !decision.Allowed {
		return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.repo.DeleteSession(ctx, assignmentID, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}
