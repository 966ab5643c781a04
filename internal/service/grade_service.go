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

type gradeRepository interface {
	Get(ctx context.Context, studentID, courseID string) (*models.Grade, error)
	Upsert(ctx context.Context, grade *models.Grade) (*models.Grade, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error)
	ListByCourseAndGroup(ctx context.Context, courseID, groupID string) ([]models.GradeDetail, error)
}

type gradeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type authorityResolver interface {
	Resolve(ctx context.Context, courseID, groupID, academicYear string) (*models.CourseAssignment, error)
}

// UpsertGradeRequest writes one or more marks for a student in a course.
// Omitted marks keep their stored value.
type UpsertGradeRequest struct {
	StudentID string   `json:"student_id" validate:"required,uuid4"`
	CourseID  string   `json:"course_id" validate:"required,uuid4"`
	TDMark    *float64 `json:"td_mark,omitempty"`
	TPMark    *float64 `json:"tp_mark,omitempty"`
	ExamMark  *float64 `json:"exam_mark,omitempty"`
	Comments  string   `json:"comments" validate:"max=500"`
}

// BulkGradeResult reports the outcome of a bulk upsert: entries that
// passed and entries that were rejected, each with a reason.
type BulkGradeResult struct {
	Saved    []models.Grade            `json:"saved"`
	Failures []models.GradeBulkFailure `json:"failures"`
}

// GradeService enforces grading authority and mark bounds.
type GradeService struct {
	repo       gradeRepository
	students   gradeStudentRepository
	authority  authorityResolver
	events     eventPublisher
	activeYear string
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeService creates a GradeService. activeYear pins the academic
// year authority is resolved against.
func NewGradeService(repo gradeRepository, students gradeStudentRepository, authority authorityResolver, events eventPublisher, activeYear string, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{
		repo:       repo,
		students:   students,
		authority:  authority,
		events:     events,
		activeYear: activeYear,
		validator:  validate,
		logger:     logger,
	}
}

// Upsert writes marks for one student in one course. The caller must
// hold the teaching assignment covering the student's group in the
// active academic year, or be an administrator. Marks outside [0, 20]
// are rejected before anything is stored.
func (s *GradeService) Upsert(ctx context.Context, actor authz.Actor, req UpsertGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	for _, mark := range []*float64{req.TDMark, req.TPMark, req.ExamMark} {
		if mark != nil && !models.MarkInRange(*mark) {
			return nil, appErrors.Clone(appErrors.ErrOutOfRange, "marks must lie between 0 and 20")
		}
	}
	if req.TDMark == nil && req.TPMark == nil && req.ExamMark == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one mark is required")
	}

	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	teacherID, err := s.resolveAuthority(ctx, req.CourseID, student)
	if err != nil {
		return nil, err
	}

	if decision := authz.CanPerform(actor, authz.OpUpsertGrade, authz.Target{OwnerID: student.ID, AuthorityTeacherID: teacherID}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	now := time.Now().UTC()
	grade := &models.Grade{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		TDMark:    req.TDMark,
		TPMark:    req.TPMark,
		ExamMark:  req.ExamMark,
		Comments:  req.Comments,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, err := s.repo.Upsert(ctx, grade)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade")
	}

	s.logger.Info("grade recorded",
		zap.String("student_id", stored.StudentID),
		zap.String("course_id", stored.CourseID),
		zap.String("recorded_by", actor.ID))

	if s.events != nil {
		s.events.Publish(models.DomainEvent{
			Type:     models.EventGradePublished,
			UserID:   stored.StudentID,
			CourseID: stored.CourseID,
		})
	}

	return stored, nil
}

// BulkUpsert writes marks for many students at once. Entries are
// processed independently: a rejected entry never blocks the rest, and
// the result lists both outcomes.
func (s *GradeService) BulkUpsert(ctx context.Context, actor authz.Actor, reqs []UpsertGradeRequest) (*BulkGradeResult, error) {
	if len(reqs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty grade batch")
	}

	result := &BulkGradeResult{}
	for _, req := range reqs {
		stored, err := s.Upsert(ctx, actor, req)
		if err != nil {
			result.Failures = append(result.Failures, models.GradeBulkFailure{
				StudentID: req.StudentID,
				Reason:    err.Error(),
			})
			continue
		}
		result.Saved = append(result.Saved, *stored)
	}
	return result, nil
}

// StudentGrades returns all grades of one student with derived averages.
// Students may only read their own, and only once approved.
func (s *GradeService) StudentGrades(ctx context.Context, actor authz.Actor, studentID string) ([]models.GradeDetail, error) {
	if decision := authz.CanPerform(actor, authz.OpReadOwnRecords, authz.Target{OwnerID: studentID}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	grades, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	for i := range grades {
		grades[i].AverageMark = grades[i].Average()
	}
	return grades, nil
}

// GradeSheet returns the grades of one course for one group. Teachers
// must hold the covering assignment; administrators always may.
func (s *GradeService) GradeSheet(ctx context.Context, actor authz.Actor, courseID, groupID string) ([]models.GradeDetail, error) {
	teacherID := ""
	assignment, err := s.authority.Resolve(ctx, courseID, groupID, s.activeYear)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve authority")
	}
	if assignment != nil {
		teacherID = assignment.TeacherID
	}

	if decision := authz.CanPerform(actor, authz.OpUpsertGrade, authz.Target{AuthorityTeacherID: teacherID}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	grades, err := s.repo.ListByCourseAndGroup(ctx, courseID, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	for i := range grades {
		grades[i].AverageMark = grades[i].Average()
	}
	return grades, nil
}

func (s *GradeService) loadStudent(ctx context.Context, studentID string) (*models.User, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrRoleViolation, "grades can only target student accounts")
	}
	if student.GroupID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not assigned to a group")
	}
	return student, nil
}

// resolveAuthority finds the teacher holding the assignment for the
// student's group. Absence of an assignment yields an empty teacher ID,
// which the policy turns into a denial for non-admin actors.
func (s *GradeService) resolveAuthority(ctx context.Context, courseID string, student *models.User) (string, error) {
	assignment, err := s.authority.Resolve(ctx, courseID, *student.GroupID, s.activeYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve authority")
	}
	return assignment.TeacherID, nil
}
