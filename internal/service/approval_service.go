package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

// DefaultRejectionReason is stored when an administrator rejects a
// registration without giving one.
const DefaultRejectionReason = "Requirements not met"

type approvalUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateApproval(ctx context.Context, id string, state models.ApprovalState, reason *string) error
}

type eventPublisher interface {
	Publish(event models.DomainEvent)
}

// RejectStudentRequest carries the optional rejection reason.
type RejectStudentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ApprovalService drives the registration approval state machine.
type ApprovalService struct {
	repo      approvalUserRepository
	events    eventPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(repo approvalUserRepository, events eventPublisher, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ApprovalService{repo: repo, events: events, validator: validate, logger: logger}
}

// ListPending returns student accounts awaiting a decision.
func (s *ApprovalService) ListPending(ctx context.Context, actor authz.Actor, page, pageSize int) ([]models.User, *models.Pagination, error) {
	if actor.Role != models.RoleAdmin {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "administrator role required")
	}

	role := models.RoleStudent
	state := models.ApprovalPending
	users, total, err := s.repo.List(ctx, models.UserFilter{
		Role:          &role,
		ApprovalState: &state,
		Page:          page,
		PageSize:      pageSize,
		SortBy:        "created_at",
		SortOrder:     "asc",
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending students")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Approve moves a student account to the approved state and clears any
// stored rejection reason. A previously rejected account may be approved.
func (s *ApprovalService) Approve(ctx context.Context, actor authz.Actor, studentID string) (*models.User, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if decision := authz.CanPerform(actor, authz.OpApproveStudent, authz.Target{OwnerID: student.ID, Role: student.Role}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if student.ApprovalState == models.ApprovalApproved {
		return student, nil
	}

	if err := s.repo.UpdateApproval(ctx, student.ID, models.ApprovalApproved, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve student")
	}

	student.ApprovalState = models.ApprovalApproved
	student.RejectionReason = nil
	student.UpdatedAt = time.Now().UTC()

	s.logger.Info("student approved",
		zap.String("student_id", student.ID),
		zap.String("approved_by", actor.ID))

	if s.events != nil {
		s.events.Publish(models.DomainEvent{
			Type:   models.EventStudentApproved,
			UserID: student.ID,
		})
	}

	return student, nil
}

// Reject moves a student account to the rejected state, storing the given
// reason or the default one when the request leaves it blank.
func (s *ApprovalService) Reject(ctx context.Context, actor authz.Actor, studentID string, req RejectStudentRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if decision := authz.CanPerform(actor, authz.OpRejectStudent, authz.Target{OwnerID: student.ID, Role: student.Role}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	if err := s.repo.UpdateApproval(ctx, student.ID, models.ApprovalRejected, &reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject student")
	}

	student.ApprovalState = models.ApprovalRejected
	student.RejectionReason = &reason
	student.UpdatedAt = time.Now().UTC()

	s.logger.Info("student rejected",
		zap.String("student_id", student.ID),
		zap.String("rejected_by", actor.ID),
		zap.String("reason", reason))

	if s.events != nil {
		s.events.Publish(models.DomainEvent{
			Type:   models.EventStudentRejected,
			UserID: student.ID,
			Reason: reason,
		})
	}

	return student, nil
}

func (s *ApprovalService) loadStudent(ctx context.Context, studentID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	// A non-student id reads the same as a missing one.
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return user, nil
}
