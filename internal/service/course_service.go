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

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Code        string `json:"code" validate:"required,min=2,max=16"`
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"max=1000"`
	Credits     int    `json:"credits" validate:"required,min=1,max=30"`
}

// UpdateCourseRequest updates mutable course fields. The code is
// immutable after creation.
type UpdateCourseRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"max=1000"`
	Credits     int    `json:"credits" validate:"required,min=1,max=30"`
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService creates a CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// Create registers a new course with a unique code.
func (s *CourseService) Create(ctx context.Context, actor authz.Actor, req CreateCourseRequest) (*models.Course, error) {
	if decision := authz.CanPerform(actor, authz.OpCreateCourse, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))

	exists, err := s.repo.ExistsByCode(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already in use")
	}

	now := time.Now().UTC()
	course := &models.Course{
		ID:          uuid.NewString(),
		Code:        code,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Credits:     req.Credits,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// List returns courses matching the filter with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return courses, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update modifies course name, description and credits.
func (s *CourseService) Update(ctx context.Context, actor authz.Actor, id string, req UpdateCourseRequest) (*models.Course, error) {
	if decision := authz.CanPerform(actor, authz.OpUpdateCourse, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	course.Name = strings.TrimSpace(req.Name)
	course.Description = strings.TrimSpace(req.Description)
	course.Credits = req.Credits
	course.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	return course, nil
}

// Delete removes a course and its dependent records in one transaction.
func (s *CourseService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if decision := authz.CanPerform(actor, authz.OpDeleteCourse, authz.Target{}); !decision.Allowed {
		return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.logger.Info("course deleted", zap.String("course_id", id), zap.String("deleted_by", actor.ID))
	return nil
}
