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

type groupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id string) (*models.Group, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]models.GroupDetail, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
	AddCourse(ctx context.Context, groupID, courseID string) error
	RemoveCourse(ctx context.Context, groupID, courseID string) error
	ListStudents(ctx context.Context, groupID string) ([]models.User, error)
}

type groupCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateGroupRequest is the payload for creating a group.
type CreateGroupRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=64"`
	AcademicYear string `json:"academic_year" validate:"required,len=9"`
}

// GroupService manages student groups and their course catalogs.
type GroupService struct {
	repo      groupRepository
	courses   groupCourseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService creates a GroupService.
func NewGroupService(repo groupRepository, courses groupCourseRepository, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GroupService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// Create registers a new group with a unique name.
func (s *GroupService) Create(ctx context.Context, actor authz.Actor, req CreateGroupRequest) (*models.Group, error) {
	if decision := authz.CanPerform(actor, authz.OpCreateGroup, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	name := strings.TrimSpace(req.Name)

	exists, err := s.repo.ExistsByName(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "group name already in use")
	}

	now := time.Now().UTC()
	group := &models.Group{
		ID:           uuid.NewString(),
		Name:         name,
		AcademicYear: req.AcademicYear,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}

	s.logger.Info("group created", zap.String("group_id", group.ID), zap.String("name", group.Name))
	return group, nil
}

// Get returns a single group.
func (s *GroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

// List returns all groups with membership and catalog counts.
func (s *GroupService) List(ctx context.Context) ([]models.GroupDetail, error) {
	groups, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// Update renames a group or moves it to another academic year.
func (s *GroupService) Update(ctx context.Context, actor authz.Actor, id string, req CreateGroupRequest) (*models.Group, error) {
	if decision := authz.CanPerform(actor, authz.OpUpdateGroup, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	name := strings.TrimSpace(req.Name)
	if name != group.Name {
		exists, err := s.repo.ExistsByName(ctx, name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group name")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "group name already in use")
		}
	}

	group.Name = name
	group.AcademicYear = req.AcademicYear
	group.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}

	return group, nil
}

// Delete removes a group. Member students are detached, not deleted.
func (s *GroupService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if decision := authz.CanPerform(actor, authz.OpDeleteGroup, authz.Target{}); !decision.Allowed {
		return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}

	s.logger.Info("group deleted", zap.String("group_id", id), zap.String("deleted_by", actor.ID))
	return nil
}

// AddCourse links a course into the group catalog. Adding the same
// course twice is a no-op.
func (s *GroupService) AddCourse(ctx context.Context, actor authz.Actor, groupID, courseID string) error {
	if decision := authz.CanPerform(actor, authz.OpAssignCatalog, authz.Target{}); !decision.Allowed {
		return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if _, err := s.repo.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.repo.AddCourse(ctx, groupID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add course to group")
	}
	return nil
}

// RemoveCourse unlinks a course from the group catalog.
func (s *GroupService) RemoveCourse(ctx context.Context, actor authz.Actor, groupID, courseID string) error {
	if decision := authz.CanPerform(actor, authz.OpAssignCatalog, authz.Target{}); !decision.Allowed {
		return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.repo.RemoveCourse(ctx, groupID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course is not in the group catalog")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course from group")
	}
	return nil
}

// ListStudents returns the members of a group. Students see their own
// group only.
func (s *GroupService) ListStudents(ctx context.Context, actor authz.Actor, groupID string) ([]models.User, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "directory access requires a staff role")
	}

	students, err := s.repo.ListStudents(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}
