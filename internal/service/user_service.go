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
	"golang.org/x/crypto/bcrypt"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateGroup(ctx context.Context, id string, groupID *string) error
	Delete(ctx context.Context, id string) error
}

type userGroupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

// CreateStaffRequest provisions a teacher or administrator account. Staff
// accounts are created approved; the registration gate only exists for
// students.
type CreateStaffRequest struct {
	Username  string          `json:"username" validate:"required,min=3,max=64"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=8"`
	FirstName string          `json:"first_name" validate:"required"`
	LastName  string          `json:"last_name" validate:"required"`
	Role      models.UserRole `json:"role" validate:"required,oneof=ADMIN TEACHER"`
	Phone     *string         `json:"phone,omitempty"`
}

// UserService handles administrator-facing account management.
type UserService struct {
	repo      userRepository
	groups    userGroupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, groups userGroupRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, groups: groups, validator: validate, logger: logger}
}

// CreateStaff provisions a teacher or administrator account.
func (s *UserService) CreateStaff(ctx context.Context, actor authz.Actor, req CreateStaffRequest) (*models.User, error) {
	if decision := authz.CanPerform(actor, authz.OpCreateTeacher, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}

	username := strings.TrimSpace(strings.ToLower(req.Username))
	email := strings.TrimSpace(strings.ToLower(req.Email))

	taken, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check account uniqueness")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username or email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		PasswordHash:  string(hash),
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Role:          req.Role,
		ApprovalState: models.ApprovalApproved,
		Phone:         req.Phone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := user.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account state")
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	s.logger.Info("staff account created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("created_by", actor.ID))

	return user, nil
}

// Get returns a single user. Students may only read their own account.
func (s *UserService) Get(ctx context.Context, actor authz.Actor, id string) (*models.User, error) {
	if actor.Role == models.RoleStudent && actor.ID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "records belong to another student")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns paginated users matching the filter. Teachers and
// administrators may browse the directory; students may not.
func (s *UserService) List(ctx context.Context, actor authz.Actor, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if actor.Role == models.RoleStudent {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "directory access requires a staff role")
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// AssignGroup places a student in a group, or removes them when groupID
// is nil. Only student accounts may carry a group reference.
func (s *UserService) AssignGroup(ctx context.Context, actor authz.Actor, studentID string, groupID *string) (*models.User, error) {
	if decision := authz.CanPerform(actor, authz.OpAssignCatalog, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	student, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrRoleViolation, "only students belong to groups")
	}

	if groupID != nil {
		if _, err := s.groups.FindByID(ctx, *groupID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
		}
	}

	if err := s.repo.UpdateGroup(ctx, student.ID, groupID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group membership")
	}

	student.GroupID = groupID
	student.UpdatedAt = time.Now().UTC()
	return student, nil
}

// Delete removes a user and every dependent record in one transaction.
func (s *UserService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	op := authz.OpDeleteStudent
	if target.Role != models.RoleStudent {
		op = authz.OpDeleteTeacher
	}
	if decision := authz.CanPerform(actor, op, authz.Target{OwnerID: target.ID, Role: target.Role}); !decision.Allowed {
		return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if actor.ID == id {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete the acting account")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.logger.Info("user deleted",
		zap.String("user_id", id),
		zap.String("role", string(target.Role)),
		zap.String("deleted_by", actor.ID))
	return nil
}
