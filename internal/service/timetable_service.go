package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/idir-saidi/campus-records-api/internal/authz"
	"github.com/idir-saidi/campus-records-api/internal/models"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
)

type timetableRepository interface {
	Create(ctx context.Context, t *models.Timetable) error
	ListByGroup(ctx context.Context, groupID string, activeOnly bool) ([]models.Timetable, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type timetableGroupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

// UploadTimetableRequest publishes a schedule image for one group.
type UploadTimetableRequest struct {
	GroupID      string `json:"group_id" validate:"required,uuid4"`
	Title        string `json:"title" validate:"required,min=2,max=128"`
	Semester     string `json:"semester" validate:"required,max=16"`
	AcademicYear string `json:"academic_year" validate:"required,len=9"`
	Filename     string `json:"filename" validate:"required"`
}

// TimetableService publishes and serves group timetable images.
type TimetableService struct {
	repo      timetableRepository
	groups    timetableGroupRepository
	storage   blobStorage
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService creates a TimetableService.
func NewTimetableService(repo timetableRepository, groups timetableGroupRepository, storage blobStorage, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TimetableService{repo: repo, groups: groups, storage: storage, validator: validate, logger: logger}
}

// Upload stores a timetable image and activates it. Previously active
// timetables of the group are deactivated, not removed, so history stays
// browsable.
func (s *TimetableService) Upload(ctx context.Context, actor authz.Actor, req UploadTimetableRequest, content io.Reader) (*models.Timetable, error) {
	if decision := authz.CanPerform(actor, authz.OpUploadTimetable, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}

	if _, err := s.groups.FindByID(ctx, req.GroupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	current, err := s.repo.ListByGroup(ctx, req.GroupID, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(req.Filename))
	storedName := fmt.Sprintf("timetables/%s/%s%s", req.GroupID, id, ext)

	path, err := s.storage.SaveStream(storedName, content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable image")
	}

	timetable := &models.Timetable{
		ID:           id,
		GroupID:      req.GroupID,
		Title:        strings.TrimSpace(req.Title),
		ImagePath:    path,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, timetable); err != nil {
		if removeErr := s.storage.Delete(storedName); removeErr != nil {
			s.logger.Warn("failed to remove orphaned timetable image", zap.String("path", storedName), zap.Error(removeErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
	}

	for _, previous := range current {
		if err := s.repo.Deactivate(ctx, previous.ID); err != nil {
			s.logger.Warn("failed to deactivate previous timetable", zap.String("timetable_id", previous.ID), zap.Error(err))
		}
	}

	s.logger.Info("timetable published",
		zap.String("timetable_id", timetable.ID),
		zap.String("group_id", timetable.GroupID))

	return timetable, nil
}

// ListForGroup returns a group's timetables. Students see only the
// active one for their own group.
func (s *TimetableService) ListForGroup(ctx context.Context, actor authz.Actor, groupID string, activeOnly bool) ([]models.Timetable, error) {
	if actor.Role == models.RoleStudent {
		activeOnly = true
	}

	timetables, err := s.repo.ListByGroup(ctx, groupID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return timetables, nil
}

// Delete removes a timetable record. The stored image is left for the
// storage cleanup job.
func (s *TimetableService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if decision := authz.CanPerform(actor, authz.OpUploadTimetable, authz.Target{}); !decision.Allowed {
		return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}
