package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
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

type courseFileRepository interface {
	Create(ctx context.Context, file *models.CourseFile) error
	FindByID(ctx context.Context, id string) (*models.CourseFile, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseFile, error)
	Delete(ctx context.Context, id string) error
}

type fileCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type blobStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type linkSigner interface {
	Sign(fileID string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// UploadCourseFileRequest carries course material metadata; the blob
// itself arrives as a stream.
type UploadCourseFileRequest struct {
	CourseID    string          `json:"course_id" validate:"required,uuid4"`
	Title       string          `json:"title" validate:"required,min=2,max=128"`
	Description string          `json:"description" validate:"max=500"`
	FileType    models.FileType `json:"file_type" validate:"required"`
	Filename    string          `json:"filename" validate:"required"`
	SizeBytes   int64           `json:"size_bytes" validate:"required,min=1"`
}

// CourseFileService manages uploaded course material.
type CourseFileService struct {
	repo      courseFileRepository
	courses   fileCourseRepository
	storage   blobStorage
	signer    linkSigner
	maxSize   int64
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseFileService creates a CourseFileService. The signer is
// optional; without it share links are unavailable.
func NewCourseFileService(repo courseFileRepository, courses fileCourseRepository, storage blobStorage, signer linkSigner, maxSize int64, validate *validator.Validate, logger *zap.Logger) *CourseFileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseFileService{repo: repo, courses: courses, storage: storage, signer: signer, maxSize: maxSize, validator: validate, logger: logger}
}

// Upload stores course material and its metadata. Teachers and
// administrators may upload; students may not.
func (s *CourseFileService) Upload(ctx context.Context, actor authz.Actor, req UploadCourseFileRequest, content io.Reader) (*models.CourseFile, error) {
	if decision := authz.CanPerform(actor, authz.OpUploadFile, authz.Target{}); !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid file payload")
	}
	if !req.FileType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown file type")
	}
	if s.maxSize > 0 && req.SizeBytes > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the size limit")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(req.Filename))
	storedName := fmt.Sprintf("courses/%s/%s%s", req.CourseID, id, ext)

	path, err := s.storage.SaveStream(storedName, content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	file := &models.CourseFile{
		ID:          id,
		CourseID:    req.CourseID,
		UploaderID:  actor.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		FileType:    req.FileType,
		StoragePath: path,
		SizeBytes:   req.SizeBytes,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, file); err != nil {
		if removeErr := s.storage.Delete(storedName); removeErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", storedName), zap.Error(removeErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file metadata")
	}

	s.logger.Info("course file uploaded",
		zap.String("file_id", file.ID),
		zap.String("course_id", file.CourseID),
		zap.String("uploader_id", file.UploaderID))

	return file, nil
}

// ListByCourse returns the material uploaded for one course.
func (s *CourseFileService) ListByCourse(ctx context.Context, courseID string) ([]models.CourseFile, error) {
	files, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	return files, nil
}

// Open returns the metadata and a reader for one stored file. The caller
// owns closing the file.
func (s *CourseFileService) Open(ctx context.Context, id string) (*models.CourseFile, *os.File, error) {
	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}

	handle, err := s.storage.Open(file.StoragePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}
	return file, handle, nil
}

// ShareLink mints a signed download token for one file so it can be
// fetched without an Authorization header. Staff only.
func (s *CourseFileService) ShareLink(ctx context.Context, actor authz.Actor, id string) (string, time.Time, error) {
	if decision := authz.CanPerform(actor, authz.OpUploadFile, authz.Target{}); !decision.Allowed {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}
	if s.signer == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInternal, "share links are not configured")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}

	token, expiresAt, err := s.signer.Sign(id)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return token, expiresAt, nil
}

// OpenShared resolves a signed token and opens the file it grants
// access to.
func (s *CourseFileService) OpenShared(ctx context.Context, token string) (*models.CourseFile, *os.File, error) {
	if s.signer == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "share links are not configured")
	}
	fileID, err := s.signer.Verify(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	return s.Open(ctx, fileID)
}

// Delete removes a file and its metadata. Only the uploader or an
// administrator may delete.
func (s *CourseFileService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}

	if decision := authz.CanPerform(actor, authz.OpDeleteFile, authz.Target{OwnerID: file.UploaderID}); !decision.Allowed {
		return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file metadata")
	}

	if err := s.storage.Delete(file.StoragePath); err != nil {
		s.logger.Warn("failed to remove stored file", zap.String("path", file.StoragePath), zap.Error(err))
	}

	return nil
}
