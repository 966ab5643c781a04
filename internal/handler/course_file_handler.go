package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/models"
	"github.com/idir-saidi/campus-records-api/internal/service"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
	"github.com/idir-saidi/campus-records-api/pkg/response"
)

// CourseFileHandler exposes course material endpoints.
type CourseFileHandler struct {
	files *service.CourseFileService
}

// NewCourseFileHandler constructs a course file handler.
func NewCourseFileHandler(files *service.CourseFileService) *CourseFileHandler {
	return &CourseFileHandler{files: files}
}

// Upload godoc
// @Summary Upload course material
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param course_id formData string true "Course ID"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param file_type formData string true "File type"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /files [post]
func (h *CourseFileHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file part required"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close()

	req := service.UploadCourseFileRequest{
		CourseID:    c.PostForm("course_id"),
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		FileType:    models.FileType(c.PostForm("file_type")),
		Filename:    fileHeader.Filename,
		SizeBytes:   fileHeader.Size,
	}

	file, err := h.files.Upload(c.Request.Context(), actor, req, src)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, file)
}

// ListByCourse godoc
// @Summary List the material of a course
// @Tags Files
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /files/course/{courseId} [get]
func (h *CourseFileHandler) ListByCourse(c *gin.Context) {
	files, err := h.files.ListByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, files, nil)
}

// Download godoc
// @Summary Download one stored file
// @Tags Files
// @Produce octet-stream
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/download [get]
func (h *CourseFileHandler) Download(c *gin.Context) {
	file, handle, err := h.files.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer handle.Close()

	c.FileAttachment(handle.Name(), file.Title)
}

// ShareLink godoc
// @Summary Mint a signed download link for one file
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/link [post]
func (h *CourseFileHandler) ShareLink(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	token, expiresAt, err := h.files.ShareLink(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"token": token, "expires_at": expiresAt}, nil)
}

// SharedDownload godoc
// @Summary Download a file through a signed link
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /files/shared [get]
func (h *CourseFileHandler) SharedDownload(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter required"))
		return
	}

	file, handle, err := h.files.OpenShared(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer handle.Close()

	c.FileAttachment(handle.Name(), file.Title)
}

// Delete godoc
// @Summary Delete one stored file
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id} [delete]
func (h *CourseFileHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.files.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
