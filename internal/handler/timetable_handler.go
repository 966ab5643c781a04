package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/service"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
	"github.com/idir-saidi/campus-records-api/pkg/response"
)

// TimetableHandler exposes group timetable endpoints.
type TimetableHandler struct {
	timetables *service.TimetableService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(timetables *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables}
}

// Upload godoc
// @Summary Publish a timetable image for a group
// @Tags Timetables
// @Accept multipart/form-data
// @Produce json
// @Param group_id formData string true "Group ID"
// @Param title formData string true "Title"
// @Param semester formData string true "Semester"
// @Param academic_year formData string true "Academic year"
// @Param file formData file true "Image"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Upload(c *gin.Context) {
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

	req := service.UploadTimetableRequest{
		GroupID:      c.PostForm("group_id"),
		Title:        c.PostForm("title"),
		Semester:     c.PostForm("semester"),
		AcademicYear: c.PostForm("academic_year"),
		Filename:     fileHeader.Filename,
	}

	timetable, err := h.timetables.Upload(c.Request.Context(), actor, req, src)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, timetable)
}

// ListForGroup godoc
// @Summary List a group's timetables
// @Tags Timetables
// @Produce json
// @Param groupId path string true "Group ID"
// @Param active query bool false "Active only"
// @Success 200 {object} response.Envelope
// @Router /timetables/group/{groupId} [get]
func (h *TimetableHandler) ListForGroup(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	timetables, err := h.timetables.ListForGroup(c.Request.Context(), actor, c.Param("groupId"), c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, timetables, nil)
}

// Delete godoc
// @Summary Delete a timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.timetables.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
