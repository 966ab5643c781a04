package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/service"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
	"github.com/idir-saidi/campus-records-api/pkg/response"
)

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Upsert godoc
// @Summary Record marks for a student in a course
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.UpsertGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Upsert(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpsertGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	grade, err := h.grades.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grade, nil)
}

// Bulk godoc
// @Summary Record marks for many students at once
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body []service.UpsertGradeRequest true "Grade batch"
// @Success 200 {object} response.Envelope
// @Router /grades/bulk [post]
func (h *GradeHandler) Bulk(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var reqs []service.UpsertGradeRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade batch"))
		return
	}

	result, err := h.grades.BulkUpsert(c.Request.Context(), actor, reqs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Mine godoc
// @Summary List the acting student's grades
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades/mine [get]
func (h *GradeHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	grades, err := h.grades.StudentGrades(c.Request.Context(), actor, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grades, nil)
}

// ForStudent godoc
// @Summary List one student's grades
// @Tags Grades
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades/student/{studentId} [get]
func (h *GradeHandler) ForStudent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	grades, err := h.grades.StudentGrades(c.Request.Context(), actor, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grades, nil)
}

// Sheet godoc
// @Summary Grade sheet of a course for one group
// @Tags Grades
// @Produce json
// @Param courseId path string true "Course ID"
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades/course/{courseId}/group/{groupId} [get]
func (h *GradeHandler) Sheet(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	grades, err := h.grades.GradeSheet(c.Request.Context(), actor, c.Param("courseId"), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grades, nil)
}
