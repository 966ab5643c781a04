package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/models"
	"github.com/idir-saidi/campus-records-api/internal/service"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
	"github.com/idir-saidi/campus-records-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Mark attendance for one student session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	record, err := h.attendance.Mark(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Bulk godoc
// @Summary Mark a whole session roster
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body []service.MarkAttendanceRequest true "Attendance batch"
// @Success 200 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) Bulk(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var reqs []service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance batch"))
		return
	}

	result, err := h.attendance.BulkMark(c.Request.Context(), actor, reqs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param course_id query string false "Filter by course"
// @Param week query int false "Filter by week number"
// @Param status query string false "Filter by status"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AttendanceFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("week"); raw != "" {
		week := queryInt(c, "week", 0)
		filter.WeekNumber = &week
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("from"); raw != "" {
		if from, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateFrom = &from
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateTo = &to
		}
	}

	records, pagination, err := h.attendance.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, pagination)
}

// Summary godoc
// @Summary Attendance summary for a student in a course
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/summary/{studentId}/{courseId} [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.attendance.Summary(c.Request.Context(), actor, c.Param("studentId"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}
