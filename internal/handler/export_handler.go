package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/models"
	"github.com/idir-saidi/campus-records-api/internal/service"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
	"github.com/idir-saidi/campus-records-api/pkg/response"
)

// ExportHandler exposes CSV and PDF export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// GradeSheet godoc
// @Summary Export the grade sheet of a course for one group
// @Tags Exports
// @Produce octet-stream
// @Param courseId path string true "Course ID"
// @Param groupId path string true "Group ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/grades/{courseId}/{groupId} [get]
func (h *ExportHandler) GradeSheet(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.exports.GradeSheet(c.Request.Context(), actor, c.Param("courseId"), c.Param("groupId"), exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	serveExport(c, result)
}

// Transcript godoc
// @Summary Export every grade of one student
// @Tags Exports
// @Produce octet-stream
// @Param studentId path string true "Student ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/transcript/{studentId} [get]
func (h *ExportHandler) Transcript(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.exports.StudentTranscript(c.Request.Context(), actor, c.Param("studentId"), exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	serveExport(c, result)
}

// Attendance godoc
// @Summary Export attendance records
// @Tags Exports
// @Produce octet-stream
// @Param student_id query string false "Filter by student"
// @Param course_id query string false "Filter by course"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /exports/attendance [get]
func (h *ExportHandler) Attendance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AttendanceFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
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

	result, err := h.exports.AttendanceList(c.Request.Context(), actor, filter, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	serveExport(c, result)
}

func exportFormat(c *gin.Context) service.ExportFormat {
	if c.Query("format") == "pdf" {
		return service.FormatPDF
	}
	return service.FormatCSV
}

func serveExport(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(200, result.ContentType, result.Data)
}
