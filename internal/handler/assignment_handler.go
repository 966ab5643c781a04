package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/service"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
	"github.com/idir-saidi/campus-records-api/pkg/response"
)

// AssignmentHandler exposes teaching assignment endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// Create godoc
// @Summary Assign a teacher to a course and group
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	assignment, err := h.assignments.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignment)
}

// Mine godoc
// @Summary List the acting teacher's assignments
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments/mine [get]
func (h *AssignmentHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	assignments, err := h.assignments.ListForTeacher(c.Request.Context(), actor, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignments, nil)
}

// ListForTeacher godoc
// @Summary List a teacher's assignments
// @Tags Assignments
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/teacher/{teacherId} [get]
func (h *AssignmentHandler) ListForTeacher(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	assignments, err := h.assignments.ListForTeacher(c.Request.Context(), actor, c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignments, nil)
}

// ListForGroup godoc
// @Summary List the assignments covering a group
// @Tags Assignments
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/group/{groupId} [get]
func (h *AssignmentHandler) ListForGroup(c *gin.Context) {
	assignments, err := h.assignments.ListForGroup(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignments, nil)
}

// Delete godoc
// @Summary Delete an assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.assignments.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AddSession godoc
// @Summary Add a schedule session to an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id}/sessions [post]
func (h *AssignmentHandler) AddSession(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	session, err := h.assignments.AddSession(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, session)
}

// ListSessions godoc
// @Summary List the schedule sessions of an assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/sessions [get]
func (h *AssignmentHandler) ListSessions(c *gin.Context) {
	sessions, err := h.assignments.ListSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sessions, nil)
}

// RemoveSession godoc
// @Summary Remove a schedule session
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Param sessionId path string true "Session ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id}/sessions/{sessionId} [delete]
func (h *AssignmentHandler) RemoveSession(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.assignments.RemoveSession(c.Request.Context(), actor, c.Param("id"), c.Param("sessionId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
