package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/service"
	appErrors "github.com/idir-saidi/campus-records-api/pkg/errors"
	"github.com/idir-saidi/campus-records-api/pkg/response"
)

// ApprovalHandler exposes the registration approval workflow.
type ApprovalHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalHandler constructs an approval handler.
func NewApprovalHandler(approvals *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

// ListPending godoc
// @Summary List students awaiting approval
// @Tags Approvals
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /approvals/pending [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	students, pagination, err := h.approvals.ListPending(c.Request.Context(), actor, queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, students, pagination)
}

// Approve godoc
// @Summary Approve a student registration
// @Tags Approvals
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /approvals/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.approvals.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, student, nil)
}

// Reject godoc
// @Summary Reject a student registration
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.RejectStudentRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /approvals/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RejectStudentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
			return
		}
	}

	student, err := h.approvals.Reject(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, student, nil)
}
