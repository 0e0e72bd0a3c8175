package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/complaints"
	"github.com/charlesng35/complaintdesk/internal/services"
	"github.com/charlesng35/complaintdesk/pkg/errors"
	"github.com/charlesng35/complaintdesk/pkg/response"
)

// ComplaintHandler exposes the complaint lifecycle over HTTP.
type ComplaintHandler struct {
	service *services.ComplaintService
}

func NewComplaintHandler(service *services.ComplaintService) *ComplaintHandler {
	return &ComplaintHandler{service: service}
}

type createComplaintResponse struct {
	ID            string            `json:"id"`
	ComplaintType complaints.Type   `json:"complaint_type"`
	Status        complaints.Status `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// POST /api/complaints
//
// The body is a flat object: complaint_type plus the fields that type requires.
func (h *ComplaintHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}
	complaintType, _ := payload["complaint_type"].(string)

	complaint, err := h.service.Create(requestContext(c), services.CreateComplaintInput{
		UserID:  userID,
		Type:    complaintType,
		Payload: payload,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, createComplaintResponse{
		ID:            complaint.ID,
		ComplaintType: complaint.ComplaintType,
		Status:        complaint.Status,
		CreatedAt:     complaint.CreatedAt,
	})
}

// GET /api/complaints
func (h *ComplaintHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", 25)
	offset := parseIntQuery(c, "offset", 0)
	rows, total, err := h.service.List(requestContext(c), userID, services.ListComplaintsInput{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rows, &response.Meta{Limit: limit, Offset: offset, Total: total})
}

// GET /api/complaints/:id
func (h *ComplaintHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	detail, err := h.service.Get(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// PATCH /api/complaints/:id/status
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	change, err := h.service.UpdateStatus(requestContext(c), services.UpdateStatusInput{
		UserID:      userID,
		ComplaintID: strings.TrimSpace(c.Param("id")),
		Status:      req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, change)
}

// GET /api/complaints/:id/metrics
func (h *ComplaintHandler) Metrics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	m, err := h.service.Metrics(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, m)
}
