package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/services"
	"github.com/charlesng35/complaintdesk/pkg/response"
)

// UserHandler serves the signed-in user's profile and onboarding progress.
type UserHandler struct {
	users      *services.UserService
	onboarding *services.OnboardingService
}

func NewUserHandler(users *services.UserService, onboarding *services.OnboardingService) *UserHandler {
	return &UserHandler{users: users, onboarding: onboarding}
}

type onboardingStageRequest struct {
	Stage *int `json:"stage" validate:"required,gte=0,lte=2"`
}

type onboardingStageResponse struct {
	ID              string     `json:"id"`
	OnboardingStage int        `json:"onboarding_stage"`
	StageStartedAt  *time.Time `json:"stage_started_at,omitempty"`
}

// GET /api/user/details
func (h *UserHandler) Details(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	details, err := h.users.Details(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, details)
}

// PATCH /api/user/onboarding-stage
func (h *UserHandler) UpdateOnboardingStage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req onboardingStageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.onboarding.AdvanceStage(requestContext(c), userID, *req.Stage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, onboardingStageResponse{
		ID:              user.ID,
		OnboardingStage: user.OnboardingStage,
		StageStartedAt:  user.StageStartedAt,
	})
}
