package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/complaintdesk/internal/auth"
	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/internal/services"
	"github.com/charlesng35/complaintdesk/pkg/errors"
	"github.com/charlesng35/complaintdesk/pkg/response"
)

// AuthHandler manages account registration and login.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

func NewAuthHandler(users *services.UserService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	OnboardingStage int    `json:"onboarding_stage"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        userSummary `json:"user"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, status, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwt.TTL().Seconds()),
		User: userSummary{
			ID:              user.ID,
			Name:            user.Name,
			Email:           user.Email,
			OnboardingStage: user.OnboardingStage,
		},
	})
}
