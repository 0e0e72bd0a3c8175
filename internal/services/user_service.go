package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/database"
	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/internal/onboarding"
	"github.com/charlesng35/complaintdesk/pkg/crypto"
	apperrors "github.com/charlesng35/complaintdesk/pkg/errors"
	"github.com/charlesng35/complaintdesk/pkg/metrics"
)

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UserDetails is the profile summary shown to the signed-in user.
type UserDetails struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	CreatedAt          time.Time `json:"created_at"`
	OnboardingStage    int       `json:"onboarding_stage"`
	ComplaintsCount    int64     `json:"complaints_count"`
	OnboardingComplete bool      `json:"onboarding_complete"`
}

// UserService manages account registration and credential checks.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Register creates an account with a bcrypt-hashed password. New users start at stage 0.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, crypto.ErrEmptyPassword) {
			return nil, apperrors.NewBadRequest("password is required")
		}
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{Name: name, Email: email, Password: hashed}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrConflict.WithMessage("Email already registered").WithInternal(err)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user matching the credentials or ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	if err != nil || !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &user, nil
}

// Details returns the profile summary for userID.
func (s *UserService) Details(ctx context.Context, userID string) (*UserDetails, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", strings.TrimSpace(userID)).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrNotFound.WithMessage("User not found")
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Complaint{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("user service: count complaints: %w", err)
	}

	return &UserDetails{
		ID:                 user.ID,
		Name:               user.Name,
		Email:              user.Email,
		CreatedAt:          user.CreatedAt,
		OnboardingStage:    user.OnboardingStage,
		ComplaintsCount:    count,
		OnboardingComplete: user.OnboardingStage >= onboarding.StageComplete,
	}, nil
}
