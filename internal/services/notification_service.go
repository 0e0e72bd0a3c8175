package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/models"
	apperrors "github.com/charlesng35/complaintdesk/pkg/errors"
)

// ListNotificationsInput pages through a user's notifications.
type ListNotificationsInput struct {
	UserID string
	Limit  int
	Offset int
}

// NotificationService reads the notification log.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db}, nil
}

// ListForUser returns notifications for the user ordered by recency, plus the total.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]models.Notification, int64, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, 0, apperrors.ErrUnauthorized
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("notification service: count notifications: %w", err)
	}

	limit, offset := pageBounds(input.Limit, input.Offset)
	var rows []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return rows, total, nil
}
