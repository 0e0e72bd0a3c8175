package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/complaints"
	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/internal/notifications"
	apperrors "github.com/charlesng35/complaintdesk/pkg/errors"
	"github.com/charlesng35/complaintdesk/pkg/logger"
	"github.com/charlesng35/complaintdesk/pkg/metrics"
)

// CreateComplaintInput carries a new complaint. Payload holds the type-specific fields.
type CreateComplaintInput struct {
	UserID  string
	Type    string
	Payload map[string]any
}

// UpdateStatusInput requests a status change on a complaint owned by UserID.
type UpdateStatusInput struct {
	UserID      string
	ComplaintID string
	Status      string
}

// StatusChange is the outcome of an applied transition.
type StatusChange struct {
	ID              string            `json:"id"`
	OldStatus       complaints.Status `json:"old_status"`
	NewStatus       complaints.Status `json:"new_status"`
	StatusUpdatedAt time.Time         `json:"status_updated_at"`
}

// ComplaintMetrics reports how long a complaint has existed and sat in its status.
type ComplaintMetrics struct {
	ComplaintID                string            `json:"complaint_id"`
	CurrentStatus              complaints.Status `json:"current_status"`
	TimeInCurrentStatusMinutes int64             `json:"time_in_current_status_minutes"`
	TotalTimeMinutes           int64             `json:"total_time_minutes"`
}

// ComplaintDetail is a complaint plus the statuses it may move to next.
type ComplaintDetail struct {
	models.Complaint
	AllowedTransitions []complaints.Status `json:"allowed_transitions"`
}

// ListComplaintsInput filters a user's complaints.
type ListComplaintsInput struct {
	Status string
	Limit  int
	Offset int
}

// ComplaintService owns the complaint lifecycle: creation, status transitions and
// timing metrics.
type ComplaintService struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger
}

// NewComplaintService constructs a ComplaintService. notifier may be nil, in which case
// status notifications are skipped.
func NewComplaintService(db *gorm.DB, notifier Notifier, opts ...Option) (*ComplaintService, error) {
	if db == nil {
		return nil, errors.New("complaint service: db is required")
	}
	o := applyOptions(opts)
	return &ComplaintService{
		db:       db,
		notifier: notifier,
		now:      o.now,
		log:      logger.WithModule("complaints"),
	}, nil
}

// Create validates the payload for its type and persists the complaint in its initial
// status. Nothing is written when validation fails.
func (s *ComplaintService) Create(ctx context.Context, input CreateComplaintInput) (*models.Complaint, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	complaintType, err := complaints.ParseType(input.Type)
	if err != nil {
		return nil, translateDomainError(err)
	}
	if err := complaints.Validate(complaintType, input.Payload); err != nil {
		return nil, translateDomainError(err)
	}

	payload, err := json.Marshal(additionalData(input.Payload))
	if err != nil {
		return nil, apperrors.NewBadRequest("Invalid complaint payload").WithInternal(err)
	}

	now := s.now().UTC()
	complaint := &models.Complaint{
		BaseModel:       models.BaseModel{CreatedAt: now, UpdatedAt: now},
		UserID:          userID,
		ComplaintType:   complaintType,
		Status:          complaints.InitialStatus(complaintType),
		AdditionalData:  datatypes.JSON(payload),
		StatusUpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(complaint).Error; err != nil {
		return nil, fmt.Errorf("complaint service: create complaint: %w", err)
	}
	metrics.ComplaintsCreated.WithLabelValues(string(complaintType)).Inc()

	if complaint.Status == complaints.StatusInProgress {
		s.notifyStatus(ctx, complaint.UserID, complaint.ID, complaint.Status)
	}
	return complaint, nil
}

// UpdateStatus applies a legal transition to a complaint owned by the caller. The write
// is conditional on the status read, so a concurrent change is reported as an invalid
// transition rather than silently overwritten.
func (s *ComplaintService) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*StatusChange, error) {
	ctx = ensureContext(ctx)
	complaint, err := s.findOwned(ctx, input.UserID, input.ComplaintID)
	if err != nil {
		return nil, err
	}

	oldStatus := complaint.Status
	target, err := complaints.ParseStatus(input.Status)
	if err != nil {
		target = complaints.Status(strings.TrimSpace(input.Status))
		metrics.ComplaintTransitions.WithLabelValues("unknown", "rejected").Inc()
		return nil, translateDomainError(&complaints.TransitionError{From: oldStatus, To: target})
	}
	if err := complaints.CheckTransition(oldStatus, target); err != nil {
		metrics.ComplaintTransitions.WithLabelValues(string(target), "rejected").Inc()
		return nil, translateDomainError(err)
	}

	now := s.now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.Complaint{}).
		Where("id = ? AND status = ?", complaint.ID, oldStatus).
		Updates(map[string]any{
			"status":            target,
			"status_updated_at": now,
			"updated_at":        now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("complaint service: update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		current, err := s.findOwned(ctx, input.UserID, input.ComplaintID)
		if err != nil {
			return nil, err
		}
		metrics.ComplaintTransitions.WithLabelValues(string(target), "rejected").Inc()
		return nil, translateDomainError(&complaints.TransitionError{From: current.Status, To: target})
	}
	metrics.ComplaintTransitions.WithLabelValues(string(target), "applied").Inc()

	if target == complaints.StatusInProgress || target == complaints.StatusResolved {
		s.notifyStatus(ctx, complaint.UserID, complaint.ID, target)
	}

	return &StatusChange{
		ID:              complaint.ID,
		OldStatus:       oldStatus,
		NewStatus:       target,
		StatusUpdatedAt: now,
	}, nil
}

// Metrics reports the floored minutes spent in the current status and since creation.
func (s *ComplaintService) Metrics(ctx context.Context, userID, complaintID string) (*ComplaintMetrics, error) {
	complaint, err := s.findOwned(ensureContext(ctx), userID, complaintID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &ComplaintMetrics{
		ComplaintID:                complaint.ID,
		CurrentStatus:              complaint.Status,
		TimeInCurrentStatusMinutes: floorMinutes(now.Sub(complaint.StatusUpdatedAt)),
		TotalTimeMinutes:           floorMinutes(now.Sub(complaint.CreatedAt)),
	}, nil
}

// Get returns a complaint owned by the caller together with its legal next statuses.
func (s *ComplaintService) Get(ctx context.Context, userID, complaintID string) (*ComplaintDetail, error) {
	complaint, err := s.findOwned(ensureContext(ctx), userID, complaintID)
	if err != nil {
		return nil, err
	}
	return &ComplaintDetail{
		Complaint:          *complaint,
		AllowedTransitions: complaints.AllowedTransitions(complaint.Status),
	}, nil
}

// List returns the caller's complaints, newest first, and the unpaginated total.
func (s *ComplaintService) List(ctx context.Context, userID string, input ListComplaintsInput) ([]models.Complaint, int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(userID) == "" {
		return nil, 0, apperrors.ErrUnauthorized
	}

	query := s.db.WithContext(ctx).Model(&models.Complaint{}).Where("user_id = ?", userID)
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := complaints.ParseStatus(raw)
		if err != nil {
			return nil, 0, apperrors.NewBadRequest("Invalid status filter").WithInternal(err)
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("complaint service: count complaints: %w", err)
	}

	limit, offset := pageBounds(input.Limit, input.Offset)
	var rows []models.Complaint
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("complaint service: list complaints: %w", err)
	}
	return rows, total, nil
}

// findOwned loads a complaint scoped to its owner. Complaints owned by someone else are
// reported as not found.
func (s *ComplaintService) findOwned(ctx context.Context, userID, complaintID string) (*models.Complaint, error) {
	userID = strings.TrimSpace(userID)
	complaintID = strings.TrimSpace(complaintID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if complaintID == "" {
		return nil, apperrors.ErrNotFound.WithMessage("Complaint not found")
	}

	var complaint models.Complaint
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", complaintID, userID).
		First(&complaint).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrNotFound.WithMessage("Complaint not found")
		}
		return nil, fmt.Errorf("complaint service: load complaint: %w", err)
	}
	return &complaint, nil
}

// notifyStatus sends the status notification. The status change is already durable, so
// a failure here is logged and never surfaces to the caller.
func (s *ComplaintService) notifyStatus(ctx context.Context, userID, complaintID string, status complaints.Status) {
	if s.notifier == nil {
		return
	}
	content := notifications.ComplaintStatusContent(status, complaintID)
	if _, err := s.notifier.Dispatch(ctx, userID, models.NotificationKindComplaintStatus, content); err != nil {
		s.log.Error("complaint status notification failed",
			zap.String("complaint_id", complaintID),
			zap.String("user_id", userID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// additionalData strips the discriminator from the stored payload.
func additionalData(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "complaint_type" {
			continue
		}
		out[k] = v
	}
	return out
}
