package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/complaints"
	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/internal/notifications"
	apperrors "github.com/charlesng35/complaintdesk/pkg/errors"
)

// Notifier dispatches a notification to a user. *notifications.Dispatcher satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, userID, kind string, content notifications.Content) (*models.Notification, error)
}

// translateDomainError maps complaint domain errors onto API errors, keeping the domain
// error reachable through errors.As.
func translateDomainError(err error) error {
	var validationErr *complaints.ValidationError
	if errors.As(err, &validationErr) {
		return apperrors.ErrValidation.WithMessage(validationErr.Error()).WithInternal(err)
	}

	var transitionErr *complaints.TransitionError
	if errors.As(err, &transitionErr) {
		return apperrors.ErrInvalidTransition.WithMessage(transitionErr.Error()).WithInternal(err)
	}

	if errors.Is(err, complaints.ErrUnknownType) {
		return apperrors.NewBadRequest("Invalid complaint type").WithInternal(err)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
