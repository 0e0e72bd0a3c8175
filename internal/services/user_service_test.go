package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/complaintdesk/internal/complaints"
	apperrors "github.com/charlesng35/complaintdesk/pkg/errors"
)

func TestUserServiceRegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	svc, err := NewUserService(env.db)
	require.NoError(t, err)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: " Ann ", Email: "Ann@Example.com", Password: "s3cret!"})
	require.NoError(t, err)
	require.Equal(t, "Ann", user.Name)
	require.Equal(t, "ann@example.com", user.Email)
	require.NotEqual(t, "s3cret!", user.Password)
	require.Zero(t, user.OnboardingStage)

	_, err = svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "other"})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	authed, err := svc.Authenticate(ctx, "ANN@example.com", "s3cret!")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "ann@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret!")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	svc, err := NewUserService(env.db)
	require.NoError(t, err)

	for _, input := range []RegisterInput{
		{Email: "a@example.com", Password: "x"},
		{Name: "A", Password: "x"},
		{Name: "A", Email: "a@example.com"},
	} {
		_, err := svc.Register(context.Background(), input)
		require.ErrorIs(t, err, apperrors.ErrBadRequest)
	}
}

func TestUserServiceDetails(t *testing.T) {
	env := newTestEnv(t)
	svc, err := NewUserService(env.db)
	require.NoError(t, err)
	complaintSvc := newComplaintService(t, env)

	user := env.createUser(t, "a@example.com", 3, baseTime)
	for i := 0; i < 2; i++ {
		_, err := complaintSvc.Create(context.Background(), CreateComplaintInput{UserID: user.ID, Type: "feedback", Payload: validPayload(complaints.TypeFeedback)})
		require.NoError(t, err)
	}

	details, err := svc.Details(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, details.ID)
	require.EqualValues(t, 2, details.ComplaintsCount)
	require.Equal(t, 3, details.OnboardingStage)
	require.True(t, details.OnboardingComplete)

	_, err = svc.Details(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
