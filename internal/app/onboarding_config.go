package app

import (
	"github.com/charlesng35/complaintdesk/internal/onboarding"
	"github.com/charlesng35/complaintdesk/internal/services"
)

// ServiceConfig converts OnboardingConfig into scheduler parameters.
func (c OnboardingConfig) ServiceConfig() (services.OnboardingConfig, error) {
	anchor, err := onboarding.ParseAnchorPolicy(c.Anchor)
	if err != nil {
		return services.OnboardingConfig{}, err
	}
	return services.OnboardingConfig{
		Schedule: onboarding.DefaultSchedule(),
		Anchor:   anchor,
	}, nil
}
