package notifications

import (
	"fmt"

	"github.com/charlesng35/complaintdesk/internal/complaints"
)

// Content is the display text of a notification.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// FallbackOnboardingContent is used when a (stage, level) pair has no entry in the
// reminder content table.
var FallbackOnboardingContent = Content{
	Title: "Onboarding Reminder",
	Body:  "Please complete your onboarding to unlock all features.",
}

var onboardingContent = map[int]map[int]Content{
	0: {
		1: {Title: "Complete your profile", Body: "You signed up 24 hours ago. Please complete your profile to get started."},
		2: {Title: "Profile incomplete", Body: "It has been 3 days. Complete Stage 0 to continue."},
		3: {Title: "Finish setup", Body: "5 days passed. Complete your setup to start using features."},
	},
	1: {
		1: {Title: "Connect social accounts", Body: "Stage 0 done. Connect your social media accounts now."},
		2: {Title: "Account connection pending", Body: "Connect at least one platform to proceed."},
	},
	2: {
		1: {Title: "Create first campaign", Body: "Accounts connected. Create your first campaign."},
		2: {Title: "Campaign pending", Body: "Start creating your campaign to complete onboarding."},
		3: {Title: "Complete onboarding", Body: "3 days in Stage 2. Create a campaign to finish setup."},
		4: {Title: "Final reminder", Body: "Complete your campaign setup to start using all features."},
	},
}

// ComplaintStatusContent builds the message sent when a complaint reaches status.
func ComplaintStatusContent(status complaints.Status, complaintID string) Content {
	switch status {
	case complaints.StatusInProgress:
		return Content{
			Title: "Complaint in progress",
			Body:  fmt.Sprintf("Complaint #%s is now being worked on.", complaintID),
		}
	case complaints.StatusResolved:
		return Content{
			Title: "Complaint resolved",
			Body:  fmt.Sprintf("Complaint #%s has been resolved.", complaintID),
		}
	default:
		return Content{
			Title: "Status updated",
			Body:  fmt.Sprintf("Complaint #%s status changed.", complaintID),
		}
	}
}

// OnboardingContent returns the reminder text for a stage and 1-based level. ok is
// false when the generic fallback was used.
func OnboardingContent(stage, level int) (Content, bool) {
	if byLevel, found := onboardingContent[stage]; found {
		if content, found := byLevel[level]; found {
			return content, true
		}
	}
	return FallbackOnboardingContent, false
}
