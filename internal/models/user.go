package models

import "time"

// User is an account going through onboarding. OnboardingStage runs 0..3, where 3 means
// onboarding is complete.
type User struct {
	BaseModel

	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	OnboardingStage int        `gorm:"default:0;index" json:"onboarding_stage"`
	StageStartedAt  *time.Time `json:"stage_started_at,omitempty"`

	Complaints          []Complaint          `gorm:"foreignKey:UserID" json:"-"`
	Notifications       []Notification       `gorm:"foreignKey:UserID" json:"-"`
	OnboardingReminders []OnboardingReminder `gorm:"foreignKey:UserID" json:"-"`
}
