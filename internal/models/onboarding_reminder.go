package models

import "time"

// OnboardingReminder is a ledger row: one per (user, stage, level) that has been sent.
// The composite unique index keeps overlapping scheduler runs from recording a level twice.
type OnboardingReminder struct {
	BaseModel

	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_onboarding_reminder_ledger,priority:1" json:"user_id"`
	Stage         int       `gorm:"not null;uniqueIndex:idx_onboarding_reminder_ledger,priority:2" json:"stage"`
	ReminderLevel int       `gorm:"not null;uniqueIndex:idx_onboarding_reminder_ledger,priority:3" json:"reminder_level"`
	SentAt        time.Time `gorm:"not null" json:"sent_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
