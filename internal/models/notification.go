package models

import "time"

// Notification kinds.
const (
	NotificationKindComplaintStatus = "complaint.status"
	NotificationKindOnboarding      = "onboarding.reminder"
)

// Notification is the persisted record of a message sent to a user. It is written
// unsent before the delivery sink runs and flipped to sent afterwards, so a record
// with IsSent=false marks a delivery that never completed.
type Notification struct {
	BaseModel

	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind      string     `gorm:"type:varchar(64);not null;default:''" json:"kind"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	IsSent    bool       `gorm:"default:false;index" json:"is_sent"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Attempts  int        `gorm:"default:0" json:"attempts"`
	LastError string     `gorm:"type:text" json:"-"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
