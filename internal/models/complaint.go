package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/charlesng35/complaintdesk/internal/complaints"
)

// Complaint is a support request owned by a user. AdditionalData holds the
// type-specific payload as JSON.
type Complaint struct {
	BaseModel

	UserID          string            `gorm:"type:uuid;index;not null" json:"user_id"`
	ComplaintType   complaints.Type   `gorm:"type:varchar(32);not null;index" json:"complaint_type"`
	Status          complaints.Status `gorm:"type:varchar(32);not null;default:'raised';index" json:"status"`
	AdditionalData  datatypes.JSON    `json:"additional_data"`
	StatusUpdatedAt time.Time         `gorm:"not null" json:"status_updated_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
