package database

import "github.com/charlesng35/complaintdesk/internal/models"

// migrationModels lists models in dependency order: users first, then the tables
// referencing them.
func migrationModels() []any {
	return []any{
		&models.User{},
		&models.Complaint{},
		&models.Notification{},
		&models.OnboardingReminder{},
	}
}
