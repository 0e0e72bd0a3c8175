package app

import (
	"strings"

	"github.com/charlesng35/complaintdesk/internal/database"
)

// ConnectionConfig converts DatabaseConfig into database.Config for the selected driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	cfg := database.Config{
		Driver: driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	var host DBAuthConfig
	switch driver {
	case "postgres", "postgresql":
		host = c.Postgres
	case "mysql":
		host = c.MySQL
	default:
		return cfg
	}

	cfg.Host = host.Host
	cfg.Port = host.Port
	cfg.Name = host.Database
	cfg.User = host.Username
	cfg.Password = host.Password
	cfg.Options = host.Options
	return cfg
}
