package app

import (
	"strings"

	"github.com/charlesng35/complaintdesk/pkg/logger"
)

// ConfigureLogging initialises the global logger, defaulting to info level JSON output.
func ConfigureLogging(level, format string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level, strings.TrimSpace(format))
}
