package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/complaintdesk/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults fills in secrets that must exist even without a configuration file.
// The returned map names the generated keys so callers can log the event without
// exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	return generated, nil
}
