// Package complaints holds the complaint vocabulary: the complaint types with their
// required payload fields and the status graph complaints move through.
package complaints

import (
	"errors"
	"fmt"
	"strings"

	appValidator "github.com/charlesng35/complaintdesk/pkg/validator"
)

// Type enumerates the kinds of complaint a user can raise.
type Type string

const (
	TypeLiveDemo       Type = "live_demo"
	TypeBillingIssue   Type = "billing_issue"
	TypeTechnicalIssue Type = "technical_issue"
	TypeFeedback       Type = "feedback"
)

// ErrUnknownType is returned for complaint types outside the enum.
var ErrUnknownType = errors.New("complaints: unknown complaint type")

// requiredFields lists the payload keys each type must carry. Feedback has none.
var requiredFields = map[Type][]string{
	TypeLiveDemo:       {"preferred_date", "preferred_time"},
	TypeTechnicalIssue: {"issue_description"},
	TypeBillingIssue:   {"invoice_id", "amount"},
	TypeFeedback:       nil,
}

// Types returns every known complaint type in declaration order.
func Types() []Type {
	return []Type{TypeLiveDemo, TypeBillingIssue, TypeTechnicalIssue, TypeFeedback}
}

// ParseType normalises raw input into a known Type.
func ParseType(raw string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
	return t, nil
}

// Valid reports whether t is part of the enum.
func (t Type) Valid() bool {
	_, ok := requiredFields[t]
	return ok
}

// RequiredFields returns a copy of the payload keys mandatory for t.
func (t Type) RequiredFields() []string {
	fields := requiredFields[t]
	if len(fields) == 0 {
		return nil
	}
	return append([]string(nil), fields...)
}

// ValidationError reports missing type-specific payload fields.
type ValidationError struct {
	Type    Type
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s mandatory for %s", joinFields(e.Type.RequiredFields()), e.Type)
}

// Validate checks that payload carries every field required by t. A field that is
// absent or falsy (nil, "", 0, false) counts as missing. Validate never mutates payload.
func Validate(t Type, payload map[string]any) error {
	fields, ok := requiredFields[t]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}

	var missing []string
	for _, field := range fields {
		if !appValidator.Present(payload[field]) {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{Type: t, Missing: missing}
	}
	return nil
}

func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return "no fields are"
	case 1:
		return fields[0] + " is"
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1] + " are"
	}
}
