package complaints

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRequiredFieldsPerType(t *testing.T) {
	cases := []struct {
		name    string
		typ     Type
		payload map[string]any
		missing []string
	}{
		{"live demo complete", TypeLiveDemo, map[string]any{"preferred_date": "2026-11-02", "preferred_time": "10:00"}, nil},
		{"live demo without time", TypeLiveDemo, map[string]any{"preferred_date": "2026-11-02"}, []string{"preferred_time"}},
		{"live demo empty", TypeLiveDemo, map[string]any{}, []string{"preferred_date", "preferred_time"}},
		{"technical complete", TypeTechnicalIssue, map[string]any{"issue_description": "500 on export"}, nil},
		{"technical blank description", TypeTechnicalIssue, map[string]any{"issue_description": ""}, []string{"issue_description"}},
		{"billing complete", TypeBillingIssue, map[string]any{"invoice_id": "INV-7", "amount": 49.5}, nil},
		{"billing missing amount", TypeBillingIssue, map[string]any{"invoice_id": "INV-7"}, []string{"amount"}},
		{"billing missing invoice", TypeBillingIssue, map[string]any{"amount": 49.5}, []string{"invoice_id"}},
		{"billing zero amount", TypeBillingIssue, map[string]any{"invoice_id": "INV-7", "amount": 0}, []string{"amount"}},
		{"feedback needs nothing", TypeFeedback, nil, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.typ, tc.payload)
			if tc.missing == nil {
				require.NoError(t, err)
				return
			}

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			require.Equal(t, tc.typ, vErr.Type)
			require.Equal(t, tc.missing, vErr.Missing)
		})
	}
}

func TestValidationErrorMessageNamesTypeContext(t *testing.T) {
	err := Validate(TypeBillingIssue, map[string]any{"invoice_id": "INV-7"})
	require.EqualError(t, err, "invoice_id and amount are mandatory for billing_issue")

	err = Validate(TypeTechnicalIssue, map[string]any{})
	require.EqualError(t, err, "issue_description is mandatory for technical_issue")
}

func TestValidateUnknownType(t *testing.T) {
	err := Validate(Type("refund"), map[string]any{})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" Live_Demo ")
	require.NoError(t, err)
	require.Equal(t, TypeLiveDemo, typ)

	_, err = ParseType("")
	require.ErrorIs(t, err, ErrUnknownType)

	for _, known := range Types() {
		require.True(t, known.Valid())
	}
}

func TestRequiredFieldsReturnsCopy(t *testing.T) {
	fields := TypeLiveDemo.RequiredFields()
	fields[0] = "mutated"
	require.Equal(t, "preferred_date", TypeLiveDemo.RequiredFields()[0])
	require.Nil(t, TypeFeedback.RequiredFields())
}
