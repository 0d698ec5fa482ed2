package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	schema := JSONSchema{
		Type:     "object",
		Required: []string{"email", "quantity"},
		Properties: map[string]Property{
			"email":    {Type: "string", Pattern: StrPtr("@"), MinLength: IntPtr(3)},
			"quantity": {Type: "number"},
			"currency": {Type: "string", Enum: []string{"USD", "EUR"}},
			"note":     {Type: "string", MaxLength: IntPtr(5)},
		},
	}

	tests := []struct {
		name     string
		input    map[string]interface{}
		wantCode string
	}{
		{
			name:  "conforming input passes",
			input: map[string]interface{}{"email": "a@b.c", "quantity": 2.5, "currency": "USD"},
		},
		{
			name:     "missing required field",
			input:    map[string]interface{}{"email": "a@b.c"},
			wantCode: "REQUIRED_FIELD_MISSING",
		},
		{
			name:     "unknown field rejected by default",
			input:    map[string]interface{}{"email": "a@b.c", "quantity": 1, "admin": true},
			wantCode: "EXTRA_FIELD",
		},
		{
			name:     "wrong type",
			input:    map[string]interface{}{"email": "a@b.c", "quantity": "two"},
			wantCode: "INVALID_TYPE",
		},
		{
			name:     "pattern violation",
			input:    map[string]interface{}{"email": "not-an-email", "quantity": 1},
			wantCode: "PATTERN_VIOLATION",
		},
		{
			name:     "too short",
			input:    map[string]interface{}{"email": "@", "quantity": 1},
			wantCode: "MIN_LENGTH_VIOLATION",
		},
		{
			name:     "too long",
			input:    map[string]interface{}{"email": "a@b.c", "quantity": 1, "note": "much too long"},
			wantCode: "MAX_LENGTH_VIOLATION",
		},
		{
			name:     "enum violation",
			input:    map[string]interface{}{"email": "a@b.c", "quantity": 1, "currency": "GBP"},
			wantCode: "ENUM_VIOLATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input, schema)
			if tt.wantCode == "" {
				assert.True(t, result.Valid)
				assert.Empty(t, result.Errors)
				return
			}
			require.False(t, result.Valid)
			codes := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				codes = append(codes, e.Code)
			}
			assert.Contains(t, codes, tt.wantCode)
		})
	}
}

func TestValidate_AdditionalPropertiesOptIn(t *testing.T) {
	schema := JSONSchema{
		Type:                 "object",
		AdditionalProperties: true,
		Properties: map[string]Property{
			"email": {Type: "string"},
		},
	}

	result := Validate(map[string]interface{}{"email": "a@b.c", "extra": 42}, schema)
	assert.True(t, result.Valid)
}

func TestValidate_WrongTypeSkipsConstraintChecks(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"name": {Type: "string", MinLength: IntPtr(3)},
		},
	}

	result := Validate(map[string]interface{}{"name": 42}, schema)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "INVALID_TYPE", result.Errors[0].Code)
}

func TestSummary(t *testing.T) {
	result := &ValidationResult{
		Valid: false,
		Errors: []ValidationError{
			{Field: "email", Message: "required field missing"},
			{Field: "extra", Message: "field not allowed in schema"},
		},
	}
	assert.Equal(t, "email: required field missing; extra: field not allowed in schema", result.Summary())

	assert.Empty(t, (&ValidationResult{Valid: true}).Summary())
}
