package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedbackSchema = `{
  "type": "object",
  "required": ["turnId", "feedback"],
  "properties": {
    "turnId": {"type": "string", "minLength": 1},
    "feedback": {"type": "string", "enum": ["positive", "negative", "neutral"]}
  }
}`

func TestValidator_ValidateJSON(t *testing.T) {
	v, err := NewValidator(feedbackSchema)
	require.NoError(t, err)

	tests := []struct {
		name      string
		document  string
		wantValid bool
		wantField string
	}{
		{
			name:      "valid document",
			document:  `{"turnId":"t-1","feedback":"positive"}`,
			wantValid: true,
		},
		{
			name:      "missing required field",
			document:  `{"turnId":"t-1"}`,
			wantValid: false,
			wantField: "(root)",
		},
		{
			name:      "enum violation",
			document:  `{"turnId":"t-1","feedback":"meh"}`,
			wantValid: false,
			wantField: "feedback",
		},
		{
			name:      "malformed json",
			document:  `{"turnId":`,
			wantValid: false,
			wantField: "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateJSON(tt.document)
			assert.Equal(t, tt.wantValid, res.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, res.Errors)
				assert.Equal(t, tt.wantField, res.Errors[0].Field)
				assert.NotEmpty(t, res.Summary())
			}
		})
	}
}

func TestValidator_ValidateInput(t *testing.T) {
	v := MustValidator(feedbackSchema)
	assert.Same(t, v, MustValidator(feedbackSchema))

	res := v.ValidateInput(map[string]interface{}{"turnId": "", "feedback": "neutral"})
	assert.False(t, res.Valid)
	assert.Len(t, res.GetErrorMessages(), 1)
}

func TestNewValidator_RejectsBrokenSchema(t *testing.T) {
	_, err := NewValidator(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustValidator(`{"type": 12}`) })
}
