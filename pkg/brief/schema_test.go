package brief

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_Brief(t *testing.T) {
	schema, err := GenerateSchema[Brief]()
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []string{"follow_ups", "headline", "objectives", "risks", "talking_points"}, schema["required"])
	assert.NotContains(t, schema, "$schema")

	props := schema["properties"].(map[string]any)
	talking := props["talking_points"].(map[string]any)
	assert.Equal(t, "array", talking["type"])
	assert.NotEmpty(t, talking["description"])
}

func TestGenerateSchema_NestedObjectsClosed(t *testing.T) {
	type inner struct {
		Name string `json:"name"`
	}
	type outer struct {
		Items []inner `json:"items"`
		Note  string  `json:"note,omitempty"`
	}

	schema, err := GenerateSchema[outer]()
	require.NoError(t, err)

	assert.Equal(t, []string{"items", "note"}, schema["required"], "optional fields become required")

	items := schema["properties"].(map[string]any)["items"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])
	assert.Equal(t, []string{"name"}, items["required"])
}
