package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResponseSchemaImageField(t *testing.T) {
	plain := BuildResponseSchema(SchemaOptions{})
	withImage := BuildResponseSchema(SchemaOptions{IncludeImageField: true})

	assert.NotContains(t, plain.Properties["messages"].Items.Properties, "imageGenerationSetting")
	assert.Contains(t, withImage.Properties["messages"].Items.Properties, "imageGenerationSetting")
	assert.Equal(t, []string{"reactionDelay", "messages"}, plain.Required)

	// schemas are built fresh, never shared
	plain.Properties["messages"].Items.Properties["extra"] = &Schema{Type: SchemaString}
	assert.NotContains(t, BuildResponseSchema(SchemaOptions{}).Properties["messages"].Items.Properties, "extra")
}

func TestGeminiSchema(t *testing.T) {
	g := BuildResponseSchema(SchemaOptions{}).Gemini()

	assert.Equal(t, "OBJECT", g["type"])
	assert.Equal(t, []string{"messages", "newMemory", "reactionDelay"}, g["propertyOrdering"])
	props := g["properties"].(map[string]any)
	messages := props["messages"].(map[string]any)
	assert.Equal(t, "ARRAY", messages["type"])
	assert.Equal(t, "INTEGER", messages["items"].(map[string]any)["properties"].(map[string]any)["delay"].(map[string]any)["type"])
}

func TestStrictJSONSchema(t *testing.T) {
	raw := BuildResponseSchema(SchemaOptions{IncludeImageField: true}).RawStrictJSONSchema()

	var s map[string]any
	require.NoError(t, json.Unmarshal(raw, &s))

	assert.Equal(t, false, s["additionalProperties"])
	assert.ElementsMatch(t, []any{"messages", "newMemory", "reactionDelay"}, s["required"])

	props := s["properties"].(map[string]any)
	assert.Equal(t, []any{"string", "null"}, props["newMemory"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["reactionDelay"].(map[string]any)["type"])

	part := props["messages"].(map[string]any)["items"].(map[string]any)
	assert.ElementsMatch(t, []any{"content", "delay", "imageGenerationSetting", "sticker"}, part["required"])
	image := part["properties"].(map[string]any)["imageGenerationSetting"].(map[string]any)
	assert.Equal(t, []any{"object", "null"}, image["type"])
	assert.Equal(t, false, image["additionalProperties"])
}
