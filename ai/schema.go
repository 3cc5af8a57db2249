package ai

import (
	"encoding/json"
	"sort"
	"strings"
)

// SchemaType is a JSON schema primitive
type SchemaType string

const (
	SchemaObject  SchemaType = "object"
	SchemaArray   SchemaType = "array"
	SchemaString  SchemaType = "string"
	SchemaInteger SchemaType = "integer"
	SchemaBoolean SchemaType = "boolean"
)

// Schema is a provider-neutral description of the structured reply
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
}

// SchemaOptions parameterizes BuildResponseSchema
type SchemaOptions struct {
	IncludeImageField bool
}

// BuildResponseSchema returns a fresh schema of the structured ChatResponse
func BuildResponseSchema(opts SchemaOptions) *Schema {
	part := &Schema{
		Type: SchemaObject,
		Properties: map[string]*Schema{
			"delay":   {Type: SchemaInteger, Description: "Milliseconds to wait before sending this message, as if typing it."},
			"content": {Type: SchemaString, Description: "Text of the chat bubble."},
			"sticker": {Type: SchemaString, Description: "Id or name of one of the available stickers."},
		},
		Required: []string{"delay"},
	}
	if opts.IncludeImageField {
		part.Properties["imageGenerationSetting"] = &Schema{
			Type:        SchemaObject,
			Description: "Set only when sending a picture.",
			Properties: map[string]*Schema{
				"prompt":   {Type: SchemaString, Description: "Image generation prompt in English tags."},
				"isSelfie": {Type: SchemaBoolean, Description: "True when the picture shows the character."},
			},
			Required: []string{"prompt", "isSelfie"},
		}
	}

	return &Schema{
		Type: SchemaObject,
		Properties: map[string]*Schema{
			"reactionDelay": {Type: SchemaInteger, Description: "Milliseconds before the character starts typing."},
			"messages":      {Type: SchemaArray, Items: part},
			"newMemory":     {Type: SchemaString, Description: "A new long-term fact worth remembering, or empty."},
		},
		Required: []string{"reactionDelay", "messages"},
	}
}

// Gemini renders the schema in the Gemini/Vertex OpenAPI subset (upper-case types)
func (s *Schema) Gemini() map[string]any {
	out := map[string]any{"type": strings.ToUpper(string(s.Type))}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for _, name := range s.propertyNames() {
			props[name] = s.Properties[name].Gemini()
		}
		out["properties"] = props
		out["propertyOrdering"] = s.propertyNames()
	}
	if s.Items != nil {
		out["items"] = s.Items.Gemini()
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// StrictJSONSchema renders the schema for OpenAI strict mode: every property is
// required, optional ones become nullable, and extra properties are rejected
func (s *Schema) StrictJSONSchema() map[string]any {
	return s.strict(false)
}

func (s *Schema) strict(nullable bool) map[string]any {
	out := map[string]any{}
	if nullable {
		out["type"] = []string{string(s.Type), "null"}
	} else {
		out["type"] = string(s.Type)
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Type == SchemaObject {
		names := s.propertyNames()
		props := make(map[string]any, len(names))
		for _, name := range names {
			props[name] = s.Properties[name].strict(!s.isRequired(name))
		}
		out["properties"] = props
		out["required"] = names
		out["additionalProperties"] = false
	}
	if s.Items != nil {
		out["items"] = s.Items.strict(false)
	}
	return out
}

// RawStrictJSONSchema marshals StrictJSONSchema
func (s *Schema) RawStrictJSONSchema() json.RawMessage {
	b, _ := json.Marshal(s.StrictJSONSchema())
	return b
}

func (s *Schema) isRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

func (s *Schema) propertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
