package ai

import "github.com/samber/lo"

// Type is a JSON schema primitive
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
)

// Schema describes the expected shape of a structured response.
// It is converted to the provider's native schema when supported and
// is always used to validate the parsed response.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// IsRequired reports whether name is listed as a required property
func (s *Schema) IsRequired(name string) bool {
	return lo.Contains(s.Required, name)
}
