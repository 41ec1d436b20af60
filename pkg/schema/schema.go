package schema

// Type enumerates the value types allowed in tool parameter schemas.
type Type string

const (
	TypeObject Type = "OBJECT"
	TypeString Type = "STRING"
	TypeNumber Type = "NUMBER"
	TypeArray  Type = "ARRAY"
)

// Schema describes the shape of a tool's arguments in the JSON-schema-like
// form the live API expects. Property names and the required list are part of
// the model contract and must survive marshaling untouched.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Object builds an OBJECT schema from its properties and required names.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// String builds a STRING schema with a description.
func String(desc string) *Schema {
	return &Schema{Type: TypeString, Description: desc}
}

// Number builds a NUMBER schema with a description.
func Number(desc string) *Schema {
	return &Schema{Type: TypeNumber, Description: desc}
}

// Array builds an ARRAY schema with an item schema.
func Array(items *Schema, desc string) *Schema {
	return &Schema{Type: TypeArray, Description: desc, Items: items}
}
