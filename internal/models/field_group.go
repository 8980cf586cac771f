package models

// FieldType distinguishes scalar meta fields from repeater (list-of-structs)
// fields. Unknown types are rejected when the schema is loaded, not at use
// time.
type FieldType string

const (
	FieldScalar   FieldType = "scalar"
	FieldRepeater FieldType = "repeater"
)

// FieldDescriptor maps one external-data field to a local meta attribute.
type FieldDescriptor struct {
	Name      string            `json:"name" validate:"required"`
	Type      FieldType         `json:"type" validate:"required,oneof=scalar repeater"`
	Subfields []FieldDescriptor `json:"subfields,omitempty" validate:"omitempty,dive"`
}

// FieldGroup is the read-only schema describing which fields the reconciler
// imports, loaded once per run.
type FieldGroup struct {
	Fields []FieldDescriptor `json:"fields" validate:"required,min=1,dive"`
}
