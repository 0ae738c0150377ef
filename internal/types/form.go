package types

// FieldType enumerates the input kinds a form definition may declare.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldNumber   FieldType = "number"
	FieldPhone    FieldType = "phone"
	FieldDate     FieldType = "date"
	FieldFile     FieldType = "file"
)

type FieldOption struct {
	Label string `json:"label" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// FieldRules are the optional per-field constraints an operator may attach
// on top of the type checks. Pointers distinguish "unset" from zero values.
type FieldRules struct {
	Pattern        *string  `json:"pattern,omitempty"`
	PatternMessage *string  `json:"patternMessage,omitempty"`
	MinLength      *int     `json:"minLength,omitempty"`
	MaxLength      *int     `json:"maxLength,omitempty"`
	Min            *float64 `json:"min,omitempty"`
	Max            *float64 `json:"max,omitempty"`
}

type FormField struct {
	Validation *FieldRules   `json:"validation,omitempty"`
	Name       string        `json:"name"              validate:"required"`
	Label      string        `json:"label"`
	Type       FieldType     `json:"type"              validate:"required"`
	Options    []FieldOption `json:"options,omitempty"`
	Required   bool          `json:"required"`
}

// FormDefinition is the operator-authored configuration a submission is
// processed against. It is fetched once per submission and treated as
// immutable from then on.
type FormDefinition struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"           validate:"required"`
	Fields         []FormField `json:"fields"`
	Actions        ActionList  `json:"actions"`
	SpamProtection bool        `json:"spamProtection"`
}

// SubmissionData is the raw field-name to value mapping a client submits.
// Values are untyped until validated; arrays come from multi-value inputs.
type SubmissionData map[string]any
