// Package schema holds the JSON schema operator-authored form definitions
// are validated against before any structural checks run.
package schema

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed form-definition.json
var formDefinitionSchema string

// FormDefinition validates the authoring payload for a form: field
// declarations, action envelopes, and spam protection settings.
var FormDefinition = jsonschema.MustCompileString(
	"form-definition.json",
	formDefinitionSchema,
)
