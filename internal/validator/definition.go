package validator

import (
	"fmt"
	"regexp"

	"github.com/formrelay/form-api/internal/types"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateDefinition applies the structural rules a form document must meet
// before it is accepted from an operator. Returns a map of problem
// locations to messages, empty when the definition is sound.
func ValidateDefinition(def *types.FormDefinition) map[string]string {
	problems := make(map[string]string)

	seen := make(map[string]struct{}, len(def.Fields))
	for i, field := range def.Fields {
		loc := fmt.Sprintf("fields[%d]", i)

		if !fieldNamePattern.MatchString(field.Name) {
			problems[loc+".name"] = "must start with a letter and contain only letters, digits, and underscores"
		}
		if _, dup := seen[field.Name]; dup {
			problems[loc+".name"] = fmt.Sprintf("duplicate field name %q", field.Name)
		}
		seen[field.Name] = struct{}{}

		switch field.Type {
		case types.FieldSelect, types.FieldRadio:
			if len(field.Options) == 0 {
				problems[loc+".options"] = fmt.Sprintf("%s fields require at least one option", field.Type)
			}
		case types.FieldText, types.FieldEmail, types.FieldTextarea, types.FieldCheckbox,
			types.FieldNumber, types.FieldPhone, types.FieldDate, types.FieldFile:
		default:
			problems[loc+".type"] = fmt.Sprintf("unknown field type %q", field.Type)
		}

		if rules := field.Validation; rules != nil && rules.Pattern != nil {
			if _, err := regexp.Compile(*rules.Pattern); err != nil {
				// tolerated at submission time but flagged at authoring time
				problems[loc+".validation.pattern"] = "not a valid regular expression"
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return problems
}
