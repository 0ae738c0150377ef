package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/formrelay/form-api/internal/logger"
	"github.com/formrelay/form-api/internal/template"
	"github.com/formrelay/form-api/internal/types"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneStrip   = regexp.MustCompile(`[\s\-().+]`)
	digitsOnly   = regexp.MustCompile(`^[0-9]{7,15}$`)
)

// ValidateFields checks submitted values against the form's field
// declarations. All applicable errors for a field are accumulated, except
// that a missing required value short-circuits the rest of that field's
// checks. An empty result means the submission passes.
func ValidateFields(fields []types.FormField, data types.SubmissionData) []types.FieldError {
	var errs []types.FieldError
	for _, field := range fields {
		errs = append(errs, validateField(field, data[field.Name])...)
	}
	return errs
}

func validateField(field types.FormField, value any) []types.FieldError {
	str := strings.TrimSpace(template.Stringify(value))

	if str == "" {
		if field.Required {
			return []types.FieldError{{
				Field:   field.Name,
				Message: fieldLabel(field) + " is required",
			}}
		}
		// optional and empty is always valid
		return nil
	}

	var errs []types.FieldError
	add := func(msg string) {
		errs = append(errs, types.FieldError{Field: field.Name, Message: msg})
	}

	switch field.Type {
	case types.FieldEmail:
		if !emailPattern.MatchString(str) {
			add("Please enter a valid email address")
		}
	case types.FieldPhone:
		if !digitsOnly.MatchString(phoneStrip.ReplaceAllString(str, "")) {
			add("Please enter a valid phone number")
		}
	case types.FieldNumber:
		n, err := strconv.ParseFloat(str, 64)
		if err != nil {
			add("Please enter a valid number")
		} else if rules := field.Validation; rules != nil {
			if rules.Min != nil && n < *rules.Min {
				add(fmt.Sprintf("Must be at least %s", trimFloat(*rules.Min)))
			}
			if rules.Max != nil && n > *rules.Max {
				add(fmt.Sprintf("Must be no more than %s", trimFloat(*rules.Max)))
			}
		}
	case types.FieldSelect, types.FieldRadio:
		if !hasOption(field.Options, str) {
			add("Please select a valid option")
		}
	case types.FieldText, types.FieldTextarea, types.FieldCheckbox, types.FieldDate, types.FieldFile:
		// no type-specific checks
	}

	if rules := field.Validation; rules != nil {
		if rules.MinLength != nil && len(str) < *rules.MinLength {
			add(fmt.Sprintf("Must be at least %d characters", *rules.MinLength))
		}
		if rules.MaxLength != nil && len(str) > *rules.MaxLength {
			add(fmt.Sprintf("Must be no more than %d characters", *rules.MaxLength))
		}
		if rules.Pattern != nil {
			re, err := regexp.Compile(*rules.Pattern)
			if err != nil {
				// a misconfigured form must not deny all submissions
				logger.Logger.Warn("skipping invalid field pattern",
					"field", field.Name, "pattern", *rules.Pattern, "error", err)
			} else if !re.MatchString(str) {
				msg := "Invalid format"
				if rules.PatternMessage != nil && *rules.PatternMessage != "" {
					msg = *rules.PatternMessage
				}
				add(msg)
			}
		}
	}

	return errs
}

func fieldLabel(field types.FormField) string {
	if field.Label != "" {
		return field.Label
	}
	return template.Humanize(field.Name)
}

func hasOption(options []types.FieldOption, value string) bool {
	for _, opt := range options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
