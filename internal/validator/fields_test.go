package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formrelay/form-api/internal/types"
	"github.com/formrelay/form-api/internal/validator"
)

func ptr[T any](v T) *T {
	return &v
}

func TestValidateFields(t *testing.T) {
	t.Run("RequiredMissing", func(t *testing.T) {
		fields := []types.FormField{
			{Name: "email", Label: "Email", Type: types.FieldEmail, Required: true},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{})

		require.Len(t, errs, 1)
		assert.Equal(t, "email", errs[0].Field)
		assert.Equal(t, "Email is required", errs[0].Message)
	})

	t.Run("RequiredMissingUsesHumanizedName", func(t *testing.T) {
		fields := []types.FormField{
			{Name: "firstName", Type: types.FieldText, Required: true},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{"firstName": "  "})

		require.Len(t, errs, 1)
		assert.Equal(t, "First Name is required", errs[0].Message)
	})

	t.Run("OptionalEmptySkipsChecks", func(t *testing.T) {
		fields := []types.FormField{
			{Name: "email", Type: types.FieldEmail},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{"email": ""})
		assert.Empty(t, errs)
	})

	t.Run("EmailFormat", func(t *testing.T) {
		fields := []types.FormField{
			{Name: "email", Type: types.FieldEmail, Required: true},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{"email": "not-an-email"})
		require.Len(t, errs, 1)
		assert.Equal(t, "Please enter a valid email address", errs[0].Message)

		errs = validator.ValidateFields(fields, types.SubmissionData{"email": "a@b.co"})
		assert.Empty(t, errs)
	})

	t.Run("PhoneStripsFormatting", func(t *testing.T) {
		fields := []types.FormField{
			{Name: "phone", Type: types.FieldPhone},
		}

		errs := validator.ValidateFields(
			fields,
			types.SubmissionData{"phone": "+1 (555) 123-4567"},
		)
		assert.Empty(t, errs)

		errs = validator.ValidateFields(fields, types.SubmissionData{"phone": "12ab34"})
		require.Len(t, errs, 1)
		assert.Equal(t, "Please enter a valid phone number", errs[0].Message)
	})

	t.Run("NumberRange", func(t *testing.T) {
		fields := []types.FormField{
			{
				Name: "qty",
				Type: types.FieldNumber,
				Validation: &types.FieldRules{
					Min: ptr(2.0),
					Max: ptr(10.0),
				},
			},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{"qty": "abc"})
		require.Len(t, errs, 1)
		assert.Equal(t, "Please enter a valid number", errs[0].Message)

		errs = validator.ValidateFields(fields, types.SubmissionData{"qty": float64(1)})
		require.Len(t, errs, 1)
		assert.Equal(t, "Must be at least 2", errs[0].Message)

		errs = validator.ValidateFields(fields, types.SubmissionData{"qty": "11"})
		require.Len(t, errs, 1)
		assert.Equal(t, "Must be no more than 10", errs[0].Message)

		errs = validator.ValidateFields(fields, types.SubmissionData{"qty": "5"})
		assert.Empty(t, errs)
	})

	t.Run("SelectMembership", func(t *testing.T) {
		fields := []types.FormField{
			{
				Name: "topic",
				Type: types.FieldSelect,
				Options: []types.FieldOption{
					{Label: "Sales", Value: "sales"},
					{Label: "Support", Value: "support"},
				},
			},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{"topic": "billing"})
		require.Len(t, errs, 1)
		assert.Equal(t, "Please select a valid option", errs[0].Message)

		errs = validator.ValidateFields(fields, types.SubmissionData{"topic": "sales"})
		assert.Empty(t, errs)
	})

	t.Run("LengthBounds", func(t *testing.T) {
		fields := []types.FormField{
			{
				Name: "message",
				Type: types.FieldTextarea,
				Validation: &types.FieldRules{
					MinLength: ptr(5),
					MaxLength: ptr(10),
				},
			},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{"message": "hey"})
		require.Len(t, errs, 1)
		assert.Equal(t, "Must be at least 5 characters", errs[0].Message)

		errs = validator.ValidateFields(
			fields,
			types.SubmissionData{"message": "hello there friend"},
		)
		require.Len(t, errs, 1)
		assert.Equal(t, "Must be no more than 10 characters", errs[0].Message)
	})

	t.Run("PatternWithCustomMessage", func(t *testing.T) {
		fields := []types.FormField{
			{
				Name: "code",
				Type: types.FieldText,
				Validation: &types.FieldRules{
					Pattern:        ptr(`^[A-Z]{3}-\d{4}$`),
					PatternMessage: ptr("Must look like ABC-1234"),
				},
			},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{"code": "nope"})
		require.Len(t, errs, 1)
		assert.Equal(t, "Must look like ABC-1234", errs[0].Message)

		errs = validator.ValidateFields(fields, types.SubmissionData{"code": "ABC-1234"})
		assert.Empty(t, errs)
	})

	t.Run("InvalidPatternSkipped", func(t *testing.T) {
		fields := []types.FormField{
			{
				Name: "code",
				Type: types.FieldText,
				Validation: &types.FieldRules{
					Pattern: ptr(`([`),
				},
			},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{"code": "anything"})
		assert.Empty(t, errs)
	})

	t.Run("ErrorsAccumulateAcrossFields", func(t *testing.T) {
		fields := []types.FormField{
			{Name: "email", Type: types.FieldEmail, Required: true},
			{Name: "phone", Type: types.FieldPhone, Required: true},
		}

		errs := validator.ValidateFields(fields, types.SubmissionData{
			"email": "bad",
			"phone": "bad",
		})
		assert.Len(t, errs, 2)
	})
}

func TestValidateDefinition(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		def := &types.FormDefinition{
			Name: "Contact",
			Fields: []types.FormField{
				{Name: "email", Type: types.FieldEmail},
				{
					Name: "topic",
					Type: types.FieldSelect,
					Options: []types.FieldOption{
						{Label: "Sales", Value: "sales"},
					},
				},
			},
		}

		assert.Empty(t, validator.ValidateDefinition(def))
	})

	t.Run("BadFieldName", func(t *testing.T) {
		def := &types.FormDefinition{
			Name: "Contact",
			Fields: []types.FormField{
				{Name: "1bad", Type: types.FieldText},
			},
		}

		problems := validator.ValidateDefinition(def)
		assert.Contains(t, problems, "fields[0].name")
	})

	t.Run("DuplicateFieldName", func(t *testing.T) {
		def := &types.FormDefinition{
			Name: "Contact",
			Fields: []types.FormField{
				{Name: "email", Type: types.FieldEmail},
				{Name: "email", Type: types.FieldText},
			},
		}

		problems := validator.ValidateDefinition(def)
		assert.Contains(t, problems, "fields[1].name")
	})

	t.Run("SelectWithoutOptions", func(t *testing.T) {
		def := &types.FormDefinition{
			Name: "Contact",
			Fields: []types.FormField{
				{Name: "topic", Type: types.FieldSelect},
			},
		}

		problems := validator.ValidateDefinition(def)
		assert.Contains(t, problems, "fields[0].options")
	})

	t.Run("UnknownType", func(t *testing.T) {
		def := &types.FormDefinition{
			Name: "Contact",
			Fields: []types.FormField{
				{Name: "thing", Type: types.FieldType("wat")},
			},
		}

		problems := validator.ValidateDefinition(def)
		assert.Contains(t, problems, "fields[0].type")
	})

	t.Run("UncompilablePatternFlagged", func(t *testing.T) {
		def := &types.FormDefinition{
			Name: "Contact",
			Fields: []types.FormField{
				{
					Name:       "code",
					Type:       types.FieldText,
					Validation: &types.FieldRules{Pattern: ptr(`([`)},
				},
			},
		}

		problems := validator.ValidateDefinition(def)
		assert.Contains(t, problems, "fields[0].validation.pattern")
	})
}
