package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/formrelay/form-api/cmd/server/internal/error"
	"github.com/formrelay/form-api/cmd/server/internal/models"
	"github.com/formrelay/form-api/cmd/server/internal/response"
	"github.com/formrelay/form-api/internal/schema"
	"github.com/formrelay/form-api/internal/types"
	"github.com/formrelay/form-api/internal/validator"
)

type formSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Fields         int    `json:"fields"`
	Actions        int    `json:"actions"`
	SpamProtection bool   `json:"spamProtection"`
}

// CreateForm accepts an operator-authored form definition. The document is
// checked against the JSON schema first so typed decoding cannot be
// surprised, then against the structural rules (duplicate names, option
// lists, pattern compilability).
func (h *Handler) CreateForm(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "CreateForm")
	defer span.End()

	db := h.DB.WithContext(ctx)

	span.AddEvent("received form definition")

	var raw any
	span.AddEvent("parsing request body")
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		span.SetStatus(codes.Ok, "failed to parse request data")
		span.RecordError(err)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("failed to parse request data"),
		)
	}

	span.AddEvent("validating definition against schema")
	err := schema.FormDefinition.Validate(raw)
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		errs := validationErr.BasicOutput().Errors
		fieldMap := make(map[string]string, len(errs))
		for _, err := range errs {
			fieldMap[err.KeywordLocation] = err.Error
		}
		span.SetStatus(codes.Ok, "definition was not schema compliant")
		span.RecordError(nil)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.Error{Message: "form definition failed to validate", Fields: &fieldMap},
		)
	} else if err != nil {
		span.SetStatus(codes.Ok, "failed to validate definition")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.StringError(err.Error()))
	}

	span.AddEvent("decoding definition")
	encoded, err := json.Marshal(raw)
	if err != nil {
		span.SetStatus(codes.Error, "failed to re-encode definition")
		span.RecordError(err)
		return response.InternalServerError
	}

	var definition types.FormDefinition
	if err := json.Unmarshal(encoded, &definition); err != nil {
		span.SetStatus(codes.Ok, "failed to decode definition")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.StringError(err.Error()))
	}

	span.AddEvent("checking structural rules")
	if problems := validator.ValidateDefinition(&definition); len(problems) > 0 {
		span.SetStatus(codes.Ok, "definition failed structural checks")
		span.RecordError(nil)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.Error{Message: "form definition failed to validate", Fields: &problems},
		)
	}

	form := &models.Form{
		Name:           definition.Name,
		Fields:         definition.Fields,
		Actions:        definition.Actions,
		SpamProtection: definition.SpamProtection,
	}

	span.AddEvent("inserting into database")
	if err := db.Create(form).Error; err != nil {
		span.SetStatus(codes.Error, "failed to insert")
		span.RecordError(err)
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("form.id", form.ID.String()))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, form.Definition())
}

func (h *Handler) GetForm(c echo.Context) error {
	_, span := tracer.Start(c.Request().Context(), "GetForm")
	defer span.End()

	form, ok := c.Get("form").(*models.Form)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("form: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("form.id", form.ID.String()))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, form.Definition())
}

func (h *Handler) ListForms(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "ListForms")
	defer span.End()

	db := h.DB.WithContext(ctx)

	var forms []models.Form
	span.AddEvent("listing forms")
	if err := db.Order("created_at DESC").Find(&forms).Error; err != nil {
		span.SetStatus(codes.Error, "failed to list forms")
		span.RecordError(err)
		return response.InternalServerError
	}

	summaries := make([]formSummary, 0, len(forms))
	for _, form := range forms {
		summaries = append(summaries, formSummary{
			ID:             form.ID.String(),
			Name:           form.Name,
			Fields:         len(form.Fields),
			Actions:        len(form.Actions),
			SpamProtection: form.SpamProtection,
		})
	}

	span.SetAttributes(attribute.Int("forms", len(summaries)))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, summaries)
}
