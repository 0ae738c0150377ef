package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/formrelay/form-api/cmd/server/internal/error"
	"github.com/formrelay/form-api/cmd/server/internal/models"
	"github.com/formrelay/form-api/cmd/server/internal/response"
	"github.com/formrelay/form-api/internal/types"
)

type submissionSummary struct {
	ID          string                 `json:"id"`
	FormName    string                 `json:"formName"`
	Name        string                 `json:"name,omitempty"`
	Email       string                 `json:"email,omitempty"`
	Subject     string                 `json:"subject,omitempty"`
	Status      types.SubmissionStatus `json:"status"`
	SubmittedAt types.UnixMilli        `json:"submittedAt"`
	Data        types.SubmissionData   `json:"data"`
	Results     []types.ActionResult   `json:"results,omitempty"`
}

func (h *Handler) ListSubmissions(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "ListSubmissions")
	defer span.End()

	db := h.DB.WithContext(ctx)

	form, ok := c.Get("form").(*models.Form)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("form: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("form.id", form.ID.String()))

	var rows []models.FormSubmission
	span.AddEvent("listing submissions")
	err := db.Where("form_id = ?", form.ID).
		Order("submitted_at DESC").
		Find(&rows).Error
	if err != nil {
		span.SetStatus(codes.Error, "failed to list submissions")
		span.RecordError(err)
		return response.InternalServerError
	}

	summaries := make([]submissionSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, submissionSummary{
			ID:          row.ID.String(),
			FormName:    row.FormName,
			Name:        row.Name,
			Email:       row.Email,
			Subject:     row.Subject,
			Status:      row.Status,
			SubmittedAt: types.UnixMilli(row.SubmittedAt.UnixMilli()),
			Data:        row.Data,
			Results:     row.Results,
		})
	}

	span.SetAttributes(attribute.Int("submissions", len(summaries)))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, summaries)
}
