package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	srverr "github.com/formrelay/form-api/cmd/server/internal/error"
	"github.com/formrelay/form-api/cmd/server/internal/models"
	"github.com/formrelay/form-api/cmd/server/internal/response"
	"github.com/formrelay/form-api/internal/archive"
	"github.com/formrelay/form-api/internal/audit"
	"github.com/formrelay/form-api/internal/logger"
	"github.com/formrelay/form-api/internal/submission"
	"github.com/formrelay/form-api/internal/types"
)

// SubmitForm is the public submission endpoint. No auth; the form id is the
// only capability a sender needs.
func (h *Handler) SubmitForm(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "SubmitForm")
	defer span.End()

	span.AddEvent("received form submission request")

	formID := c.Param("form_id")

	requestTime, ok := c.Get("time").(time.Time)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, "time: type assert mismatch")
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("form.id", formID),
		attribute.Int64("request.timestamp_ms", requestTime.UnixMilli()),
	)

	var rdata types.SubmitRequest

	span.AddEvent("parsing request body")
	err := c.Bind(&rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to parse request data")
		span.RecordError(err)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("failed to parse request data"),
		)
	}

	span.AddEvent("validating request body")
	err = c.Validate(rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to validate request data")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	if rdata.UserAgent == "" {
		rdata.UserAgent = c.Request().UserAgent()
	}
	if rdata.Referrer == "" {
		rdata.Referrer = c.Request().Referer()
	}

	span.AddEvent("running submission pipeline")
	result, err := h.orchestrator.Submit(ctx, formID, rdata)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, submission.ErrFormNotFound) {
			span.SetStatus(codes.Ok, "form not found")
			return response.NotFoundError
		}

		span.SetStatus(codes.Error, "submission pipeline failed")
		return response.InternalServerError
	}

	if !result.Success {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "submission failed validation")
		return c.JSON(http.StatusBadRequest, result)
	}

	h.archiveStored(ctx, formID, rdata, result)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, result)
}

// archiveStored copies a stored submission to object storage off the
// request path. Archive failures are logged, never surfaced to the sender.
func (h *Handler) archiveStored(
	ctx context.Context,
	formID string,
	rdata types.SubmitRequest,
	result *types.SubmitResponse,
) {
	if h.archiver == nil {
		return
	}
	if result.SubmissionID == "" || result.SubmissionID == types.SpamSentinelID {
		return
	}

	submissionID := result.SubmissionID
	payload := &archive.Payload{
		Data:         rdata.Data,
		Results:      result.ActionResults,
		SubmissionID: submissionID,
		FormID:       formID,
		SubmittedAt:  types.UnixMilli(time.Now().UTC().UnixMilli()),
	}

	h.taskrunnerClient.Run(ctx, func(ctx context.Context) {
		ctx, span := tracer.Start(ctx, "SubmitForm.Archive", trace.WithAttributes(
			attribute.String("submission.id", submissionID),
		))
		defer span.End()

		// off the request path, so the extra lookup for the archive
		// envelope's form name is free
		if formUUID, err := uuid.Parse(formID); err == nil {
			if form, err := models.ByID[models.Form](ctx, h.DB, formUUID); err == nil {
				payload.FormName = form.Name
			}
		}

		auditCtx := audit.Context{FormID: formID, SubmissionID: &submissionID}
		if err := archive.ArchiveSubmission(ctx, auditCtx, h.archiver, payload); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to archive submission")
			logger.Logger.ErrorContext(ctx, "failed to archive submission",
				"submissionId", submissionID, "error", err)
			return
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "archived submission")
	})
}
