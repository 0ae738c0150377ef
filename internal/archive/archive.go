// Package archive copies submission payloads into object storage after the
// response has been sent. Objects are content addressed so re-archiving the
// same payload is a no-op.
package archive

import (
	"bytes"
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/formrelay/form-api/internal/audit"
	"github.com/formrelay/form-api/internal/types"
	"github.com/formrelay/form-api/internal/upload"
)

var tracer = otel.Tracer("github.com/formrelay/form-api/internal/archive")

// Payload is the archived shape of one submission.
type Payload struct {
	Data         types.SubmissionData `json:"data"`
	Results      []types.ActionResult `json:"results,omitempty"`
	SubmissionID string               `json:"submission_id,omitempty"`
	FormID       string               `json:"form_id"`
	FormName     string               `json:"form_name"`
	SubmittedAt  types.UnixMilli      `json:"submitted_at"`
}

// ArchiveSubmission serializes the payload and uploads it by content hash.
func ArchiveSubmission(
	ctx context.Context,
	auditContext audit.Context,
	u upload.Uploader,
	payload *Payload,
) error {
	ctx, span := tracer.Start(ctx, "ArchiveSubmission", trace.WithAttributes(
		attribute.String("form.id", payload.FormID),
	))
	defer span.End()

	buf, err := json.Marshal(payload)
	if err != nil {
		span.SetStatus(codes.Error, "failed to serialize payload")
		span.RecordError(err)
		return err
	}

	objectName, err := upload.Hashed(ctx, u, bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		span.SetStatus(codes.Error, "failed to upload payload")
		span.RecordError(err)
		return err
	}

	identifier, err := u.StoreIdentifier(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get identifier")
		return err
	}

	audit.LogFileArchived(auditContext, identifier, objectName)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "archived submission")
	return nil
}
