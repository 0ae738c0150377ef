package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/formrelay/form-api/internal/template"
	"github.com/formrelay/form-api/internal/types"
)

// executeWebhook POSTs (or PUTs/PATCHes) a JSON payload to the configured
// URL. Body precedence: operator payload template, then the full-fields
// envelope (the default), then the minimal form/data payload.
func (d *Dispatcher) executeWebhook(
	ctx context.Context,
	action types.WebhookAction,
	tctx template.Context,
) error {
	ctx, span := tracer.Start(ctx, "executeWebhook", trace.WithAttributes(
		attribute.String("webhook.url", action.URL),
	))
	defer span.End()

	var payload map[string]any
	switch {
	case action.PayloadTemplate != "":
		payload = d.engine.BuildJSONPayload(action.PayloadTemplate, tctx)
	case action.IncludeAllFields == nil || *action.IncludeAllFields:
		payload = map[string]any{
			"event": "form_submission",
			"form": map[string]any{
				"id":   tctx.FormID,
				"name": tctx.FormName,
			},
			"data":      tctx.Data,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
	default:
		payload = map[string]any{
			"formId":   tctx.FormID,
			"formName": tctx.FormName,
			"data":     tctx.Data,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode webhook payload")
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	method := action.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, action.URL, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct webhook request")
		return fmt.Errorf("failed to construct webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	// header values go through the template engine so operators can embed
	// field values, e.g. signing tokens carried in hidden fields
	for _, header := range action.Headers {
		req.Header.Set(header.Key, d.engine.Resolve(header.Value, tctx))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook request failed")
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("webhook.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, readBody(resp.Body))
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook returned non-2xx status")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "webhook delivered")
	return nil
}
