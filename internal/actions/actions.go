// Package actions executes a form's configured delivery actions: outbound
// webhooks, Discord notifications, and provider-backed email. Delivery is
// best-effort; every action settles into an ActionResult and one action's
// failure never interferes with another's.
package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/formrelay/form-api/internal/logger"
	"github.com/formrelay/form-api/internal/template"
	"github.com/formrelay/form-api/internal/types"
)

const name string = "github.com/formrelay/form-api/internal/actions"

var tracer = otel.Tracer(name)

// EmailCredentials holds the provider secrets and the fallback sender.
// Constructed once from config and passed in; handlers never read the
// environment themselves.
type EmailCredentials struct {
	ResendAPIKey   string
	SendGridAPIKey string
	MailgunAPIKey  string
	MailgunDomain  string
	From           string
}

type Dispatcher struct {
	client *http.Client
	engine *template.Engine
	email  EmailCredentials
}

// NewDispatcher wires the shared outbound client (retries disabled by the
// caller), the template engine, and the email credentials.
func NewDispatcher(
	client *http.Client,
	engine *template.Engine,
	email EmailCredentials,
) *Dispatcher {
	return &Dispatcher{
		client: client,
		engine: engine,
		email:  email,
	}
}

// DispatchAll runs every enabled non-storage action concurrently and waits
// for all of them to settle. The result slice preserves the order of the
// enabled actions in the input list; execution order is unspecified.
func (d *Dispatcher) DispatchAll(
	ctx context.Context,
	configured types.ActionList,
	tctx template.Context,
) []types.ActionResult {
	ctx, span := tracer.Start(ctx, "DispatchAll", trace.WithAttributes(
		attribute.String("form.id", tctx.FormID),
		attribute.Int("actions.configured", len(configured)),
	))
	defer span.End()

	var enabled []types.ActionConfig
	for _, action := range configured {
		if action.Meta().Enabled && action.Kind() != types.ActionStorage {
			enabled = append(enabled, action)
		}
	}

	if len(enabled) == 0 {
		span.AddEvent("no enabled actions")
		span.SetStatus(codes.Ok, "nothing to dispatch")
		return nil
	}

	span.SetAttributes(attribute.Int("actions.enabled", len(enabled)))

	results := make([]types.ActionResult, len(enabled))
	var running sync.WaitGroup
	for i, action := range enabled {
		running.Add(1)
		go func(i int, action types.ActionConfig) {
			defer running.Done()
			results[i] = d.settle(ctx, action, tctx)
		}(i, action)
	}
	running.Wait()

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "all actions settled")
	return results
}

// settle executes one action and folds any failure into its result. A
// panicking handler is contained the same way so the batch always
// completes.
func (d *Dispatcher) settle(
	ctx context.Context,
	action types.ActionConfig,
	tctx template.Context,
) (result types.ActionResult) {
	ctx, span := tracer.Start(ctx, "settle", trace.WithAttributes(
		attribute.String("action.type", string(action.Kind())),
		attribute.String("action.name", action.Meta().Name),
	))
	defer span.End()

	result = types.ActionResult{
		ActionType: action.Kind(),
		ActionName: action.Meta().Name,
		Success:    true,
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("action handler panicked: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "action handler panicked")
			result.Success = false
			result.Error = err.Error()
		}
	}()

	if err := d.execute(ctx, action, tctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "action failed")
		logger.Logger.WarnContext(ctx, "form action failed",
			"form_id", tctx.FormID,
			"action_type", action.Kind(),
			"action_name", action.Meta().Name,
			"error", err,
		)
		result.Success = false
		result.Error = err.Error()
		return result
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "action delivered")
	return result
}

// execute matches the closed action sum. Every types.ActionConfig variant
// must have a case here; storage is handled by the submission pipeline and
// must never reach this point.
func (d *Dispatcher) execute(
	ctx context.Context,
	action types.ActionConfig,
	tctx template.Context,
) error {
	switch a := action.(type) {
	case types.WebhookAction:
		return d.executeWebhook(ctx, a, tctx)
	case types.DiscordAction:
		return d.executeDiscord(ctx, a, tctx)
	case types.EmailAction:
		return d.executeEmail(ctx, a, tctx)
	case types.StorageAction:
		return fmt.Errorf("storage actions are not dispatched")
	default:
		return fmt.Errorf("no handler for action type %q", action.Kind())
	}
}

// readBody drains up to 8kb of an error response for diagnostics.
func readBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 8<<10))
	if err != nil {
		return ""
	}
	return string(body)
}
