// Package submission drives one form submission end to end: fetch the form
// definition, spam-gate, sanitize, validate, dispatch the configured
// actions, and persist the record.
package submission

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/formrelay/form-api/internal/actions"
	"github.com/formrelay/form-api/internal/audit"
	"github.com/formrelay/form-api/internal/sanitize"
	"github.com/formrelay/form-api/internal/template"
	"github.com/formrelay/form-api/internal/types"
	"github.com/formrelay/form-api/internal/validator"
)

const name string = "github.com/formrelay/form-api/internal/submission"

var tracer = otel.Tracer(name)

// ErrFormNotFound is returned when the submitted form id resolves to
// nothing; the caller maps it to a 404.
var ErrFormNotFound = errors.New("form not found")

// Record is what gets persisted for a stored submission. Common contact
// fields are flattened for querying; the full sanitized data rides along
// serialized.
type Record struct {
	SubmittedAt time.Time
	Data        types.SubmissionData
	Results     []types.ActionResult
	Status      types.SubmissionStatus
	FormID      string
	FormName    string
	Name        string
	Email       string
	Phone       string
	Company     string
	Message     string
	Subject     string
	UserAgent   string
	Referrer    string
}

// Store is the persistence boundary: form definitions in, submission
// records out.
type Store interface {
	// FormByID fetches the definition a submission is processed against.
	// Returns ErrFormNotFound when the id resolves to nothing.
	FormByID(ctx context.Context, id string) (*types.FormDefinition, error)
	// SaveSubmission persists a record and returns its assigned id.
	SaveSubmission(ctx context.Context, record *Record) (string, error)
}

type Orchestrator struct {
	store      Store
	dispatcher *actions.Dispatcher
}

func NewOrchestrator(store Store, dispatcher *actions.Dispatcher) *Orchestrator {
	return &Orchestrator{
		store:      store,
		dispatcher: dispatcher,
	}
}

// Submit runs the pipeline for one submission. The returned error is
// non-nil only for terminal failures before the pipeline proper (unknown
// form, store unavailable); everything after validation is best-effort and
// reported through the response's ActionResults.
func (o *Orchestrator) Submit(
	ctx context.Context,
	formID string,
	req types.SubmitRequest,
) (*types.SubmitResponse, error) {
	ctx, span := tracer.Start(ctx, "Submit", trace.WithAttributes(
		attribute.String("form.id", formID),
	))
	defer span.End()

	span.AddEvent("fetching form definition")
	form, err := o.store.FormByID(ctx, formID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch form definition")
		return nil, err
	}

	auditCtx := audit.Context{FormID: form.ID}

	span.AddEvent("checking honeypot fields")
	if form.SpamProtection && sanitize.IsSpam(req.Data) {
		// indistinguishable from success on purpose; an automated sender
		// must not learn it was filtered
		audit.LogSubmissionBlocked(auditCtx, "honeypot field was filled")
		span.AddEvent("submission blocked as spam")
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "blocked spam submission")
		return &types.SubmitResponse{
			Success:      true,
			SubmissionID: types.SpamSentinelID,
		}, nil
	}

	span.AddEvent("sanitizing submitted data")
	data := sanitize.Clean(req.Data)

	if len(form.Fields) > 0 {
		span.AddEvent("validating submitted data")
		if fieldErrs := validator.ValidateFields(form.Fields, data); len(fieldErrs) > 0 {
			audit.LogSubmissionRejected(auditCtx, fieldErrs)
			span.AddEvent("submission failed validation", trace.WithAttributes(
				attribute.Int("errors", len(fieldErrs)),
			))
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "submission failed validation")
			return &types.SubmitResponse{
				Success: false,
				Error:   "Validation failed",
				Errors:  fieldErrs,
			}, nil
		}
	}

	tctx := template.Context{
		FormID:    form.ID,
		FormName:  form.Name,
		Data:      data,
		UserAgent: req.UserAgent,
		Referrer:  req.Referrer,
		Timestamp: time.Now().UTC(),
	}

	span.AddEvent("dispatching actions")
	results := o.dispatcher.DispatchAll(ctx, form.Actions, tctx)
	for _, result := range results {
		audit.LogActionSettled(auditCtx, result)
	}

	response := &types.SubmitResponse{Success: true}

	storage, storageEnabled := storageConfig(form.Actions)
	// store-by-default: a form with no actions at all still keeps its
	// submissions, so nothing is silently dropped
	if storageEnabled || len(form.Actions) == 0 {
		span.AddEvent("persisting submission record")
		result, id := o.persist(ctx, form, storage, data, req, results, auditCtx)
		results = append(results, result)
		response.SubmissionID = id
	}

	response.ActionResults = results

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "submission processed")
	return response, nil
}

// persist writes the submission record and folds the outcome into one more
// ActionResult. Storage failure never downgrades the submission.
func (o *Orchestrator) persist(
	ctx context.Context,
	form *types.FormDefinition,
	storage types.StorageAction,
	data types.SubmissionData,
	req types.SubmitRequest,
	results []types.ActionResult,
	auditCtx audit.Context,
) (types.ActionResult, string) {
	ctx, span := tracer.Start(ctx, "persist")
	defer span.End()

	formName := form.Name
	if storage.FormNameOverride != "" {
		formName = storage.FormNameOverride
	}

	record := &Record{
		FormID:      form.ID,
		FormName:    formName,
		Name:        flatten(data, "name"),
		Email:       flatten(data, "email"),
		Phone:       flatten(data, "phone"),
		Company:     flatten(data, "company"),
		Message:     flatten(data, "message"),
		Subject:     flatten(data, "subject"),
		Data:        data,
		Results:     results,
		Status:      types.SubmissionStatusNew,
		SubmittedAt: time.Now().UTC(),
		UserAgent:   req.UserAgent,
		Referrer:    req.Referrer,
	}

	result := types.ActionResult{
		ActionType: types.ActionStorage,
		ActionName: storage.Meta().Name,
		Success:    true,
	}

	id, err := o.store.SaveSubmission(ctx, record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist submission")
		result.Success = false
		result.Error = err.Error()
		audit.LogActionSettled(auditCtx, result)
		return result, ""
	}

	auditCtx.SubmissionID = &id
	audit.LogSubmissionStored(auditCtx, formName, record.Status)

	span.SetAttributes(attribute.String("submission.id", id))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "persisted submission")
	return result, id
}

func storageConfig(list types.ActionList) (types.StorageAction, bool) {
	for _, action := range list {
		if storage, ok := action.(types.StorageAction); ok && storage.Enabled {
			return storage, true
		}
	}
	return types.StorageAction{}, false
}

func flatten(data types.SubmissionData, key string) string {
	return template.Stringify(data[key])
}
