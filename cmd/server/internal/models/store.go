package models

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/formrelay/form-api/internal/submission"
	"github.com/formrelay/form-api/internal/types"
)

// Ensure GormStore implements the pipeline's persistence boundary.
var _ submission.Store = (*GormStore)(nil)

// GormStore backs the submission pipeline with the form and
// form_submission tables.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) FormByID(ctx context.Context, id string) (*types.FormDefinition, error) {
	ctx, span := tracer.Start(ctx, "GormStore.FormByID", trace.WithAttributes(
		attribute.String("form.id", id),
	))
	defer span.End()

	formID, err := uuid.Parse(id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse form id")
		return nil, submission.ErrFormNotFound
	}

	form, err := ByID[Form](ctx, s.DB, formID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch form")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, submission.ErrFormNotFound
		}
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "fetched form")
	return form.Definition(), nil
}

func (s *GormStore) SaveSubmission(
	ctx context.Context,
	record *submission.Record,
) (string, error) {
	ctx, span := tracer.Start(ctx, "GormStore.SaveSubmission", trace.WithAttributes(
		attribute.String("form.id", record.FormID),
	))
	defer span.End()

	db := s.DB.WithContext(ctx)

	formID, err := uuid.Parse(record.FormID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse form id")
		return "", err
	}

	row := &FormSubmission{
		FormID:      formID,
		FormName:    record.FormName,
		Name:        record.Name,
		Email:       record.Email,
		Phone:       record.Phone,
		Company:     record.Company,
		Message:     record.Message,
		Subject:     record.Subject,
		UserAgent:   record.UserAgent,
		Referrer:    record.Referrer,
		Status:      record.Status,
		Data:        record.Data,
		Results:     record.Results,
		SubmittedAt: record.SubmittedAt,
	}

	if err := db.Create(row).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert submission")
		return "", err
	}

	span.SetAttributes(attribute.String("submission.id", row.ID.String()))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "inserted submission")
	return row.ID.String(), nil
}
