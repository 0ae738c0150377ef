package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/formrelay/form-api/internal/types"
)

type FormSubmission struct {
	FormName  string
	Name      string
	Email     string
	Phone     string
	Company   string
	Message   string
	Subject   string
	UserAgent string
	Referrer  string
	Status    types.SubmissionStatus `gorm:"type:text"`
	Model
	Data        types.SubmissionData `gorm:"type:jsonb;serializer:json"`
	Results     []types.ActionResult `gorm:"type:jsonb;serializer:json"`
	FormID      uuid.UUID
	SubmittedAt time.Time
}

func (FormSubmission) TableName() string {
	return "form_submission"
}

func (s FormSubmission) GetID() uuid.UUID {
	return s.ID
}
