package models

import (
	"github.com/google/uuid"

	"github.com/formrelay/form-api/internal/types"
)

type Form struct {
	Name string
	Model
	Fields         []types.FormField `gorm:"type:jsonb;serializer:json"`
	Actions        types.ActionList  `gorm:"type:jsonb;serializer:json"`
	SpamProtection bool
}

func (Form) TableName() string {
	return "form"
}

func (f Form) GetID() uuid.UUID {
	return f.ID
}

// Definition maps the row into the shape the submission pipeline consumes.
func (f Form) Definition() *types.FormDefinition {
	return &types.FormDefinition{
		ID:             f.ID.String(),
		Name:           f.Name,
		Fields:         f.Fields,
		Actions:        f.Actions,
		SpamProtection: f.SpamProtection,
	}
}
