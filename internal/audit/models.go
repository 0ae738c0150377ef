package audit

import (
	"github.com/formrelay/form-api/internal/types"
)

var schemaVersion = "0.1.0"
var logContext = "audit"

type Disposition string

const (
	DispositionNeutral Disposition = "neutral"
	DispositionGood    Disposition = "good"
	DispositionBad     Disposition = "bad"
)

type EventType string

const (
	EvtSubmissionStored   EventType = "submission_stored"
	EvtSubmissionBlocked  EventType = "submission_blocked"
	EvtSubmissionRejected EventType = "submission_rejected"
	EvtActionSettled      EventType = "action_settled"
	EvtFileArchived       EventType = "file_archived"
)

type Message struct {
	SubmissionID  *string     `json:"submission_id"`
	LogContext    string      `json:"log_context" validate:"required"`
	SchemaVersion string      `json:"version"     validate:"required"`
	FormID        string      `json:"form_id"     validate:"required"`
	Disposition   Disposition `json:"disposition" validate:"required"`
	Type          EventType   `json:"event_type"  validate:"required"`

	Timestamp types.UnixMilli `json:"timestamp" validate:"required"`
}

type SubmissionStoredEvent struct {
	FormName string `json:"form_name" validate:"required"`
	Status   string `json:"status"    validate:"required"`
}

type SubmissionStored struct {
	Event SubmissionStoredEvent `json:"event" validate:"required"`
	Message
}

type SubmissionBlockedEvent struct {
	Reason string `json:"reason" validate:"required"`
}

type SubmissionBlocked struct {
	Event SubmissionBlockedEvent `json:"event" validate:"required"`
	Message
}

type SubmissionRejectedEvent struct {
	Fields map[string]string `json:"fields" validate:"required"`
}

type SubmissionRejected struct {
	Event SubmissionRejectedEvent `json:"event" validate:"required"`
	Message
}

type ActionSettledEvent struct {
	ActionType string `json:"action_type"           validate:"required"`
	ActionName string `json:"action_name,omitempty"`
	Error      string `json:"error,omitempty"`
	Success    bool   `json:"success"`
}

type ActionSettled struct {
	Event ActionSettledEvent `json:"event" validate:"required"`
	Message
}

type FileArchivedEvent struct {
	BucketName string `json:"bucket_name" validate:"required"`
	ObjectName string `json:"object_name" validate:"required"`
}

type FileArchived struct {
	Event FileArchivedEvent `json:"event" validate:"required"`
	Message
}
