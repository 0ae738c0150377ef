// Package audit emits the structured event stream operators consume to
// trace what happened to each submission: stored, blocked, rejected, and
// the settled outcome of every delivery action.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/formrelay/form-api/internal/logger"
	"github.com/formrelay/form-api/internal/types"
)

// Context carries the identifiers shared by every event of one submission.
type Context struct {
	SubmissionID *string
	FormID       string
}

func (c Context) message(evt EventType, disp Disposition) Message {
	return Message{
		LogContext:    logContext,
		SchemaVersion: schemaVersion,
		Type:          evt,
		Disposition:   disp,
		Timestamp:     types.UnixMilli(time.Now().UTC().UnixMilli()),
		FormID:        c.FormID,
		SubmissionID:  c.SubmissionID,
	}
}

func emit(name string, event any) {
	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error("could not serialize audit event", "event", name, "error", err)
		return
	}

	fmt.Println(string(evtStr))
}

func LogSubmissionStored(c Context, formName string, status types.SubmissionStatus) {
	event := SubmissionStored{}
	event.Message = c.message(EvtSubmissionStored, DispositionGood)
	event.Event.FormName = formName
	event.Event.Status = string(status)

	emit("SubmissionStored", event)
}

func LogSubmissionBlocked(c Context, reason string) {
	event := SubmissionBlocked{}
	event.Message = c.message(EvtSubmissionBlocked, DispositionBad)
	event.Event.Reason = reason

	emit("SubmissionBlocked", event)
}

func LogSubmissionRejected(c Context, errs []types.FieldError) {
	fields := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		fields[fieldErr.Field] = fieldErr.Message
	}

	event := SubmissionRejected{}
	event.Message = c.message(EvtSubmissionRejected, DispositionNeutral)
	event.Event.Fields = fields

	emit("SubmissionRejected", event)
}

func LogActionSettled(c Context, result types.ActionResult) {
	disp := DispositionGood
	if !result.Success {
		disp = DispositionBad
	}

	event := ActionSettled{}
	event.Message = c.message(EvtActionSettled, disp)
	event.Event.ActionType = string(result.ActionType)
	event.Event.ActionName = result.ActionName
	event.Event.Success = result.Success
	event.Event.Error = result.Error

	emit("ActionSettled", event)
}

func LogFileArchived(c Context, bucketName, objectName string) {
	event := FileArchived{}
	event.Message = c.message(EvtFileArchived, DispositionNeutral)
	event.Event.BucketName = bucketName
	event.Event.ObjectName = objectName

	emit("FileArchived", event)
}
