package types

// SubmitRequest is the public submission payload. The optional client
// metadata feeds the template context, never validation.
type SubmitRequest struct {
	Data      SubmissionData `json:"data"                validate:"required"`
	UserAgent string         `json:"userAgent,omitempty"`
	Referrer  string         `json:"referrer,omitempty"`
}

// SubmitResponse is what the caller sees. Success reflects only whether the
// input was well formed; action failures are reported in ActionResults for
// operator visibility without failing the submission.
type SubmitResponse struct {
	Error         string         `json:"error,omitempty"`
	SubmissionID  string         `json:"submissionId,omitempty"`
	ActionResults []ActionResult `json:"actionResults,omitempty"`
	Errors        []FieldError   `json:"errors,omitempty"`
	Success       bool           `json:"success"`
}

type PingResponse struct {
	Status string `json:"status" validate:"required"`
}

// SpamSentinelID is returned for honeypot-flagged submissions, which are
// reported as successes so automated senders cannot detect the filter.
const SpamSentinelID = "blocked"

// SubmissionStatus tracks the review state of a stored submission record.
type SubmissionStatus string

const (
	SubmissionStatusNew      SubmissionStatus = "new"      // freshly stored, unreviewed
	SubmissionStatusReviewed SubmissionStatus = "reviewed" // seen by an operator
	SubmissionStatusArchived SubmissionStatus = "archived" // kept for the record only
)
