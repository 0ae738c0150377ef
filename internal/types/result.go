package types

// ActionResult is the settled outcome of one dispatched action. One is
// produced per action regardless of how the action fared.
type ActionResult struct {
	ActionType ActionType `json:"actionType"`
	ActionName string     `json:"actionName,omitempty"`
	Error      string     `json:"error,omitempty"`
	Success    bool       `json:"success"`
}

// FieldError describes a single failed constraint on a submitted field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
