// Package sanitize neutralizes submitted values before anything else reads
// them, and hosts the honeypot spam heuristic.
package sanitize

import (
	"strings"

	"github.com/formrelay/form-api/internal/types"
)

var htmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Clean returns a copy of data with every string value trimmed and its
// HTML-special characters escaped, including strings inside arrays.
// Non-string scalars pass through unchanged. Clean is idempotent: `&` is
// left alone, so already-escaped entities are not escaped again.
func Clean(data types.SubmissionData) types.SubmissionData {
	out := make(types.SubmissionData, len(data))
	for key, value := range data {
		out[key] = cleanValue(value)
	}
	return out
}

func cleanValue(value any) any {
	switch v := value.(type) {
	case string:
		return htmlEscaper.Replace(strings.TrimSpace(v))
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = cleanValue(item)
		}
		return items
	default:
		return value
	}
}

// Honeypot keys: hidden inputs a human never fills in.
var honeypotKeys = []string{"_hp", "_honeypot", "website"}

// IsSpam reports whether any honeypot field carries a value. This is the
// only heuristic; everything else is treated as legitimate.
func IsSpam(data types.SubmissionData) bool {
	for _, key := range honeypotKeys {
		if truthy(data[key]) {
			return true
		}
	}
	return false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return true
	}
}
