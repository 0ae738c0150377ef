// Package template resolves operator-authored {{field}} placeholders
// against submitted form data and submission metadata.
package template

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/formrelay/form-api/internal/logger"
	"github.com/formrelay/form-api/internal/types"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Context is everything a placeholder may resolve against: the sanitized
// submission data plus the reserved metadata keys.
type Context struct {
	Timestamp time.Time
	Data      types.SubmissionData
	FormID    string
	FormName  string
	UserAgent string
	Referrer  string
}

// Engine substitutes placeholders best-effort: an unknown token is left in
// the output verbatim rather than failing the submission. Misses are
// counted so operators can spot template typos without any send failing.
type Engine struct {
	misses atomic.Int64
}

func NewEngine() *Engine {
	return &Engine{}
}

// Misses reports how many placeholder lookups found no matching key since
// the engine was created.
func (e *Engine) Misses() int64 {
	return e.misses.Load()
}

func (e *Engine) Resolve(tmpl string, ctx Context) string {
	if tmpl == "" || !strings.Contains(tmpl, "{{") {
		return tmpl
	}

	values := ctx.values()
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		key := token[2 : len(token)-2]
		value, ok := values[key]
		if !ok {
			e.misses.Add(1)
			logger.Logger.Debug("unresolved template placeholder", "key", key)
			return token
		}
		return value
	})
}

// BuildJSONPayload resolves tmpl and parses the result as JSON. A payload
// template is operator content, so a malformed one degrades to a fixed
// default payload instead of aborting delivery.
func (e *Engine) BuildJSONPayload(tmpl string, ctx Context) map[string]any {
	resolved := e.Resolve(tmpl, ctx)

	var payload map[string]any
	if err := json.Unmarshal([]byte(resolved), &payload); err != nil {
		logger.Logger.Warn("payload template did not resolve to valid JSON, using default payload",
			"form_id", ctx.FormID, "error", err)
		return map[string]any{
			"formName":  ctx.FormName,
			"formId":    ctx.FormID,
			"data":      ctx.Data,
			"timestamp": ctx.timestamp().Format(time.RFC3339),
		}
	}

	return payload
}

// BuildHTMLBody renders the email body. With a template it is plain
// placeholder resolution; without one it synthesizes a table of every
// non-reserved field, or a bare notice when includeAllFields is off.
func (e *Engine) BuildHTMLBody(tmpl string, ctx Context, includeAllFields bool) string {
	if tmpl != "" {
		return e.Resolve(tmpl, ctx)
	}

	if !includeAllFields {
		return "<p>You received a new " + html.EscapeString(ctx.FormName) + " submission.</p>\n"
	}

	var b strings.Builder
	b.WriteString("<h2>New " + html.EscapeString(ctx.FormName) + " Submission</h2>\n")
	b.WriteString(`<table cellpadding="6" style="border-collapse:collapse">` + "\n")
	for _, key := range sortedKeys(ctx.Data) {
		value := html.EscapeString(Stringify(ctx.Data[key]))
		value = strings.ReplaceAll(value, "\n", "<br>")
		b.WriteString("<tr><td><strong>" + html.EscapeString(Humanize(key)) +
			"</strong></td><td>" + value + "</td></tr>\n")
	}
	b.WriteString("</table>\n")
	b.WriteString("<p><em>Submitted " + ctx.timestamp().Format(time.RFC1123) + "</em></p>\n")

	return b.String()
}

// Stringify renders a submitted value for templates. Arrays from
// multi-value inputs are comma joined.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ", ")
	case float64:
		// drop the ".0" JSON decoding gives whole numbers
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Humanize derives a display label from a field name: spaces before
// capitals and underscores, each word title-cased. "firstName" and
// "first_name" both become "First Name".
func Humanize(name string) string {
	var spaced strings.Builder
	for i, r := range name {
		switch {
		case r == '_':
			spaced.WriteRune(' ')
		case r >= 'A' && r <= 'Z' && i > 0:
			spaced.WriteRune(' ')
			spaced.WriteRune(r)
		default:
			spaced.WriteRune(r)
		}
	}

	words := strings.Fields(spaced.String())
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (c Context) timestamp() time.Time {
	if c.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return c.Timestamp
}

func (c Context) values() map[string]string {
	out := make(map[string]string, len(c.Data)+6)
	for key, value := range c.Data {
		out[key] = Stringify(value)
	}

	var all strings.Builder
	for i, key := range sortedKeys(c.Data) {
		if i > 0 {
			all.WriteString("\n")
		}
		all.WriteString(Humanize(key) + ": " + Stringify(c.Data[key]))
	}

	out["_formName"] = c.FormName
	out["_formId"] = c.FormID
	out["_timestamp"] = c.timestamp().Format(time.RFC3339)
	out["_userAgent"] = c.UserAgent
	out["_referrer"] = c.Referrer
	out["_allFields"] = all.String()

	return out
}

func sortedKeys(data types.SubmissionData) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
