package template_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formrelay/form-api/internal/template"
	"github.com/formrelay/form-api/internal/types"
)

func testContext() template.Context {
	return template.Context{
		FormID:    "form-1",
		FormName:  "Contact",
		UserAgent: "test-agent",
		Referrer:  "https://example.com/contact",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Data: types.SubmissionData{
			"name":    "Ada",
			"email":   "ada@example.com",
			"topics":  []any{"sales", "support"},
			"budget":  float64(1500),
			"message": "hello",
		},
	}
}

func TestResolve(t *testing.T) {
	engine := template.NewEngine()
	ctx := testContext()

	t.Run("SubstitutesDataFields", func(t *testing.T) {
		out := engine.Resolve("From {{name}} <{{email}}>", ctx)
		assert.Equal(t, "From Ada <ada@example.com>", out)
	})

	t.Run("ReservedKeys", func(t *testing.T) {
		out := engine.Resolve("{{_formName}}/{{_formId}} at {{_timestamp}}", ctx)
		assert.Equal(t, "Contact/form-1 at 2025-06-01T12:00:00Z", out)
	})

	t.Run("UnknownTokenLeftVerbatim", func(t *testing.T) {
		before := engine.Misses()
		out := engine.Resolve("hi {{nope}}", ctx)
		assert.Equal(t, "hi {{nope}}", out)
		assert.Equal(t, before+1, engine.Misses())
	})

	t.Run("ArraysCommaJoined", func(t *testing.T) {
		out := engine.Resolve("{{topics}}", ctx)
		assert.Equal(t, "sales, support", out)
	})

	t.Run("WholeNumbersWithoutDecimal", func(t *testing.T) {
		out := engine.Resolve("{{budget}}", ctx)
		assert.Equal(t, "1500", out)
	})

	t.Run("AllFieldsSortedByKey", func(t *testing.T) {
		out := engine.Resolve("{{_allFields}}", ctx)
		lines := strings.Split(out, "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "Budget: 1500", lines[0])
		assert.Equal(t, "Email: ada@example.com", lines[1])
		assert.Equal(t, "Topics: sales, support", lines[4])
	})

	t.Run("NoPlaceholdersPassthrough", func(t *testing.T) {
		assert.Equal(t, "plain text", engine.Resolve("plain text", ctx))
		assert.Equal(t, "", engine.Resolve("", ctx))
	})
}

func TestBuildJSONPayload(t *testing.T) {
	engine := template.NewEngine()
	ctx := testContext()

	t.Run("ValidTemplate", func(t *testing.T) {
		payload := engine.BuildJSONPayload(`{"who": "{{name}}"}`, ctx)
		assert.Equal(t, "Ada", payload["who"])
	})

	t.Run("MalformedTemplateFallsBack", func(t *testing.T) {
		payload := engine.BuildJSONPayload(`{"who": {{name}}`, ctx)
		assert.Equal(t, "Contact", payload["formName"])
		assert.Equal(t, "form-1", payload["formId"])
		require.Contains(t, payload, "data")
		require.Contains(t, payload, "timestamp")
	})
}

func TestBuildHTMLBody(t *testing.T) {
	engine := template.NewEngine()
	ctx := testContext()

	t.Run("TemplateWins", func(t *testing.T) {
		out := engine.BuildHTMLBody("<p>{{name}}</p>", ctx, true)
		assert.Equal(t, "<p>Ada</p>", out)
	})

	t.Run("SynthesizedTable", func(t *testing.T) {
		out := engine.BuildHTMLBody("", ctx, true)
		assert.Contains(t, out, "New Contact Submission")
		assert.Contains(t, out, "<strong>Email</strong>")
		assert.Contains(t, out, "ada@example.com")
	})

	t.Run("NoticeOnly", func(t *testing.T) {
		out := engine.BuildHTMLBody("", ctx, false)
		assert.Contains(t, out, "You received a new Contact submission.")
		assert.NotContains(t, out, "<table")
	})
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "First Name", template.Humanize("firstName"))
	assert.Equal(t, "First Name", template.Humanize("first_name"))
	assert.Equal(t, "Email", template.Humanize("email"))
}
