package sanitize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formrelay/form-api/internal/sanitize"
	"github.com/formrelay/form-api/internal/types"
)

func TestClean(t *testing.T) {
	t.Run("EscapesAndTrims", func(t *testing.T) {
		out := sanitize.Clean(types.SubmissionData{
			"message": `  <script>alert("hi")</script>  `,
			"name":    "O'Brien",
		})

		assert.Equal(t, "&lt;script&gt;alert(&quot;hi&quot;)&lt;/script&gt;", out["message"])
		assert.Equal(t, "O&#39;Brien", out["name"])
	})

	t.Run("Idempotent", func(t *testing.T) {
		once := sanitize.Clean(types.SubmissionData{"v": "<b>&amp;</b>"})
		twice := sanitize.Clean(once)
		assert.Equal(t, once, twice)
	})

	t.Run("ArraysCleanedElementwise", func(t *testing.T) {
		out := sanitize.Clean(types.SubmissionData{
			"topics": []any{" <a> ", "plain"},
		})

		assert.Equal(t, []any{"&lt;a&gt;", "plain"}, out["topics"])
	})

	t.Run("NonStringsPassThrough", func(t *testing.T) {
		out := sanitize.Clean(types.SubmissionData{
			"count":  float64(3),
			"agreed": true,
		})

		assert.Equal(t, float64(3), out["count"])
		assert.Equal(t, true, out["agreed"])
	})

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		in := types.SubmissionData{"v": "<x>"}
		sanitize.Clean(in)
		assert.Equal(t, "<x>", in["v"])
	})
}

func TestIsSpam(t *testing.T) {
	t.Run("CleanSubmission", func(t *testing.T) {
		assert.False(t, sanitize.IsSpam(types.SubmissionData{"name": "Ada"}))
	})

	t.Run("FilledHoneypot", func(t *testing.T) {
		assert.True(t, sanitize.IsSpam(types.SubmissionData{"_hp": "gotcha"}))
		assert.True(t, sanitize.IsSpam(types.SubmissionData{"_honeypot": "x"}))
		assert.True(t, sanitize.IsSpam(types.SubmissionData{"website": "https://spam.example"}))
	})

	t.Run("EmptyHoneypotIsNotSpam", func(t *testing.T) {
		assert.False(t, sanitize.IsSpam(types.SubmissionData{"_hp": ""}))
		assert.False(t, sanitize.IsSpam(types.SubmissionData{"_hp": "   "}))
		assert.False(t, sanitize.IsSpam(types.SubmissionData{"website": nil}))
	})

	t.Run("NonStringTruthiness", func(t *testing.T) {
		assert.True(t, sanitize.IsSpam(types.SubmissionData{"_hp": true}))
		assert.False(t, sanitize.IsSpam(types.SubmissionData{"_hp": false}))
		assert.True(t, sanitize.IsSpam(types.SubmissionData{"_hp": float64(1)}))
		assert.False(t, sanitize.IsSpam(types.SubmissionData{"_hp": float64(0)}))
	})
}
