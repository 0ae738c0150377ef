package submission_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formrelay/form-api/internal/actions"
	"github.com/formrelay/form-api/internal/submission"
	"github.com/formrelay/form-api/internal/template"
	"github.com/formrelay/form-api/internal/types"
)

// fakeStore serves a single form and records what gets persisted.
type fakeStore struct {
	form    *types.FormDefinition
	saveErr error
	saved   []*submission.Record
	nextID  string
}

func (s *fakeStore) FormByID(_ context.Context, id string) (*types.FormDefinition, error) {
	if s.form == nil || s.form.ID != id {
		return nil, submission.ErrFormNotFound
	}
	return s.form, nil
}

func (s *fakeStore) SaveSubmission(
	_ context.Context,
	record *submission.Record,
) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = append(s.saved, record)
	if s.nextID == "" {
		return "sub-1", nil
	}
	return s.nextID, nil
}

func newOrchestrator(store submission.Store) *submission.Orchestrator {
	dispatcher := actions.NewDispatcher(
		http.DefaultClient,
		template.NewEngine(),
		actions.EmailCredentials{},
	)
	return submission.NewOrchestrator(store, dispatcher)
}

func contactForm() *types.FormDefinition {
	return &types.FormDefinition{
		ID:   "form-1",
		Name: "Contact",
		Fields: []types.FormField{
			{Name: "name", Label: "Name", Type: types.FieldText, Required: true},
			{Name: "email", Label: "Email", Type: types.FieldEmail, Required: true},
		},
	}
}

func TestSubmit(t *testing.T) {
	t.Run("UnknownForm", func(t *testing.T) {
		o := newOrchestrator(&fakeStore{})

		resp, err := o.Submit(t.Context(), "missing", types.SubmitRequest{
			Data: types.SubmissionData{},
		})

		require.ErrorIs(t, err, submission.ErrFormNotFound)
		assert.Nil(t, resp)
	})

	t.Run("SpamLooksLikeSuccess", func(t *testing.T) {
		form := contactForm()
		form.SpamProtection = true
		store := &fakeStore{form: form}
		o := newOrchestrator(store)

		resp, err := o.Submit(t.Context(), "form-1", types.SubmitRequest{
			Data: types.SubmissionData{
				"name":  "Ada",
				"email": "ada@example.com",
				"_hp":   "bot was here",
			},
		})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, types.SpamSentinelID, resp.SubmissionID)
		assert.Empty(t, resp.ActionResults)
		assert.Empty(t, store.saved, "spam must not be persisted or dispatched")
	})

	t.Run("HoneypotIgnoredWhenProtectionDisabled", func(t *testing.T) {
		store := &fakeStore{form: contactForm()}
		o := newOrchestrator(store)

		resp, err := o.Submit(t.Context(), "form-1", types.SubmitRequest{
			Data: types.SubmissionData{
				"name":  "Ada",
				"email": "ada@example.com",
				"_hp":   "filled",
			},
		})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.NotEqual(t, types.SpamSentinelID, resp.SubmissionID)
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		store := &fakeStore{form: contactForm()}
		o := newOrchestrator(store)

		resp, err := o.Submit(t.Context(), "form-1", types.SubmitRequest{
			Data: types.SubmissionData{"email": "not-an-email"},
		})

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "Validation failed", resp.Error)
		require.Len(t, resp.Errors, 2)
		assert.Empty(t, store.saved)
	})

	t.Run("ValidationSeesSanitizedData", func(t *testing.T) {
		form := contactForm()
		form.Fields = []types.FormField{
			{
				Name: "name",
				Type: types.FieldText,
				Validation: &types.FieldRules{
					MaxLength: func() *int { n := 6; return &n }(),
				},
			},
		}
		store := &fakeStore{form: form}
		o := newOrchestrator(store)

		// "<b>" escapes to nine characters, pushing the value over the limit
		resp, err := o.Submit(t.Context(), "form-1", types.SubmitRequest{
			Data: types.SubmissionData{"name": "<b>"},
		})

		require.NoError(t, err)
		assert.False(t, resp.Success)
	})

	t.Run("StoreByDefaultWithNoActions", func(t *testing.T) {
		store := &fakeStore{form: contactForm()}
		o := newOrchestrator(store)

		resp, err := o.Submit(t.Context(), "form-1", types.SubmitRequest{
			Data:      types.SubmissionData{"name": "Ada", "email": "ada@example.com"},
			UserAgent: "test-agent",
		})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "sub-1", resp.SubmissionID)

		require.Len(t, resp.ActionResults, 1)
		assert.Equal(t, types.ActionStorage, resp.ActionResults[0].ActionType)
		assert.True(t, resp.ActionResults[0].Success)

		require.Len(t, store.saved, 1)
		record := store.saved[0]
		assert.Equal(t, "Contact", record.FormName)
		assert.Equal(t, "Ada", record.Name)
		assert.Equal(t, "ada@example.com", record.Email)
		assert.Equal(t, types.SubmissionStatusNew, record.Status)
		assert.Equal(t, "test-agent", record.UserAgent)
	})

	t.Run("ExplicitStorageAction", func(t *testing.T) {
		form := contactForm()
		form.Actions = types.ActionList{
			types.StorageAction{
				ActionMeta:       types.ActionMeta{Name: "keep", Enabled: true},
				FormNameOverride: "Contact (legacy)",
			},
		}
		store := &fakeStore{form: form, nextID: "sub-42"}
		o := newOrchestrator(store)

		resp, err := o.Submit(t.Context(), "form-1", types.SubmitRequest{
			Data: types.SubmissionData{"name": "Ada", "email": "ada@example.com"},
		})

		require.NoError(t, err)
		assert.Equal(t, "sub-42", resp.SubmissionID)
		require.Len(t, store.saved, 1)
		assert.Equal(t, "Contact (legacy)", store.saved[0].FormName)
	})

	t.Run("DisabledStorageActionSkipsPersistence", func(t *testing.T) {
		srv := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}),
		)
		defer srv.Close()

		form := contactForm()
		form.Actions = types.ActionList{
			types.StorageAction{ActionMeta: types.ActionMeta{Name: "keep"}},
			types.WebhookAction{
				ActionMeta: types.ActionMeta{Name: "hook", Enabled: true},
				URL:        srv.URL,
			},
		}
		store := &fakeStore{form: form}
		o := newOrchestrator(store)

		resp, err := o.Submit(t.Context(), "form-1", types.SubmitRequest{
			Data: types.SubmissionData{"name": "Ada", "email": "ada@example.com"},
		})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Empty(t, resp.SubmissionID)
		assert.Empty(t, store.saved)
		require.Len(t, resp.ActionResults, 1)
		assert.Equal(t, types.ActionWebhook, resp.ActionResults[0].ActionType)
	})

	t.Run("StorageFailureDoesNotDowngradeSubmission", func(t *testing.T) {
		store := &fakeStore{form: contactForm(), saveErr: errors.New("connection refused")}
		o := newOrchestrator(store)

		resp, err := o.Submit(t.Context(), "form-1", types.SubmitRequest{
			Data: types.SubmissionData{"name": "Ada", "email": "ada@example.com"},
		})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Empty(t, resp.SubmissionID)

		require.Len(t, resp.ActionResults, 1)
		assert.False(t, resp.ActionResults[0].Success)
		assert.Contains(t, resp.ActionResults[0].Error, "connection refused")
	})

	t.Run("ActionFailureReportedNotFatal", func(t *testing.T) {
		failing := httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}),
		)
		defer failing.Close()

		form := contactForm()
		form.Actions = types.ActionList{
			types.WebhookAction{
				ActionMeta: types.ActionMeta{Name: "hook", Enabled: true},
				URL:        failing.URL,
			},
			types.StorageAction{ActionMeta: types.ActionMeta{Name: "keep", Enabled: true}},
		}
		store := &fakeStore{form: form}
		o := newOrchestrator(store)

		resp, err := o.Submit(t.Context(), "form-1", types.SubmitRequest{
			Data: types.SubmissionData{"name": "Ada", "email": "ada@example.com"},
		})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "sub-1", resp.SubmissionID)

		require.Len(t, resp.ActionResults, 2)
		assert.False(t, resp.ActionResults[0].Success)
		assert.True(t, resp.ActionResults[1].Success)

		// the storage record carries the dispatch results as they stood
		// before persistence
		require.Len(t, store.saved, 1)
		require.Len(t, store.saved[0].Results, 1)
		assert.False(t, store.saved[0].Results[0].Success)
	})
}
