package models

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/formrelay/form-api/cmd/server/internal/migrations"
	"github.com/formrelay/form-api/internal/submission"
	"github.com/formrelay/form-api/internal/types"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16.4-alpine",
		postgres.WithDatabase("formapi"),
		postgres.WithUsername("formapi"),
		postgres.WithPassword("formapi"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	t.Cleanup(func() {
		assert.NoError(
			t,
			testcontainers.TerminateContainer(postgresContainer),
			"failed to terminate container",
		)
	})
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := postgresContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get connection string to container")

	db, err := gorm.Open(gormpostgres.Open(dsn))
	require.NoError(t, err, "failed to connect to the database")

	require.NoError(t, migrations.Up(ctx, db), "failed to migrate db")

	return db
}

func TestUtilities(t *testing.T) {
	db := testDB(t)

	form := &Form{
		Name: "Contact",
		Fields: []types.FormField{
			{Name: "email", Type: types.FieldEmail, Required: true},
		},
	}
	result := db.Create(form)
	require.NoError(t, result.Error, "failed to write element to db")

	t.Run("ExistsByID", func(t *testing.T) {
		exists, err := Exists[Form](context.Background(), db, "id = ?", form.ID)
		require.NoError(t, err, "failed to check db for existence")

		assert.True(t, exists, "did not find the object")
	})

	t.Run("ExistsByName", func(t *testing.T) {
		exists, err := Exists[Form](context.Background(), db, "name = ?", form.Name)
		require.NoError(t, err, "failed to check db for existence")

		assert.True(t, exists, "did not find the object")
	})

	t.Run("DoesNotExistByID", func(t *testing.T) {
		exists, err := Exists[Form](context.Background(), db, "id = ?", uuid.New())
		require.NoError(t, err, "failed to check db for existence")

		assert.False(t, exists, "should not find object")
	})
}

func TestGormStore(t *testing.T) {
	db := testDB(t)
	store := NewGormStore(db)

	form := &Form{
		Name: "Contact",
		Fields: []types.FormField{
			{Name: "name", Label: "Name", Type: types.FieldText, Required: true},
			{Name: "email", Label: "Email", Type: types.FieldEmail, Required: true},
		},
		Actions: types.ActionList{
			types.WebhookAction{
				ActionMeta: types.ActionMeta{Name: "notify", Enabled: true},
				URL:        "https://hooks.example/endpoint",
			},
			types.StorageAction{
				ActionMeta: types.ActionMeta{Name: "keep", Enabled: true},
			},
		},
		SpamProtection: true,
	}
	require.NoError(t, db.Create(form).Error, "failed to write form to db")

	t.Run("FormByID", func(t *testing.T) {
		def, err := store.FormByID(context.Background(), form.ID.String())
		require.NoError(t, err, "failed to fetch form")

		assert.Equal(t, form.ID.String(), def.ID)
		assert.Equal(t, "Contact", def.Name)
		assert.True(t, def.SpamProtection)
		require.Len(t, def.Fields, 2)
		assert.Equal(t, types.FieldEmail, def.Fields[1].Type)

		// jsonb round trip must preserve the action variants
		require.Len(t, def.Actions, 2)
		assert.Equal(t, types.ActionWebhook, def.Actions[0].Kind())
		assert.Equal(t, types.ActionStorage, def.Actions[1].Kind())
	})

	t.Run("FormByIDUnknown", func(t *testing.T) {
		_, err := store.FormByID(context.Background(), uuid.New().String())
		assert.ErrorIs(t, err, submission.ErrFormNotFound)
	})

	t.Run("FormByIDMalformed", func(t *testing.T) {
		_, err := store.FormByID(context.Background(), "not-a-uuid")
		assert.ErrorIs(t, err, submission.ErrFormNotFound)
	})

	t.Run("SaveSubmissionRoundTrip", func(t *testing.T) {
		id, err := store.SaveSubmission(context.Background(), &submission.Record{
			FormID:   form.ID.String(),
			FormName: "Contact",
			Name:     "Ada",
			Email:    "ada@example.com",
			Status:   types.SubmissionStatusNew,
			Data: types.SubmissionData{
				"name":  "Ada",
				"email": "ada@example.com",
			},
			Results: []types.ActionResult{
				{ActionType: types.ActionWebhook, ActionName: "notify", Success: true},
			},
			SubmittedAt: time.Now().UTC(),
		})
		require.NoError(t, err, "failed to save submission")

		row, err := ByID[FormSubmission](context.Background(), db, uuid.MustParse(id))
		require.NoError(t, err, "failed to read submission back")

		assert.Equal(t, form.ID, row.FormID)
		assert.Equal(t, "Ada", row.Name)
		assert.Equal(t, types.SubmissionStatusNew, row.Status)
		assert.Equal(t, "ada@example.com", row.Data["email"])
		require.Len(t, row.Results, 1)
		assert.True(t, row.Results[0].Success)
	})
}
