package models

import (
	"context"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/formrelay/form-api/internal/config"
)

func TestAuth(t *testing.T) {
	db := testDB(t)

	tru := true
	fal := false
	operators := []config.Operator{
		{
			ID:     uuid.New().String(),
			Note:   "Key 0",
			Token:  "abcdefg",
			Active: &tru,
		},
		{
			ID:     uuid.New().String(),
			Note:   "Key 1",
			Token:  "abcdefg",
			Active: &tru,
		},
		{
			ID:     uuid.New().String(),
			Note:   "Key 2",
			Token:  "abcdefg",
			Active: &tru,
		},
	}

	t.Run("LoadMany", func(t *testing.T) {
		err := LoadAPIKeysFromConfig(context.Background(), db, operators)
		require.NoError(t, err, "failed to upsert keys")
		checkKeys(t, db, operators, true)
	})

	t.Run("LoadManyLessOne", func(t *testing.T) {
		modified := make([]config.Operator, len(operators))
		copy(modified, operators)

		err := LoadAPIKeysFromConfig(context.Background(), db, modified[1:])
		require.NoError(t, err, "failed to upsert keys")

		checkKeys(t, db, modified[1:], true)
		checkKeys(t, db, modified[0:1], false)
	})

	t.Run("LoadManyMarkOneInactive", func(t *testing.T) {
		modified := make([]config.Operator, len(operators))
		copy(modified, operators)

		modified[0].Active = &fal

		err := LoadAPIKeysFromConfig(context.Background(), db, modified)
		require.NoError(t, err, "failed to upsert keys")

		checkKeys(t, db, modified[1:], true)
		checkKeys(t, db, modified[0:1], false)
	})

	t.Run("TokensStoredHashed", func(t *testing.T) {
		m, err := ByID[Auth](context.Background(), db, uuid.MustParse(operators[1].ID))
		require.NoError(t, err, "failed to get key from db")

		assert.NotEqual(t, operators[1].Token, m.Token, "token must not be stored in the clear")

		match, err := argon2id.ComparePasswordAndHash(operators[1].Token, m.Token)
		require.NoError(t, err, "failed to compare token against stored hash")
		assert.True(t, match, "stored hash does not verify the configured token")
	})
}

func checkKeys(t *testing.T, db *gorm.DB, operators []config.Operator, active bool) {
	for _, operator := range operators {
		m, err := ByID[Auth](context.Background(), db, uuid.MustParse(operator.ID))
		require.NoError(t, err, "failed to get key from db")

		assert.True(t, m.Active.Valid, "active is not valid")
		assert.Equalf(t, active, m.Active.V, "active not expected state: %s", operator.Note)
	}
}
