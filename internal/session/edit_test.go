package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

func TestEditOneShot(t *testing.T) {
	e := newEnv(t)
	c := e.controller()

	snap, err := Edit(context.Background(), c, "3", models.Fields{
		models.FieldName:     "R2-D2",
		models.FieldEyeColor: "blue",
	})
	require.NoError(t, err)
	assert.Equal(t, ModeViewing, snap.Mode)
	assert.Equal(t, []models.Field{models.FieldEyeColor}, snap.Effective.ModifiedFields)

	lp, ok := e.storedPatch(t, "3")
	require.True(t, ok)
	assert.Equal(t, models.Patch{models.FieldEyeColor: "blue"}, lp.Data)
}

func TestEditUnknownFieldLeavesViewing(t *testing.T) {
	e := newEnv(t)
	c := e.controller()

	_, err := Edit(context.Background(), c, "1", models.Fields{"homeworld": "Tatooine"})
	assert.ErrorIs(t, err, apperr.ErrUnknownField)
	assert.Equal(t, ModeViewing, c.Snapshot().Mode)
	assert.Equal(t, 0, e.backend.Len())
}

func TestEditValidationFailureLeavesViewing(t *testing.T) {
	e := newEnv(t)
	c := e.controller()

	_, err := Edit(context.Background(), c, "1", models.Fields{
		models.FieldHeight: "tall",
		models.FieldGender: "droid",
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 2)
	assert.Equal(t, ModeViewing, c.Snapshot().Mode)
}

func TestEditNotFound(t *testing.T) {
	_, err := Edit(context.Background(), newEnv(t).controller(), "999", models.Fields{models.FieldName: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
