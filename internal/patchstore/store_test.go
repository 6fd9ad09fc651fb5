package patchstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

// brokenBackend fails every call, standing in for an unavailable engine.
type brokenBackend struct{ err error }

func (b brokenBackend) Get(context.Context, string) (*models.LocalPatch, error) { return nil, b.err }
func (b brokenBackend) Put(context.Context, *models.LocalPatch) error           { return b.err }
func (b brokenBackend) Delete(context.Context, string) error                    { return b.err }
func (b brokenBackend) List(context.Context) ([]models.LocalPatch, error)       { return nil, b.err }
func (b brokenBackend) Close() error                                            { return nil }

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestStoreSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)
	s := New(NewMemory(), WithClock(fixedClock(ts)))

	_, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok, "absent patch must not be an error")

	saved, err := s.Save(ctx, "1", models.Patch{models.FieldHeight: "175"})
	require.NoError(t, err)
	assert.Equal(t, ts, saved.LastModified)

	got, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.Patch{models.FieldHeight: "175"}, got.Data)
	assert.Equal(t, "1", got.ID)

	require.NoError(t, s.Delete(ctx, "1"))
	_, ok, err = s.Get(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())

	_, err := s.Save(ctx, "1", models.Patch{models.FieldHeight: "175", models.FieldMass: "80"})
	require.NoError(t, err)
	_, err = s.Save(ctx, "1", models.Patch{models.FieldName: "Luke"})
	require.NoError(t, err)

	got, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.Patch{models.FieldName: "Luke"}, got.Data)
}

func TestStoreSaveDoesNotAliasCallerPatch(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())
	p := models.Patch{models.FieldHeight: "175"}

	_, err := s.Save(ctx, "1", p)
	require.NoError(t, err)
	p[models.FieldHeight] = "999"

	got, _, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "175", got.Data[models.FieldHeight])
}

func TestStoreRejectsEmptyPatch(t *testing.T) {
	mem := NewMemory()
	s := New(mem)

	_, err := s.Save(context.Background(), "1", models.Patch{})
	assert.ErrorIs(t, err, apperr.ErrEmptyPatch)
	assert.Equal(t, 0, mem.Len())
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	s := New(NewMemory())
	require.NoError(t, s.Delete(context.Background(), "404"))
	require.NoError(t, s.Delete(context.Background(), "404"))
}

func TestStoreWrapsBackendFaults(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("quota exceeded")
	s := New(brokenBackend{err: cause})

	_, err := s.Save(ctx, "1", models.Patch{models.FieldName: "x"})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.ErrorIs(t, err, cause)

	_, _, err = s.Get(ctx, "1")
	assert.ErrorIs(t, err, apperr.ErrStorage)

	err = s.Delete(ctx, "1")
	assert.ErrorIs(t, err, apperr.ErrStorage)

	_, err = s.List(ctx)
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())
	for _, id := range []string{"3", "1", "2"} {
		_, err := s.Save(ctx, id, models.Patch{models.FieldName: "n" + id})
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "3", list[2].ID)
}
