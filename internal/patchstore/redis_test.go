package patchstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

// TestRedisRoundTrip needs a disposable server; set HOLOCRON_TEST_REDIS_ADDR
// (for example localhost:6379) to run it.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("HOLOCRON_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HOLOCRON_TEST_REDIS_ADDR not set")
	}

	r, err := OpenRedis(RedisOptions{Addr: addr, Prefix: "holocron-test:" + t.Name() + ":"})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	ctx := context.Background()
	t.Cleanup(func() {
		_ = r.Delete(ctx, "1")
		_ = r.Delete(ctx, "2")
	})

	ts := time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Put(ctx, &models.LocalPatch{ID: "1", Data: models.Patch{models.FieldMass: "80"}, LastModified: ts}))
	require.NoError(t, r.Put(ctx, &models.LocalPatch{ID: "2", Data: models.Patch{models.FieldName: "C-3PO"}, LastModified: ts}))

	got, err := r.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "80", got.Data[models.FieldMass])

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, r.Delete(ctx, "1"))
	_, err = r.Get(ctx, "1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
