package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/nutq/internal/repository"
	"github.com/alexanderramin/nutq/internal/testutil"
)

func TestSnapshotStore_SaveAllWritesEveryKey(t *testing.T) {
	database := testutil.NewTestDB(t)
	store := NewSnapshotStore(database, testutil.NewTestUoW(database))
	ctx := context.Background()

	require.NoError(t, store.SaveAll(ctx, []byte(`[]`), "latest", "monday"))

	for _, key := range []string{"latest", "monday"} {
		data, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(data))
	}
	infos, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestSnapshotStore_SaveAllRollsBackOnFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	errInjected := errors.New("disk full")
	store := NewSnapshotStore(database, &testutil.FailOnNthExecUoW{DB: database, FailOn: 2, Err: errInjected})
	ctx := context.Background()

	err := store.SaveAll(ctx, []byte(`[]`), "latest", "monday")
	assert.ErrorIs(t, err, errInjected)

	_, err = store.Load(ctx, "latest")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
