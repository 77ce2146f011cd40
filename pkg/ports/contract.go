package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/framesync/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newState := func(id string, entries ...string) *domain.SessionState {
		return &domain.SessionState{
			SessionID: id,
			Entries:   entries,
			Index:     len(entries) - 1,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		state := newState(sessionID, "", "#!/foo", "#!/bar")
		state.Index = 1
		state.Route = "/foo"

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Entries, loaded.Entries)
		assert.Equal(t, 1, loaded.Index)
		assert.Equal(t, domain.Route("/foo"), loaded.Route)
		assert.Equal(t, "#!/foo", loaded.Hash())
	})

	t.Run("Stored Copy Is Isolated", func(t *testing.T) {
		state := newState(sessionID, "", "#!/foo")
		require.NoError(t, store.Save(ctx, sessionID, state))

		state.Entries[1] = "#!/mutated"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "#!/foo", loaded.Entries[1])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, newState(sessionID, ""))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, newState(id1, ""))
		_ = store.Save(ctx, id2, newState(id2, ""))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
