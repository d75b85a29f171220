package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID, "add a red cube")
		session.Turns = append(session.Turns, domain.Turn{
			Seq:    1,
			Script: domain.Script{Body: "scene.add(type='cube')", Category: "scene-build"},
			Result: &domain.ExecutionResult{Status: domain.ResultFailure, ErrorTrace: "RuntimeError: boom"},
			Kind:   domain.KindRuntimeError,
		})
		session.Budget = session.Budget.Spend()

		err := store.Save(ctx, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.Instruction, loaded.Instruction)
		assert.Equal(t, session.Budget, loaded.Budget)
		require.Len(t, loaded.Turns, 1)
		assert.Equal(t, domain.KindRuntimeError, loaded.Turns[0].Kind)
		assert.Equal(t, "RuntimeError: boom", loaded.Turns[0].Result.ErrorTrace)
	})

	t.Run("Terminated Sessions Stay Loadable", func(t *testing.T) {
		id := sessionID + "-terminal"
		session := domain.NewSession(id, "impossible task")
		session.Status = domain.SessionFailed
		session.FailureKind = domain.KindBudgetExhausted
		session.EndedAt = time.Now().UTC()

		require.NoError(t, store.Save(ctx, session))
		defer func() { _ = store.Delete(ctx, id) }()

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "terminated sessions must remain retrievable")
		assert.True(t, loaded.Terminal())
		assert.Equal(t, domain.KindBudgetExhausted, loaded.FailureKind)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		session := domain.NewSession(sessionID, "add a red cube")
		require.NoError(t, store.Save(ctx, session))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, domain.NewSession(id1, "first"))
		_ = store.Save(ctx, domain.NewSession(id2, "second"))

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
