package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/maquette/internal/adapters/memory"
	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	sess := domain.NewSession("iso", "add a cube")
	require.NoError(t, store.Save(ctx, sess))

	// Mutating the saved pointer must not leak into the store.
	sess.Turns = append(sess.Turns, domain.Turn{Seq: 1})

	loaded, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	assert.Empty(t, loaded.Turns)
}
