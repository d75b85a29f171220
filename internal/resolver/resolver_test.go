package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewportState() *domain.HostState {
	return &domain.HostState{
		Regions:   []string{"VIEW_3D", "PROPERTIES"},
		Mode:      "OBJECT",
		Selection: []string{"Cube"},
	}
}

func TestResolveCategories(t *testing.T) {
	r := NewDefault()

	t.Run("Unknown Category Resolves To Nothing", func(t *testing.T) {
		override, err := r.Resolve("totally-new-thing", viewportState())
		require.NoError(t, err)
		assert.Nil(t, override)
	})

	t.Run("Empty Category Resolves To Nothing", func(t *testing.T) {
		override, err := r.Resolve("", viewportState())
		require.NoError(t, err)
		assert.Nil(t, override)
	})

	t.Run("Mesh Edit Pins Region Mode And Selection", func(t *testing.T) {
		override, err := r.Resolve("mesh-edit", viewportState())
		require.NoError(t, err)
		require.NotNil(t, override)
		assert.Equal(t, "VIEW_3D", override.Region)
		assert.Equal(t, "EDIT", override.Mode)
		assert.Equal(t, []string{"Cube"}, override.Selection)
	})

	t.Run("Missing Region Fails Resolution", func(t *testing.T) {
		state := &domain.HostState{Regions: []string{"PROPERTIES"}, Selection: []string{"Cube"}}
		_, err := r.Resolve("mesh-edit", state)
		assert.ErrorIs(t, err, domain.ErrUnresolvedContext)
	})

	t.Run("Missing Selection Fails Resolution", func(t *testing.T) {
		state := &domain.HostState{Regions: []string{"VIEW_3D"}}
		_, err := r.Resolve("object-transform", state)
		assert.ErrorIs(t, err, domain.ErrUnresolvedContext)
	})

	t.Run("Recomputed Per Attempt", func(t *testing.T) {
		// Same category, changed host state: a later attempt must see the
		// fresh selection, never a cached override.
		state := &domain.HostState{Regions: []string{"VIEW_3D"}}
		_, err := r.Resolve("object-transform", state)
		require.ErrorIs(t, err, domain.ErrUnresolvedContext)

		state.Selection = []string{"Sphere"}
		override, err := r.Resolve("object-transform", state)
		require.NoError(t, err)
		assert.Equal(t, []string{"Sphere"}, override.Selection)
	})
}

func TestLoadRules(t *testing.T) {
	t.Run("Missing File Falls Back To Defaults", func(t *testing.T) {
		rs, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultRules().Version, rs.Version)
		assert.NotEmpty(t, rs.Rules)
	})

	t.Run("Custom File Overrides Table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := `
version: 7
rules:
  - category: sculpt
    region: VIEW_3D
    mode: SCULPT
    needs_selection: true
    params:
      brush: default
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		rs, err := LoadRules(path)
		require.NoError(t, err)
		assert.Equal(t, 7, rs.Version)
		require.Len(t, rs.Rules, 1)

		r := New(rs)
		assert.True(t, r.Known("sculpt"))
		assert.False(t, r.Known("mesh-edit"))
		assert.Equal(t, 7, r.Version())

		override, err := r.Resolve("sculpt", viewportState())
		require.NoError(t, err)
		assert.Equal(t, "SCULPT", override.Mode)
		assert.Equal(t, "default", override.Params["brush"])
	})

	t.Run("Rule Without Category Rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\nrules:\n  - region: VIEW_3D\n"), 0o644))

		_, err := LoadRules(path)
		assert.Error(t, err)
	})
}
