package scene

import (
	"context"
	"testing"

	"github.com/aretw0/maquette/internal/classifier"
	"github.com/aretw0/maquette/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteBuildsScene(t *testing.T) {
	s := New()
	res, err := s.Execute(context.Background(), "add_object cube cube1 red\nprint done", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSuccess, res.Status)
	assert.Contains(t, res.Stdout, `added cube "cube1"`)
	assert.Contains(t, res.Stdout, "done")

	state, err := s.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, state.Objects)
	assert.False(t, state.HasCamera)
}

func TestExecuteScriptErrorHasHostShapedTrace(t *testing.T) {
	s := New()
	res, err := s.Execute(context.Background(), "set_color ghost red", nil)
	require.NoError(t, err, "script errors are results, not surface errors")
	assert.Equal(t, domain.ResultFailure, res.Status)
	assert.Contains(t, res.ErrorTrace, "Traceback (most recent call last):")
	assert.Contains(t, res.ErrorTrace, "KeyError")

	// The default classifier reads this as a plain runtime error.
	kind := classifier.New().Classify(res, nil)
	assert.Equal(t, domain.KindRuntimeError, kind)
}

func TestExtrudeOutsideEditModePollFails(t *testing.T) {
	s := New()
	_, err := s.Execute(context.Background(), "add_object cube cube1\nselect cube1", nil)
	require.NoError(t, err)

	res, err := s.Execute(context.Background(), "extrude", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailure, res.Status)
	assert.Contains(t, res.ErrorTrace, "poll() failed")

	kind := classifier.New().Classify(res, nil)
	assert.Equal(t, domain.KindPollFailed, kind)
}

func TestExtrudeUnderOverrideSucceeds(t *testing.T) {
	s := New()
	_, err := s.Execute(context.Background(), "add_object cube cube1\nselect cube1", nil)
	require.NoError(t, err)

	res, err := s.Execute(context.Background(), "extrude", &domain.ContextOverride{Region: "VIEW_3D", Mode: "EDIT"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSuccess, res.Status)
	assert.Contains(t, res.Stdout, "extruded cube1")
}

func TestRenderWithoutCameraFails(t *testing.T) {
	s := New()
	_, err := s.RenderImage(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCaptureFailed)
	assert.Contains(t, err.Error(), "no camera")
}

func TestRenderIsDeterministic(t *testing.T) {
	build := func() *Surface {
		s := New(WithCamera())
		_, err := s.Execute(context.Background(), "add_object cube cube1 red", nil)
		require.NoError(t, err)
		return s
	}

	a, err := build().RenderImage(context.Background())
	require.NoError(t, err)
	b, err := build().RenderImage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical scenes must render identically")
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, a[:4])

	// A changed scene renders differently.
	changed := build()
	_, err = changed.Execute(context.Background(), "set_color cube1 blue", nil)
	require.NoError(t, err)
	c, err := changed.RenderImage(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestInspectReflectsModeAndSelection(t *testing.T) {
	s := New()
	_, err := s.Execute(context.Background(), "add_object cube cube1\nselect cube1\nmode EDIT", nil)
	require.NoError(t, err)

	state, err := s.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EDIT", state.Mode)
	assert.Equal(t, []string{"cube1"}, state.Selection)
	assert.Contains(t, state.Regions, "VIEW_3D")
}
