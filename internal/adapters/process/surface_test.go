package process

import (
	"context"
	"runtime"
	"testing"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on a POSIX shell")
	}
}

func TestExecutePipesScriptToStdin(t *testing.T) {
	requireShell(t)
	s := New("sh", WithArgs("-c", "cat"))

	res, err := s.Execute(context.Background(), "hello host", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSuccess, res.Status)
	assert.Equal(t, "hello host", res.Stdout)
}

func TestExecuteNonzeroExitIsFailureResult(t *testing.T) {
	requireShell(t)
	s := New("sh", WithArgs("-c", "echo partial; echo 'RuntimeError: boom' >&2; exit 3"))

	res, err := s.Execute(context.Background(), "ignored", nil)
	require.NoError(t, err, "script failure is a result, not a surface error")
	assert.Equal(t, domain.ResultFailure, res.Status)
	assert.Contains(t, res.Stdout, "partial")
	assert.Contains(t, res.ErrorTrace, "RuntimeError: boom")
}

func TestExecuteMissingCommandIsSurfaceError(t *testing.T) {
	s := New("definitely-not-a-command-on-this-box")
	_, err := s.Execute(context.Background(), "x", nil)
	require.Error(t, err)
}

func TestExecutePassesOverrideAsEnv(t *testing.T) {
	requireShell(t)
	s := New("sh", WithArgs("-c", `echo "$MAQUETTE_REGION/$MAQUETTE_MODE/$MAQUETTE_SELECTION"`))

	res, err := s.Execute(context.Background(), "", &domain.ContextOverride{
		Region:    "VIEW_3D",
		Mode:      "EDIT",
		Selection: []string{"cube1", "cube2"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "VIEW_3D/EDIT/cube1,cube2")
}

func TestRenderWithoutCommandIsCaptureFailed(t *testing.T) {
	s := New("sh")
	_, err := s.RenderImage(context.Background())
	assert.ErrorIs(t, err, domain.ErrCaptureFailed)
}

func TestRenderReadsStdout(t *testing.T) {
	requireShell(t)
	s := New("sh", WithRenderArgs("-c", "printf 'PNGDATA'"))

	img, err := s.RenderImage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), img)
}

func TestInspectDefaultState(t *testing.T) {
	s := New("sh")
	state, err := s.Inspect(context.Background())
	require.NoError(t, err)
	assert.Contains(t, state.Regions, "VIEW_3D")
	assert.Equal(t, "OBJECT", state.Mode)
}

func TestInspectDecodesCommandOutput(t *testing.T) {
	requireShell(t)
	s := New("sh", WithInspectCommand("sh", "-c",
		`echo '{"regions":["VIEW_3D"],"mode":"EDIT","selection":["cube1"],"has_camera":true,"objects":2}'`))

	state, err := s.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EDIT", state.Mode)
	assert.True(t, state.HasCamera)
	assert.Equal(t, 2, state.Objects)
}
