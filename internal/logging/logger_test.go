package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTranscript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")

	logger, closer, err := WithTranscript(NewNop(), dir)
	require.NoError(t, err)

	logger.Info("turn finished", "session_id", "sess-1", "kind", "runtime_error")
	require.NoError(t, closer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "maquette_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "turn finished", record["msg"])
	assert.Equal(t, "sess-1", record["session_id"])
}

func TestWithTranscriptAppends(t *testing.T) {
	dir := t.TempDir()

	logger, closer, err := WithTranscript(NewNop(), dir)
	require.NoError(t, err)
	logger.Info("first")
	require.NoError(t, closer.Close())

	logger, closer, err = WithTranscript(NewNop(), dir)
	require.NoError(t, err)
	logger.Info("second")
	require.NoError(t, closer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "same-day runs share one transcript file")

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestNewRenamesErrorKey(t *testing.T) {
	// The ReplaceAttr hook only fires for attrs passed to the handler, so
	// exercise it through a real record.
	r, w, err := os.Pipe()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
	logger.Info("boom", "error", "broken")
	require.NoError(t, w.Close())

	buf := make([]byte, 256)
	n, _ := r.Read(buf)
	out := string(buf[:n])
	assert.Contains(t, out, "err=broken")
	assert.NotContains(t, out, "error=broken")
}
