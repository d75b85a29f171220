package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/maquette"
	"github.com/aretw0/maquette/internal/testutils"
	"github.com/aretw0/maquette/pkg/domain"
)

func inertOptions() []maquette.Option {
	return []maquette.Option{
		maquette.WithPlanner(testutils.NewScriptedPlanner(testutils.PlanAnswer("nothing to do"))),
		maquette.WithChannel(testutils.NewFakeChannel()),
	}
}

func TestBuildAgentDefaultsToMemoryStore(t *testing.T) {
	agent, closer, err := buildAgent(Config{}, createLogger(false), inertOptions()...)
	require.NoError(t, err)
	require.Nil(t, closer)

	ctx := context.Background()
	sess, err := agent.Run(ctx, "no-op")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, sess.Status)

	ids, err := agent.Sessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, sess.ID)
}

func TestBuildAgentUsesFileStore(t *testing.T) {
	dir := t.TempDir()
	agent, _, err := buildAgent(Config{StateDir: dir}, createLogger(false), inertOptions()...)
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), "no-op")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "expected the session archived on disk")
}

func TestBuildAgentOpensTranscript(t *testing.T) {
	dir := t.TempDir()
	_, closer, err := buildAgent(Config{TranscriptDir: dir}, createLogger(false), inertOptions()...)
	require.NoError(t, err)
	require.NotNil(t, closer)
	assert.NoError(t, closer.Close())
}

func TestBuildAgentRejectsBadRedisURL(t *testing.T) {
	_, _, err := buildAgent(Config{RedisURL: "not-a-url"}, createLogger(false), inertOptions()...)
	assert.Error(t, err)
}

// With a key and redact patterns configured, the archive on disk holds neither
// the instruction nor the matched secret, while a load through the agent
// round-trips everything but the masked text.
func TestBuildStoreSealsAndRedactsArchive(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		StateDir:       dir,
		EncryptionKey:  strings.Repeat("a1", 32),
		RedactPatterns: []string{`token-\w+`},
	}
	opts := []maquette.Option{
		maquette.WithPlanner(testutils.NewScriptedPlanner(testutils.PlanAnswer("credential token-hunter2 stored"))),
		maquette.WithChannel(testutils.NewFakeChannel()),
	}
	agent, _, err := buildAgent(cfg, createLogger(false), opts...)
	require.NoError(t, err)

	ctx := context.Background()
	sess, err := agent.Run(ctx, "store the credential")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, sess.ID+".json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "token-hunter2")
	assert.NotContains(t, string(raw), "store the credential")

	loaded, err := agent.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, loaded.Status)
	assert.Equal(t, "credential *** stored", loaded.FinalAnswer)
	assert.Equal(t, "store the credential", loaded.Instruction)
}

func TestBuildStoreRejectsShortEncryptionKey(t *testing.T) {
	_, _, err := buildAgent(Config{EncryptionKey: "abcd"}, createLogger(false), inertOptions()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encryption_key")
}

func TestBuildStoreRejectsBadRedactPattern(t *testing.T) {
	_, _, err := buildAgent(Config{RedactPatterns: []string{"("}}, createLogger(false), inertOptions()...)
	assert.Error(t, err)
}
