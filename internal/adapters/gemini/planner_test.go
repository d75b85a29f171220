package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGemini records the last request body and replies with canned parts.
type fakeGemini struct {
	t        *testing.T
	reply    string
	status   int
	lastBody map[string]any
}

func (f *fakeGemini) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(f.t, strings.HasSuffix(r.URL.Path, ":generateContent"))
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastBody))
		w.Header().Set("Content-Type", "application/json")
		if f.status != 0 {
			w.WriteHeader(f.status)
		}
		_, _ = w.Write([]byte(f.reply))
	})
}

func newPlanner(t *testing.T, fake *fakeGemini) *Planner {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return New("test-key", WithBaseURL(srv.URL), WithModel("gemini-test"))
}

func TestPlanMapsScriptCall(t *testing.T) {
	fake := &fakeGemini{t: t, reply: `{
		"candidates": [{"content": {"parts": [
			{"functionCall": {"name": "run_host_script", "args": {"code": "add_object cube cube1 red", "category": "scene-build"}}}
		]}}]
	}`}
	p := newPlanner(t, fake)

	resp, err := p.Plan(context.Background(), ports.PlanRequest{Instruction: "create a red cube"})
	require.NoError(t, err)
	require.NotNil(t, resp.Script)
	assert.Equal(t, "add_object cube cube1 red", resp.Script.Body)
	assert.Equal(t, "scene-build", resp.Script.Category)
	assert.False(t, resp.Done())
	assert.Empty(t, resp.WantsObservation)
}

func TestPlanMapsFinalAnswer(t *testing.T) {
	fake := &fakeGemini{t: t, reply: `{
		"candidates": [{"content": {"parts": [{"text": "Done. The cube is red."}]}}]
	}`}
	p := newPlanner(t, fake)

	resp, err := p.Plan(context.Background(), ports.PlanRequest{Instruction: "create a red cube"})
	require.NoError(t, err)
	assert.True(t, resp.Done())
	assert.Equal(t, "Done. The cube is red.", resp.FinalAnswer)
}

func TestPlanMapsParallelScriptAndScreenshot(t *testing.T) {
	fake := &fakeGemini{t: t, reply: `{
		"candidates": [{"content": {"parts": [
			{"functionCall": {"name": "run_host_script", "args": {"code": "set_color cube1 red"}}},
			{"functionCall": {"name": "get_viewport_screenshot"}}
		]}}]
	}`}
	p := newPlanner(t, fake)

	resp, err := p.Plan(context.Background(), ports.PlanRequest{Instruction: "paint it red"})
	require.NoError(t, err)
	require.NotNil(t, resp.Script)
	assert.Equal(t, domain.ObservationImage, resp.WantsObservation)
}

func TestPlanMapsObservationOnlyCall(t *testing.T) {
	fake := &fakeGemini{t: t, reply: `{
		"candidates": [{"content": {"parts": [{"functionCall": {"name": "get_execution_log"}}]}}]
	}`}
	p := newPlanner(t, fake)

	resp, err := p.Plan(context.Background(), ports.PlanRequest{Instruction: "what happened?"})
	require.NoError(t, err)
	assert.Nil(t, resp.Script)
	assert.Equal(t, domain.ObservationLog, resp.WantsObservation)
	assert.False(t, resp.Done())
}

// The request must replay the turn history as tool calls and results, with
// the observation image inlined as base64.
func TestPlanReplaysHistory(t *testing.T) {
	fake := &fakeGemini{t: t, reply: `{
		"candidates": [{"content": {"parts": [{"text": "Looks right."}]}}]
	}`}
	p := newPlanner(t, fake)

	history := []domain.Turn{{
		Seq:    1,
		Script: domain.Script{Body: "add_object cube cube1 red", Category: "scene-build"},
		Result: &domain.ExecutionResult{Status: domain.ResultSuccess, Stdout: "added"},
		Kind:   domain.KindSuccess,
		Observation: &domain.Observation{
			Kind:    domain.ObservationImage,
			Image:   []byte{0x89, 'P', 'N', 'G'},
			TurnSeq: 1,
		},
	}}

	_, err := p.Plan(context.Background(), ports.PlanRequest{
		Instruction: "create a red cube",
		History:     history,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(fake.lastBody["contents"])
	require.NoError(t, err)
	payload := string(raw)

	assert.Contains(t, payload, "create a red cube")
	assert.Contains(t, payload, "run_host_script")
	assert.Contains(t, payload, "add_object cube cube1 red")
	assert.Contains(t, payload, "get_viewport_screenshot")
	assert.Contains(t, payload, "image/png")
	assert.Contains(t, payload, "iVBORw", "image bytes must travel base64-encoded")

	// Tools and system instruction ride along on every call.
	assert.NotNil(t, fake.lastBody["tools"])
	assert.NotNil(t, fake.lastBody["system_instruction"])
}

func TestPlanFailedTurnCarriesTrace(t *testing.T) {
	fake := &fakeGemini{t: t, reply: `{
		"candidates": [{"content": {"parts": [{"text": "Retrying."}]}}]
	}`}
	p := newPlanner(t, fake)

	history := []domain.Turn{{
		Seq:    1,
		Script: domain.Script{Body: "boom()", Category: "scene-build"},
		Result: &domain.ExecutionResult{Status: domain.ResultFailure, ErrorTrace: "RuntimeError: boom"},
		Kind:   domain.KindRuntimeError,
	}}

	_, err := p.Plan(context.Background(), ports.PlanRequest{Instruction: "x", History: history})
	require.NoError(t, err)

	raw, _ := json.Marshal(fake.lastBody["contents"])
	assert.Contains(t, string(raw), "RuntimeError: boom")
	assert.Contains(t, string(raw), "runtime_error")
}

func TestPlanAPIErrorSurfaces(t *testing.T) {
	fake := &fakeGemini{t: t, status: http.StatusBadRequest, reply: `{
		"error": {"code": 400, "message": "API key not valid"}
	}`}
	p := newPlanner(t, fake)

	_, err := p.Plan(context.Background(), ports.PlanRequest{Instruction: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestPlanEmptyReplyIsError(t *testing.T) {
	fake := &fakeGemini{t: t, reply: `{"candidates": [{"content": {"parts": []}}]}`}
	p := newPlanner(t, fake)

	_, err := p.Plan(context.Background(), ports.PlanRequest{Instruction: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither a tool call nor an answer")
}
