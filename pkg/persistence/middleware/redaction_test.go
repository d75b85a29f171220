package middleware_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/persistence/middleware"
)

func TestRedactionMiddleware_MasksPersistedTurns(t *testing.T) {
	underlyingStore := NewMockStore()
	mw := middleware.NewRedactionMiddleware([]string{`sk-[a-z0-9]+`, `/home/\w+`})
	store := mw(underlyingStore)

	ctx := context.Background()
	session := domain.NewSession("redact-session", "render the scene")
	session.Turns = append(session.Turns, domain.Turn{
		Seq:    1,
		Script: domain.Script{Body: `api_key = "sk-abc123"`, Category: "render"},
		Result: &domain.ExecutionResult{
			Status:     domain.ResultFailure,
			Stdout:     "writing to /home/alice/out.png",
			ErrorTrace: "PermissionError: /home/alice/out.png",
		},
		Kind: domain.KindRuntimeError,
	})

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlyingStore.Load(ctx, "redact-session")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if strings.Contains(stored.Turns[0].Script.Body, "sk-abc123") {
		t.Errorf("Expected key masked in script body, got %q", stored.Turns[0].Script.Body)
	}
	if strings.Contains(stored.Turns[0].Result.Stdout, "/home/alice") {
		t.Errorf("Expected path masked in stdout, got %q", stored.Turns[0].Result.Stdout)
	}
	if strings.Contains(stored.Turns[0].Result.ErrorTrace, "/home/alice") {
		t.Errorf("Expected path masked in trace, got %q", stored.Turns[0].Result.ErrorTrace)
	}
}

func TestRedactionMiddleware_DoesNotTouchInMemorySession(t *testing.T) {
	mw := middleware.NewRedactionMiddleware([]string{`sk-[a-z0-9]+`})
	store := mw(NewMockStore())

	session := domain.NewSession("live-session", "set up materials")
	session.Turns = append(session.Turns, domain.Turn{
		Seq:    1,
		Script: domain.Script{Body: `token = "sk-live42"`},
		Result: &domain.ExecutionResult{Status: domain.ResultSuccess, Stdout: "sk-live42 accepted"},
	})

	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The engine keeps working with the original; masking a copy must not
	// leak back into it.
	if session.Turns[0].Script.Body != `token = "sk-live42"` {
		t.Errorf("In-memory script mutated: %q", session.Turns[0].Script.Body)
	}
	if session.Turns[0].Result.Stdout != "sk-live42 accepted" {
		t.Errorf("In-memory stdout mutated: %q", session.Turns[0].Result.Stdout)
	}
}
