package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
)

type redactionMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks text matching the
// patterns before a session is persisted. Host stdout and error traces often
// echo file paths or credentials baked into scripts; this keeps them out of
// the archive without touching the in-memory session the engine works with.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, session *domain.Session) error {
	// Clone before masking so the engine's copy stays intact.
	cloned := *session
	cloned.Turns = make([]domain.Turn, len(session.Turns))
	copy(cloned.Turns, session.Turns)

	for i := range cloned.Turns {
		turn := &cloned.Turns[i]
		turn.Script.Body = m.mask(turn.Script.Body)
		if turn.Result != nil {
			result := *turn.Result
			result.Stdout = m.mask(result.Stdout)
			result.ErrorTrace = m.mask(result.ErrorTrace)
			turn.Result = &result
		}
	}
	cloned.FinalAnswer = m.mask(session.FinalAnswer)

	return m.next.Save(ctx, &cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, id string) (*domain.Session, error) {
	return m.next.Load(ctx, id)
}

func (m *redactionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactionMiddleware) mask(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllString(text, "***")
	}
	return text
}
