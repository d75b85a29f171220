// Package classifier maps raw execution outcomes onto the closed
// domain.ErrorKind set. The correction loop branches on kinds only; nothing
// downstream ever re-parses an error trace.
package classifier

import (
	"errors"
	"regexp"

	"github.com/aretw0/maquette/pkg/domain"
)

// Pattern pairs an error kind with a regexp matched against the host's trace.
type Pattern struct {
	Kind domain.ErrorKind
	Expr *regexp.Regexp
}

// DefaultPatterns returns the table tuned for Blender-style hosts. Order
// matters: the first match wins.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Kind: domain.KindPollFailed, Expr: regexp.MustCompile(`(?i)poll\(\)\s+failed`)},
		{Kind: domain.KindPollFailed, Expr: regexp.MustCompile(`(?i)context is incorrect`)},
		{Kind: domain.KindPollFailed, Expr: regexp.MustCompile(`(?i)expected a view3d region`)},
	}
}

// Classifier tags execution attempts with an ErrorKind. It is stateless and
// safe for concurrent use once constructed.
type Classifier struct {
	patterns []Pattern
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPatterns replaces the default pattern table.
func WithPatterns(patterns ...Pattern) Option {
	return func(c *Classifier) {
		c.patterns = patterns
	}
}

// New builds a Classifier with the default Blender-shaped table unless
// overridden.
func New(opts ...Option) *Classifier {
	c := &Classifier{patterns: DefaultPatterns()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Protocol reports whether err belongs to the command protocol and therefore
// classifies onto a kind. Anything else (host unreachable, bridge broken) is
// not self-correctable and must abort the session instead of burning budget.
func Protocol(err error) bool {
	return errors.Is(err, domain.ErrBusy) ||
		errors.Is(err, domain.ErrExecutionTimeout) ||
		errors.Is(err, domain.ErrUnresolvedContext) ||
		errors.Is(err, domain.ErrCaptureFailed)
}

// Classify tags one attempt. Protocol errors win over the result; a failed
// result is matched against the pattern table, first hit wins; anything else
// that failed is a plain runtime error.
func (c *Classifier) Classify(res *domain.ExecutionResult, err error) domain.ErrorKind {
	switch {
	case errors.Is(err, domain.ErrBusy):
		return domain.KindBusy
	case errors.Is(err, domain.ErrExecutionTimeout):
		return domain.KindTimeout
	case errors.Is(err, domain.ErrUnresolvedContext):
		return domain.KindUnresolvedContext
	case errors.Is(err, domain.ErrCaptureFailed):
		return domain.KindCaptureFailed
	case err != nil:
		return domain.KindRuntimeError
	}

	if !res.Failed() {
		return domain.KindSuccess
	}
	for _, p := range c.patterns {
		if p.Expr.MatchString(res.ErrorTrace) {
			return p.Kind
		}
	}
	return domain.KindRuntimeError
}
