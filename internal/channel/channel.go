// Package channel implements the command channel over a local execution
// surface: the three pull verbs (execute, fetch-observation, fetch-log), the
// single-flight gate that serializes host mutation, and the execute timeout.
// The HTTP bridge server exposes an instance of this channel; the bridge
// client speaks the same interface remotely.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/maquette/internal/logging"
	"github.com/aretw0/maquette/internal/resolver"
	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
)

// DefaultTimeout bounds how long Execute waits for the surface.
const DefaultTimeout = 30 * time.Second

// Channel implements ports.CommandChannel against a ports.Surface.
type Channel struct {
	surface  ports.Surface
	resolver *resolver.Resolver
	timeout  time.Duration
	logger   *slog.Logger

	// busy is the single-flight gate. It is held from the moment a script is
	// handed to the surface until the surface returns, even when the caller
	// has already given up waiting: the host cannot be interrupted, so a
	// timed-out script still occupies it.
	busy atomic.Bool

	logMu   sync.Mutex
	lastLog string
}

// Option configures a Channel.
type Option func(*Channel)

// WithTimeout overrides the execute wait ceiling.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Channel) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithResolver replaces the default context resolver.
func WithResolver(r *resolver.Resolver) Option {
	return func(c *Channel) {
		c.resolver = r
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// New builds a channel around a surface.
func New(surface ports.Surface, opts ...Option) *Channel {
	c := &Channel{
		surface:  surface,
		resolver: resolver.NewDefault(),
		timeout:  DefaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type surfaceVerdict struct {
	result *domain.ExecutionResult
	err    error
}

// Execute resolves the script's context, submits it to the surface, and waits
// up to the timeout for a verdict. A second call while one is in flight fails
// immediately with domain.ErrBusy. On timeout the caller gets
// domain.ErrExecutionTimeout and the late verdict is recorded in the log
// buffer and discarded; the gate is released only when the surface comes back.
func (c *Channel) Execute(ctx context.Context, script domain.Script) (*domain.ExecutionResult, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, domain.ErrBusy
	}

	override, err := c.resolveContext(ctx, script.Category)
	if err != nil {
		c.busy.Store(false)
		return nil, err
	}

	verdicts := make(chan surfaceVerdict, 1)
	started := time.Now()
	go func() {
		// Deliberately not the caller's ctx: a timed-out caller stops
		// waiting, the surface does not stop running.
		res, err := c.surface.Execute(context.Background(), script.Body, override)
		if res != nil {
			res.Duration = time.Since(started)
			c.recordLog(res)
		}
		c.busy.Store(false)
		verdicts <- surfaceVerdict{result: res, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case v := <-verdicts:
		if v.err != nil {
			return nil, fmt.Errorf("execution surface failed: %w", v.err)
		}
		return v.result, nil
	case <-timer.C:
		c.logger.Warn("execute exceeded wait window, abandoning wait",
			"timeout", c.timeout,
			"category", script.Category,
		)
		return nil, domain.ErrExecutionTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FetchObservation pulls a rendered image or the buffered log of the last
// execution. Capture problems surface as domain.ErrCaptureFailed, never as a
// blank observation.
func (c *Channel) FetchObservation(ctx context.Context, kind domain.ObservationKind) (*domain.Observation, error) {
	switch kind {
	case domain.ObservationImage:
		img, err := c.surface.RenderImage(ctx)
		if err != nil {
			return nil, err
		}
		if len(img) == 0 {
			return nil, fmt.Errorf("render produced no image data: %w", domain.ErrCaptureFailed)
		}
		return &domain.Observation{
			Kind:       domain.ObservationImage,
			Image:      img,
			CapturedAt: time.Now().UTC(),
		}, nil
	case domain.ObservationLog:
		text, err := c.FetchLog(ctx)
		if err != nil {
			return nil, err
		}
		return &domain.Observation{
			Kind:       domain.ObservationLog,
			Text:       text,
			CapturedAt: time.Now().UTC(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown observation kind %q: %w", kind, domain.ErrCaptureFailed)
	}
}

// FetchLog returns the buffered diagnostic text of the last execution. An
// empty string means the last script printed nothing, which is a valid
// answer, not a failure.
func (c *Channel) FetchLog(ctx context.Context) (string, error) {
	c.logMu.Lock()
	defer c.logMu.Unlock()
	return c.lastLog, nil
}

func (c *Channel) resolveContext(ctx context.Context, category string) (*domain.ContextOverride, error) {
	if category == "" {
		return nil, nil
	}
	state, err := c.surface.Inspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect host state: %w", err)
	}
	return c.resolver.Resolve(category, state)
}

func (c *Channel) recordLog(res *domain.ExecutionResult) {
	c.logMu.Lock()
	defer c.logMu.Unlock()
	c.lastLog = res.Stdout
	if res.ErrorTrace != "" {
		if c.lastLog != "" {
			c.lastLog += "\n"
		}
		c.lastLog += res.ErrorTrace
	}
}

var _ ports.CommandChannel = (*Channel)(nil)
