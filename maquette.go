package maquette

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/maquette/internal/adapters/bridge"
	"github.com/aretw0/maquette/internal/adapters/gemini"
	"github.com/aretw0/maquette/internal/adapters/memory"
	"github.com/aretw0/maquette/internal/logging"
	"github.com/aretw0/maquette/internal/runtime"
	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
	"github.com/aretw0/maquette/pkg/session"
)

// Version identifies the running build.
const Version = "0.4.0"

// Config holds the settings for the default planner and channel. All fields
// have working defaults except APIKey, which the Gemini planner requires.
type Config struct {
	// BridgeURL points at the host bridge. Defaults to the local bridge port.
	BridgeURL string

	// APIKey authenticates against the Gemini API.
	APIKey string

	// Model selects the Gemini model. Defaults to gemini.DefaultModel.
	Model string

	// MaxRetryTurns bounds the correction loop. Zero means the default budget.
	MaxRetryTurns int

	// CallTimeout bounds each planner and bridge call. Zero means the
	// adapters' own defaults.
	CallTimeout time.Duration
}

// Agent is the high-level entry point for the maquette library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Agent struct {
	planner ports.Planner
	channel ports.CommandChannel
	store   ports.SessionStore
	locker  ports.DistributedLocker
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	budget  domain.RetryBudget

	manager *session.Manager
	cfg     Config
}

// Option defines a functional option for configuring the Agent.
type Option func(*Agent)

// WithPlanner injects a custom planner, bypassing the default Gemini client.
func WithPlanner(p ports.Planner) Option {
	return func(a *Agent) {
		a.planner = p
	}
}

// WithChannel injects a custom command channel, bypassing the default bridge
// client. Useful for embedding the agent next to an in-process surface.
func WithChannel(c ports.CommandChannel) Option {
	return func(a *Agent) {
		a.channel = c
	}
}

// WithStore selects the session archive. Defaults to in-memory.
func WithStore(s ports.SessionStore) Option {
	return func(a *Agent) {
		a.store = s
	}
}

// WithLocker enables distributed session locking across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *Agent) {
		a.locker = l
	}
}

// WithLogger sets a custom structured logger for the agent.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// WithMaxTurns overrides the retry budget for new sessions.
func WithMaxTurns(n int) Option {
	return func(a *Agent) {
		a.budget = domain.RetryBudget(n)
	}
}

// New initializes an Agent. By default it plans with Gemini and executes
// through the HTTP bridge; WithPlanner and WithChannel swap either out.
func New(cfg Config, opts ...Option) (*Agent, error) {
	a := &Agent{cfg: cfg}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logging.NewNop()
	}

	if a.planner == nil {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("an API key is required when no custom planner is provided")
		}
		plannerOpts := []gemini.Option{}
		if cfg.Model != "" {
			plannerOpts = append(plannerOpts, gemini.WithModel(cfg.Model))
		}
		if cfg.CallTimeout > 0 {
			plannerOpts = append(plannerOpts, gemini.WithTimeout(cfg.CallTimeout))
		}
		a.planner = gemini.New(cfg.APIKey, plannerOpts...)
	}

	if a.channel == nil {
		baseURL := cfg.BridgeURL
		if baseURL == "" {
			baseURL = bridge.DefaultBaseURL
		}
		bridgeOpts := []bridge.Option{}
		if cfg.CallTimeout > 0 {
			bridgeOpts = append(bridgeOpts, bridge.WithTimeout(cfg.CallTimeout))
		}
		a.channel = bridge.New(baseURL, bridgeOpts...)
	}

	if a.store == nil {
		a.store = memory.NewStore()
	}

	if a.budget == 0 && cfg.MaxRetryTurns > 0 {
		a.budget = domain.RetryBudget(cfg.MaxRetryTurns)
	}

	managerOpts := []session.Option{session.WithLogger(a.logger)}
	if a.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(a.locker))
	}
	a.manager = session.NewManager(a.store, managerOpts...)

	return a, nil
}

// Run opens a fresh session for the instruction and drives it to a terminal
// status. The session is returned even when it failed; a non-nil error means
// the loop aborted outside the protocol and the session may still be open.
func (a *Agent) Run(ctx context.Context, instruction string) (*domain.Session, error) {
	if instruction == "" {
		return nil, fmt.Errorf("instruction must not be empty")
	}

	id := uuid.NewString()
	sess, err := a.manager.Start(ctx, id, instruction)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	if a.budget > 0 {
		sess.Budget = a.budget
	}

	engineOpts := []runtime.Option{
		runtime.WithLogger(a.logger),
		runtime.WithLifecycleHooks(a.hooks),
		runtime.WithPersist(a.manager.Save),
	}
	if a.budget > 0 {
		engineOpts = append(engineOpts, runtime.WithBudget(a.budget))
	}

	engine := runtime.NewEngine(a.planner, a.channel, engineOpts...)

	// Persisting goes through the manager, which serializes access per
	// session. The run itself holds no lock: the session is fresh and owned
	// by this caller until Run returns.
	return sess, engine.Run(ctx, sess)
}

// Session loads one archived session with its full turn history.
func (a *Agent) Session(ctx context.Context, id string) (*domain.Session, error) {
	return a.manager.Load(ctx, id)
}

// Sessions lists the identifiers of all stored sessions.
func (a *Agent) Sessions(ctx context.Context) ([]string, error) {
	return a.manager.List(ctx)
}

// Delete removes one session from the archive.
func (a *Agent) Delete(ctx context.Context, id string) error {
	return a.manager.Delete(ctx, id)
}
