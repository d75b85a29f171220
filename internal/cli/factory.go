package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/muesli/termenv"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/maquette"
	"github.com/aretw0/maquette/internal/adapters/file"
	"github.com/aretw0/maquette/internal/adapters/memory"
	redisadapter "github.com/aretw0/maquette/internal/adapters/redis"
	"github.com/aretw0/maquette/internal/logging"
	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/persistence/middleware"
	"github.com/aretw0/maquette/pkg/ports"
)

// createLogger configures the application logger. In debug mode it writes to
// stderr, keeping stdout for the session flow.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// buildAgent assembles an Agent from the CLI config: store selection, bridge
// channel and planner settings all funnel through here so run, sessions and
// mcp share one wiring path. The returned closer releases the transcript
// file, if any.
func buildAgent(cfg Config, logger *slog.Logger, extraOpts ...maquette.Option) (*maquette.Agent, io.Closer, error) {
	var closer io.Closer
	if cfg.TranscriptDir != "" {
		var err error
		logger, closer, err = logging.WithTranscript(logger, cfg.TranscriptDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open transcript: %w", err)
		}
	}

	store, locker, err := buildStore(cfg)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, err
	}

	opts := []maquette.Option{
		maquette.WithLogger(logger),
		maquette.WithStore(store),
	}
	if locker != nil {
		opts = append(opts, maquette.WithLocker(locker))
	}

	opts = append(opts, extraOpts...)

	agent, err := maquette.New(maquette.Config{
		BridgeURL:     cfg.BridgeURL,
		APIKey:        cfg.APIKey,
		Model:         cfg.Model,
		MaxRetryTurns: cfg.MaxTurns,
		CallTimeout:   time.Duration(cfg.Timeout),
	}, opts...)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, err
	}

	return agent, closer, nil
}

// buildStore selects the session archive from the config and layers the
// persistence middleware on top: redaction masks sensitive text first, then
// encryption seals what is left, so the archive never holds a readable copy
// of a redacted secret.
func buildStore(cfg Config) (ports.SessionStore, ports.DistributedLocker, error) {
	store, locker, err := baseStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.EncryptionKey != "" {
		encCfg, err := decodeEncryptionConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		store = middleware.NewEncryptionMiddleware(encCfg)(store)
	}
	if len(cfg.RedactPatterns) > 0 {
		for _, p := range cfg.RedactPatterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
			}
		}
		store = middleware.NewRedactionMiddleware(cfg.RedactPatterns)(store)
	}

	return store, locker, nil
}

// decodeEncryptionConfig turns the hex-encoded config keys into middleware
// key material.
func decodeEncryptionConfig(cfg Config) (middleware.EncryptionConfig, error) {
	active, err := decodeKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("invalid encryption_key: %w", err)
	}
	fallbacks := make([][]byte, 0, len(cfg.FallbackEncryptionKeys))
	for i, raw := range cfg.FallbackEncryptionKeys {
		key, err := decodeKey(raw)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("invalid fallback_encryption_keys[%d]: %w", i, err)
		}
		fallbacks = append(fallbacks, key)
	}
	return middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallbacks}, nil
}

func decodeKey(raw string) ([]byte, error) {
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 64 hex characters (AES-256), got %d", len(raw))
	}
	return key, nil
}

// baseStore picks the backing archive: Redis when a URL is given, files when
// a state directory is, memory otherwise. Redis also brings a distributed
// locker.
func baseStore(cfg Config) (ports.SessionStore, ports.DistributedLocker, error) {
	switch {
	case cfg.RedisURL != "":
		redisOpts, err := backend.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		client := backend.NewClient(redisOpts)
		return redisadapter.NewFromClient(client), redisadapter.NewLocker(client, "maquette"), nil
	case cfg.StateDir != "":
		return file.New(cfg.StateDir), nil, nil
	default:
		return memory.NewStore(), nil, nil
	}
}

// progressHooks prints one line per turn so the user can follow the loop
// while it runs.
func progressHooks(out io.Writer) domain.LifecycleHooks {
	p := termenv.ColorProfile()
	paint := func(kind domain.ErrorKind) termenv.Style {
		s := termenv.String(string(kind))
		switch kind {
		case domain.KindSuccess:
			return s.Foreground(p.Color("#4ade80"))
		case domain.KindBusy, domain.KindBudgetExhausted:
			return s.Foreground(p.Color("#f87171"))
		default:
			return s.Foreground(p.Color("#facc15"))
		}
	}

	return domain.LifecycleHooks{
		OnTurnStart: func(_ context.Context, e *domain.TurnEvent) {
			if e.Category != "" {
				fmt.Fprintf(out, ">>> turn %d (%s)...\n", e.Seq, e.Category)
				return
			}
			fmt.Fprintf(out, ">>> turn %d...\n", e.Seq)
		},
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			fmt.Fprintf(out, ">>> turn %d: %s (%s)\n", e.Seq, paint(e.Kind), e.Duration.Round(time.Millisecond))
		},
		OnObservation: func(_ context.Context, e *domain.ObservationEvent) {
			fmt.Fprintf(out, ">>> pulled %s observation (%d bytes)\n", e.Kind, e.Size)
		},
	}
}
