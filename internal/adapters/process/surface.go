// Package process provides an execution surface backed by a local host
// binary run in batch mode (e.g. an application's headless CLI). Each script
// is piped to a fresh process on stdin; the context override travels as
// environment variables so the wrapper script inside the host can apply it.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
)

// Surface implements ports.Surface over a host binary.
type Surface struct {
	command    string
	args       []string
	renderArgs []string // When set, RenderImage runs command with these args and reads PNG bytes from stdout
	inspectCmd []string // When set, Inspect runs this and decodes a HostState JSON from stdout
	baseDir    string
	env        map[string]string
}

// Option configures the surface.
type Option func(*Surface)

// WithArgs sets the default arguments for script execution.
func WithArgs(args ...string) Option {
	return func(s *Surface) {
		s.args = args
	}
}

// WithRenderArgs enables RenderImage through a dedicated argument set.
func WithRenderArgs(args ...string) Option {
	return func(s *Surface) {
		s.renderArgs = args
	}
}

// WithInspectCommand enables Inspect through a dedicated command line.
func WithInspectCommand(command string, args ...string) Option {
	return func(s *Surface) {
		s.inspectCmd = append([]string{command}, args...)
	}
}

// WithBaseDir sets the working directory for the host process.
func WithBaseDir(dir string) Option {
	return func(s *Surface) {
		s.baseDir = dir
	}
}

// WithEnv adds environment variables for every invocation.
func WithEnv(env map[string]string) Option {
	return func(s *Surface) {
		s.env = env
	}
}

// New creates a process surface around a host command.
func New(command string, opts ...Option) *Surface {
	s := &Surface{command: command}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the script through the host binary. A nonzero exit is a
// script failure with stderr as the trace; only a spawn problem is a surface
// error.
func (s *Surface) Execute(ctx context.Context, body string, override *domain.ContextOverride) (*domain.ExecutionResult, error) {
	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Dir = s.baseDir
	cmd.Stdin = strings.NewReader(body)
	cmd.Env = append(cmd.Environ(), s.overrideEnv(override)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run host command %q: %w", s.command, err)
		}
		trace := strings.TrimSpace(stderr.String())
		if trace == "" {
			trace = err.Error()
		}
		return &domain.ExecutionResult{
			Status:     domain.ResultFailure,
			Stdout:     stdout.String(),
			ErrorTrace: trace,
		}, nil
	}

	return &domain.ExecutionResult{
		Status: domain.ResultSuccess,
		Stdout: stdout.String(),
	}, nil
}

// RenderImage runs the render invocation and returns its stdout as PNG bytes.
func (s *Surface) RenderImage(ctx context.Context) ([]byte, error) {
	if len(s.renderArgs) == 0 {
		return nil, fmt.Errorf("surface has no render command configured: %w", domain.ErrCaptureFailed)
	}

	cmd := exec.CommandContext(ctx, s.command, s.renderArgs...)
	cmd.Dir = s.baseDir
	cmd.Env = append(cmd.Environ(), s.overrideEnv(nil)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("render failed: %s: %w", strings.TrimSpace(stderr.String()), domain.ErrCaptureFailed)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("render produced no output: %w", domain.ErrCaptureFailed)
	}
	return stdout.Bytes(), nil
}

// Inspect reports the host state. Without an inspect command the surface
// claims a default object-mode viewport, which keeps known categories
// resolvable in batch mode.
func (s *Surface) Inspect(ctx context.Context) (*domain.HostState, error) {
	if len(s.inspectCmd) == 0 {
		return &domain.HostState{Regions: []string{"VIEW_3D"}, Mode: "OBJECT"}, nil
	}

	cmd := exec.CommandContext(ctx, s.inspectCmd[0], s.inspectCmd[1:]...)
	cmd.Dir = s.baseDir

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to inspect host state: %w", err)
	}

	var state domain.HostState
	if err := json.Unmarshal(stdout.Bytes(), &state); err != nil {
		return nil, fmt.Errorf("failed to decode host state: %w", err)
	}
	return &state, nil
}

func (s *Surface) overrideEnv(override *domain.ContextOverride) []string {
	env := make([]string, 0, len(s.env)+3)
	for k, v := range s.env {
		env = append(env, k+"="+v)
	}
	if override == nil {
		return env
	}
	if override.Region != "" {
		env = append(env, "MAQUETTE_REGION="+override.Region)
	}
	if override.Mode != "" {
		env = append(env, "MAQUETTE_MODE="+override.Mode)
	}
	if len(override.Selection) > 0 {
		env = append(env, "MAQUETTE_SELECTION="+strings.Join(override.Selection, ","))
	}
	return env
}

var _ ports.Surface = (*Surface)(nil)
