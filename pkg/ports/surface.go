package ports

import (
	"context"

	"github.com/aretw0/maquette/pkg/domain"
)

// Surface is the execution surface inside the host application. The bridge
// server drives exactly one Surface and serializes access to it; Surface
// implementations may assume single-threaded use.
type Surface interface {
	// Execute runs a script body under the given context override. A script
	// error is reported in the result, not as a Go error; the error return is
	// reserved for the surface itself being broken.
	Execute(ctx context.Context, body string, override *domain.ContextOverride) (*domain.ExecutionResult, error)

	// RenderImage produces a PNG snapshot of the current viewport. Returns
	// domain.ErrCaptureFailed (wrapped with the reason) when no image can be
	// produced, for example when the scene has no camera.
	RenderImage(ctx context.Context) ([]byte, error)

	// Inspect reports the current host UI state for context resolution.
	Inspect(ctx context.Context) (*domain.HostState, error)
}
