// Package scene provides a simulated execution surface: a tiny line-oriented
// scene interpreter standing in for the real host extension. It raises
// trace-shaped errors the way the host does, including poll failures for
// operations run outside their required mode, so the classifier and resolver
// paths are exercised end to end without a host installation.
package scene

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
)

type object struct {
	Type  string
	Color string
}

// Surface implements ports.Surface over an in-memory scene.
type Surface struct {
	mu        sync.Mutex
	objects   map[string]*object
	selection []string
	mode      string
	regions   []string
}

// Option configures the surface.
type Option func(*Surface)

// WithRegions replaces the default open regions.
func WithRegions(regions ...string) Option {
	return func(s *Surface) {
		s.regions = regions
	}
}

// WithCamera pre-populates a camera so renders work from the start.
func WithCamera() Option {
	return func(s *Surface) {
		s.objects["camera"] = &object{Type: "camera"}
	}
}

// New creates an empty scene in object mode with a 3D viewport open.
func New(opts ...Option) *Surface {
	s := &Surface{
		objects: make(map[string]*object),
		mode:    "OBJECT",
		regions: []string{"VIEW_3D"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute interprets the script line by line. Script errors come back in the
// result with a host-shaped trace; the error return is reserved for the
// surface itself being unusable, which cannot happen in memory.
func (s *Surface) Execute(ctx context.Context, body string, override *domain.ContextOverride) (*domain.ExecutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// An override pins the mode for the duration of the script, the way the
	// host applies a context override per operator call. Without one, a
	// script-issued mode switch takes effect for the following lines.
	pinnedMode := ""
	if override != nil {
		pinnedMode = override.Mode
	}

	var stdout strings.Builder
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.eval(line, pinnedMode, &stdout); err != nil {
			return &domain.ExecutionResult{
				Status:     domain.ResultFailure,
				Stdout:     stdout.String(),
				ErrorTrace: trace(line, err),
			}, nil
		}
	}
	return &domain.ExecutionResult{
		Status: domain.ResultSuccess,
		Stdout: stdout.String(),
	}, nil
}

func (s *Surface) eval(line, pinnedMode string, stdout *strings.Builder) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	mode := s.mode
	if pinnedMode != "" {
		mode = pinnedMode
	}

	switch cmd {
	case "add_object":
		// add_object <type> <name> [color]
		if len(args) < 2 {
			return fmt.Errorf("TypeError: add_object expects a type and a name")
		}
		name := args[1]
		if _, exists := s.objects[name]; exists {
			return fmt.Errorf("KeyError: object %q already exists", name)
		}
		obj := &object{Type: args[0]}
		if len(args) > 2 {
			obj.Color = args[2]
		}
		s.objects[name] = obj
		fmt.Fprintf(stdout, "added %s %q\n", obj.Type, name)
		return nil

	case "set_color":
		if len(args) != 2 {
			return fmt.Errorf("TypeError: set_color expects a name and a color")
		}
		obj, ok := s.objects[args[0]]
		if !ok {
			return fmt.Errorf("KeyError: no object named %q", args[0])
		}
		obj.Color = args[1]
		return nil

	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("TypeError: delete expects a name")
		}
		if _, ok := s.objects[args[0]]; !ok {
			return fmt.Errorf("KeyError: no object named %q", args[0])
		}
		delete(s.objects, args[0])
		s.selection = remove(s.selection, args[0])
		return nil

	case "select":
		if len(args) == 1 && args[0] == "none" {
			s.selection = nil
			return nil
		}
		for _, name := range args {
			if _, ok := s.objects[name]; !ok {
				return fmt.Errorf("KeyError: no object named %q", name)
			}
		}
		s.selection = append([]string(nil), args...)
		return nil

	case "mode":
		if len(args) != 1 {
			return fmt.Errorf("TypeError: mode expects a mode name")
		}
		s.mode = args[0]
		return nil

	case "extrude":
		// Mesh operator: legal only in edit mode with a selection, mirroring
		// the host's operator poll.
		if mode != "EDIT" {
			return fmt.Errorf("RuntimeError: Operator mesh.extrude_region.poll() failed, context is incorrect")
		}
		if len(s.selection) == 0 {
			return fmt.Errorf("RuntimeError: nothing selected to extrude")
		}
		fmt.Fprintf(stdout, "extruded %s\n", strings.Join(s.selection, ", "))
		return nil

	case "print":
		fmt.Fprintln(stdout, strings.Join(args, " "))
		return nil

	default:
		return fmt.Errorf("NameError: name %q is not defined", cmd)
	}
}

// RenderImage produces a deterministic PNG of the scene. The pixel pattern is
// derived from the object inventory, so two identical scenes render
// identically and a changed scene renders visibly differently.
func (s *Surface) RenderImage(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCamera() {
		return nil, fmt.Errorf("no camera found in scene: %w", domain.ErrCaptureFailed)
	}

	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)

	h := fnv.New32a()
	for _, name := range names {
		obj := s.objects[name]
		fmt.Fprintf(h, "%s:%s:%s;", name, obj.Type, obj.Color)
	}
	seed := h.Sum32()

	const size = 64
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := seed ^ uint32(x*31+y*17)
			img.Set(x, y, color.RGBA{
				R: uint8(v),
				G: uint8(v >> 8),
				B: uint8(v >> 16),
				A: 0xff,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render pipeline failed: %w", domain.ErrCaptureFailed)
	}
	return buf.Bytes(), nil
}

// Inspect reports the current host state for context resolution.
func (s *Surface) Inspect(ctx context.Context) (*domain.HostState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &domain.HostState{
		Regions:   append([]string(nil), s.regions...),
		Mode:      s.mode,
		Selection: append([]string(nil), s.selection...),
		HasCamera: s.hasCamera(),
		Objects:   len(s.objects),
	}, nil
}

func (s *Surface) hasCamera() bool {
	for _, obj := range s.objects {
		if obj.Type == "camera" {
			return true
		}
	}
	return false
}

func remove(list []string, item string) []string {
	out := list[:0]
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}

// trace shapes a script error the way the host reports one.
func trace(line string, err error) string {
	return fmt.Sprintf("Traceback (most recent call last):\n  File \"<script>\", line 1, in <module>\n    %s\n%s", line, err.Error())
}

var _ ports.Surface = (*Surface)(nil)
