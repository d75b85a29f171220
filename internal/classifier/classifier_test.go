package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassifyResults(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		res  *domain.ExecutionResult
		err  error
		want domain.ErrorKind
	}{
		{
			name: "Success",
			res:  &domain.ExecutionResult{Status: domain.ResultSuccess, Stdout: "ok"},
			want: domain.KindSuccess,
		},
		{
			name: "Nil Result No Error",
			res:  nil,
			want: domain.KindSuccess,
		},
		{
			name: "Poll Failure",
			res: &domain.ExecutionResult{
				Status:     domain.ResultFailure,
				ErrorTrace: "RuntimeError: Operator bpy.ops.mesh.subdivide.poll() failed, context is incorrect",
			},
			want: domain.KindPollFailed,
		},
		{
			name: "Poll Failure Case Insensitive",
			res: &domain.ExecutionResult{
				Status:     domain.ResultFailure,
				ErrorTrace: "Error: POLL() FAILED",
			},
			want: domain.KindPollFailed,
		},
		{
			name: "Plain Traceback",
			res: &domain.ExecutionResult{
				Status:     domain.ResultFailure,
				ErrorTrace: "Traceback (most recent call last):\n  File \"<string>\", line 2\nNameError: name 'cube' is not defined",
			},
			want: domain.KindRuntimeError,
		},
		{
			name: "Failure With Empty Trace",
			res:  &domain.ExecutionResult{Status: domain.ResultFailure},
			want: domain.KindRuntimeError,
		},
		{
			name: "Busy",
			err:  domain.ErrBusy,
			want: domain.KindBusy,
		},
		{
			name: "Wrapped Timeout",
			err:  fmt.Errorf("execute: %w", domain.ErrExecutionTimeout),
			want: domain.KindTimeout,
		},
		{
			name: "Unresolved Context",
			err:  domain.ErrUnresolvedContext,
			want: domain.KindUnresolvedContext,
		},
		{
			name: "Capture Failed",
			err:  fmt.Errorf("observation: %w", domain.ErrCaptureFailed),
			want: domain.KindCaptureFailed,
		},
		{
			name: "Unknown Error Falls Back To Runtime",
			err:  errors.New("weird state"),
			want: domain.KindRuntimeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.res, tt.err))
		})
	}
}

func TestClassifyCustomPatterns(t *testing.T) {
	c := New(WithPatterns(Pattern{
		Kind: domain.KindCaptureFailed,
		Expr: regexp.MustCompile(`no camera`),
	}))

	res := &domain.ExecutionResult{Status: domain.ResultFailure, ErrorTrace: "no camera in scene"}
	assert.Equal(t, domain.KindCaptureFailed, c.Classify(res, nil))

	// Default poll table was replaced, so poll failures degrade to runtime errors.
	res = &domain.ExecutionResult{Status: domain.ResultFailure, ErrorTrace: "poll() failed"}
	assert.Equal(t, domain.KindRuntimeError, c.Classify(res, nil))
}

func TestProtocol(t *testing.T) {
	assert.True(t, Protocol(domain.ErrBusy))
	assert.True(t, Protocol(fmt.Errorf("wrap: %w", domain.ErrExecutionTimeout)))
	assert.True(t, Protocol(domain.ErrUnresolvedContext))
	assert.True(t, Protocol(domain.ErrCaptureFailed))
	assert.False(t, Protocol(errors.New("connection refused")))
	assert.False(t, Protocol(nil))
}
