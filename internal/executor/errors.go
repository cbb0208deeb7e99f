// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codebutton/codebutton/internal/transform"
)

const (
	// PhaseLoad is the module load phase of an invocation.
	PhaseLoad Phase = "load"
	// PhaseInvoke is the entry point call phase of an invocation.
	PhaseInvoke Phase = "invoke"
)

var (
	// ErrTransform matches errors from the transform pipeline.
	ErrTransform = transform.ErrTransform
	// ErrMaterialization is the sentinel for *MaterializationError.
	ErrMaterialization = errors.New("artifact could not be written")
	// ErrInvocation is the sentinel for *InvocationError.
	ErrInvocation = errors.New("snippet failed")
	// ErrCleanup is the sentinel for *CleanupError.
	ErrCleanup = errors.New("artifact could not be removed")
	// ErrTimeout is the sentinel for *TimeoutError.
	ErrTimeout = errors.New("snippet did not settle in time")
)

type (
	// Phase names the part of an invocation that failed.
	Phase string

	// MaterializationError reports an artifact that could not be written.
	// No load or invoke is attempted after it.
	MaterializationError struct {
		Path string
		Err  error
	}

	// InvocationError wraps what the snippet threw or rejected with, or the
	// error raised while loading its artifact.
	InvocationError struct {
		Path  string
		Phase Phase
		Err   error
	}

	// CleanupError reports an artifact that could not be removed after the
	// run settled. It is logged and never changes the trigger outcome.
	CleanupError struct {
		Path string
		Err  error
	}

	// TimeoutError reports a run abandoned because its deadline passed or its
	// context was canceled.
	TimeoutError struct {
		Timeout time.Duration
		Err     error
	}
)

// Error implements the error interface.
func (e *MaterializationError) Error() string {
	return fmt.Sprintf("materialize %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *MaterializationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMaterialization.
func (e *MaterializationError) Is(target error) bool { return target == ErrMaterialization }

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Path, e.Err)
}

// Unwrap returns the snippet's error.
func (e *InvocationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvocation.
func (e *InvocationError) Is(target error) bool { return target == ErrInvocation }

// Error implements the error interface.
func (e *CleanupError) Error() string {
	return fmt.Sprintf("clean up %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *CleanupError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCleanup.
func (e *CleanupError) Is(target error) bool { return target == ErrCleanup }

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if errors.Is(e.Err, context.DeadlineExceeded) && e.Timeout > 0 {
		return fmt.Sprintf("snippet did not settle within %s", e.Timeout)
	}
	return fmt.Sprintf("snippet abandoned: %v", e.Err)
}

// Unwrap returns the context error.
func (e *TimeoutError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
