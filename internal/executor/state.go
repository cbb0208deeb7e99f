// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// StateIdle indicates the trigger has not been activated yet.
	StateIdle TriggerState = iota
	// StateExecuting indicates a snippet run is in flight.
	StateExecuting
	// StateSucceeded indicates the last run settled without error.
	StateSucceeded
	// StateFailed indicates the last run failed at any step.
	StateFailed
)

// Status texts shown on the trigger's surface.
const (
	TextExecuting          = "Executing...⌛"
	TextSucceeded          = "Done! ✅"
	TextFailed             = "Error! ❌\nSee console for details..."
	TextSectionUnavailable = "Error! ❌\nCould not get code block info. Try to reopen the note..."
)

// ErrInvalidState is returned when a TriggerState value is not defined.
var ErrInvalidState = errors.New("invalid trigger state")

type (
	// TriggerState is the status of one trigger.
	TriggerState int32

	// InvalidStateError is returned when a TriggerState value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value TriggerState
	}

	// Trigger is the UI element a user activates to run one snippet. It owns
	// the trigger state and reports status through its surface. Exactly one
	// state is active at a time; a second activation while executing is not
	// rejected.
	Trigger struct {
		mu      sync.Mutex
		state   TriggerState
		surface StatusSurface
	}
)

// String returns a human-readable representation of the trigger state.
func (s TriggerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Validate returns nil if the state is defined, or an error wrapping
// ErrInvalidState if it is not.
func (s TriggerState) Validate() error {
	switch s {
	case StateIdle, StateExecuting, StateSucceeded, StateFailed:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsSettled returns true for Succeeded and Failed.
func (s TriggerState) IsSettled() bool {
	return s == StateSucceeded || s == StateFailed
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid trigger state %d (valid: 0=idle, 1=executing, 2=succeeded, 3=failed)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// NewTrigger returns an idle trigger reporting to surface. A nil surface
// discards status text.
func NewTrigger(surface StatusSurface) *Trigger {
	if surface == nil {
		surface = discardSurface{}
	}
	return &Trigger{surface: surface}
}

// State returns the current state.
func (t *Trigger) State() TriggerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Surface returns the status surface the trigger reports to.
func (t *Trigger) Surface() StatusSurface {
	return t.surface
}

func (t *Trigger) begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateExecuting
	t.surface.Clear()
	t.surface.SetText(TextExecuting)
}

func (t *Trigger) settle(state TriggerState, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.surface.SetText(text)
}

type discardSurface struct{}

func (discardSurface) SetText(string) {}
func (discardSurface) Clear()         {}
