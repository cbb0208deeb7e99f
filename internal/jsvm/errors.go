// SPDX-License-Identifier: MPL-2.0

package jsvm

import (
	"errors"

	"github.com/dop251/goja"
)

// ScriptError is a value thrown or rejected by snippet code, converted to Go.
// Stack holds the JavaScript stack trace when the value was an Error object;
// its positions are resolved through the artifact's source map.
type ScriptError struct {
	Name    string
	Message string
	Stack   string
	// Value is the exported thrown value for non-Error throws.
	Value any
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

func toScriptError(err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		se := fromValue(exc.Value())
		if se.Stack == "" {
			se.Stack = exc.String()
		}
		return se
	}
	return err
}

func fromValue(v goja.Value) *ScriptError {
	if isNullish(v) {
		return &ScriptError{Message: "snippet rejected with " + valueString(v)}
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return &ScriptError{Message: v.String(), Value: v.Export()}
	}

	se := &ScriptError{Message: obj.String(), Value: obj.Export()}
	if msg := obj.Get("message"); !isNullish(msg) {
		se.Message = msg.String()
		se.Value = nil
		if name := obj.Get("name"); !isNullish(name) {
			se.Name = name.String()
		}
	}
	if stack := obj.Get("stack"); !isNullish(stack) {
		se.Stack = stack.String()
	}
	return se
}

func valueString(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}
