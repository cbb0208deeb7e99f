// SPDX-License-Identifier: MPL-2.0

// Package jsvm loads artifacts as CommonJS modules inside goja.
//
// Every Load builds a fresh runtime, require registry and event loop, so
// modules loaded for one run are never visible to another and are released
// when the module is closed.
package jsvm

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/codebutton/codebutton/internal/executor"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/buffer"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/process"
	"github.com/dop251/goja_nodejs/require"
	"github.com/spf13/afero"
)

// ErrNoEntryPoint is returned when a loaded module has no callable default
// export.
var ErrNoEntryPoint = errors.New("module has no default export function")

type (
	// Loader implements executor.ModuleLoader on goja.
	Loader struct {
		fs            afero.Fs
		globalFolders []string
		console       *log.Logger
	}

	// Option configures a Loader.
	Option func(*Loader)

	// Module is a loaded artifact. It keeps its event loop running until
	// Close.
	Module struct {
		loop  *eventloop.EventLoop
		vm    *goja.Runtime
		entry goja.Callable
	}
)

// WithGlobalFolders adds folders searched by require() for bare module
// names, after node_modules lookups.
func WithGlobalFolders(dirs ...string) Option {
	return func(l *Loader) {
		for _, d := range dirs {
			if d != "" {
				l.globalFolders = append(l.globalFolders, d)
			}
		}
	}
}

// WithConsole routes console.* output of snippets to logger.
func WithConsole(logger *log.Logger) Option {
	return func(l *Loader) {
		l.console = logger
	}
}

// NewLoader returns a Loader that reads module sources from fsys.
func NewLoader(fsys afero.Fs, opts ...Option) *Loader {
	l := &Loader{fs: fsys}
	for _, opt := range opts {
		opt(l)
	}
	if l.console == nil {
		l.console = log.NewWithOptions(os.Stderr, log.Options{Prefix: "snippet"})
	}
	return l
}

// Load requires absPath in a new runtime and returns its default export.
func (l *Loader) Load(ctx context.Context, absPath string) (executor.Module, error) {
	registry := require.NewRegistry(
		require.WithLoader(l.readSource),
		require.WithGlobalFolders(l.globalFolders...),
	)
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(&console.StdPrinter{
		StdoutPrint: func(s string) { l.console.Print(s) },
		StderrPrint: func(s string) { l.console.Warn(s) },
	}))

	loop := eventloop.NewEventLoop(eventloop.WithRegistry(registry))
	loop.Start()

	type loaded struct {
		vm    *goja.Runtime
		entry goja.Callable
		err   error
	}
	var (
		done    = make(chan loaded, 1)
		running atomic.Pointer[goja.Runtime]
	)
	loop.RunOnLoop(func(vm *goja.Runtime) {
		running.Store(vm)
		process.Enable(vm)
		buffer.Enable(vm)

		entry, err := requireEntry(vm, absPath)
		done <- loaded{vm: vm, entry: entry, err: err}
	})

	select {
	case r := <-done:
		if r.err != nil {
			loop.StopNoWait()
			return nil, r.err
		}
		return &Module{loop: loop, vm: r.vm, entry: r.entry}, nil
	case <-ctx.Done():
		if vm := running.Load(); vm != nil {
			vm.Interrupt(ctx.Err())
		}
		loop.StopNoWait()
		return nil, ctx.Err()
	}
}

// readSource serves module sources to the require registry. Missing files
// and directories both report require.ModuleFileDoesNotExistError so that the
// registry falls through to its next candidate path.
func (l *Loader) readSource(path string) ([]byte, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, require.ModuleFileDoesNotExistError
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, require.ModuleFileDoesNotExistError
	}
	return afero.ReadFile(l.fs, path)
}

func requireEntry(vm *goja.Runtime, absPath string) (goja.Callable, error) {
	requireFn, ok := goja.AssertFunction(vm.Get("require"))
	if !ok {
		return nil, errors.New("require is not available in the runtime")
	}
	exports, err := requireFn(goja.Undefined(), vm.ToValue(absPath))
	if err != nil {
		return nil, toScriptError(err)
	}
	if isNullish(exports) {
		return nil, ErrNoEntryPoint
	}
	entry, ok := goja.AssertFunction(exports.ToObject(vm).Get("default"))
	if !ok {
		return nil, ErrNoEntryPoint
	}
	return entry, nil
}

// Invoke calls the default export and waits for the returned promise. When
// ctx ends first the runtime is interrupted and ctx.Err() is returned.
func (m *Module) Invoke(ctx context.Context) error {
	settled := make(chan error, 1)
	settle := func(err error) {
		select {
		case settled <- err:
		default:
		}
	}

	m.loop.RunOnLoop(func(vm *goja.Runtime) {
		ret, err := m.entry(goja.Undefined())
		if err != nil {
			settle(toScriptError(err))
			return
		}

		promise, ok := ret.Export().(*goja.Promise)
		if !ok {
			settle(nil)
			return
		}
		switch promise.State() {
		case goja.PromiseStateFulfilled:
			settle(nil)
			return
		case goja.PromiseStateRejected:
			settle(fromValue(promise.Result()))
			return
		}

		then, ok := goja.AssertFunction(ret.ToObject(vm).Get("then"))
		if !ok {
			settle(errors.New("entry point returned a promise without then"))
			return
		}
		onFulfilled := vm.ToValue(func(goja.FunctionCall) goja.Value {
			settle(nil)
			return goja.Undefined()
		})
		onRejected := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			settle(fromValue(call.Argument(0)))
			return goja.Undefined()
		})
		if _, err := then(ret, onFulfilled, onRejected); err != nil {
			settle(toScriptError(err))
		}
	})

	select {
	case err := <-settled:
		return err
	case <-ctx.Done():
		m.vm.Interrupt(ctx.Err())
		return ctx.Err()
	}
}

// Close stops the module's event loop without waiting for pending timers.
func (m *Module) Close() error {
	m.loop.StopNoWait()
	return nil
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}
