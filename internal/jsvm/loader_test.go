// SPDX-License-Identifier: MPL-2.0

package jsvm

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/codebutton/codebutton/internal/artifact"
	"github.com/codebutton/codebutton/internal/executor"
	"github.com/codebutton/codebutton/internal/testutil"
	"github.com/codebutton/codebutton/internal/transform"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

const workDir = "/work"

type collectingDiagnostics struct {
	mu   sync.Mutex
	errs []error
}

func (d *collectingDiagnostics) Report(err error, _ string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, err)
}

func (d *collectingDiagnostics) Errors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.errs...)
}

func newTestLoader(t *testing.T, files map[string]string) (*Loader, afero.Fs) {
	t.Helper()

	fsys := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fsys, path, []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile(%s): %v", path, err)
		}
	}
	return NewLoader(fsys, WithConsole(log.New(io.Discard))), fsys
}

func loadAndInvoke(t *testing.T, ctx context.Context, loader *Loader, path string) error {
	t.Helper()

	mod, err := loader.Load(ctx, path)
	if err != nil {
		return err
	}
	defer testutil.MustClose(t, mod)
	return mod.Invoke(ctx)
}

func TestLoaderInvoke(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  string
		wantErr bool
		wantMsg string
	}{
		{
			name:   "async resolves",
			source: "module.exports.default = async function () { return 1; };\n",
		},
		{
			name:   "sync function",
			source: "module.exports.default = function () { return 'done'; };\n",
		},
		{
			name:   "settles after timer",
			source: "module.exports.default = function () {\n  return new Promise(function (resolve) { setTimeout(resolve, 5); });\n};\n",
		},
		{
			name:    "async throws",
			source:  "module.exports.default = async function () { throw new Error('boom'); };\n",
			wantErr: true,
			wantMsg: "boom",
		},
		{
			name:    "sync throws",
			source:  "module.exports.default = function () { throw new TypeError('nope'); };\n",
			wantErr: true,
			wantMsg: "nope",
		},
		{
			name:    "rejects after timer",
			source:  "module.exports.default = function () {\n  return new Promise(function (_, reject) { setTimeout(function () { reject(new Error('late')); }, 5); });\n};\n",
			wantErr: true,
			wantMsg: "late",
		},
		{
			name:    "throws a string",
			source:  "module.exports.default = async function () { throw 'plain'; };\n",
			wantErr: true,
			wantMsg: "plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := workDir + "/entry.js"
			loader, _ := newTestLoader(t, map[string]string{path: tt.source})

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			err := loadAndInvoke(t, ctx, loader, path)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Invoke() = %v, want nil", err)
				}
				return
			}

			var scriptErr *ScriptError
			if !errors.As(err, &scriptErr) {
				t.Fatalf("Invoke() = %v (%T), want *ScriptError", err, err)
			}
			if scriptErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", scriptErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestLoaderErrorName(t *testing.T) {
	t.Parallel()

	path := workDir + "/entry.js"
	loader, _ := newTestLoader(t, map[string]string{
		path: "module.exports.default = async function () { throw new RangeError('out of range'); };\n",
	})

	err := loadAndInvoke(t, t.Context(), loader, path)
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("Invoke() = %v, want *ScriptError", err)
	}
	if scriptErr.Name != "RangeError" {
		t.Errorf("Name = %q, want %q", scriptErr.Name, "RangeError")
	}
	if got, want := scriptErr.Error(), "RangeError: out of range"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLoaderDeadline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
	}{
		{
			name:   "promise never settles",
			source: "module.exports.default = function () { return new Promise(function () {}); };\n",
		},
		{
			name:   "busy loop",
			source: "module.exports.default = async function () { for (;;) {} };\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := workDir + "/entry.js"
			loader, _ := newTestLoader(t, map[string]string{path: tt.source})

			ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
			defer cancel()

			err := loadAndInvoke(t, ctx, loader, path)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("Invoke() = %v, want context.DeadlineExceeded", err)
			}
		})
	}
}

func TestLoaderLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		source    string
		wantEntry bool
	}{
		{
			name:      "no default export",
			source:    "module.exports.other = function () {};\n",
			wantEntry: true,
		},
		{
			name:      "default is not a function",
			source:    "module.exports.default = 42;\n",
			wantEntry: true,
		},
		{
			name:   "top level throw",
			source: "throw new Error('at load');\n",
		},
		{
			name:   "syntax error",
			source: "module.exports.default = function ( {\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := workDir + "/entry.js"
			loader, _ := newTestLoader(t, map[string]string{path: tt.source})

			mod, err := loader.Load(t.Context(), path)
			if err == nil {
				_ = mod.Close()
				t.Fatal("Load() = nil error, want failure")
			}
			if got := errors.Is(err, ErrNoEntryPoint); got != tt.wantEntry {
				t.Errorf("errors.Is(err, ErrNoEntryPoint) = %v, want %v (err: %v)", got, tt.wantEntry, err)
			}
		})
	}
}

func TestLoaderMissingFile(t *testing.T) {
	t.Parallel()

	loader, _ := newTestLoader(t, nil)
	mod, err := loader.Load(t.Context(), workDir+"/missing.js")
	if err == nil {
		_ = mod.Close()
		t.Fatal("Load() = nil error, want failure for a missing module")
	}
}

func TestLoaderRelativeRequire(t *testing.T) {
	t.Parallel()

	path := workDir + "/entry.js"
	loader, _ := newTestLoader(t, map[string]string{
		workDir + "/lib/helper.js": "module.exports = { value: 42 };\n",
		path: "const helper = require('./lib/helper.js');\n" +
			"module.exports.default = async function () {\n" +
			"  if (helper.value !== 42) throw new Error('wrong value ' + helper.value);\n" +
			"};\n",
	})

	if err := loadAndInvoke(t, t.Context(), loader, path); err != nil {
		t.Fatalf("Invoke() = %v", err)
	}
}

func TestLoaderIsolation(t *testing.T) {
	t.Parallel()

	path := workDir + "/entry.js"
	loader, _ := newTestLoader(t, map[string]string{
		path: "globalThis.runs = (globalThis.runs || 0) + 1;\n" +
			"module.exports.default = async function () {\n" +
			"  if (globalThis.runs !== 1) throw new Error('shared runtime: ' + globalThis.runs);\n" +
			"};\n",
	})

	for range 2 {
		if err := loadAndInvoke(t, t.Context(), loader, path); err != nil {
			t.Fatalf("Invoke() = %v", err)
		}
	}
}

func TestLoaderRunsCompiledSnippet(t *testing.T) {
	t.Parallel()

	snippet := transform.Snippet{
		Text: "const wait = (ms: number): Promise<void> => new Promise((r) => setTimeout(r, ms));\n" +
			"await wait(1);\n" +
			"const total: number = [1, 2, 3].reduce((a, b) => a + b, 0);\n" +
			"if (total !== 6) throw new Error(`total was ${total}`);\n",
		Location: transform.Location{Path: "notes/demo.md", LineStart: 3, LineEnd: 8, Caption: "demo"},
	}

	compiled, err := transform.CompileForExecution(snippet)
	if err != nil {
		t.Fatalf("CompileForExecution() = %v", err)
	}

	path := workDir + "/" + artifact.NewName()
	loader, _ := newTestLoader(t, map[string]string{path: executor.Shell(compiled)})

	if err := loadAndInvoke(t, t.Context(), loader, path); err != nil {
		t.Fatalf("Invoke() = %v", err)
	}
}

func TestLoaderRunsCompiledImports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{
			name: "static import",
			text: "import { v } from './lib';\nif (v !== 5) throw new Error(`v was ${v}`);\n",
		},
		{
			name: "dynamic import",
			text: "const m = await import('./lib');\nif (m.v !== 5) throw new Error(`v was ${m.v}`);\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			compiled, err := transform.CompileForExecution(transform.Snippet{
				Text:     tt.text,
				Location: transform.Location{Path: "notes/demo.md", Caption: tt.name},
			})
			if err != nil {
				t.Fatalf("CompileForExecution() = %v", err)
			}

			path := workDir + "/" + artifact.NewName()
			loader, _ := newTestLoader(t, map[string]string{
				workDir + "/lib.js": "exports.v = 5;\n",
				path:                executor.Shell(compiled),
			})

			if err := loadAndInvoke(t, t.Context(), loader, path); err != nil {
				t.Fatalf("Invoke() = %v", err)
			}
		})
	}
}

func TestCoordinatorWithLoader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantState executor.TriggerState
		wantMsg   string
	}{
		{
			name:      "succeeds",
			text:      "const answer: number = 42;\nif (answer !== 42) throw new Error('math');\n",
			wantState: executor.StateSucceeded,
		},
		{
			name:      "throws",
			text:      "throw new Error('boom');\n",
			wantState: executor.StateFailed,
			wantMsg:   "boom",
		},
		{
			name:      "rejects after await",
			text:      "await new Promise((r) => setTimeout(r, 1));\nthrow new Error('after await');\n",
			wantState: executor.StateFailed,
			wantMsg:   "after await",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsys := afero.NewMemMapFs()
			diag := &collectingDiagnostics{}
			coord := executor.New(
				artifact.NewStore(fsys),
				NewLoader(fsys, WithConsole(log.New(io.Discard))),
				diag,
				executor.WithTimeout(5*time.Second),
				executor.WithLogger(log.New(io.Discard)),
			)

			trigger := executor.NewTrigger(nil)
			out := coord.Execute(t.Context(), trigger, executor.Invocation{
				Snippet: transform.Snippet{
					Text:     tt.text,
					Location: transform.Location{Path: "/vault/note.md", LineStart: 0, LineEnd: 3},
				},
				Dir: "/vault",
			})

			if out.State != tt.wantState {
				t.Fatalf("State = %v, want %v (err: %v)", out.State, tt.wantState, out.Err)
			}
			if trigger.State() != tt.wantState {
				t.Errorf("trigger.State() = %v, want %v", trigger.State(), tt.wantState)
			}

			leftovers, err := afero.Glob(fsys, "/vault/"+artifact.Pattern)
			if err != nil {
				t.Fatalf("Glob() = %v", err)
			}
			if len(leftovers) != 0 {
				t.Errorf("artifacts left behind: %v", leftovers)
			}

			if tt.wantMsg == "" {
				if errs := diag.Errors(); len(errs) != 0 {
					t.Errorf("unexpected reports: %v", errs)
				}
				return
			}

			errs := diag.Errors()
			if len(errs) != 1 {
				t.Fatalf("reports = %d, want 1", len(errs))
			}
			if !errors.Is(errs[0], executor.ErrInvocation) {
				t.Errorf("report %v is not an invocation error", errs[0])
			}
			var scriptErr *ScriptError
			if !errors.As(errs[0], &scriptErr) {
				t.Fatalf("report %v does not wrap *ScriptError", errs[0])
			}
			if scriptErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", scriptErr.Message, tt.wantMsg)
			}
		})
	}
}
