// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"

	"github.com/codebutton/codebutton/internal/transform"
)

type (
	// FileSystem creates, probes and removes artifacts.
	FileSystem interface {
		// Create writes text to a new file. An error wrapping fs.ErrExist
		// means the path was already taken and nothing was written.
		Create(ctx context.Context, path, text string) error
		Exists(ctx context.Context, path string) (bool, error)
		Remove(ctx context.Context, path string) error
		Abs(path string) (string, error)
	}

	// ModuleLoader loads an artifact as a module.
	ModuleLoader interface {
		Load(ctx context.Context, absPath string) (Module, error)
	}

	// Module is a loaded artifact exposing its default export.
	Module interface {
		// Invoke calls the exported entry point and waits for the returned
		// promise to settle or ctx to end.
		Invoke(ctx context.Context) error
		// Close releases the runtime that loaded the module.
		Close() error
	}

	// StatusSurface is the mutable label a trigger reports status on.
	StatusSurface interface {
		SetText(text string)
		Clear()
	}

	// Diagnostics receives failure reports. Implementations must not panic.
	Diagnostics interface {
		Report(err error, contextLabel string)
	}

	// CompileFunc turns a snippet into loadable text.
	CompileFunc func(transform.Snippet) (transform.Compiled, error)
)
