// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/codebutton/codebutton/internal/artifact"
	"github.com/codebutton/codebutton/internal/transform"

	"github.com/charmbracelet/log"
)

const (
	// DefaultNameAttempts bounds the retries on an artifact name that is
	// already taken.
	DefaultNameAttempts = 3

	// ReportLabel prefixes the context label of every diagnostic report.
	ReportLabel = "Error executing code block"

	shellTemplate = "module.exports.default = async function scriptWrapper() {\n  return await %s();\n};\n"
)

type (
	// Invocation is one request to run a snippet.
	Invocation struct {
		Snippet transform.Snippet
		// Dir is the directory the artifact is written to.
		Dir string
	}

	// Outcome is the settled result of one Execute call.
	Outcome struct {
		State TriggerState
		// Err is the failure that settled the trigger as Failed, or nil.
		Err error
		// Artifact is the absolute path that was materialized, if any.
		Artifact string
		// CleanupErr is set when the artifact could not be removed.
		CleanupErr error
		Duration   time.Duration
	}

	// Coordinator runs snippets through compile, materialize, load, invoke
	// and cleanup. It is safe for concurrent use; concurrent runs each get
	// their own artifact and are not serialized.
	Coordinator struct {
		fs           FileSystem
		loader       ModuleLoader
		diagnostics  Diagnostics
		compile      CompileFunc
		newName      func() string
		nameAttempts int
		timeout      time.Duration
		logger       *log.Logger
	}

	// Option configures a Coordinator.
	Option func(*Coordinator)
)

// WithTimeout bounds each run. Zero or a negative value disables the
// deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// WithNamer replaces the artifact name generator.
func WithNamer(fn func() string) Option {
	return func(c *Coordinator) {
		c.newName = fn
	}
}

// WithNameAttempts sets how many names are tried before materialization
// fails. Values below 1 are ignored.
func WithNameAttempts(n int) Option {
	return func(c *Coordinator) {
		if n >= 1 {
			c.nameAttempts = n
		}
	}
}

// WithCompiler replaces the transform pipeline.
func WithCompiler(fn CompileFunc) Option {
	return func(c *Coordinator) {
		c.compile = fn
	}
}

// WithLogger sets the logger for lifecycle and cleanup messages.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// New returns a Coordinator over the given capabilities.
func New(fsys FileSystem, loader ModuleLoader, diagnostics Diagnostics, opts ...Option) *Coordinator {
	c := &Coordinator{
		fs:           fsys,
		loader:       loader,
		diagnostics:  diagnostics,
		compile:      transform.CompileForExecution,
		newName:      artifact.NewName,
		nameAttempts: DefaultNameAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "executor"})
	}
	return c
}

// Shell wraps compiled snippet code in the invocation shell: a CommonJS
// module whose default export is one async entry point awaiting the snippet
// body. The inline map stays the final line.
func Shell(c transform.Compiled) string {
	return c.Code + fmt.Sprintf(shellTemplate, c.Entry) + c.MapComment + "\n"
}

// Execute runs one trigger to settlement. The trigger shows TextExecuting
// while the run is in flight and TextSucceeded or TextFailed afterwards.
// Failures are reported once to the diagnostics channel and returned in the
// Outcome; nothing is returned as an error or panic. An artifact this call
// materialized never outlives it, except when removal itself fails.
func (c *Coordinator) Execute(ctx context.Context, trigger *Trigger, inv Invocation) (out Outcome) {
	start := time.Now()
	trigger.begin()

	label := inv.Snippet.Location.String()
	logger := c.logger.With("block", label)
	logger.Debug("executing snippet")

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		if out.Artifact != "" {
			out.CleanupErr = c.cleanup(ctx, out.Artifact, logger)
		}
	}()

	err := c.run(ctx, inv, &out)
	out.Duration = time.Since(start)
	if err != nil {
		out.State, out.Err = StateFailed, err
		c.report(err, label, logger)
		trigger.settle(StateFailed, TextFailed)
		return out
	}

	out.State = StateSucceeded
	trigger.settle(StateSucceeded, TextSucceeded)
	logger.Debug("snippet succeeded", "duration", out.Duration)
	return out
}

// run performs every step up to settlement. out.Artifact is set as soon as
// this call owns a path, so the caller's cleanup covers every exit.
func (c *Coordinator) run(ctx context.Context, inv Invocation, out *Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InvocationError{Path: out.Artifact, Phase: PhaseInvoke, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	compiled, err := c.compile(inv.Snippet)
	if err != nil {
		return err
	}

	path, err := c.materialize(ctx, inv.Dir, Shell(compiled), out)
	if err != nil {
		return c.classify(ctx, &MaterializationError{Path: path, Err: err})
	}

	mod, err := c.loader.Load(ctx, path)
	if err != nil {
		return c.classify(ctx, &InvocationError{Path: path, Phase: PhaseLoad, Err: err})
	}
	defer func() {
		if closeErr := mod.Close(); closeErr != nil {
			c.logger.Debug("module close failed", "path", path, "error", closeErr)
		}
	}()

	if err := mod.Invoke(ctx); err != nil {
		return c.classify(ctx, &InvocationError{Path: path, Phase: PhaseInvoke, Err: err})
	}
	return nil
}

// materialize writes text under a fresh name in dir, retrying when the name
// is taken. A name that was taken by someone else is never claimed.
func (c *Coordinator) materialize(ctx context.Context, dir, text string, out *Outcome) (string, error) {
	var (
		path    string
		lastErr error
	)
	for range c.nameAttempts {
		abs, err := c.fs.Abs(filepath.Join(dir, c.newName()))
		if err != nil {
			return "", err
		}
		path = abs

		err = c.fs.Create(ctx, path, text)
		if errors.Is(err, fs.ErrExist) {
			c.logger.Debug("artifact name taken, retrying", "path", path)
			lastErr = err
			continue
		}
		out.Artifact = path
		return path, err
	}
	return path, fmt.Errorf("no free artifact name after %d attempts: %w", c.nameAttempts, lastErr)
}

// classify turns errors caused by ctx ending into a *TimeoutError.
func (c *Coordinator) classify(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TimeoutError{Timeout: c.timeout, Err: ctxErr}
	}
	return err
}

func (c *Coordinator) report(err error, label string, logger *log.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("diagnostics channel panicked", "panic", r)
		}
	}()
	if c.diagnostics != nil {
		c.diagnostics.Report(err, ReportLabel+" "+label)
	}
}

// cleanup removes path if it still exists. It runs detached from ctx so a
// fired deadline does not skip it.
func (c *Coordinator) cleanup(ctx context.Context, path string, logger *log.Logger) error {
	ctx = context.WithoutCancel(ctx)

	exists, err := c.fs.Exists(ctx, path)
	if err == nil && !exists {
		return nil
	}
	if err == nil {
		err = c.fs.Remove(ctx, path)
	}
	if err != nil {
		cleanupErr := &CleanupError{Path: path, Err: err}
		logger.Warn("artifact cleanup failed", "path", path, "error", err)
		return cleanupErr
	}
	logger.Debug("artifact removed", "path", path)
	return nil
}
