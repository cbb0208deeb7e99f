// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/codebutton/codebutton/internal/artifact"
	"github.com/codebutton/codebutton/internal/config"
	"github.com/codebutton/codebutton/internal/document"
	"github.com/codebutton/codebutton/internal/executor"
	"github.com/codebutton/codebutton/internal/issue"
	"github.com/codebutton/codebutton/internal/jsvm"
	"github.com/codebutton/codebutton/internal/render"
	"github.com/codebutton/codebutton/internal/transform"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// StartupCaption labels the startup script in diagnostics.
const StartupCaption = "startup script"

type (
	// Options configures a Session.
	Options struct {
		// Timeout bounds each block run; zero disables the deadline.
		Timeout time.Duration
		// ArtifactDir overrides where artifacts are written. Empty means
		// next to the document.
		ArtifactDir string
		// ScriptFolders are searched by require() for bare module names.
		ScriptFolders []string
		// StartupScript is run once before the first document run.
		StartupScript string
		// Verbose adds error chains and stack traces to diagnostics.
		Verbose bool
		// Logger receives lifecycle messages and diagnostics. nil writes to
		// stderr.
		Logger *log.Logger
		// Console receives console.* output of snippets. nil uses Logger
		// with the "snippet" prefix.
		Console *log.Logger
	}

	// Session runs documents through one coordinator. It is safe for
	// concurrent use.
	Session struct {
		fs          afero.Fs
		store       *artifact.Store
		coordinator *executor.Coordinator
		diagnostics *render.LogDiagnostics
		logger      *log.Logger
		opts        Options

		startupOnce sync.Once
		startupErr  error
	}

	// BlockResult is the settled status of one block.
	BlockResult struct {
		Block   document.Block
		Outcome executor.Outcome
		// Label is the final text of the block's status surface.
		Label string
	}

	// Report collects the results of one document run in document order.
	Report struct {
		Document *document.Document
		Results  []BlockResult
	}
)

// OptionsFromConfig derives session options from cfg. Relative script paths
// resolve against modules_root.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Timeout:       timeout,
		ArtifactDir:   cfg.ArtifactDir,
		StartupScript: cfg.ResolveStartupScriptPath(),
		Verbose:       cfg.UI.Verbose,
	}
	if folder := cfg.ResolveInvocableScriptsFolder(); folder != "" {
		opts.ScriptFolders = []string{folder}
	}
	return opts, nil
}

// NewSession builds the capabilities over fsys. A nil fsys selects the OS
// file system.
func NewSession(fsys afero.Fs, opts Options) *Session {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "codebutton"})
		if opts.Verbose {
			logger.SetLevel(log.DebugLevel)
		}
	}
	console := opts.Console
	if console == nil {
		console = logger.WithPrefix("snippet")
	}

	store := artifact.NewStore(fsys)
	diagnostics := render.NewLogDiagnostics(logger, opts.Verbose)
	loader := jsvm.NewLoader(fsys,
		jsvm.WithGlobalFolders(opts.ScriptFolders...),
		jsvm.WithConsole(console),
	)

	return &Session{
		fs:    fsys,
		store: store,
		coordinator: executor.New(store, loader, diagnostics,
			executor.WithTimeout(opts.Timeout),
			executor.WithLogger(logger),
		),
		diagnostics: diagnostics,
		logger:      logger,
		opts:        opts,
	}
}

// Coordinator returns the session's coordinator.
func (s *Session) Coordinator() *executor.Coordinator {
	return s.coordinator
}

// Diagnostics returns the session's diagnostics channel.
func (s *Session) Diagnostics() *render.LogDiagnostics {
	return s.diagnostics
}

// Fs returns the file system documents and artifacts live on.
func (s *Session) Fs() afero.Fs {
	return s.fs
}

// RunStartup runs the configured startup script. Only the first call does
// any work; later calls return its result.
func (s *Session) RunStartup(ctx context.Context) error {
	s.startupOnce.Do(func() {
		s.startupErr = s.runStartup(ctx)
	})
	return s.startupErr
}

func (s *Session) runStartup(ctx context.Context) error {
	path := s.opts.StartupScript
	if path == "" {
		return nil
	}

	src, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return startupError(path, fmt.Errorf("read startup script: %w", err))
	}

	s.logger.Debug("running startup script", "path", path)
	out := s.coordinator.Execute(ctx, executor.NewTrigger(nil), executor.Invocation{
		Snippet: transform.Snippet{
			Text: string(src),
			// LineStart -1 makes snippet line numbers equal file line numbers.
			Location: transform.Location{
				Path:      path,
				LineStart: -1,
				LineEnd:   strings.Count(string(src), "\n"),
				Caption:   StartupCaption,
			},
		},
		Dir: artifact.Dir(path, s.opts.ArtifactDir),
	})
	if out.State == executor.StateFailed {
		return startupError(path, out.Err)
	}
	return nil
}

func startupError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("run startup script").
		WithResource(path).
		WithSuggestion("Check startup_script_path with 'codebutton config show'").
		WithIssue(issue.StartupScriptFailedId).
		Wrap(err).
		BuildError()
}

// RunDocument loads the document at path, runs the startup script if it has
// not run yet, then runs the selected blocks. indices and caption select
// blocks as document.Document.Select does.
func (s *Session) RunDocument(ctx context.Context, path string, indices []int, caption string) (Report, error) {
	doc, blocks, err := s.Select(path, indices, caption)
	if err != nil {
		return Report{Document: doc}, err
	}
	if err := s.RunStartup(ctx); err != nil {
		return Report{Document: doc}, err
	}
	return s.RunBlocks(ctx, doc, blocks), nil
}

// Select loads the document at path and picks blocks from it. Failures are
// returned as issue.ActionableError.
func (s *Session) Select(path string, indices []int, caption string) (*document.Document, []document.Block, error) {
	doc, err := document.Load(s.fs, path)
	if err != nil {
		id := issue.PermissionDeniedId
		if errors.Is(err, fs.ErrNotExist) {
			id = issue.DocumentNotFoundId
		}
		return nil, nil, issue.NewErrorContext().
			WithOperation("load document").
			WithResource(path).
			WithIssue(id).
			Wrap(err).
			BuildError()
	}

	blocks, err := doc.Select(indices, caption)
	if err != nil {
		ctx := issue.NewErrorContext().
			WithOperation("select code-button blocks").
			WithResource(path).
			Wrap(err)
		if errors.Is(err, document.ErrNoBlocks) {
			ctx = ctx.WithIssue(issue.NoCodeButtonBlocksId).
				WithSuggestion("Fence a block with ```" + document.Language + " to make it runnable")
		} else {
			ctx = ctx.WithIssue(issue.BlockNotFoundId).
				WithSuggestion("Run 'codebutton list " + path + "' to see the available blocks")
		}
		return doc, nil, ctx.BuildError()
	}
	return doc, blocks, nil
}

// RunBlocks runs blocks one after another in the given order. Blocks whose
// position cannot be resolved are marked failed without running. Blocks not
// yet started when ctx ends are left out of the report.
func (s *Session) RunBlocks(ctx context.Context, doc *document.Document, blocks []document.Block) Report {
	report := Report{Document: doc, Results: make([]BlockResult, 0, len(blocks))}
	for _, b := range blocks {
		if ctx.Err() != nil {
			s.logger.Warn("run interrupted", "remaining", len(blocks)-len(report.Results))
			break
		}
		report.Results = append(report.Results, s.runBlock(ctx, doc, b))
	}
	return report
}

func (s *Session) runBlock(ctx context.Context, doc *document.Document, b document.Block) BlockResult {
	logger := s.logger.With("block", b.Index)
	label := render.NewLabel(func(text string) {
		logger.Debug("status", "text", text)
	})
	trigger := executor.NewTrigger(label)

	snippet, err := doc.Snippet(b)
	if err != nil {
		label.SetText(executor.TextSectionUnavailable)
		s.diagnostics.Report(err, executor.ReportLabel+" "+b.Label())
		return BlockResult{
			Block:   b,
			Outcome: executor.Outcome{State: executor.StateFailed, Err: err},
			Label:   label.Text(),
		}
	}

	out := s.coordinator.Execute(ctx, trigger, executor.Invocation{
		Snippet: snippet,
		Dir:     artifact.Dir(doc.Path, s.opts.ArtifactDir),
	})
	return BlockResult{Block: b, Outcome: out, Label: label.Text()}
}

// Sweep removes artifacts an interrupted run left in dir. Artifacts younger
// than artifact.StaleAfter are kept.
func (s *Session) Sweep(dir string) ([]string, error) {
	removed, err := s.store.Sweep(dir, time.Now().Add(-artifact.StaleAfter))
	if len(removed) > 0 {
		s.logger.Info("removed stale artifacts", "dir", dir, "count", len(removed))
	}
	return removed, err
}

// Labels maps block indices to their final status text.
func (r Report) Labels() map[int]string {
	labels := make(map[int]string, len(r.Results))
	for _, res := range r.Results {
		labels[res.Block.Index] = res.Label
	}
	return labels
}

// Failed returns how many blocks failed.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.State == executor.StateFailed {
			n++
		}
	}
	return n
}

// Err returns an issue.ActionableError when any block failed, or nil.
func (r Report) Err() error {
	failed := r.Failed()
	if failed == 0 {
		return nil
	}
	var errs []error
	for _, res := range r.Results {
		if res.Outcome.Err != nil {
			errs = append(errs, res.Outcome.Err)
		}
	}
	path := ""
	if r.Document != nil {
		path = r.Document.Path
	}
	return issue.NewErrorContext().
		WithOperation(fmt.Sprintf("run code-button blocks (%d of %d failed)", failed, len(r.Results))).
		WithResource(path).
		WithIssue(issue.SnippetExecutionFailedId).
		Wrap(errors.Join(errs...)).
		BuildError()
}
