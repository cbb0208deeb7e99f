// SPDX-License-Identifier: MPL-2.0

// Package artifact stores the transient files that hold compiled snippets
// between materialization and cleanup.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	// NamePrefix starts every artifact file name. The leading dot keeps
	// artifacts hidden in directory listings next to the document.
	NamePrefix = ".codebutton-"
	// NameExt is the artifact file extension understood by the module loader.
	NameExt = ".js"
	// Pattern matches artifact names with doublestar or filepath.Match.
	Pattern = NamePrefix + "*" + NameExt
	// StaleAfter is the age past which Sweep treats an artifact as left over.
	// A live artifact only exists between materialization and load.
	StaleAfter = time.Minute

	filePerm = 0o600
)

// Store implements the file system capability over an afero.Fs.
type Store struct {
	fs afero.Fs
}

// NewStore returns a Store backed by fsys. A nil fsys selects the OS file
// system.
func NewStore(fsys afero.Fs) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Store{fs: fsys}
}

// Fs returns the underlying file system, shared with the module loader so that
// it reads what the store writes.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Create writes text to a new file at path. It fails with an error wrapping
// fs.ErrExist when the path is already taken, and never truncates an
// existing file. A failed write may leave a partial file for the caller's
// cleanup to remove.
func (s *Store) Create(ctx context.Context, path, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return fmt.Errorf("create artifact %s: %w", path, err)
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close() // Write error takes precedence
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close artifact %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path is present.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(s.fs, path)
}

// Remove deletes path.
func (s *Store) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("remove artifact %s: %w", path, err)
	}
	return nil
}

// Abs resolves path to an absolute, cleaned path.
func (s *Store) Abs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve artifact path %s: %w", path, err)
	}
	return abs, nil
}

// Sweep removes artifacts in dir last modified before cutoff and returns
// the removed paths. Newer artifacts may belong to a run in progress, in
// this or another process, and are kept.
func (s *Store) Sweep(dir string, cutoff time.Time) ([]string, error) {
	matches, err := afero.Glob(s.fs, filepath.Join(dir, Pattern))
	if err != nil {
		return nil, fmt.Errorf("sweep artifacts in %s: %w", dir, err)
	}

	removed := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := s.fs.Stat(m)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("sweep artifacts in %s: %w", dir, err)
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := s.fs.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("sweep artifacts in %s: %w", dir, err)
		}
		removed = append(removed, m)
	}
	return removed, nil
}

// NewName returns a random artifact file name. Randomness only avoids
// collisions; the name carries no security meaning.
func NewName() string {
	return NamePrefix + strings.ReplaceAll(uuid.NewString(), "-", "") + NameExt
}

// IsName reports whether base looks like an artifact file name.
func IsName(base string) bool {
	return strings.HasPrefix(base, NamePrefix) && strings.HasSuffix(base, NameExt) &&
		len(base) > len(NamePrefix)+len(NameExt)
}

// Dir returns the directory artifacts for documentPath are written to:
// override when set, otherwise the document's own directory.
func Dir(documentPath, override string) string {
	if override != "" {
		return override
	}
	return filepath.Dir(documentPath)
}
