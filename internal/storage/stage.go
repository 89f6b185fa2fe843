package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
)

// Staged is an attachment recorded for a message that has not been persisted yet
type Staged struct {
	Source   string
	Filename string
	MimeType string
}

// StageList keeps staged attachments in insertion order, keyed by source path
type StageList struct {
	entries []Staged
}

// Stage records path with optional filename and MIME type overrides.
// Staging a path that is already staged is a no-op.
func (l *StageList) Stage(path, filename, mimeType string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrSourceNotFound, path)
	}

	for _, e := range l.entries {
		if e.Source == path {
			return nil
		}
	}

	l.entries = append(l.entries, Staged{Source: path, Filename: filename, MimeType: mimeType})
	return nil
}

// Entries returns a copy of the staged attachments
func (l *StageList) Entries() []Staged {
	out := make([]Staged, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of staged attachments
func (l *StageList) Len() int {
	return len(l.entries)
}

// Clone returns an independent copy of the list
func (l *StageList) Clone() StageList {
	return StageList{entries: l.Entries()}
}

// ResolveSource returns the real path of source when it is a regular file
// inside root. Symlinks are resolved before the check. Anything else,
// including an empty root, is reported as ErrSourceNotFound.
func ResolveSource(root, source string) (string, error) {
	notFound := fmt.Errorf("%w: %s", apperrors.ErrSourceNotFound, source)
	if root == "" || source == "" {
		return "", notFound
	}

	realRoot, err := realPath(root)
	if err != nil {
		return "", notFound
	}
	resolved, err := realPath(source)
	if err != nil {
		return "", notFound
	}
	if !within(realRoot, resolved) {
		return "", notFound
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return "", notFound
	}
	return resolved, nil
}

func realPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(resolved)
}

// within reports whether path is strictly below root; both must be absolute and clean
func within(root, path string) bool {
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
