package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/validator"
)

// ErrPathTraversal is returned for paths outside the attachment root
var ErrPathTraversal = errors.New("path traversal detected")

// dirMode applies to the root and to every message directory
const dirMode = 0777

const maxNameSuffix = 1000

// AttachmentStore defines the operations on message-scoped attachment directories
type AttachmentStore interface {
	Materialize(staged []Staged) (models.Attachments, error)
	Purge(attachments models.Attachments) error
}

// localStore implements AttachmentStore using the local filesystem
type localStore struct {
	root   string
	logger *slog.Logger
}

// NewLocalStore creates an AttachmentStore rooted at root.
// The root is created lazily on the first materialization.
func NewLocalStore(root string, logger *slog.Logger) AttachmentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &localStore{root: root, logger: logger}
}

// Materialize copies every staged file into a fresh directory and returns the
// resulting attachments. Entries that cannot be copied are left out; their
// errors are joined into the returned error.
func (s *localStore) Materialize(staged []Staged) (models.Attachments, error) {
	var (
		dir  string
		out  models.Attachments
		errs []error
	)

	for _, entry := range staged {
		if dir == "" {
			d, err := s.createMessageDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}

		att, err := s.copyInto(dir, entry)
		if err != nil {
			s.logger.Warn("skipping attachment", "source", entry.Source, "error", err)
			errs = append(errs, err)
			continue
		}
		out = append(out, att)
	}

	return out, errors.Join(errs...)
}

func (s *localStore) createMessageDir() (string, error) {
	if err := os.MkdirAll(s.root, dirMode); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrTempDirNotWritable, err)
	}

	dir := filepath.Join(s.root, uuid.New().String())
	if err := os.Mkdir(dir, dirMode); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrTempDirNotWritable, err)
	}
	// Mkdir honours the umask
	_ = os.Chmod(dir, dirMode)

	return dir, nil
}

func (s *localStore) copyInto(dir string, entry Staged) (models.Attachment, error) {
	name := entry.Filename
	if name == "" {
		name = filepath.Base(entry.Source)
	}
	name = validator.SanitizeFilename(name)

	src, err := os.Open(entry.Source)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	dst, name, err := createUnique(dir, name)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to create file: %w", err)
	}
	target := dst.Name()

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return models.Attachment{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(target)
		return models.Attachment{}, fmt.Errorf("failed to write file: %w", err)
	}

	mimeType := entry.MimeType
	if mimeType == "" {
		mimeType = DetectMimeType(target)
	}

	return models.Attachment{Filename: name, Path: target, Type: mimeType}, nil
}

// createUnique creates name in dir, adding a numeric suffix before the
// extension while the name is taken (x.txt, then x-1.txt).
func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]

	candidate := name
	for i := 1; i <= maxNameSuffix; i++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	return nil, "", fmt.Errorf("too many attachments named %s", name)
}

// Purge removes every file in the directory of the first attachment and then
// the directory itself. Failures are collected but nothing stops on them.
func (s *localStore) Purge(attachments models.Attachments) error {
	dir := attachments.Dir()
	if dir == "" {
		return nil
	}

	dir, err := s.validatePath(dir)
	if err != nil {
		return err
	}

	var errs []error
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// validatePath ensures dir is strictly inside the root
func (s *localStore) validatePath(dir string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}

	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	if !within(absRoot, absPath) {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// DetectMimeType sniffs the content type of the file at path
func DetectMimeType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}
