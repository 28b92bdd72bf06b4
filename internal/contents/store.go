// Package contents reads and writes notebooks and directory listings under
// a root directory.
package contents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"nbterm/internal/document"
	"nbterm/internal/notebook"
)

var (
	// ErrNotFound is returned for paths that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrOutsideRoot is returned for paths that escape the store root.
	ErrOutsideRoot = errors.New("path escapes root")
)

const tracerName = "nbterm/contents"

// Entry is one row of a directory listing.
type Entry struct {
	Name     string
	Path     string // relative to the store root, slash separated
	Type     FileType
	Size     int64
	Modified time.Time
}

// Store serves files below a root directory.
type Store struct {
	root   string
	logger zerolog.Logger
	tracer oteltrace.Tracer
}

// NewStore creates a store rooted at root, which must be an existing directory.
func NewStore(root string, logger zerolog.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("contents: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("contents: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("contents: root is not a directory: %s", abs)
	}
	return &Store{
		root:   abs,
		logger: logger.With().Str("component", "contents").Logger(),
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string { return s.root }

// safePath resolves rel against the root and rejects anything outside it.
func (s *Store) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." || rel == "" {
		return s.root, nil
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("contents: %s: %w", rel, ErrOutsideRoot)
	}
	abs := filepath.Join(s.root, cleaned)
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("contents: %s: %w", rel, ErrOutsideRoot)
	}
	return abs, nil
}

func (s *Store) rel(abs string) string {
	r, err := filepath.Rel(s.root, abs)
	if err != nil || r == "." {
		return ""
	}
	return filepath.ToSlash(r)
}

// List returns the entries of dir: directories first, then by name. Hidden
// entries are skipped. Below the root a ".." row of type FileDummy leads to
// the parent directory.
func (s *Store) List(ctx context.Context, dir string) ([]Entry, error) {
	_, span := s.tracer.Start(ctx, "contents.List", oteltrace.WithAttributes(attribute.String("path", dir)))
	defer span.End()

	abs, err := s.safePath(dir)
	if err != nil {
		return nil, spanError(span, err)
	}
	items, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("contents: list %s: %w", dir, ErrNotFound)
		} else {
			err = fmt.Errorf("contents: list %s: %w", dir, err)
		}
		return nil, spanError(span, err)
	}

	var out []Entry
	for _, item := range items {
		if strings.HasPrefix(item.Name(), ".") {
			continue
		}
		info, err := item.Info()
		if err != nil {
			s.logger.Debug().Err(err).Str("name", item.Name()).Msg("list: skip entry")
			continue
		}
		out = append(out, Entry{
			Name:     item.Name(),
			Path:     s.rel(filepath.Join(abs, item.Name())),
			Type:     Classify(item.Name(), info.Mode()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Type == FileDirectory, out[j].Type == FileDirectory
		if di != dj {
			return di
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	if abs != s.root {
		parent := Entry{Name: "..", Path: s.rel(filepath.Dir(abs)), Type: FileDummy}
		out = append([]Entry{parent}, out...)
	}
	span.SetAttributes(attribute.Int("entries", len(out)))
	return out, nil
}

// Stat reports the persistence metadata of a file.
func (s *Store) Stat(rel string) (document.FileInfo, error) {
	abs, err := s.safePath(rel)
	if err != nil {
		return document.FileInfo{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document.FileInfo{}, fmt.Errorf("contents: stat %s: %w", rel, ErrNotFound)
		}
		return document.FileInfo{}, fmt.Errorf("contents: stat %s: %w", rel, err)
	}
	mod := fi.ModTime()
	return document.FileInfo{
		MimeType:  document.MimeType,
		LastSaved: &mod,
		Writable:  writable(abs, fi.Mode()),
	}, nil
}

// Open reads and parses a notebook. On failure the returned record carries
// the error as well.
func (s *Store) Open(ctx context.Context, rel string) (document.FileRecord, error) {
	_, span := s.tracer.Start(ctx, "contents.Open", oteltrace.WithAttributes(attribute.String("path", rel)))
	defer span.End()

	rec := document.NewFileRecord(rel).BeginLoad()
	if err := ctx.Err(); err != nil {
		return rec.LoadFailed(err), spanError(span, err)
	}
	nb, info, err := s.read(rel)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", rel).Msg("open failed")
		return rec.LoadFailed(err), spanError(span, err)
	}
	span.SetAttributes(attribute.Int("cells", nb.Len()))
	s.logger.Info().Str("path", rel).Int("cells", nb.Len()).Msg("opened notebook")
	return rec.Loaded(nb, info), nil
}

// Reload re-reads the record's file, keeping its kernel binding.
func (s *Store) Reload(ctx context.Context, rec document.FileRecord) (document.FileRecord, error) {
	_, span := s.tracer.Start(ctx, "contents.Reload", oteltrace.WithAttributes(attribute.String("path", rec.Path())))
	defer span.End()

	rec = rec.BeginLoad()
	if err := ctx.Err(); err != nil {
		return rec.LoadFailed(err), spanError(span, err)
	}
	nb, info, err := s.read(rec.Path())
	if err != nil {
		return rec.LoadFailed(err), spanError(span, err)
	}
	return rec.Loaded(nb, info), nil
}

func (s *Store) read(rel string) (notebook.Notebook, document.FileInfo, error) {
	info, err := s.Stat(rel)
	if err != nil {
		return notebook.Notebook{}, info, err
	}
	abs, _ := s.safePath(rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		return notebook.Notebook{}, info, fmt.Errorf("contents: read %s: %w", rel, err)
	}
	nb, err := notebook.Parse(data)
	if err != nil {
		return notebook.Notebook{}, info, fmt.Errorf("contents: %s: %w", rel, err)
	}
	return nb, info, nil
}

// WriteNotebook serializes nb to rel atomically and returns the file's new
// modification time.
func (s *Store) WriteNotebook(ctx context.Context, rel string, nb notebook.Notebook) (time.Time, error) {
	_, span := s.tracer.Start(ctx, "contents.WriteNotebook", oteltrace.WithAttributes(attribute.String("path", rel)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return time.Time{}, spanError(span, err)
	}
	abs, err := s.safePath(rel)
	if err != nil {
		return time.Time{}, spanError(span, err)
	}
	if fi, err := os.Stat(abs); err == nil && !writable(abs, fi.Mode()) {
		return time.Time{}, spanError(span, fmt.Errorf("contents: %s: %w", rel, document.ErrNotWritable))
	}
	data, err := notebook.Marshal(nb)
	if err != nil {
		return time.Time{}, spanError(span, err)
	}
	if err := writeAtomic(abs, data); err != nil {
		s.logger.Error().Err(err).Str("path", rel).Msg("write failed")
		return time.Time{}, spanError(span, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return time.Time{}, spanError(span, fmt.Errorf("contents: stat after write: %w", err))
	}
	span.SetAttributes(attribute.Int("bytes", len(data)))
	s.logger.Info().Str("path", rel).Int("bytes", len(data)).Msg("saved notebook")
	return fi.ModTime(), nil
}

// writable reports whether a save to abs can succeed: the owner write bit is
// set and the process may write both the file and its directory, where the
// temp file for the atomic rename is created.
func writable(abs string, mode fs.FileMode) bool {
	return mode.Perm()&0o200 != 0 && canWrite(abs) && canWrite(filepath.Dir(abs))
}

// writeAtomic writes content via a temp file, fsync and rename.
func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("contents: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".nbterm-tmp-*")
	if err != nil {
		return fmt.Errorf("contents: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("contents: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("contents: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("contents: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("contents: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("contents: rename: %w", err)
	}
	success = true
	return nil
}

func spanError(span oteltrace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
