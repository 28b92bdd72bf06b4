// Package logging builds the zerolog logger. The terminal belongs to the
// UI, so logs go to a file or nowhere.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Builder assembles a logger from an optional file path or writer.
type Builder struct {
	path   string
	writer io.Writer
	level  zerolog.Level
}

// New returns a builder at info level with no sink.
func New() *Builder {
	return &Builder{level: zerolog.InfoLevel}
}

// FromPath sends output to the file at path, appending.
func (b *Builder) FromPath(path string) *Builder {
	b.path = path
	return b
}

// FromWriter sends output to w.
func (b *Builder) FromWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

// Level sets the minimum level by name. An empty name keeps the default.
func (b *Builder) Level(name string) *Builder {
	if name == "" {
		return b
	}
	if lvl, err := zerolog.ParseLevel(name); err == nil {
		b.level = lvl
	}
	return b
}

// Make builds the logger. The returned closer releases the log file and is
// never nil. Without a path or writer the logger discards everything.
func (b *Builder) Make() (zerolog.Logger, io.Closer, error) {
	w := b.writer
	var closer io.Closer = nopCloser{}
	if b.path != "" {
		if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("logging: mkdir: %w", err)
		}
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("logging: open %s: %w", b.path, err)
		}
		w = zerolog.SyncWriter(f)
		closer = f
	}
	if w == nil {
		return zerolog.Nop(), closer, nil
	}
	return zerolog.New(w).Level(b.level).With().Timestamp().Logger(), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
