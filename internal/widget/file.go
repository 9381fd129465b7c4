package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/opd-ai/go-dockbar/internal/bar"
	"github.com/opd-ai/go-dockbar/internal/text"
)

// DefaultFileDebounce is the default delay between a file change and the
// reload it triggers.
const DefaultFileDebounce = 100 * time.Millisecond

// maxFileRead bounds how much of the file is read to find its first line.
const maxFileRead = 64 * 1024

// File shows the first line of a file and follows changes to it. The
// directory is watched rather than the file so that atomic replacements by
// editors and tools are seen.
type File struct {
	attrs    text.Attributes
	path     string
	base     string
	debounce time.Duration
	logger   *slog.Logger

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	closeErr  error

	started bool
}

// NewFile creates a file widget for path.
func NewFile(attrs text.Attributes, path string, debounce time.Duration, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = DefaultFileDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &File{
		attrs:    attrs,
		path:     abs,
		base:     filepath.Base(abs),
		debounce: debounce,
		logger:   logger,
		watcher:  watcher,
	}, nil
}

// Next implements bar.Producer. The first call reads the file immediately;
// later calls wait for the file to change.
func (f *File) Next(ctx context.Context) (text.Block, error) {
	if f.started {
		if err := f.waitChange(ctx); err != nil {
			return nil, err
		}
	}
	f.started = true
	return f.read()
}

func (f *File) waitChange(ctx context.Context) error {
	var debounceCh <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-f.watcher.Events:
			if !ok {
				return bar.ErrEndOfStream
			}
			if filepath.Base(event.Name) != f.base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(f.debounce)
			debounceCh = timer.C

		case <-debounceCh:
			return nil

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return bar.ErrEndOfStream
			}
			f.logger.Warn("file watch error", "path", f.path, "error", err)
		}
	}
}

// read returns the first line of the file. A missing file shows nothing.
func (f *File) read() (text.Block, error) {
	fh, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return text.Block{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fh.Close()

	buf := make([]byte, maxFileRead)
	n, err := fh.Read(buf)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return f.attrs.Block(firstLine(buf[:n])), nil
}

// Close stops watching the file.
func (f *File) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.watcher.Close()
	})
	return f.closeErr
}
