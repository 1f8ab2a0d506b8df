// Package watch reloads a favicon file when it changes on disk.
package watch

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/vincent-petithory/dataurl"

	"github.com/jmylchreest/favbadge/internal/loader"
)

// ReadIcon reads the raster icon at path and returns it as a data URI. The
// bytes must decode with the same decoders the badge renderer uses.
func ReadIcon(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("icon %s is empty", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".svg") || bytes.Contains(bytes.ToLower(data[:min(len(data), 512)]), []byte("<svg")) {
		return "", fmt.Errorf("icon %s: vector icons are not supported, use a raster format", path)
	}
	mediaType, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("icon %s is not an image (%s)", path, mediaType)
	}
	if _, err := loader.DecodeBytes(data); err != nil {
		return "", fmt.Errorf("icon %s: %w", path, err)
	}
	return dataurl.New(data, mediaType).String(), nil
}

// FileWatcher watches an icon file and reports its new contents as a data URI.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	onChange func(icon string)
	logger   *slog.Logger
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewFileWatcher creates a watcher for filePath. onChange is called from the
// watch goroutine each time the file is written or replaced.
func NewFileWatcher(filePath string, onChange func(icon string), logger *slog.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FileWatcher{
		watcher:  watcher,
		filePath: filePath,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the file for changes.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	// Watch the directory so editors that replace the file are seen
	dir := filepath.Dir(fw.filePath)
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}

	go fw.watch()
	return nil
}

func (fw *FileWatcher) watch() {
	filename := filepath.Base(fw.filePath)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			icon, err := ReadIcon(fw.filePath)
			if err != nil {
				// Usually a partial write; the next event retries.
				fw.logger.Debug("icon not readable yet", "file", fw.filePath, "error", err)
				continue
			}
			fw.logger.Debug("icon changed", "file", fw.filePath, "bytes", len(icon))
			fw.onChange(icon)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("icon watcher error", "error", err)

		case <-fw.done:
			return
		}
	}
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}

	fw.running = false
	close(fw.done)
	return fw.watcher.Close()
}
