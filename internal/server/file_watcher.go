package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumetailor/internal/errors"
)

// FileWatcher watches a set of files and calls onChange, debounced, after
// any of them was written, created or replaced by a rename.
type FileWatcher struct {
	mu sync.RWMutex

	name  string
	files []string

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
	reloads int
}

// NewFileWatcher creates a watcher named name for files. Empty paths are
// ignored.
func NewFileWatcher(name string, files []string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) *FileWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = errors.Discard()
	}

	watched := make([]string, 0, len(files))
	for _, f := range files {
		if f != "" && !slices.Contains(watched, f) {
			watched = append(watched, f)
		}
	}

	return &FileWatcher{
		name:          name,
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching the files
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("%s watcher is already running", fw.name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.fsWatcher = watcher

	if err := fw.updateModTimes(); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to get initial file modification times: %w", err)
	}

	for _, file := range fw.files {
		if err := fw.addFileToWatcher(file); err != nil {
			fw.logger.Warn("Failed to watch file", "watcher", fw.name, "file", file, "error", err)
		}
	}

	fw.running = true
	go fw.watchLoop()

	fw.logger.Info("File watcher started",
		"watcher", fw.name,
		"files", fw.files,
		"debounce_delay", fw.debounceDelay)
	return nil
}

// Stop stops the watcher. Calling it on a stopped watcher is a no-op.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}

	close(fw.stopChan)
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.running = false

	if err := fw.fsWatcher.Close(); err != nil {
		fw.logger.LogError(err, "Failed to close file system watcher", "watcher", fw.name)
		return err
	}

	fw.logger.Info("File watcher stopped", "watcher", fw.name)
	return nil
}

// addFileToWatcher watches the file and its directory. The directory catches
// atomic replacements, and stands in when the file does not exist yet.
func (fw *FileWatcher) addFileToWatcher(file string) error {
	dir := filepath.Dir(file)
	if err := fw.fsWatcher.Add(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}
	if err := fw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (fw *FileWatcher) updateModTimes() error {
	for _, file := range fw.files {
		stat, err := os.Stat(file)
		switch {
		case err == nil:
			fw.lastModTime[file] = stat.ModTime()
		case !os.IsNotExist(err):
			return fmt.Errorf("failed to stat file %s: %w", file, err)
		}
	}
	return nil
}

// hasFileChanged checks if a file has been modified since last check
func (fw *FileWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			if _, exists := fw.lastModTime[file]; exists {
				delete(fw.lastModTime, file)
				return true
			}
		}
		return false
	}

	lastMod, exists := fw.lastModTime[file]
	if !exists || !stat.ModTime().Equal(lastMod) {
		fw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (fw *FileWatcher) watchLoop() {
	events, errs := fw.fsWatcher.Events, fw.fsWatcher.Errors
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if fw.isRelevant(event) {
				fw.scheduleReload()
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			fw.logger.LogError(err, "File watcher error", "watcher", fw.name)

		case <-fw.reloadChan:
			if fw.anyFileChanged() {
				fw.logger.Info("Watched files changed, reloading", "watcher", fw.name)
				fw.onChange()
				fw.mu.Lock()
				fw.reloads++
				fw.mu.Unlock()
			}

		case <-fw.stopChan:
			return
		}
	}
}

// isRelevant reports whether event touches one of the watched files with a
// write, create or rename.
func (fw *FileWatcher) isRelevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return slices.ContainsFunc(fw.files, func(file string) bool {
		return filepath.Clean(event.Name) == filepath.Clean(file)
	})
}

func (fw *FileWatcher) anyFileChanged() bool {
	changed := false
	for _, file := range fw.files {
		// every file is checked so all modification times stay current
		if fw.hasFileChanged(file) {
			changed = true
		}
	}
	return changed
}

// scheduleReload schedules a debounced reload
func (fw *FileWatcher) scheduleReload() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceDelay, func() {
		select {
		case fw.reloadChan <- struct{}{}:
		default:
			// a reload is already pending
		}
	})
}

// IsRunning returns whether the watcher is currently running
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.running
}

// Files returns the watched paths.
func (fw *FileWatcher) Files() []string {
	return slices.Clone(fw.files)
}

// Status summarizes the watcher for the health endpoint.
func (fw *FileWatcher) Status() map[string]any {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return map[string]any{
		"name":    fw.name,
		"running": fw.running,
		"files":   slices.Clone(fw.files),
		"reloads": fw.reloads,
	}
}
