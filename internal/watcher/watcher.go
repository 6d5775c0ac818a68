package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sydlexius/liner/internal/config"
)

// LoadFunc reads and validates the configuration at path.
type LoadFunc func(path string) (*config.Config, error)

// Service watches the config file and hands every successfully reloaded
// configuration to onChange. Editors often replace a file instead of
// writing it in place, so the parent directory is watched and events are
// filtered by name.
type Service struct {
	path     string
	load     LoadFunc
	onChange func(*config.Config)
	logger   *slog.Logger

	debounce     time.Duration
	pollInterval time.Duration
	probeTimeout time.Duration

	mu   sync.Mutex
	snap fileSnapshot
}

// NewService creates a config watcher for path.
func NewService(path string, load LoadFunc, onChange func(*config.Config), logger *slog.Logger) *Service {
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	return &Service{
		path:         filepath.Clean(path),
		load:         load,
		onChange:     onChange,
		logger:       logger.With("component", "config-watcher"),
		debounce:     500 * time.Millisecond,
		pollInterval: 30 * time.Second,
		probeTimeout: 2 * time.Second,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// SetPollInterval overrides the polling interval used when fsnotify is
// unavailable (for testing).
func (s *Service) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// Start blocks until ctx is canceled. When fsnotify does not deliver events
// for the config directory (network mounts, some container overlays) the
// service falls back to polling the file's size and modification time.
func (s *Service) Start(ctx context.Context) {
	dir := filepath.Dir(s.path)
	s.mu.Lock()
	s.snap = readSnapshot(s.path)
	s.mu.Unlock()

	var w *fsnotify.Watcher
	if ProbeFSNotify(dir, s.probeTimeout) {
		var err error
		w, err = fsnotify.NewWatcher()
		if err == nil {
			if err = w.Add(dir); err != nil {
				_ = w.Close()
				w = nil
			}
		}
		if err != nil {
			s.logger.Warn("fsnotify unavailable, polling config file", "path", s.path, "error", err)
		}
	} else {
		s.logger.Info("fsnotify not supported for config directory, polling", "dir", dir)
	}
	if w != nil {
		defer w.Close() //nolint:errcheck
	}

	// Nil channels never receive, which disables the branch.
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	var pollCh <-chan time.Time
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	} else {
		pollTicker := time.NewTicker(s.pollInterval)
		defer pollTicker.Stop()
		pollCh = pollTicker.C
	}

	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	reloadPending := false

	s.logger.Info("config watcher starting", "path", s.path, "fsnotify", w != nil)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("config watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if !s.relevant(ev) {
				continue
			}
			resetTimer(debounceTimer, s.debounce)
			reloadPending = true

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-pollCh:
			if s.changedOnDisk() {
				resetTimer(debounceTimer, s.debounce)
				reloadPending = true
			}

		case <-debounceTimer.C:
			if reloadPending {
				reloadPending = false
				s.reload()
			}
		}
	}
}

func (s *Service) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != s.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// reload applies the file's current content. An invalid file is logged and
// ignored so the running configuration stays in effect.
func (s *Service) reload() {
	s.mu.Lock()
	s.snap = readSnapshot(s.path)
	s.mu.Unlock()

	cfg, err := s.load(s.path)
	if err != nil {
		s.logger.Error("config reload failed, keeping current settings", "path", s.path, "error", err)
		return
	}
	s.logger.Info("config file changed, applying", "path", s.path)
	s.onChange(cfg)
}

// changedOnDisk compares the file against the last snapshot.
func (s *Service) changedOnDisk() bool {
	cur := readSnapshot(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur == s.snap {
		return false
	}
	s.snap = cur
	return true
}

type fileSnapshot struct {
	exists  bool
	size    int64
	modTime time.Time
}

func readSnapshot(path string) fileSnapshot {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}
	}
	return fileSnapshot{exists: true, size: info.Size(), modTime: info.ModTime()}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
