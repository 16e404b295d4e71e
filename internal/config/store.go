package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Store owns the loaded config, gives concurrent readers a consistent view of
// the preferences, and persists runtime changes (the takeover path flips the
// announce toggle on). When the config file is edited externally, Watch
// reloads it and notifies the core so a reconcile can pick up new toggles.
type Store struct {
	mu   sync.Mutex
	path string
	cfg  Config
}

func NewStore(path string, cfg Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Config returns a copy of the full configuration.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Prefs returns a copy of the current announce preferences.
func (s *Store) Prefs() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Announce
}

// SetAnnounceToggle updates the announce switch and persists the config.
// A save failure is logged, not fatal: the in-memory toggle still applies.
func (s *Store) SetAnnounceToggle(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Announce.AnnounceToggle == on {
		return
	}
	s.cfg.Announce.AnnounceToggle = on
	if s.path == "" {
		return
	}
	if err := Save(s.path, s.cfg); err != nil {
		log.Warn().Err(err).Msg("config: persist announce toggle failed")
	}
}

// Watch reloads the config file on change and invokes onChange after each
// successful reload. It blocks until ctx is cancelled. A Store with no
// backing path returns immediately.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save and
	// a watch on the old inode would go quiet.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(s.path)
			if err != nil {
				log.Warn().Err(err).Str("path", s.path).Msg("config: reload failed, keeping previous")
				continue
			}
			s.mu.Lock()
			s.cfg = cfg
			s.mu.Unlock()
			log.Info().Str("path", s.path).Msg("config: reloaded")
			if onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config: watcher error")
		}
	}
}
