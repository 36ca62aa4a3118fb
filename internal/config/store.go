package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/tannoy/internal/logger"
)

// Store owns the configuration file. All reads return value copies so
// callers can never observe a half-applied update; all mutations go
// through Apply, which validates before persisting.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config
	log  *logger.Logger
}

// Load reads the configuration from path, filling unset fields with
// defaults. If the file does not exist it is created with the defaults
// so a fresh install starts from a readable baseline.
func Load(path string, log *logger.Logger) (*Store, error) {
	s := &Store{path: path, cfg: Default(), log: log}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info("config: %s not found, writing defaults", path)
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	// Unmarshalling over the default struct gives merge semantics: keys
	// absent from the file keep their default values.
	if err := yaml.Unmarshal(data, &s.cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	log.Debug("config: loaded %s", path)
	return s, nil
}

// Current returns a snapshot of the configuration. Callers re-read it
// on every operation; nothing caches across calls.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Apply merges a partial update into the configuration, validates the
// result, persists it, and returns the new snapshot. The stored config
// is untouched when validation or persistence fails.
func (s *Store) Apply(u Update) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	u.applyTo(&next)
	if err := next.Validate(); err != nil {
		return s.cfg, err
	}

	s.cfg = next
	if err := s.save(); err != nil {
		return s.cfg, err
	}
	s.log.Info("config: settings updated")
	return s.cfg, nil
}

// save writes the current config to disk. Callers must hold the write
// lock (or be the sole owner during Load).
func (s *Store) save() error {
	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", s.path, err)
	}
	return nil
}
