// Package controller selects and opens a data store backend from a
// configuration. The configuration can be read from a YAML file:
//
//	backend: filesystem
//	path: /var/lib/bottlerocket/datastore/current
//	metrics: true
//
// The backends are "memory", "filesystem" and "bolt". The path is the base
// directory of the filesystem store, or the database file of the bolt store.
// It is ignored by the memory store.
//
// Documentation Last Review: 18.10.2026
package controller

import (
	"os"

	"github.com/jmt-lab/bottlerocket"
	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/jmt-lab/bottlerocket/datastore/bolt"
	"github.com/jmt-lab/bottlerocket/datastore/filesystem"
	"github.com/jmt-lab/bottlerocket/datastore/mem"
	"github.com/jmt-lab/bottlerocket/datastore/monitor"
	"github.com/jmt-lab/bottlerocket/datastore/watch"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

const (
	// BackendMemory keeps the data in memory for the lifetime of the process.
	BackendMemory = "memory"

	// BackendFilesystem persists the data in a directory tree.
	BackendFilesystem = "filesystem"

	// BackendBolt persists the data in a bbolt database file.
	BackendBolt = "bolt"

	// DefaultPath is the default base path of the filesystem store.
	DefaultPath = "/var/lib/bottlerocket/datastore/current"
)

// Config is the configuration of a data store.
type Config struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Metrics bool   `yaml:"metrics"`
}

// DefaultConfig returns the configuration of the filesystem store at its
// default location.
func DefaultConfig() Config {
	return Config{
		Backend: BackendFilesystem,
		Path:    DefaultPath,
	}
}

// LoadConfig reads the YAML file at the given path on top of the default
// configuration. Unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerrors.Errorf("failed to read config file: %v", err)
	}

	err = yaml.UnmarshalStrict(buf, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to unmarshal config: %v", err)
	}

	return cfg, nil
}

// Validate returns an error if the configuration cannot open a store.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendFilesystem, BackendBolt:
		if c.Path == "" {
			return xerrors.Errorf("backend '%s' requires a path", c.Backend)
		}

		return nil
	default:
		return xerrors.Errorf("unknown backend '%s'", c.Backend)
	}
}

// Store is an opened data store that must be closed when it is not used
// anymore. Observers can watch its commits.
//
// - implements datastore.DataStore
type Store struct {
	datastore.DataStore

	watcher *watch.Watcher
	close   func() error
}

// Watch adds an observer notified of the keys changed by every commit.
func (s *Store) Watch(observer watch.Observer) {
	s.watcher.Add(observer)
}

// Unwatch removes the observer.
func (s *Store) Unwatch(observer watch.Observer) {
	s.watcher.Remove(observer)
}

// Close releases the resources of the backend.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}

	err := s.close()
	if err != nil {
		return xerrors.Errorf("failed to close store: %v", err)
	}

	return nil
}

// Open opens the store described by the configuration. The store is wrapped
// with the metrics decorator when they are enabled.
func Open(cfg Config) (*Store, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, xerrors.Errorf("invalid config: %v", err)
	}

	store := &Store{
		watcher: watch.NewWatcher(),
	}

	switch cfg.Backend {
	case BackendMemory:
		store.DataStore = mem.NewDataStore()
	case BackendFilesystem:
		store.DataStore = filesystem.NewDataStore(cfg.Path)
	case BackendBolt:
		db, err := bolt.NewDataStore(cfg.Path)
		if err != nil {
			return nil, xerrors.Errorf("failed to open bolt store: %v", err)
		}

		store.DataStore = db
		store.close = db.Close
	}

	if cfg.Metrics {
		store.DataStore = monitor.NewDataStore(store.DataStore)
	}

	store.DataStore = watch.NewDataStore(store.DataStore, store.watcher)

	bottlerocket.Logger.Debug().
		Str("backend", cfg.Backend).
		Str("path", cfg.Path).
		Bool("metrics", cfg.Metrics).
		Msg("data store opened")

	return store, nil
}
