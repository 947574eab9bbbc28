// Package config implements the daemon's persisted JSON configuration:
// registered files and their prices, bootstrap peers, the listen address,
// and the wallet's private-key path.
// It is written atomically after every mutation via the persist package,
// the same way the teacher persists consensus/host state.
package config

import (
	"sync"

	"github.com/daminals/orcanet-go/persist"
)

var metadata = persist.Metadata{Header: "Marketplace Daemon Config", Version: "0.1"}

// RegisteredFile is one entry in the supplier's set of served files.
type RegisteredFile struct {
	FileInfoHash string `json:"file_info_hash"`
	Path         string `json:"path"`
	PricePerMB   int64  `json:"price_per_mb"`
}

// Config is the full persisted configuration document.
type Config struct {
	ListenAddr      string           `json:"listen_addr"`
	PrivateKeyPath  string           `json:"private_key_path"`
	BootstrapPeers  []string         `json:"bootstrap_peers"`
	RegisteredFiles []RegisteredFile `json:"registered_files"`
}

// Default returns a Config with the daemon's default listen address and key
// path, no bootstrap peers, and no registered files.
func Default() Config {
	return Config{
		ListenAddr:      "/ip4/0.0.0.0/tcp/4001",
		PrivateKeyPath:  "marketd.key",
		BootstrapPeers:  nil,
		RegisteredFiles: nil,
	}
}

// Store wraps a Config with the on-disk path it is persisted to, guarded by
// a mutex so that concurrent mutations (e.g. register_file calls arriving
// from multiple goroutines) don't race on the in-memory copy or interleave
// their writes.
type Store struct {
	mu   sync.Mutex
	path string
	cfg  Config
}

// Load reads the config at path, or returns a Store seeded with Default()
// if the file cannot be loaded for any reason (missing, unreadable, or
// failing its header, version or checksum check).
func Load(path string) (*Store, error) {
	var cfg Config
	if err := persist.LoadJSON(metadata, &cfg, path); err != nil {
		cfg = Default()
	}
	return &Store{path: path, cfg: cfg}, nil
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Mutate applies fn to the current configuration and persists the result
// atomically. fn's return value becomes the new in-memory configuration only
// if the save succeeds.
func (s *Store) Mutate(fn func(Config) Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.cfg)
	if err := persist.SaveJSON(metadata, next, s.path); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// AddRegisteredFile appends or replaces (by FileInfoHash) a registered file
// entry and persists the result.
func (s *Store) AddRegisteredFile(f RegisteredFile) error {
	return s.Mutate(func(c Config) Config {
		out := make([]RegisteredFile, 0, len(c.RegisteredFiles)+1)
		for _, existing := range c.RegisteredFiles {
			if existing.FileInfoHash != f.FileInfoHash {
				out = append(out, existing)
			}
		}
		out = append(out, f)
		c.RegisteredFiles = out
		return c
	})
}
