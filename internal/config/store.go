package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Settings is the persisted per-user configuration.
type Settings struct {
	// ADBPath is empty for auto-detection.
	ADBPath      string `json:"adb_path"`
	LastDevice   string `json:"last_device"`
	CheckUpdates bool   `json:"check_updates"`
}

// DefaultSettings returns the values written on first use.
func DefaultSettings() Settings {
	return Settings{CheckUpdates: true}
}

// Store reads and writes Settings as JSON.
type Store struct {
	mu       sync.Mutex
	path     string
	settings Settings
}

// DefaultStorePath is $DROIDPROBE_CONFIG, or $HOME/.config/droidprobe/config.json.
func DefaultStorePath() (string, error) {
	if custom := String(EnvConfigPath, ""); custom != "" {
		return custom, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "config: locate user home failed")
	}
	return filepath.Join(home, ".config", "droidprobe", "config.json"), nil
}

// NewStore binds a store to path without touching the disk.
func NewStore(path string) *Store {
	return &Store{path: path, settings: DefaultSettings()}
}

// OpenStore opens the store at the default location and loads it.
func OpenStore() (*Store, error) {
	path, err := DefaultStorePath()
	if err != nil {
		return nil, err
	}
	s := NewStore(path)
	return s, s.Load()
}

// Path returns the file the store is bound to.
func (s *Store) Path() string { return s.path }

// Settings returns a copy of the current values.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Load reads the file. A missing file is created with defaults; an unparsable
// one resets the in-memory values to defaults and returns the parse error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.settings = DefaultSettings()
		log.Debug().Str("path", s.path).Msg("config: creating default settings")
		return s.saveLocked()
	}
	if err != nil {
		return errors.Wrapf(err, "config: read %s", s.path)
	}
	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		s.settings = DefaultSettings()
		return errors.Wrapf(err, "config: parse %s", s.path)
	}
	s.settings = settings
	return nil
}

// Save writes the current values, creating the directory when needed.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "config: create dir for %s", s.path)
	}
	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return errors.Wrap(err, "config: marshal settings")
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "config: write %s", s.path)
	}
	return nil
}

// SetADBPath stores path after checking it is an executable regular file.
// An empty path restores auto-detection. Nothing is written; call Save.
func (s *Store) SetADBPath(path string) error {
	path = strings.TrimSpace(path)
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return errors.Wrapf(err, "config: adb path %s", path)
		}
		if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			return errors.Errorf("config: adb path %s is not an executable file", path)
		}
	}
	s.mu.Lock()
	s.settings.ADBPath = path
	s.mu.Unlock()
	return nil
}

// SetLastDevice remembers the most recently analyzed serial.
func (s *Store) SetLastDevice(serial string) {
	s.mu.Lock()
	s.settings.LastDevice = strings.TrimSpace(serial)
	s.mu.Unlock()
}

// SetCheckUpdates toggles the update check flag.
func (s *Store) SetCheckUpdates(enabled bool) {
	s.mu.Lock()
	s.settings.CheckUpdates = enabled
	s.mu.Unlock()
}
