package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	droidprobe "github.com/httprunner/DroidProbe"
	"github.com/httprunner/DroidProbe/internal/config"
	"github.com/httprunner/DroidProbe/pkg/recorder"
)

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// loadStore never fails the command: a broken config file only costs the
// saved preferences.
func loadStore() *config.Store {
	store, err := config.OpenStore()
	if err != nil {
		log.Warn().Err(err).Msg("config: using defaults")
	}
	if store == nil {
		store = config.NewStore("")
	}
	return store
}

// historyPath returns "" when history is disabled.
func historyPath() string {
	path := firstNonEmpty(flagHistoryDB, config.String(config.EnvScanHistoryDB, ""))
	if strings.EqualFold(path, "off") || strings.EqualFold(path, "none") {
		return ""
	}
	if path == "" {
		if def, err := recorder.DefaultPath(); err == nil {
			return def
		}
	}
	return path
}

type session struct {
	analyzer *droidprobe.Analyzer
	store    *config.Store
}

// openSession builds the analyzer with flag > env > saved config precedence
// for the adb path. withHistory attaches the SQLite recorder.
func openSession(ctx context.Context, withHistory bool) (*session, error) {
	store := loadStore()
	opts := droidprobe.OptionsFromEnv()
	opts.ADBPath = firstNonEmpty(flagADB, opts.ADBPath, store.Settings().ADBPath)
	opts.Transport = firstNonEmpty(flagTransport, opts.Transport)
	opts.ROMDBPath = firstNonEmpty(flagROMDB, opts.ROMDBPath)

	if withHistory {
		if path := historyPath(); path != "" {
			rec, err := recorder.OpenSQLite(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("scan history disabled")
			} else {
				opts.Recorder = rec
			}
		}
	}

	analyzer, err := droidprobe.NewAnalyzer(ctx, opts)
	if err != nil {
		if opts.Recorder != nil {
			opts.Recorder.Close()
		}
		return nil, err
	}
	return &session{analyzer: analyzer, store: store}, nil
}

func (s *session) Close() {
	if err := s.analyzer.Close(); err != nil {
		log.Warn().Err(err).Msg("close analyzer failed")
	}
}

// serial resolves the target device.
func (s *session) serial(ctx context.Context) (string, error) {
	return s.analyzer.SelectDevice(ctx, flagSerial, s.store.Settings().LastDevice)
}

// remember saves serial as last_device once an analysis of it succeeded.
func (s *session) remember(serial string) {
	if serial == "" || serial == s.store.Settings().LastDevice {
		return
	}
	s.store.SetLastDevice(serial)
	if err := s.store.Save(); err != nil {
		log.Debug().Err(err).Msg("config: save last device failed")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode json")
	}
	return nil
}

func writeText(w io.Writer, s string) {
	fmt.Fprintln(w, strings.TrimRight(s, "\n"))
}
