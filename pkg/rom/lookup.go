// Package rom answers offline LineageOS compatibility questions for a device codename.
package rom

import (
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//go:embed devices.json
var defaultDatabase []byte

// Record is one codename entry of the compatibility database.
type Record struct {
	Codename          string   `json:"codename"`
	IsSupported       bool     `json:"is_supported"`
	LatestVersion     string   `json:"latest_lineage_version"`
	Maintainer        string   `json:"maintainer"`
	DownloadURL       string   `json:"download_url"`
	AvailableVersions []string `json:"all_versions"`
}

type document struct {
	Devices *[]Record `json:"devices"`
}

// Lookup is the in-memory index. It is written by Load* only; reads after the
// startup load need no coordination, the lock only guards reloads.
type Lookup struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
	source  string
}

// New returns an empty Lookup: every Check reports "not found" until a load succeeds.
func New() *Lookup {
	return &Lookup{records: make(map[string]Record)}
}

// NewDefault returns a Lookup preloaded with the embedded database.
func NewDefault() *Lookup {
	l := New()
	if err := l.LoadBytes(defaultDatabase); err != nil {
		log.Warn().Err(err).Msg("rom: embedded database failed to load")
	}
	l.source = "embedded"
	return l
}

// LoadFile replaces the index with the contents of path.
func (l *Lookup) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read rom database %s", path)
	}
	if err := l.LoadBytes(data); err != nil {
		return errors.Wrapf(err, "load rom database %s", path)
	}
	l.mu.Lock()
	l.source = path
	l.mu.Unlock()
	return nil
}

// Load replaces the index with a document read from r.
func (l *Lookup) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read rom database")
	}
	return l.LoadBytes(data)
}

// LoadBytes parses a `{"devices": [...]}` document. On any error the previous
// index is kept untouched. Duplicate codenames: the last record wins but keeps
// the position of the first occurrence.
func (l *Lookup) LoadBytes(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "decode rom database")
	}
	if doc.Devices == nil {
		return errors.New("rom database has no devices key")
	}

	records := make(map[string]Record, len(*doc.Devices))
	order := make([]string, 0, len(*doc.Devices))
	for _, rec := range *doc.Devices {
		if _, exists := records[rec.Codename]; !exists {
			order = append(order, rec.Codename)
		}
		if rec.AvailableVersions == nil {
			rec.AvailableVersions = []string{}
		}
		records[rec.Codename] = rec
	}

	l.mu.Lock()
	l.records = records
	l.order = order
	l.mu.Unlock()
	log.Debug().Int("devices", len(order)).Msg("rom: database loaded")
	return nil
}

// Source names where the current index came from.
func (l *Lookup) Source() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.source
}

// Len returns the number of indexed codenames.
func (l *Lookup) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Check does an exact, case-sensitive lookup. ok is false when the codename is
// not in the database, which is a normal answer.
func (l *Lookup) Check(codename string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[codename]
	if !ok {
		return Record{}, false
	}
	rec.AvailableVersions = append([]string(nil), rec.AvailableVersions...)
	return rec, true
}

// SupportedCodenames lists supported codenames in load order.
func (l *Lookup) SupportedCodenames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.order))
	for _, codename := range l.order {
		if l.records[codename].IsSupported {
			out = append(out, codename)
		}
	}
	return out
}

// Format renders a record for display. Details are only shown for supported devices.
func Format(rec Record) string {
	var b strings.Builder
	b.WriteString("Device: " + rec.Codename + "\n")
	if rec.IsSupported {
		b.WriteString("Status: Supported\n")
	} else {
		b.WriteString("Status: Not Supported\n")
	}
	if !rec.IsSupported {
		return b.String()
	}
	b.WriteString("Latest Version: " + rec.LatestVersion + "\n")
	b.WriteString("Maintainer: " + rec.Maintainer + "\n")
	b.WriteString("Download: " + rec.DownloadURL + "\n")
	if len(rec.AvailableVersions) > 0 {
		b.WriteString("Available Versions: " + strings.Join(rec.AvailableVersions, ", ") + "\n")
	}
	return b.String()
}
