// Package recorder persists analysis reports as scan history.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/httprunner/DroidProbe/pkg/probe"
)

const (
	defaultDBDirName  = ".droidprobe"
	defaultDBFileName = "history.sqlite"
	historyTableName  = "scan_history"
)

// Recorder stores finished reports.
type Recorder interface {
	Record(ctx context.Context, hostID string, report *probe.Report) error
	Close() error
}

// NoopRecorder is used when history is disabled.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, string, *probe.Report) error { return nil }
func (NoopRecorder) Close() error                                       { return nil }

// Entry is one scan_history row.
type Entry struct {
	ID           int64
	HostID       string
	Serial       string
	Manufacturer string
	Model        string
	Codename     string
	RootStatus   string
	SELinux      string
	ROMSupported bool
	ScannedAt    time.Time
	Report       json.RawMessage
}

// SQLiteRecorder writes reports into a local SQLite database.
type SQLiteRecorder struct {
	db   *sql.DB
	stmt *sql.Stmt
	path string
}

// DefaultPath is $HOME/.droidprobe/history.sqlite.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "recorder: locate user home failed")
	}
	return filepath.Join(home, defaultDBDirName, defaultDBFileName), nil
}

// OpenSQLite opens (creating if needed) the history database at path. An empty
// path selects DefaultPath.
func OpenSQLite(path string) (*SQLiteRecorder, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "recorder: create dir %s failed", filepath.Dir(path))
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "recorder: open sqlite database failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := prepareSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	stmt, err := db.Prepare(`INSERT INTO ` + historyTableName + ` (
		host_id, serial, manufacturer, model, codename, root_status, selinux, rom_supported, scanned_at, report
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "recorder: prepare sqlite insert failed")
	}
	log.Debug().Str("path", path).Msg("recorder: sqlite history opened")
	return &SQLiteRecorder{db: db, stmt: stmt, path: path}, nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "recorder: execute %s failed", pragma)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return nil
}

func prepareSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + historyTableName + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			host_id TEXT,
			serial TEXT NOT NULL,
			manufacturer TEXT,
			model TEXT,
			codename TEXT,
			root_status TEXT,
			selinux TEXT,
			rom_supported INTEGER NOT NULL DEFAULT 0,
			scanned_at INTEGER NOT NULL,
			report TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_history_serial ON ` + historyTableName + ` (serial, scanned_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "recorder: prepare schema failed")
		}
	}
	return nil
}

// Path returns the database file location.
func (s *SQLiteRecorder) Path() string { return s.path }

// Record inserts one row for report.
func (s *SQLiteRecorder) Record(ctx context.Context, hostID string, report *probe.Report) error {
	if s == nil || s.db == nil || s.stmt == nil {
		return errors.New("recorder: sqlite recorder nil")
	}
	if report == nil {
		return errors.New("recorder: nil report")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "recorder: marshal report failed")
	}
	scannedAt := report.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}

	var manufacturer, model, codename, rootStatus string
	if report.Device != nil {
		manufacturer, model, codename = report.Device.Manufacturer, report.Device.Model, report.Device.Codename
	}
	if report.Root != nil {
		rootStatus = report.Root.Status.String()
	}
	romSupported := report.ROM != nil && report.ROM.Record != nil && report.ROM.Record.IsSupported

	_, err = s.stmt.ExecContext(ctx,
		hostID,
		report.Serial,
		manufacturer,
		model,
		codename,
		rootStatus,
		report.SELinux.String(),
		romSupported,
		scannedAt.UnixMilli(),
		string(payload),
	)
	if err != nil {
		return errors.Wrap(err, "recorder: insert scan history failed")
	}
	return nil
}

// History returns up to limit rows, newest first. An empty serial lists every
// device.
func (s *SQLiteRecorder) History(ctx context.Context, serial string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("recorder: sqlite recorder nil")
	}
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, host_id, serial, manufacturer, model, codename, root_status, selinux, rom_supported, scanned_at, report
		FROM ` + historyTableName
	args := []any{}
	if serial = strings.TrimSpace(serial); serial != "" {
		query += ` WHERE serial = ?`
		args = append(args, serial)
	}
	query += ` ORDER BY scanned_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "recorder: query scan history failed")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			hostID    sql.NullString
			fields    [5]sql.NullString
			scannedAt int64
			report    sql.NullString
		)
		if err := rows.Scan(&e.ID, &hostID, &e.Serial,
			&fields[0], &fields[1], &fields[2], &fields[3], &fields[4],
			&e.ROMSupported, &scannedAt, &report); err != nil {
			return nil, errors.Wrap(err, "recorder: scan history row failed")
		}
		e.HostID = hostID.String
		e.Manufacturer, e.Model, e.Codename = fields[0].String, fields[1].String, fields[2].String
		e.RootStatus, e.SELinux = fields[3].String, fields[4].String
		e.ScannedAt = time.UnixMilli(scannedAt)
		if report.Valid {
			e.Report = json.RawMessage(report.String)
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "recorder: iterate scan history failed")
}

// Close releases the database.
func (s *SQLiteRecorder) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.stmt != nil {
		s.stmt.Close()
	}
	return s.db.Close()
}
