package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/httprunner/DroidProbe/pkg/probe"
	"github.com/httprunner/DroidProbe/pkg/rom"
)

func sampleReport(serial string, at time.Time) *probe.Report {
	rec := rom.Record{Codename: "panther", IsSupported: true}
	return &probe.Report{
		Serial:    serial,
		ScannedAt: at,
		Device:    &probe.DeviceInfo{Serial: serial, Manufacturer: "Google", Model: "Pixel 7", Codename: "panther"},
		Root:      &probe.RootInfo{Status: probe.Rooted, Method: probe.MethodMagisk},
		SELinux:   probe.SELinuxEnforcing,
		ROM:       &probe.ROMResult{Codename: "panther", Found: true, Record: &rec},
	}
}

func TestSQLiteRecorderRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.sqlite")
	rec, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer rec.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, serial := range []string{"S1", "S2", "S1"} {
		if err := rec.Record(ctx, "host-a", sampleReport(serial, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	entries, err := rec.History(ctx, "S1", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 rows for S1, got %d", len(entries))
	}
	if !entries[0].ScannedAt.After(entries[1].ScannedAt) {
		t.Fatalf("rows should be newest first: %v, %v", entries[0].ScannedAt, entries[1].ScannedAt)
	}
	first := entries[0]
	if first.HostID != "host-a" || first.Model != "Pixel 7" || first.RootStatus != "Rooted" || first.SELinux != "Enforcing" || !first.ROMSupported {
		t.Fatalf("unexpected row: %+v", first)
	}

	var decoded map[string]any
	if err := json.Unmarshal(first.Report, &decoded); err != nil {
		t.Fatalf("stored report is not JSON: %v", err)
	}
	if decoded["serial"] != "S1" {
		t.Fatalf("unexpected stored serial: %v", decoded["serial"])
	}

	all, err := rec.History(ctx, "", 1)
	if err != nil {
		t.Fatalf("History all failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("limit not applied: %d", len(all))
	}
}

func TestSQLiteRecorderSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.sqlite")
	rec, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := rec.Record(context.Background(), "", &probe.Report{Serial: "S9"}); err != nil {
		t.Fatalf("record with empty sections failed: %v", err)
	}
	rec.Close()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open for verification: %v", err)
	}
	defer db.Close()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM scan_history WHERE serial = 'S9'").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestRecordRejectsNilReport(t *testing.T) {
	rec, err := OpenSQLite(filepath.Join(t.TempDir(), "h.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer rec.Close()
	if err := rec.Record(context.Background(), "h", nil); err == nil {
		t.Fatal("expected error for nil report")
	}
	var noop Recorder = NoopRecorder{}
	if err := noop.Record(context.Background(), "h", nil); err != nil {
		t.Fatalf("noop recorder should never fail: %v", err)
	}
}
