package rom

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleDB = `{
  "devices": [
    {"codename": "bacon", "is_supported": true, "latest_lineage_version": "18.1",
     "maintainer": "someone", "download_url": "https://example.org/bacon",
     "all_versions": ["18.1", "17.1", "16.0"]},
    {"codename": "sargo", "is_supported": false},
    {"codename": "oriole", "is_supported": true, "all_versions": ["22.1"]}
  ]
}`

func TestCheckPreservesVersionOrder(t *testing.T) {
	l := New()
	if err := l.LoadBytes([]byte(sampleDB)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	rec, ok := l.Check("bacon")
	if !ok {
		t.Fatal("bacon should be found")
	}
	if !rec.IsSupported || rec.LatestVersion != "18.1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !reflect.DeepEqual(rec.AvailableVersions, []string{"18.1", "17.1", "16.0"}) {
		t.Fatalf("versions out of order: %v", rec.AvailableVersions)
	}
	if _, ok := l.Check("unknown_codename"); ok {
		t.Fatal("unknown codename should be absent")
	}
	if _, ok := l.Check("Bacon"); ok {
		t.Fatal("lookup must be case-sensitive")
	}
}

func TestMissingFieldsDefault(t *testing.T) {
	l := New()
	if err := l.LoadBytes([]byte(sampleDB)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	rec, ok := l.Check("sargo")
	if !ok {
		t.Fatal("sargo should be found")
	}
	if rec.IsSupported || rec.Maintainer != "" || rec.AvailableVersions == nil || len(rec.AvailableVersions) != 0 {
		t.Fatalf("unexpected defaults: %+v", rec)
	}
}

func TestSupportedCodenamesInLoadOrder(t *testing.T) {
	l := New()
	if err := l.LoadBytes([]byte(sampleDB)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	got := l.SupportedCodenames()
	if !reflect.DeepEqual(got, []string{"bacon", "oriole"}) {
		t.Fatalf("unexpected supported list: %v", got)
	}
}

func TestDuplicateCodenameLastWriteWins(t *testing.T) {
	l := New()
	doc := `{"devices": [
		{"codename": "a", "is_supported": false},
		{"codename": "b", "is_supported": true},
		{"codename": "a", "is_supported": true, "maintainer": "second"}
	]}`
	if err := l.LoadBytes([]byte(doc)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	rec, _ := l.Check("a")
	if !rec.IsSupported || rec.Maintainer != "second" {
		t.Fatalf("last record should win: %+v", rec)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 codenames, got %d", l.Len())
	}
	if got := l.SupportedCodenames(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestMalformedDocumentKeepsPreviousTable(t *testing.T) {
	l := New()
	if err := l.LoadBytes([]byte(sampleDB)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	bad := []string{
		`{"devices": [`,
		`{"phones": []}`,
		`{"devices": [{"codename": "x", "is_supported": "yes"}]}`,
		`not json`,
		sampleDB + ` }}} not json`,
		sampleDB + sampleDB,
	}
	for _, doc := range bad {
		if err := l.LoadBytes([]byte(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
		if _, ok := l.Check("bacon"); !ok {
			t.Fatalf("table should survive failed load of %q", doc)
		}
	}
}

func TestEmptyLookupReportsNotFound(t *testing.T) {
	l := New()
	if err := l.LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, ok := l.Check("bacon"); ok {
		t.Fatal("empty lookup should not find anything")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte(sampleDB), 0o644); err != nil {
		t.Fatalf("write db: %v", err)
	}
	l := New()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if l.Source() != path {
		t.Fatalf("unexpected source %q", l.Source())
	}
	if l.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", l.Len())
	}
}

func TestFormat(t *testing.T) {
	supported := Format(Record{
		Codename:          "bacon",
		IsSupported:       true,
		LatestVersion:     "18.1",
		Maintainer:        "someone",
		DownloadURL:       "https://example.org/bacon",
		AvailableVersions: []string{"18.1", "17.1"},
	})
	want := "Device: bacon\nStatus: Supported\nLatest Version: 18.1\nMaintainer: someone\nDownload: https://example.org/bacon\nAvailable Versions: 18.1, 17.1\n"
	if supported != want {
		t.Fatalf("unexpected format:\n%s", supported)
	}

	unsupported := Format(Record{Codename: "sargo", LatestVersion: "20.0"})
	if unsupported != "Device: sargo\nStatus: Not Supported\n" {
		t.Fatalf("unsupported record should omit details:\n%s", unsupported)
	}
	if strings.Contains(unsupported, "Latest") {
		t.Fatal("unexpected details")
	}
}

func TestEmbeddedDatabase(t *testing.T) {
	l := NewDefault()
	if l.Len() == 0 {
		t.Fatal("embedded database should not be empty")
	}
	if _, ok := l.Check("bacon"); !ok {
		t.Fatal("embedded database should contain bacon")
	}
}
