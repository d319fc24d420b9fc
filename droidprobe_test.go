package droidprobe

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/httprunner/DroidProbe/internal/bridgetest"
	"github.com/httprunner/DroidProbe/pkg/probe"
)

type stubRecorder struct {
	mu      sync.Mutex
	reports []*probe.Report
	hosts   []string
}

func (r *stubRecorder) Record(_ context.Context, hostID string, report *probe.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	r.hosts = append(r.hosts, hostID)
	return nil
}

func (r *stubRecorder) Close() error { return nil }

func newTestAnalyzer(t *testing.T, r *bridgetest.Runner, opts Options) *Analyzer {
	t.Helper()
	opts.Runner = r
	opts.ADBPath = "adb"
	opts.FastbootPath = "fastboot"
	a, err := NewAnalyzer(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	return a
}

func pixel(r *bridgetest.Runner, serial string) {
	r.Prop(serial, "ro.product.manufacturer", "Google").
		Prop(serial, "ro.product.model", "Pixel 3a").
		Prop(serial, "ro.product.device", "sargo").
		Prop(serial, "ro.product.cpu.abi", "arm64-v8a").
		Shell(serial, "getenforce", "Enforcing").
		Prop(serial, "ro.boot.slot_suffix", "_a")
}

func TestAnalyzeFillsEverySection(t *testing.T) {
	r := bridgetest.New()
	pixel(r, "S1")
	rec := &stubRecorder{}
	a := newTestAnalyzer(t, r, Options{Recorder: rec})

	report := a.Analyze(context.Background(), "S1")
	if report.Device == nil || report.Device.Codename != "sargo" {
		t.Fatalf("device section missing: %+v", report.Device)
	}
	if report.Root == nil || report.Root.Status != probe.NotRooted {
		t.Fatalf("unexpected root section: %+v", report.Root)
	}
	if report.Bootloader == nil || report.Bootloader.Status != probe.BootloaderUnknown {
		t.Fatalf("unexpected bootloader section: %+v", report.Bootloader)
	}
	if report.SELinux != probe.SELinuxEnforcing || report.Slots == nil || !report.Slots.HasAB {
		t.Fatalf("unexpected security sections: %+v", report)
	}
	if report.ROM == nil || !report.ROM.Found || report.ROM.Record.IsSupported {
		t.Fatalf("sargo should be found and unsupported in the embedded db: %+v", report.ROM)
	}
	if len(rec.reports) != 1 || rec.reports[0] != report {
		t.Fatalf("report not recorded: %+v", rec.reports)
	}
	if r.Count("getvar") != 0 || r.Count(" reboot") != 0 {
		t.Fatalf("analysis must stay read-only: %v", r.Calls())
	}
}

func TestAnalyzeUnidentifiedDevice(t *testing.T) {
	r := bridgetest.New()
	a := newTestAnalyzer(t, r, Options{})
	report := a.Analyze(context.Background(), "S1")
	if report.Device != nil || report.ROM != nil {
		t.Fatalf("unidentified device should leave device and rom empty: %+v", report)
	}
	if report.Root == nil {
		t.Fatal("root analysis should still run")
	}
}

func TestAnalyzeAllKeepsEnumerationOrder(t *testing.T) {
	r := bridgetest.New()
	r.Set(r.Client.DevicesLine(), "List of devices attached\nS2\tdevice\nS1\tdevice\nS3\tunauthorized\nS4\tdevice\n")
	for _, s := range []string{"S1", "S2", "S4"} {
		pixel(r, s)
	}
	rec := &stubRecorder{}
	a := newTestAnalyzer(t, r, Options{Recorder: rec, Concurrency: 3, Allowlist: []string{"S1", "S2", "S3"}})

	reports, err := a.AnalyzeAll(context.Background())
	if err != nil {
		t.Fatalf("AnalyzeAll failed: %v", err)
	}
	var got []string
	for _, rep := range reports {
		got = append(got, rep.Serial)
	}
	if !reflect.DeepEqual(got, []string{"S2", "S1"}) {
		t.Fatalf("unexpected serials %v", got)
	}
	if len(rec.reports) != 2 {
		t.Fatalf("expected 2 recorded reports, got %d", len(rec.reports))
	}
}

func TestAnalyzeAllNoDevice(t *testing.T) {
	r := bridgetest.New()
	a := newTestAnalyzer(t, r, Options{})
	if _, err := a.AnalyzeAll(context.Background()); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
}

func TestSelectDevice(t *testing.T) {
	r := bridgetest.New()
	r.Set(r.Client.DevicesLine(), "List of devices attached\nA\tdevice\nB\tdevice\nC\toffline\n")
	a := newTestAnalyzer(t, r, Options{})
	ctx := context.Background()

	if got, err := a.SelectDevice(ctx, "X", ""); err != nil || got != "X" {
		t.Fatalf("explicit serial should win: %q %v", got, err)
	}
	if got, err := a.SelectDevice(ctx, "", "B"); err != nil || got != "B" {
		t.Fatalf("preferred serial should be used: %q %v", got, err)
	}
	if _, err := a.SelectDevice(ctx, "", "C"); !errors.Is(err, ErrMultipleDevices) {
		t.Fatalf("offline preferred device should not be chosen: %v", err)
	}

	single := newTestAnalyzer(t, r, Options{Allowlist: []string{"A"}})
	if got, err := single.SelectDevice(ctx, "", ""); err != nil || got != "A" {
		t.Fatalf("only allowed device should be chosen: %q %v", got, err)
	}
	if _, err := single.SelectDevice(ctx, "B", ""); err == nil {
		t.Fatal("explicit serial outside allowlist should be rejected")
	}

	empty := newTestAnalyzer(t, bridgetest.New(), Options{})
	if _, err := empty.SelectDevice(ctx, "", ""); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
}

func TestNewAnalyzerErrors(t *testing.T) {
	if _, err := NewAnalyzer(context.Background(), Options{Transport: "usb"}); err == nil {
		t.Fatal("unknown transport should fail")
	}
	_, err := NewAnalyzer(context.Background(), Options{
		Runner:    bridgetest.New(),
		ADBPath:   "adb",
		ROMDBPath: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil {
		t.Fatal("missing rom database should fail")
	}
}

func TestParseAllowlist(t *testing.T) {
	got := ParseAllowlist(" A, B;C|A\tD ")
	if !reflect.DeepEqual(got, []string{"A", "B", "C", "D"}) {
		t.Fatalf("unexpected allowlist %v", got)
	}
	if ParseAllowlist("  ") != nil {
		t.Fatal("blank allowlist should be nil")
	}
	if !newAllowlist(nil).allows("anything") {
		t.Fatal("nil allowlist should allow every serial")
	}
}

func TestGroupGoSafeRecoversPanic(t *testing.T) {
	var group errgroup.Group
	var caught error
	groupGoSafe(context.Background(), &group, "boom", func(context.Context) error {
		panic("kaput")
	}, func(err error) { caught = err })
	if err := group.Wait(); err != nil {
		t.Fatalf("panic should not surface as group error: %v", err)
	}
	if caught == nil {
		t.Fatal("panic should be reported")
	}
}
