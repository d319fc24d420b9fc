package bridge_test

import (
	"context"
	"testing"

	"github.com/httprunner/DroidProbe/internal/bridgetest"
	"github.com/httprunner/DroidProbe/pkg/bridge"
)

func TestListDevicesParsesStates(t *testing.T) {
	r := bridgetest.New()
	r.Set(r.Client.DevicesLine(), "List of attached devices\n\nABC123\tdevice\nXYZ999\tunauthorized\n")

	devices := r.Client.ListDevices(context.Background())
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d: %+v", len(devices), devices)
	}
	if devices[0].Serial != "ABC123" || devices[0].State != bridge.StateConnected {
		t.Fatalf("unexpected first device: %+v", devices[0])
	}
	if devices[1].Serial != "XYZ999" || devices[1].State != bridge.StateUnauthorized {
		t.Fatalf("unexpected second device: %+v", devices[1])
	}
}

func TestParseDevicesSkipsMalformedLines(t *testing.T) {
	out := "List of attached devices\nno-tab-here\nOFF1\toffline\r\nWEIRD\tsideload\nDUP\tdevice\nDUP\toffline\n"
	devices := bridge.ParseDevices(out)
	if len(devices) != 3 {
		t.Fatalf("expected 3 devices, got %d: %+v", len(devices), devices)
	}
	if devices[0].State != bridge.StateOffline {
		t.Fatalf("expected offline, got %v", devices[0].State)
	}
	if devices[1].State != bridge.StateUnknown || devices[1].RawState != "sideload" {
		t.Fatalf("unrecognised token should map to unknown: %+v", devices[1])
	}
	if devices[2].State != bridge.StateConnected {
		t.Fatalf("first duplicate should win: %+v", devices[2])
	}
}

func TestParseDevicesLongFormat(t *testing.T) {
	devices := bridge.ParseDevices("List of attached devices\nR58M\tdevice usb:1-1 product:beyond1 model:SM_G973F\n")
	if len(devices) != 1 || devices[0].State != bridge.StateConnected {
		t.Fatalf("unexpected devices: %+v", devices)
	}
}

func TestListDevicesCommandFailure(t *testing.T) {
	r := bridgetest.New()
	r.Fail(r.Client.DevicesLine())
	devices := r.Client.ListDevices(context.Background())
	if devices == nil || len(devices) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", devices)
	}
}

func TestIsConnected(t *testing.T) {
	cases := map[string]bool{
		"device\n":        true,
		"  device  ":      true,
		"offline":         false,
		"unauthorized":    false,
		"":                false,
		"no device":       false,
		"device offline":  false,
		"error: no devices/emulators found": false,
	}
	for output, want := range cases {
		r := bridgetest.New()
		r.Set(r.Client.StateLine("S1"), output)
		ctx := context.Background()
		if got := r.Client.IsConnected(ctx, "S1"); got != want {
			t.Errorf("IsConnected(%q) = %v, want %v", output, got, want)
		}
		// repeated calls give the same answer
		if got := r.Client.IsConnected(ctx, "S1"); got != want {
			t.Errorf("second IsConnected(%q) = %v, want %v", output, got, want)
		}
	}
}

func TestGetPropertyTrimsAndReportsAbsence(t *testing.T) {
	r := bridgetest.New()
	r.Prop("S1", "ro.product.model", "  Pixel 7\r\n")
	r.Prop("S1", "ro.product.device", "   \n")
	ctx := context.Background()

	if v, ok := r.Client.GetProperty(ctx, "S1", "ro.product.model"); !ok || v != "Pixel 7" {
		t.Fatalf("unexpected model: %q %v", v, ok)
	}
	if v, ok := r.Client.GetProperty(ctx, "S1", "ro.product.device"); ok {
		t.Fatalf("blank property should be absent, got %q", v)
	}
	r.Fail(r.Client.ShellLine("S1", "getprop ro.build.id"))
	if _, ok := r.Client.GetProperty(ctx, "S1", "ro.build.id"); ok {
		t.Fatal("unstarted command should be absent")
	}
}

func TestShellLineQuoting(t *testing.T) {
	c := bridge.NewClient(nil, bridge.Options{ADBPath: "/opt/adb"})
	got := c.ShellLine("S1", "echo 'hi'")
	want := `/opt/adb -s S1 shell 'echo '\''hi'\''' 2>/dev/null`
	if got != want {
		t.Fatalf("ShellLine = %q, want %q", got, want)
	}
	if c.RebootCommand("", bridge.RebootSystem) != "/opt/adb reboot" {
		t.Fatalf("unexpected system reboot command: %q", c.RebootCommand("", bridge.RebootSystem))
	}
}

func TestRebootFailureMarkers(t *testing.T) {
	ctx := context.Background()
	r := bridgetest.New()
	r.Set(r.Client.RebootLine("S1", bridge.RebootRecovery), "")
	if !r.Client.Reboot(ctx, "S1", bridge.RebootRecovery) {
		t.Fatal("silent reboot should succeed")
	}

	r.Set(r.Client.RebootLine("S1", bridge.RebootDownload), "error: closed")
	res := r.Client.RebootDetailed(ctx, "S1", bridge.RebootDownload)
	if res.Success {
		t.Fatal("output containing error must fail")
	}
	if res.Command != "adb -s S1 reboot download" {
		t.Fatalf("unexpected command: %q", res.Command)
	}

	r.Set(r.Client.RebootLine("S1", bridge.RebootBootloader), "reboot failed")
	if r.Client.Reboot(ctx, "S1", bridge.RebootBootloader) {
		t.Fatal("output containing failed must fail")
	}

	r.Fail(r.Client.RebootLine("S1", bridge.RebootSystem))
	res = r.Client.RebootDetailed(ctx, "S1", bridge.RebootSystem)
	if res.Success || res.Output != "Error: Failed to execute command" {
		t.Fatalf("unexpected result for unstarted reboot: %+v", res)
	}
}

func TestRebootDetailedEmptyOutput(t *testing.T) {
	r := bridgetest.New()
	res := r.Client.RebootDetailed(context.Background(), "S1", bridge.RebootBootloader)
	if !res.Success || res.Output != "Command sent successfully (no output)" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestLocatorFallsBackToCandidates(t *testing.T) {
	r := bridgetest.New()
	loc := bridge.NewLocator(r)
	loc.IsExecutable = func(path string) bool { return path == "/usr/local/bin/fastboot" }
	if got := loc.LocateFastboot(context.Background()); got != "/usr/local/bin/fastboot" {
		t.Fatalf("unexpected fastboot path: %q", got)
	}

	r.Set("which fastboot 2>/dev/null", "/home/u/platform-tools/fastboot\n")
	if got := loc.LocateFastboot(context.Background()); got != "/home/u/platform-tools/fastboot" {
		t.Fatalf("which result should win: %q", got)
	}

	loc.IsExecutable = func(string) bool { return false }
	if got := loc.LocateADB(context.Background()); got != "adb" {
		t.Fatalf("expected literal adb fallback, got %q", got)
	}
}
