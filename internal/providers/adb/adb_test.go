package adb

import (
	"context"
	"reflect"
	"testing"

	"github.com/httprunner/DroidProbe/pkg/bridge"
)

func TestParseCommandLineFromClient(t *testing.T) {
	client := bridge.NewClient(bridge.RunnerFunc(func(context.Context, string) (string, bool) { return "", true }),
		bridge.Options{ADBPath: "/opt/android/platform-tools/adb"})

	cases := []struct {
		line string
		want Command
	}{
		{client.DevicesLine(), Command{IsADB: true, Verb: "devices"}},
		{client.StateLine("S1"), Command{IsADB: true, Serial: "S1", Verb: "get-state"}},
		{client.SerialNoLine(""), Command{IsADB: true, Verb: "get-serialno"}},
		{client.ShellLine("S1", "getprop ro.product.model"), Command{IsADB: true, Serial: "S1", Verb: "shell", Args: []string{"getprop ro.product.model"}}},
		{client.ShellLine("S1", "echo 'it''s'"), Command{IsADB: true, Serial: "S1", Verb: "shell", Args: []string{"echo 'it''s'"}}},
		{client.ShellLine("S1", "ls -s /data"), Command{IsADB: true, Serial: "S1", Verb: "shell", Args: []string{"ls -s /data"}}},
		{client.RebootLine("S1", bridge.RebootRecovery), Command{IsADB: true, Serial: "S1", Verb: "reboot", Args: []string{"recovery"}}},
		{client.RebootLine("S1", bridge.RebootSystem), Command{IsADB: true, Serial: "S1", Verb: "reboot"}},
		{client.RebootLine("a b;*", bridge.RebootBootloader), Command{IsADB: true, Serial: "a b;*", Verb: "reboot", Args: []string{"bootloader"}}},
		{client.FastbootLine("S1", "getvar unlocked"), Command{Serial: "S1", Verb: "getvar", Args: []string{"unlocked"}}},
	}
	for _, tc := range cases {
		got, err := ParseCommandLine(tc.line)
		if err != nil {
			t.Fatalf("ParseCommandLine(%q) failed: %v", tc.line, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseCommandLine(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func TestParseCommandLineErrors(t *testing.T) {
	for _, line := range []string{"", "adb", "adb -s S1", "adb shell 'unterminated"} {
		if _, err := ParseCommandLine(line); err == nil {
			t.Errorf("expected error for %q", line)
		}
	}
}

func TestIsADBExecutable(t *testing.T) {
	for path, want := range map[string]bool{
		"adb":                            true,
		"/usr/bin/adb":                   true,
		`C:\platform-tools\adb.exe`:      true,
		"fastboot":                       false,
		"which":                          false,
		"/home/u/adb-tools/fastboot.exe": false,
	} {
		if got := isADBExecutable(path); got != want {
			t.Errorf("isADBExecutable(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestRunDelegatesUnservedCommands(t *testing.T) {
	var seen []string
	fallback := bridge.RunnerFunc(func(_ context.Context, cmdline string) (string, bool) {
		seen = append(seen, cmdline)
		return "ok", true
	})
	r := &Runner{fallback: fallback}
	for _, line := range []string{"adb version", "fastboot getvar unlocked 2>&1", "which adb 2>/dev/null", "adb -s S1 push 'a' 'b' 2>&1"} {
		out, started := r.Run(context.Background(), line)
		if !started || out != "ok" {
			t.Fatalf("Run(%q) = %q, %v; want fallback result", line, out, started)
		}
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 fallback calls, got %v", seen)
	}

	r = &Runner{}
	if _, started := r.Run(context.Background(), "adb version"); started {
		t.Fatal("unserved command without fallback should not start")
	}
}
