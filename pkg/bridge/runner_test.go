package bridge_test

import (
	"context"
	"testing"

	"github.com/httprunner/DroidProbe/internal/bridgetest"
	"github.com/httprunner/DroidProbe/pkg/bridge"
)

func TestExecRunnerIgnoresDaemonChatter(t *testing.T) {
	adb, _ := bridgetest.FakeADB(t, bridgetest.DaemonStartADB)
	client := bridge.NewClient(bridge.NewExecRunner(), bridge.Options{ADBPath: adb})
	ctx := context.Background()

	if !client.IsConnected(ctx, "ABC123") {
		t.Fatalf("ABC123 should be connected, state %q", client.State(ctx, "ABC123"))
	}
	if got := client.SerialNo(ctx, "ABC123"); got != "ABC123" {
		t.Fatalf("SerialNo = %q, want ABC123", got)
	}
	if got := client.SerialNo(ctx, ""); got != "ABC123" {
		t.Fatalf("SerialNo without target = %q, want ABC123", got)
	}
	if got := client.SerialNo(ctx, "GONE"); got != "" {
		t.Fatalf("missing device should have no serial, got %q", got)
	}
	if client.IsConnected(ctx, "GONE") {
		t.Fatal("missing device should not be connected")
	}
}

func TestExecRunnerQuotesSerial(t *testing.T) {
	adb, logPath := bridgetest.FakeADB(t, bridgetest.DaemonStartADB)
	client := bridge.NewClient(bridge.NewExecRunner(), bridge.Options{ADBPath: adb})

	client.State(context.Background(), "* x; echo pwned")
	calls := bridgetest.FakeCalls(t, logPath)
	if len(calls) != 1 {
		t.Fatalf("expected a single adb invocation, got %q", calls)
	}
	if calls[0] != "-s * x; echo pwned get-state" {
		t.Fatalf("serial reached adb altered: %q", calls[0])
	}
}

func TestCommandLinesQuoteUnusualSerials(t *testing.T) {
	client := bridge.NewClient(bridgetest.New(), bridge.Options{ADBPath: "adb", FastbootPath: "fastboot"})
	if got := client.RebootCommand("192.168.1.5:5555", bridge.RebootRecovery); got != "adb -s 192.168.1.5:5555 reboot recovery" {
		t.Fatalf("plain serial should stay bare, got %q", got)
	}
	if got := client.RebootCommand("a b;*", bridge.RebootSystem); got != "adb -s 'a b;*' reboot" {
		t.Fatalf("unexpected reboot command %q", got)
	}
	if got := client.FastbootLine("it's", "getvar unlocked"); got != `fastboot -s 'it'\''s' getvar unlocked 2>&1` {
		t.Fatalf("unexpected fastboot line %q", got)
	}
}
