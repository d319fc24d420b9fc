package bridge

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRebootGrace is how long a reboot call waits after the command was
// accepted so the USB link can start dropping. It is not a completion signal.
const DefaultRebootGrace = 500 * time.Millisecond

// RebootMode is one of the four permitted reboot subcommand arguments.
type RebootMode string

const (
	RebootSystem     RebootMode = ""
	RebootBootloader RebootMode = "bootloader"
	RebootRecovery   RebootMode = "recovery"
	RebootDownload   RebootMode = "download"
)

// Options configures a Client.
type Options struct {
	// ADBPath is the bridge executable; "adb" when empty.
	ADBPath string
	// FastbootPath is the flashing-mode executable; "fastboot" when empty.
	FastbootPath string
	// RebootGrace is slept after an accepted reboot. Zero disables the pause.
	RebootGrace time.Duration
}

// CommandResult describes one reboot invocation for display to the operator.
type CommandResult struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Success bool   `json:"success"`
}

// Client is a stateless facade over the bridge executable. Every query degrades
// to an empty value instead of an error, so a device dropping off mid-pass
// still leaves the caller with partial information.
type Client struct {
	runner       Runner
	adbPath      string
	fastbootPath string
	rebootGrace  time.Duration
	sleep        func(time.Duration)
}

// NewClient wraps runner with bridge-protocol semantics.
func NewClient(runner Runner, opts Options) *Client {
	adbPath := strings.TrimSpace(opts.ADBPath)
	if adbPath == "" {
		adbPath = "adb"
	}
	fastbootPath := strings.TrimSpace(opts.FastbootPath)
	if fastbootPath == "" {
		fastbootPath = "fastboot"
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Client{
		runner:       runner,
		adbPath:      adbPath,
		fastbootPath: fastbootPath,
		rebootGrace:  opts.RebootGrace,
		sleep:        time.Sleep,
	}
}

// Runner exposes the underlying command runner for host-side lookups.
func (c *Client) Runner() Runner { return c.runner }

// ADBPath returns the configured bridge executable.
func (c *Client) ADBPath() string { return c.adbPath }

// FastbootPath returns the configured flashing-mode executable.
func (c *Client) FastbootPath() string { return c.fastbootPath }

func (c *Client) base(serial string) string {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return c.adbPath
	}
	return c.adbPath + " -s " + shellArg(serial)
}

// DevicesLine is the enumeration command line.
func (c *Client) DevicesLine() string { return c.adbPath + " devices" }

// VersionLine is the tool verification command line.
func (c *Client) VersionLine() string { return c.adbPath + " version" }

// StateLine is the connection-state query for serial ("" targets the only device).
// Stderr is discarded: daemon start-up chatter and "device not found" go there.
func (c *Client) StateLine(serial string) string {
	return c.base(serial) + " get-state 2>/dev/null"
}

// SerialNoLine is the serial-number query, stderr discarded like StateLine.
func (c *Client) SerialNoLine(serial string) string {
	return c.base(serial) + " get-serialno 2>/dev/null"
}

// ShellLine is the command line used to run cmd in the device shell.
// Stderr is discarded so that bridge diagnostics never masquerade as values.
func (c *Client) ShellLine(serial, cmd string) string {
	return c.base(serial) + " shell " + quote(cmd) + " 2>/dev/null"
}

// RebootCommand is the bare reboot command line, suitable for showing to an
// operator as a manual fallback.
func (c *Client) RebootCommand(serial string, mode RebootMode) string {
	line := c.base(serial) + " reboot"
	if mode != RebootSystem {
		line += " " + string(mode)
	}
	return line
}

// RebootLine is the reboot command line as executed (stderr merged).
func (c *Client) RebootLine(serial string, mode RebootMode) string {
	return c.RebootCommand(serial, mode) + " 2>&1"
}

// PushLine copies a host file onto the device.
func (c *Client) PushLine(serial, local, remote string) string {
	return c.base(serial) + " push " + quote(local) + " " + quote(remote) + " 2>&1"
}

// PullLine copies a device file onto the host.
func (c *Client) PullLine(serial, remote, local string) string {
	return c.base(serial) + " pull " + quote(remote) + " " + quote(local) + " 2>&1"
}

// FastbootLine passes args through to the flashing-mode tool.
func (c *Client) FastbootLine(serial, args string) string {
	line := c.fastbootPath
	if serial = strings.TrimSpace(serial); serial != "" {
		line += " -s " + shellArg(serial)
	}
	return line + " " + args + " 2>&1"
}

// Verify reports whether the bridge executable runs at all.
func (c *Client) Verify(ctx context.Context) bool {
	out, started := c.runner.Run(ctx, c.VersionLine())
	return started && strings.Contains(out, "Android Debug Bridge")
}

// ListDevices enumerates attached devices. A failed command yields an empty list.
func (c *Client) ListDevices(ctx context.Context) []Device {
	out, started := c.runner.Run(ctx, c.DevicesLine())
	if !started {
		log.Debug().Str("adb", c.adbPath).Msg("bridge: enumeration command did not start")
		return []Device{}
	}
	return ParseDevices(out)
}

// State returns the trimmed state token for serial, or "unknown".
func (c *Client) State(ctx context.Context, serial string) string {
	out, started := c.runner.Run(ctx, c.StateLine(serial))
	if !started {
		return "unknown"
	}
	return strings.TrimSpace(out)
}

// IsConnected is true iff the state query prints exactly "device".
func (c *Client) IsConnected(ctx context.Context, serial string) bool {
	out, started := c.runner.Run(ctx, c.StateLine(serial))
	return started && strings.TrimSpace(out) == "device"
}

// SerialNo returns the serial the bridge reports, or "".
func (c *Client) SerialNo(ctx context.Context, serial string) string {
	out, started := c.runner.Run(ctx, c.SerialNoLine(serial))
	if !started {
		return ""
	}
	value := strings.TrimSpace(out)
	if value == "" || strings.HasPrefix(value, "error") || strings.ContainsAny(value, " \t\r\n") {
		if value != "" {
			log.Debug().Str("serial", serial).Str("output", value).Msg("bridge: get-serialno returned no usable serial")
		}
		return ""
	}
	return value
}

// Shell runs cmd on the device and returns its trimmed output, "" on any failure.
func (c *Client) Shell(ctx context.Context, serial, cmd string) string {
	out, started := c.runner.Run(ctx, c.ShellLine(serial, cmd))
	if !started {
		log.Debug().Str("serial", serial).Str("shell", cmd).Msg("bridge: shell command did not start")
		return ""
	}
	return strings.TrimSpace(out)
}

// GetProperty reads a system property. ok is false when the device is
// unreachable or the value is empty.
func (c *Client) GetProperty(ctx context.Context, serial, key string) (string, bool) {
	value := c.Shell(ctx, serial, "getprop "+key)
	if value == "" {
		return "", false
	}
	return value, true
}

// Reboot issues one of the four reboot subcommands. Mode validation belongs to
// the caller.
func (c *Client) Reboot(ctx context.Context, serial string, mode RebootMode) bool {
	return c.RebootDetailed(ctx, serial, mode).Success
}

// RebootDetailed issues a reboot and returns the command, output and verdict.
// The verdict greps for "error"/"failed" in the captured text, which can
// false-positive on unrelated output containing those words.
func (c *Client) RebootDetailed(ctx context.Context, serial string, mode RebootMode) CommandResult {
	result := CommandResult{Command: c.RebootCommand(serial, mode)}
	out, started := c.runner.Run(ctx, c.RebootLine(serial, mode))
	if !started {
		result.Output = "Error: Failed to execute command"
		log.Warn().Str("serial", serial).Str("cmd", result.Command).Msg("bridge: reboot command did not start")
		return result
	}
	result.Output = strings.TrimSpace(out)
	result.Success = !hasFailureMarker(result.Output)
	if result.Output == "" {
		result.Output = "Command sent successfully (no output)"
	}
	if !result.Success {
		log.Warn().Str("serial", serial).Str("cmd", result.Command).Str("output", result.Output).Msg("bridge: reboot reported failure")
		return result
	}
	if c.rebootGrace > 0 && c.sleep != nil {
		c.sleep(c.rebootGrace)
	}
	return result
}

// Push copies local to remote on the device.
func (c *Client) Push(ctx context.Context, serial, local, remote string) bool {
	out, started := c.runner.Run(ctx, c.PushLine(serial, local, remote))
	return started && !hasFailureMarker(out)
}

// Pull copies remote from the device to local.
func (c *Client) Pull(ctx context.Context, serial, remote, local string) bool {
	out, started := c.runner.Run(ctx, c.PullLine(serial, remote, local))
	return started && !hasFailureMarker(out)
}

// Fastboot runs a pass-through flashing-mode command and returns its output.
func (c *Client) Fastboot(ctx context.Context, serial, args string) string {
	out, started := c.runner.Run(ctx, c.FastbootLine(serial, args))
	if !started {
		return ""
	}
	return strings.TrimSpace(out)
}

func hasFailureMarker(out string) bool {
	return strings.Contains(out, "error") || strings.Contains(out, "failed")
}

// shellArg leaves plain serials such as "R58M" or "192.168.1.5:5555" as they
// are and single-quotes anything else.
func shellArg(s string) string {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_.:@/+=,", r):
		default:
			return quote(s)
		}
	}
	return s
}

// quote wraps s in single quotes for the host shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
