// Package adb serves bridge command lines by talking to the adb server socket
// through gadb instead of spawning the adb executable.
package adb

import (
	"context"
	"strings"

	"github.com/httprunner/httprunner/v5/pkg/gadb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/httprunner/DroidProbe/pkg/bridge"
)

var served = map[string]bool{
	"devices":      true,
	"get-state":    true,
	"get-serialno": true,
	"shell":        true,
	"reboot":       true,
}

// Runner implements bridge.Runner for the subset of adb subcommands that the
// server protocol covers: devices, get-state, get-serialno, shell and reboot.
// Anything else (push, pull, version, fastboot, host lookups) goes to fallback,
// or reports started=false when fallback is nil.
type Runner struct {
	client   gadb.Client
	fallback bridge.Runner
}

// New creates a Runner backed by the given gadb client.
func New(client gadb.Client, fallback bridge.Runner) *Runner {
	return &Runner{client: client, fallback: fallback}
}

// NewDefault creates a Runner using a default gadb client and the exec runner
// as fallback.
func NewDefault() (*Runner, error) {
	client, err := gadb.NewClient()
	if err != nil {
		return nil, errors.Wrap(err, "init adb client for runner")
	}
	return New(client, bridge.NewExecRunner()), nil
}

// Run parses cmdline and serves it over the adb server connection.
func (r *Runner) Run(ctx context.Context, cmdline string) (string, bool) {
	if r == nil {
		return "", false
	}
	if err := ctx.Err(); err != nil {
		return "", false
	}
	cmd, err := ParseCommandLine(cmdline)
	if err != nil || !cmd.IsADB || !served[cmd.Verb] {
		if r.fallback != nil {
			return r.fallback.Run(ctx, cmdline)
		}
		log.Debug().Str("cmd", cmdline).Msg("adb runner: command not served")
		return "", false
	}
	out, err := r.serve(cmd)
	if err != nil {
		log.Debug().Err(err).Str("cmd", cmdline).Msg("adb runner: command failed")
		return out, false
	}
	return out, true
}

func (r *Runner) serve(cmd Command) (string, error) {
	switch cmd.Verb {
	case "devices":
		return r.devices()
	case "get-state":
		dev, err := r.find(cmd.Serial)
		if err != nil {
			// adb prints this to stderr and the caller only sees the empty state
			return "", nil
		}
		return stateToken(dev), nil
	case "get-serialno":
		dev, err := r.find(cmd.Serial)
		if err != nil {
			return "error: " + err.Error(), nil
		}
		return dev.Serial(), nil
	case "shell":
		dev, err := r.find(cmd.Serial)
		if err != nil {
			return "", nil
		}
		out, err := dev.RunShellCommand(strings.Join(cmd.Args, " "))
		if err != nil {
			return "", errors.Wrap(err, "run shell command")
		}
		return out, nil
	case "reboot":
		dev, err := r.find(cmd.Serial)
		if err != nil {
			return "error: " + err.Error(), nil
		}
		// the device drops the connection mid-reply, so an error here is expected
		if _, err := dev.RunShellCommand("reboot", cmd.Args...); err != nil {
			log.Debug().Err(err).Str("serial", dev.Serial()).Msg("adb runner: reboot connection closed")
		}
		return "", nil
	default:
		return "", errors.Errorf("verb %q not served over the adb server", cmd.Verb)
	}
}

func (r *Runner) devices() (string, error) {
	devs, err := r.client.DeviceList()
	if err != nil {
		return "", errors.Wrap(err, "list adb devices")
	}
	var b strings.Builder
	b.WriteString("List of devices attached\n")
	for _, dev := range devs {
		if dev == nil {
			continue
		}
		serial := strings.TrimSpace(dev.Serial())
		if serial == "" {
			continue
		}
		b.WriteString(serial + "\t" + stateToken(dev) + "\n")
	}
	return b.String(), nil
}

func (r *Runner) find(serial string) (*gadb.Device, error) {
	devs, err := r.client.DeviceList()
	if err != nil {
		return nil, errors.Wrap(err, "list adb devices")
	}
	target := strings.TrimSpace(serial)
	var only *gadb.Device
	count := 0
	for _, d := range devs {
		if d == nil {
			continue
		}
		count++
		only = d
		if target != "" && strings.TrimSpace(d.Serial()) == target {
			return d, nil
		}
	}
	if target == "" && count == 1 {
		return only, nil
	}
	if target == "" {
		return nil, errors.New("more than one device/emulator")
	}
	return nil, errors.Errorf("device '%s' not found", serial)
}

// stateToken maps gadb states back onto the tokens `adb devices` prints.
func stateToken(dev *gadb.Device) string {
	state, err := dev.State()
	if err != nil {
		return "unknown"
	}
	switch state {
	case gadb.StateOnline:
		return "device"
	case gadb.StateOffline:
		return "offline"
	default:
		return strings.ToLower(string(state))
	}
}

// Command is a parsed adb command line.
type Command struct {
	// IsADB is false when the executable is not adb (fastboot, which, ...).
	IsADB  bool
	Serial string
	Verb   string
	Args   []string
}

// ParseCommandLine splits an adb command line as built by bridge.Client. The
// leading executable is dropped, redirections are ignored, and single-quoted
// words are unquoted.
func ParseCommandLine(cmdline string) (Command, error) {
	words, err := splitWords(cmdline)
	if err != nil {
		return Command{}, err
	}
	var cmd Command
	if len(words) == 0 {
		return cmd, errors.New("empty command line")
	}
	cmd.IsADB = isADBExecutable(words[0])
	words = words[1:]
	for len(words) > 0 {
		switch w := words[0]; {
		case w == "-s" && cmd.Verb == "" && len(words) > 1:
			cmd.Serial = words[1]
			words = words[2:]
		case isRedirection(w):
			words = words[1:]
		case cmd.Verb == "":
			cmd.Verb = w
			words = words[1:]
		default:
			cmd.Args = append(cmd.Args, w)
			words = words[1:]
		}
	}
	if cmd.Verb == "" {
		return cmd, errors.New("missing adb subcommand")
	}
	return cmd, nil
}

func isADBExecutable(path string) bool {
	base := path
	if i := strings.LastIndexAny(base, `/\\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(strings.ToLower(base), ".exe")
	return base == "adb"
}

func isRedirection(w string) bool {
	return w == "2>/dev/null" || w == "2>&1"
}

// splitWords is a minimal POSIX-style splitter covering the quoting the bridge
// client produces: bare words, single quotes and the '\'' escape.
func splitWords(s string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote:
			if c == '\'' {
				inQuote = false
			} else {
				cur.WriteByte(c)
			}
		case c == '\'':
			inQuote, inWord = true, true
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
			inWord = true
		case c == ' ' || c == '\t' || c == '\n':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteByte(c)
			inWord = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
