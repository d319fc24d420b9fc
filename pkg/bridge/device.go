package bridge

import (
	"bufio"
	"strings"
)

// ConnectionState is the closed set of enumeration states a device can report.
type ConnectionState int

const (
	StateUnknown ConnectionState = iota
	StateConnected
	StateUnauthorized
	StateOffline
)

// String returns the bridge token for the state.
func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "device"
	case StateUnauthorized:
		return "unauthorized"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// MarshalText renders the state for JSON reports.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState maps a raw state token to a ConnectionState. Unrecognised tokens
// become StateUnknown.
func ParseState(token string) ConnectionState {
	switch strings.TrimSpace(token) {
	case "device":
		return StateConnected
	case "unauthorized":
		return StateUnauthorized
	case "offline":
		return StateOffline
	default:
		return StateUnknown
	}
}

// Device is one row of an enumeration result.
type Device struct {
	Serial string          `json:"serial"`
	State  ConnectionState `json:"state"`
	// RawState keeps the token as printed by the bridge, e.g. "recovery" or "sideload".
	RawState string `json:"raw_state"`
}

// ParseDevices parses the tabular output of the enumeration subcommand.
// The header line and blank lines are skipped, as is any line without a tab.
func ParseDevices(output string) []Device {
	devices := make([]Device, 0)
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.Contains(line, "attached devices") {
			continue
		}
		serial, state, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		serial = strings.TrimSpace(serial)
		if serial == "" {
			continue
		}
		if _, dup := seen[serial]; dup {
			continue
		}
		seen[serial] = struct{}{}
		// `devices -l` appends key:value pairs after the state.
		raw := strings.TrimSpace(state)
		if fields := strings.Fields(raw); len(fields) > 0 {
			raw = fields[0]
		}
		devices = append(devices, Device{
			Serial:   serial,
			State:    ParseState(raw),
			RawState: raw,
		})
	}
	return devices
}
