package droidprobe

import (
	"strings"

	"github.com/httprunner/DroidProbe/pkg/bridge"
)

// ParseAllowlist splits a DEVICE_ALLOWLIST value. Serials may be separated by
// commas, semicolons, pipes or whitespace:
//
//	DEVICE_ALLOWLIST="R58M123,emulator-5554"
//	DEVICE_ALLOWLIST="R58M123 emulator-5554"
func ParseAllowlist(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r', '\t', ' ', '|':
			return true
		default:
			return false
		}
	})
	return normalizeSerials(parts)
}

func normalizeSerials(serials []string) []string {
	if len(serials) == 0 {
		return nil
	}
	out := make([]string, 0, len(serials))
	seen := make(map[string]struct{}, len(serials))
	for _, serial := range serials {
		trimmed := strings.TrimSpace(serial)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// allowlist is nil when every device is allowed.
type allowlist map[string]struct{}

func newAllowlist(serials []string) allowlist {
	serials = normalizeSerials(serials)
	if len(serials) == 0 {
		return nil
	}
	set := make(allowlist, len(serials))
	for _, serial := range serials {
		set[serial] = struct{}{}
	}
	return set
}

func (a allowlist) allows(serial string) bool {
	if a == nil {
		return true
	}
	_, ok := a[strings.TrimSpace(serial)]
	return ok
}

// filter keeps enumeration order.
func (a allowlist) filter(devices []bridge.Device) []bridge.Device {
	if a == nil {
		return devices
	}
	out := make([]bridge.Device, 0, len(devices))
	for _, dev := range devices {
		if a.allows(dev.Serial) {
			out = append(out, dev)
		}
	}
	return out
}
