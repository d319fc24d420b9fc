package probe

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/httprunner/DroidProbe/pkg/bridge"
)

// SELinuxMode is the kernel enforcement mode.
type SELinuxMode int

const (
	SELinuxUnknown SELinuxMode = iota
	SELinuxEnforcing
	SELinuxPermissive
	SELinuxDisabled
)

func (m SELinuxMode) String() string {
	switch m {
	case SELinuxEnforcing:
		return "Enforcing"
	case SELinuxPermissive:
		return "Permissive"
	case SELinuxDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

func (m SELinuxMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Description is a one-line human summary of the mode.
func (m SELinuxMode) Description() string {
	switch m {
	case SELinuxEnforcing:
		return "SELinux is enforced (restrictive security)"
	case SELinuxPermissive:
		return "SELinux is permissive (warnings only)"
	case SELinuxDisabled:
		return "SELinux is disabled"
	default:
		return "Unknown SELinux status"
	}
}

// ParseSELinuxMode maps getenforce output.
func ParseSELinuxMode(s string) SELinuxMode {
	switch s {
	case "Enforcing":
		return SELinuxEnforcing
	case "Permissive":
		return SELinuxPermissive
	case "Disabled":
		return SELinuxDisabled
	default:
		return SELinuxUnknown
	}
}

// LockState is a simplified vbmeta lock state.
type LockState int

const (
	LockUnknown LockState = iota
	LockLocked
	LockUnlocked
)

func (s LockState) String() string {
	switch s {
	case LockLocked:
		return "Locked"
	case LockUnlocked:
		return "Unlocked"
	default:
		return "Unknown"
	}
}

func (s LockState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// VerifiedBootInfo holds the AVB properties.
type VerifiedBootInfo struct {
	// VerifiedBootState is the raw ro.boot.verifiedbootstate value (green, yellow, orange...).
	VerifiedBootState string    `json:"verified_boot_state"`
	DeviceState       string    `json:"device_state"`
	VBMetaState       LockState `json:"vbmeta_state"`
}

// Tristate distinguishes a false property from one that could not be read.
type Tristate int

const (
	TriUnknown Tristate = iota
	TriYes
	TriNo
)

func (t Tristate) String() string {
	switch t {
	case TriYes:
		return "yes"
	case TriNo:
		return "no"
	default:
		return "unknown"
	}
}

func (t Tristate) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// OEMUnlockInfo reports OEM unlock capability and the user toggle.
type OEMUnlockInfo struct {
	Supported Tristate `json:"supported"`
	Allowed   Tristate `json:"allowed"`
}

// SupportStatus renders Supported for display.
func (o OEMUnlockInfo) SupportStatus() string {
	switch o.Supported {
	case TriYes:
		return "Supported"
	case TriNo:
		return "Not Supported"
	default:
		return "Unknown"
	}
}

// AllowedStatus renders Allowed for display.
func (o OEMUnlockInfo) AllowedStatus() string {
	switch o.Allowed {
	case TriYes:
		return "Allowed"
	case TriNo:
		return "Not Allowed"
	default:
		return "Unknown"
	}
}

// SlotInfo reports A/B partition support.
type SlotInfo struct {
	CurrentSlot string `json:"current_slot,omitempty"`
	HasAB       bool   `json:"has_ab"`
}

// VerifiedBootProbe groups the four boot-security fact collectors.
type VerifiedBootProbe struct {
	client *bridge.Client
}

// NewVerifiedBootProbe binds the analyzers to client.
func NewVerifiedBootProbe(client *bridge.Client) *VerifiedBootProbe {
	return &VerifiedBootProbe{client: client}
}

// SELinux reads the enforcement mode.
func (p *VerifiedBootProbe) SELinux(ctx context.Context, serial string) SELinuxMode {
	out := p.client.Shell(ctx, serial, "getenforce")
	if out == "" {
		log.Debug().Str("serial", serial).Msg("probe: getenforce returned nothing")
	}
	return ParseSELinuxMode(out)
}

// VerifiedBoot reads the AVB state properties.
func (p *VerifiedBootProbe) VerifiedBoot(ctx context.Context, serial string) VerifiedBootInfo {
	info := VerifiedBootInfo{}
	info.VerifiedBootState, _ = p.client.GetProperty(ctx, serial, "ro.boot.verifiedbootstate")
	info.DeviceState, _ = p.client.GetProperty(ctx, serial, "ro.boot.vbmeta.device_state")
	if info.VerifiedBootState == "" && info.DeviceState == "" {
		log.Debug().Str("serial", serial).Msg("probe: verified boot properties unavailable")
	}
	switch info.DeviceState {
	case "locked":
		info.VBMetaState = LockLocked
	case "unlocked":
		info.VBMetaState = LockUnlocked
	default:
		info.VBMetaState = LockUnknown
	}
	return info
}

// OEMUnlock reads the capability and toggle properties.
func (p *VerifiedBootProbe) OEMUnlock(ctx context.Context, serial string) OEMUnlockInfo {
	return OEMUnlockInfo{
		Supported: p.flag(ctx, serial, "ro.oem_unlock_supported"),
		Allowed:   p.flag(ctx, serial, "sys.oem_unlock_allowed"),
	}
}

// Slots reports A/B support from either the slot suffix or the update flag.
func (p *VerifiedBootProbe) Slots(ctx context.Context, serial string) SlotInfo {
	info := SlotInfo{}
	if suffix, ok := p.client.GetProperty(ctx, serial, "ro.boot.slot_suffix"); ok {
		info.CurrentSlot = suffix
		info.HasAB = true
	}
	if v, ok := p.client.GetProperty(ctx, serial, "ro.build.ab_update"); ok && v == "true" {
		info.HasAB = true
	}
	if !info.HasAB {
		log.Debug().Str("serial", serial).Msg("probe: no A/B slot evidence")
	}
	return info
}

func (p *VerifiedBootProbe) flag(ctx context.Context, serial, key string) Tristate {
	v, ok := p.client.GetProperty(ctx, serial, key)
	if !ok {
		log.Debug().Str("serial", serial).Str("prop", key).Msg("probe: property unavailable")
		return TriUnknown
	}
	if v == "1" {
		return TriYes
	}
	return TriNo
}
