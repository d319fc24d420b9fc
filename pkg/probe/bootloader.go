package probe

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/httprunner/DroidProbe/pkg/bridge"
)

// BootloaderStatus is the lock state of the bootloader.
type BootloaderStatus int

const (
	BootloaderUnknown BootloaderStatus = iota
	BootloaderLocked
	BootloaderUnlocked
	BootloaderUnlockable
)

func (s BootloaderStatus) String() string {
	switch s {
	case BootloaderLocked:
		return "Locked"
	case BootloaderUnlocked:
		return "Unlocked"
	case BootloaderUnlockable:
		return "Unlockable (Can be unlocked)"
	default:
		return "Unknown (Check needed)"
	}
}

func (s BootloaderStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// BootloaderInfo reports lock state and whether the flashing-mode tool exists on the host.
type BootloaderInfo struct {
	Status            BootloaderStatus `json:"status"`
	FastbootAvailable bool             `json:"fastboot_available"`
	FastbootPath      string           `json:"fastboot_path,omitempty"`
}

const dataLossWarning = "⚠️  WARNING: Unlocking bootloader will ERASE all device data!\n" +
	"This includes:\n" +
	"  • All apps and their data\n" +
	"  • Photos, videos, documents\n" +
	"  • Contacts and messages\n" +
	"  • All personal files\n\n" +
	"BACKUP YOUR DATA BEFORE UNLOCKING THE BOOTLOADER!\n" +
	"This action is irreversible without restoring a backup."

// BootloaderProbe locates fastboot and reads lock state through it. It never
// switches the device into fastboot mode on its own.
type BootloaderProbe struct {
	client  *bridge.Client
	locator *bridge.Locator
}

// NewBootloaderProbe binds a probe to client; locator may be nil to use the
// client's runner for the host lookup.
func NewBootloaderProbe(client *bridge.Client, locator *bridge.Locator) *BootloaderProbe {
	if locator == nil && client != nil {
		locator = bridge.NewLocator(client.Runner())
	}
	return &BootloaderProbe{client: client, locator: locator}
}

// Analyze reports fastboot availability. Status stays Unknown: reading the real
// lock state needs fastboot mode, which requires an explicit operator action.
func (p *BootloaderProbe) Analyze(ctx context.Context, serial string) *BootloaderInfo {
	if p == nil {
		return nil
	}
	info := &BootloaderInfo{Status: BootloaderUnknown}
	info.FastbootPath = p.configuredFastboot()
	if info.FastbootPath == "" {
		info.FastbootPath = p.locator.LocateFastboot(ctx)
	}
	info.FastbootAvailable = info.FastbootPath != ""
	if !info.FastbootAvailable {
		log.Debug().Str("serial", serial).Msg("probe: fastboot not found on host")
	}
	return info
}

// configuredFastboot returns the client's fastboot path when it was set to an
// explicit location that exists. A bare command name is left to the lookup.
func (p *BootloaderProbe) configuredFastboot() string {
	if p.client == nil {
		return ""
	}
	path := p.client.FastbootPath()
	if !strings.ContainsAny(path, `/\`) {
		return ""
	}
	if !p.locator.Executable(path) {
		log.Debug().Str("fastboot", path).Msg("probe: configured fastboot is not executable")
		return ""
	}
	return path
}

// StatusViaSecondaryMode queries `getvar unlocked`; the device must already be
// in fastboot mode.
func (p *BootloaderProbe) StatusViaSecondaryMode(ctx context.Context, serial string) BootloaderStatus {
	if p == nil || p.client == nil {
		return BootloaderUnknown
	}
	out := p.client.Fastboot(ctx, serial, "getvar unlocked")
	status := ParseUnlockedVar(out)
	if status == BootloaderUnknown {
		log.Debug().Str("serial", serial).Str("output", out).Msg("probe: getvar unlocked gave no lock state")
	}
	return status
}

// DataLossWarning is the caution shown before any unlock discussion.
func (p *BootloaderProbe) DataLossWarning() string {
	return dataLossWarning
}

// ParseUnlockedVar maps fastboot getvar output to a lock state.
func ParseUnlockedVar(output string) BootloaderStatus {
	switch {
	case strings.Contains(output, "unlocked: yes"):
		return BootloaderUnlocked
	case strings.Contains(output, "unlocked: no"):
		return BootloaderLocked
	default:
		return BootloaderUnknown
	}
}
