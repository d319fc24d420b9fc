package probe

import (
	"fmt"
	"strings"
	"time"

	"github.com/httprunner/DroidProbe/pkg/rom"
)

// ROMResult is the compatibility answer for the device codename.
type ROMResult struct {
	Codename string      `json:"codename"`
	Found    bool        `json:"found"`
	Record   *rom.Record `json:"record,omitempty"`
}

// Report is the outcome of one analysis pass over a single device. Nil
// sections mean the corresponding probe could not produce a result.
type Report struct {
	Serial       string            `json:"serial"`
	ScannedAt    time.Time         `json:"scanned_at"`
	Device       *DeviceInfo       `json:"device,omitempty"`
	Root         *RootInfo         `json:"root,omitempty"`
	Bootloader   *BootloaderInfo   `json:"bootloader,omitempty"`
	SELinux      SELinuxMode       `json:"selinux"`
	VerifiedBoot *VerifiedBootInfo `json:"verified_boot,omitempty"`
	OEMUnlock    *OEMUnlockInfo    `json:"oem_unlock,omitempty"`
	Slots        *SlotInfo         `json:"slots,omitempty"`
	ROM          *ROMResult        `json:"rom,omitempty"`
}

// FormatDevice renders the identity and hardware sections.
func FormatDevice(info *DeviceInfo) string {
	if info == nil {
		return "Error: Unable to get device information\n"
	}
	var b strings.Builder
	b.WriteString("=== DEVICE INFORMATION ===\n\n")
	fmt.Fprintf(&b, "Manufacturer: %s\n", info.Manufacturer)
	fmt.Fprintf(&b, "Model: %s\n", info.Model)
	fmt.Fprintf(&b, "Codename: %s\n", orUnknown(info.Codename))
	fmt.Fprintf(&b, "Android Version: %s\n", orUnknown(info.AndroidVersion))
	fmt.Fprintf(&b, "API Level: %d\n", info.APILevel)
	fmt.Fprintf(&b, "Build Fingerprint: %s\n", orUnknown(info.BuildFingerprint))
	b.WriteString("\n=== HARDWARE ===\n\n")
	fmt.Fprintf(&b, "CPU ABI: %s\n", orUnknown(info.CPUAbi))
	fmt.Fprintf(&b, "Architecture: %s\n", orUnknown(string(info.Arch)))
	fmt.Fprintf(&b, "CPU Cores: %d\n", info.CPUCores)
	fmt.Fprintf(&b, "RAM: %d MB\n", info.RAMMB)
	fmt.Fprintf(&b, "Storage Total: %d MB\n", info.StorageTotalMB)
	fmt.Fprintf(&b, "Storage Free: %d MB\n", info.StorageFreeMB)
	fmt.Fprintf(&b, "Kernel: %s\n", orUnknown(info.KernelVersion))
	return b.String()
}

// FormatRoot renders the root section.
func FormatRoot(info *RootInfo) string {
	if info == nil {
		return "Error: Unable to analyze root status\n"
	}
	var b strings.Builder
	b.WriteString("=== ROOT STATUS ===\n\n")
	fmt.Fprintf(&b, "Status: %s\n", info.Status)
	fmt.Fprintf(&b, "Method: %s\n", info.Method)
	if info.Status != NotRooted && info.MagiskVersion != "" {
		fmt.Fprintf(&b, "Magisk Version: %s\n", info.MagiskVersion)
	}
	return b.String()
}

// FormatBootloader renders the bootloader section followed by warning.
func FormatBootloader(info *BootloaderInfo, warning string) string {
	if info == nil {
		return "Error: Unable to analyze bootloader status\n"
	}
	var b strings.Builder
	b.WriteString("=== BOOTLOADER STATUS ===\n\n")
	fmt.Fprintf(&b, "Status: %s\n", info.Status)
	fmt.Fprintf(&b, "Fastboot Available: %s\n", yesNo(info.FastbootAvailable))
	if info.FastbootPath != "" {
		fmt.Fprintf(&b, "Fastboot Path: %s\n", info.FastbootPath)
	}
	if warning != "" {
		b.WriteString("\n" + warning + "\n")
	}
	return b.String()
}

// FormatSecurity renders the SELinux, AVB, OEM unlock and slot facts.
func FormatSecurity(r *Report) string {
	var b strings.Builder
	b.WriteString("=== BOOT SECURITY ===\n\n")
	fmt.Fprintf(&b, "SELinux: %s (%s)\n", r.SELinux, r.SELinux.Description())
	if vb := r.VerifiedBoot; vb != nil {
		fmt.Fprintf(&b, "Verified Boot State: %s\n", orUnknown(vb.VerifiedBootState))
		fmt.Fprintf(&b, "vbmeta Device State: %s\n", vb.VBMetaState)
	}
	if oem := r.OEMUnlock; oem != nil {
		fmt.Fprintf(&b, "OEM Unlock: %s\n", oem.SupportStatus())
		fmt.Fprintf(&b, "OEM Unlock Toggle: %s\n", oem.AllowedStatus())
	}
	if slots := r.Slots; slots != nil {
		fmt.Fprintf(&b, "A/B Partitions: %s\n", yesNo(slots.HasAB))
		if slots.CurrentSlot != "" {
			fmt.Fprintf(&b, "Current Slot: %s\n", slots.CurrentSlot)
		}
	}
	return b.String()
}

// FormatROM renders the compatibility section.
func FormatROM(res *ROMResult) string {
	if res == nil {
		return "Error: Unable to check ROM compatibility\n"
	}
	var b strings.Builder
	b.WriteString("=== ROM COMPATIBILITY (LineageOS) ===\n\n")
	if res.Found && res.Record != nil {
		b.WriteString(rom.Format(*res.Record))
		return b.String()
	}
	fmt.Fprintf(&b, "Device '%s' not found in LineageOS database.\n", res.Codename)
	b.WriteString("This device may not be officially supported by LineageOS.\n")
	return b.String()
}

// Text renders the full report as sectioned plain text.
func (r *Report) Text(warning string) string {
	sections := []string{
		FormatDevice(r.Device),
		FormatRoot(r.Root),
		FormatBootloader(r.Bootloader, warning),
		FormatSecurity(r),
		FormatROM(r.ROM),
	}
	return strings.Join(sections, "\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
