package probe

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/httprunner/DroidProbe/pkg/bridge"
	"github.com/rs/zerolog/log"
)

// Arch is the CPU family inferred from the primary ABI.
type Arch string

const (
	ArchARM64   Arch = "ARM64"
	ArchARM32   Arch = "ARM32"
	ArchX86_64  Arch = "x86_64"
	ArchX86     Arch = "x86"
	ArchUnknown Arch = "Unknown"
)

// DeviceInfo is an immutable identity and hardware snapshot. Empty strings and
// zeros mean the corresponding probe found nothing.
type DeviceInfo struct {
	Serial           string `json:"serial"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model"`
	Codename         string `json:"codename"`
	AndroidVersion   string `json:"android_version"`
	APILevel         int    `json:"api_level"`
	BuildFingerprint string `json:"build_fingerprint"`
	CPUAbi           string `json:"cpu_abi"`
	CPUAbi2          string `json:"cpu_abi2,omitempty"`
	CPUCores         int    `json:"cpu_cores"`
	RAMMB            int64  `json:"ram_mb"`
	StorageTotalMB   int64  `json:"storage_total_mb"`
	StorageFreeMB    int64  `json:"storage_free_mb"`
	KernelVersion    string `json:"kernel_version"`
	Arch             Arch   `json:"arch"`
	BuildType        string `json:"build_type"`
	BuildDate        string `json:"build_date"`
	BuildID          string `json:"build_id"`
	BuildHost        string `json:"build_host"`
}

// IsSamsung reports whether the manufacturer names Samsung, in any case.
func (d DeviceInfo) IsSamsung() bool {
	return IsSamsung(d.Manufacturer)
}

// IsConnected is true when the record carries a usable serial. The bridge
// prints "?" for devices it cannot identify.
func (d DeviceInfo) IsConnected() bool {
	return d.Serial != "" && d.Serial != "?"
}

// IsSamsung matches "samsung" case-insensitively anywhere in manufacturer.
func IsSamsung(manufacturer string) bool {
	return strings.Contains(strings.ToLower(manufacturer), "samsung")
}

// DeviceInfoProbe collects identity and hardware facts.
type DeviceInfoProbe struct {
	client *bridge.Client
}

// NewDeviceInfoProbe binds a probe to client.
func NewDeviceInfoProbe(client *bridge.Client) *DeviceInfoProbe {
	return &DeviceInfoProbe{client: client}
}

// Inspect returns nil only when manufacturer or model cannot be read; every
// other field is best effort.
func (p *DeviceInfoProbe) Inspect(ctx context.Context, serial string) *DeviceInfo {
	if p == nil || p.client == nil {
		return nil
	}
	mfg, okMfg := p.client.GetProperty(ctx, serial, "ro.product.manufacturer")
	model, okModel := p.client.GetProperty(ctx, serial, "ro.product.model")
	if !okMfg || !okModel {
		log.Debug().Str("serial", serial).Msg("probe: identity properties unavailable")
		return nil
	}

	info := &DeviceInfo{
		Serial:       serial,
		Manufacturer: mfg,
		Model:        model,
	}
	prop := func(key string) string {
		v, _ := p.client.GetProperty(ctx, serial, key)
		return v
	}

	info.Codename = prop("ro.product.device")
	info.AndroidVersion = prop("ro.build.version.release")
	info.APILevel = parseInt(prop("ro.build.version.sdk"))
	info.BuildFingerprint = prop("ro.build.fingerprint")

	info.CPUAbi = prop("ro.product.cpu.abi")
	info.CPUAbi2 = prop("ro.product.cpu.abi2")
	info.Arch = InferArch(info.CPUAbi)
	if info.CPUAbi == "" {
		log.Debug().Str("serial", serial).Msg("probe: cpu abi unavailable")
	}

	info.CPUCores = ParseCPUCores(p.client.Shell(ctx, serial, "cat /proc/cpuinfo"))
	info.RAMMB = ParseRAMMB(p.client.Shell(ctx, serial, "cat /proc/meminfo"))
	info.StorageTotalMB, info.StorageFreeMB = ParseStorage(p.client.Shell(ctx, serial, "df /data"))

	info.KernelVersion = prop("ro.kernel.version")
	if info.KernelVersion == "" {
		info.KernelVersion = firstLine(p.client.Shell(ctx, serial, "uname -r"))
	}

	info.BuildType = prop("ro.build.type")
	info.BuildDate = prop("ro.build.date.utc")
	info.BuildID = prop("ro.build.id")
	info.BuildHost = prop("ro.build.host")
	return info
}

// Identity reads just manufacturer and model; used by callers that only need
// to decide device-specific wording.
func (p *DeviceInfoProbe) Identity(ctx context.Context, serial string) (manufacturer, model string) {
	manufacturer, _ = p.client.GetProperty(ctx, serial, "ro.product.manufacturer")
	model, _ = p.client.GetProperty(ctx, serial, "ro.product.model")
	return manufacturer, model
}

// InferArch maps an ABI string to a CPU family by substring.
func InferArch(abi string) Arch {
	switch {
	case strings.Contains(abi, "arm64"):
		return ArchARM64
	case strings.Contains(abi, "armeabi"):
		return ArchARM32
	case strings.Contains(abi, "x86_64"):
		return ArchX86_64
	case strings.Contains(abi, "x86"):
		return ArchX86
	default:
		return ArchUnknown
	}
}

// ParseCPUCores counts lines starting with "processor" in /proc/cpuinfo.
// A device always has at least one core, so zero matches yields 1.
func ParseCPUCores(cpuinfo string) int {
	cores := 0
	scanner := bufio.NewScanner(strings.NewReader(cpuinfo))
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "processor") {
			cores++
		}
	}
	if cores == 0 {
		return 1
	}
	return cores
}

// ParseRAMMB returns MemTotal from /proc/meminfo in MiB, 0 when absent.
func ParseRAMMB(meminfo string) int64 {
	scanner := bufio.NewScanner(strings.NewReader(meminfo))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || kb < 0 {
			return 0
		}
		return kb / 1024
	}
	return 0
}

// ParseStorage reads the first data row of a 1K-block df report and returns
// total and available MiB. Anything unparsable yields 0, 0.
func ParseStorage(df string) (totalMB, freeMB int64) {
	lines := strings.Split(strings.ReplaceAll(df, "\r", ""), "\n")
	if len(lines) < 2 {
		return 0, 0
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 4 {
		return 0, 0
	}
	total, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0
	}
	avail, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return 0, 0
	}
	return total / 1024, avail / 1024
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
