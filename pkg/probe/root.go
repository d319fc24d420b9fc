package probe

import (
	"context"
	"strings"

	"github.com/httprunner/DroidProbe/pkg/bridge"
	"github.com/rs/zerolog/log"
)

// RootStatus is the overall root verdict.
type RootStatus int

const (
	RootUnknown RootStatus = iota
	Rooted
	NotRooted
)

func (s RootStatus) String() string {
	switch s {
	case Rooted:
		return "Rooted"
	case NotRooted:
		return "Not Rooted"
	default:
		return "Unknown"
	}
}

func (s RootStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// RootMethod names the privilege broker that was detected.
type RootMethod int

const (
	MethodNoRoot RootMethod = iota
	MethodMagisk
	MethodSuperSU
	MethodUnknown
)

func (m RootMethod) String() string {
	switch m {
	case MethodMagisk:
		return "Magisk"
	case MethodSuperSU:
		return "SuperSU"
	case MethodUnknown:
		return "Unknown Method"
	default:
		return "No Root"
	}
}

func (m RootMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// RootInfo is the result of one root analysis.
type RootInfo struct {
	Status          RootStatus `json:"status"`
	Method          RootMethod `json:"method"`
	MagiskVersion   string     `json:"magisk_version,omitempty"`
	HasSu           bool       `json:"has_su"`
	HasMagiskBinary bool       `json:"has_magisk_binary"`
}

var suLocations = []string{
	"/system/bin/su",
	"/system/xbin/su",
	"/sbin/su",
	"/bin/su",
	"/system/app/SuperSU/SuperSU.apk",
	"/system/app/Superuser/Superuser.apk",
}

// RootStatusProbe infers root from filesystem and package signatures. It never
// attempts privilege escalation.
type RootStatusProbe struct {
	client *bridge.Client
}

// NewRootStatusProbe binds a probe to client.
func NewRootStatusProbe(client *bridge.Client) *RootStatusProbe {
	return &RootStatusProbe{client: client}
}

// Analyze evaluates the checks in fixed priority: Magisk, then SuperSU, then a
// bare su binary.
func (p *RootStatusProbe) Analyze(ctx context.Context, serial string) *RootInfo {
	if p == nil || p.client == nil {
		return nil
	}
	info := &RootInfo{Status: NotRooted, Method: MethodNoRoot}

	info.HasSu = p.HasSu(ctx, serial)

	info.HasMagiskBinary = p.HasMagisk(ctx, serial)
	if info.HasMagiskBinary {
		info.Method = MethodMagisk
		info.Status = Rooted
		info.MagiskVersion = p.MagiskVersion(ctx, serial)
	}

	if !info.HasMagiskBinary && p.HasSuperSU(ctx, serial) {
		info.Method = MethodSuperSU
		info.Status = Rooted
	}

	if info.HasSu && info.Method == MethodNoRoot {
		info.Method = MethodUnknown
		info.Status = Rooted
	}

	log.Debug().
		Str("serial", serial).
		Str("status", info.Status.String()).
		Str("method", info.Method.String()).
		Msg("probe: root analysis finished")
	return info
}

// HasSu checks the path first, then the known install locations.
func (p *RootStatusProbe) HasSu(ctx context.Context, serial string) bool {
	if p.client.Shell(ctx, serial, "which su 2>/dev/null") != "" {
		return true
	}
	for _, loc := range suLocations {
		if p.found(ctx, serial, "test -f "+loc+" && echo found") {
			return true
		}
	}
	return false
}

// HasMagisk checks for the binary, the legacy /sbin marker, and the module dir.
func (p *RootStatusProbe) HasMagisk(ctx context.Context, serial string) bool {
	if out := p.client.Shell(ctx, serial, "which magisk 2>/dev/null"); strings.Contains(out, "magisk") {
		return true
	}
	if p.found(ctx, serial, "test -d /sbin/.magisk && echo found") {
		return true
	}
	return p.found(ctx, serial, "test -d /data/adb/modules && echo found")
}

// HasSuperSU checks the package list and the legacy APK path.
func (p *RootStatusProbe) HasSuperSU(ctx context.Context, serial string) bool {
	if out := p.client.Shell(ctx, serial, "pm list packages | grep -i supersu"); strings.Contains(strings.ToLower(out), "supersu") {
		return true
	}
	return p.found(ctx, serial, "test -f /system/app/SuperSU.apk && echo found")
}

// MagiskVersion returns the version string or "Unknown".
func (p *RootStatusProbe) MagiskVersion(ctx context.Context, serial string) string {
	if v := p.client.Shell(ctx, serial, "magisk --version 2>/dev/null"); v != "" {
		return v
	}
	return "Unknown"
}

func (p *RootStatusProbe) found(ctx context.Context, serial, cmd string) bool {
	return strings.Contains(p.client.Shell(ctx, serial, cmd), "found")
}
