// Package reboot gates the four permitted reboot subcommands behind a
// connectivity check and supplies the text shown before confirmation.
package reboot

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/httprunner/DroidProbe/pkg/bridge"
	"github.com/httprunner/DroidProbe/pkg/probe"
)

// Kind is one of the permitted reboot targets.
type Kind int

const (
	System Kind = iota
	Bootloader
	Recovery
	Download
)

var kindNames = map[Kind]string{
	System:     "system",
	Bootloader: "bootloader",
	Recovery:   "recovery",
	Download:   "download",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Mode maps the kind onto the bridge subcommand argument.
func (k Kind) Mode() bridge.RebootMode {
	switch k {
	case Bootloader:
		return bridge.RebootBootloader
	case Recovery:
		return bridge.RebootRecovery
	case Download:
		return bridge.RebootDownload
	default:
		return bridge.RebootSystem
	}
}

// Kinds lists every permitted kind in display order.
func Kinds() []Kind { return []Kind{System, Bootloader, Recovery, Download} }

// ErrUnknownKind is returned by ParseKind for anything outside the four kinds.
var ErrUnknownKind = errors.New("unknown reboot kind")

// ParseKind accepts the lower-case kind names.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return System, errors.Wrapf(ErrUnknownKind, "%q (want system, bootloader, recovery or download)", s)
}

// Info is the confirmation text for one reboot kind. An empty Warning means
// nothing extra needs to be shown.
type Info struct {
	Kind                 Kind   `json:"kind"`
	Description          string `json:"description"`
	Warning              string `json:"warning,omitempty"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
}

const (
	samsungBootloaderWarning = "Samsung devices do not expose standard fastboot.\n" +
		"Device will enter Download Mode instead."
	nonSamsungDownloadWarning = "Download Mode is specific to Samsung devices.\n" +
		"This command may not work on your device."
)

// Action issues reboots for one device. It holds no state beyond the
// identity it was built with.
type Action struct {
	client *bridge.Client
	device probe.DeviceInfo
}

// NewAction binds client to the device facts used for gating and warnings.
func NewAction(client *bridge.Client, device probe.DeviceInfo) *Action {
	return &Action{client: client, device: device}
}

// LoadAction reads just enough identity from the device to build an Action.
// The bridge's serial query is the connectivity check: when it answers nothing
// (or "?") every reboot is gated off. Otherwise the reboot targets the serial
// the caller selected, and the reported one only when none was given.
func LoadAction(ctx context.Context, client *bridge.Client, serial string) *Action {
	serial = strings.TrimSpace(serial)
	reported := client.SerialNo(ctx, serial)
	target := serial
	if target == "" || reported == "" || reported == "?" {
		target = reported
	}
	device := probe.DeviceInfo{Serial: target}
	device.Manufacturer, _ = client.GetProperty(ctx, serial, "ro.product.manufacturer")
	return NewAction(client, device)
}

// Device returns the identity the action was built with.
func (a *Action) Device() probe.DeviceInfo { return a.device }

// CanReboot is the connectivity gate.
func (a *Action) CanReboot() bool {
	return a.client != nil && a.device.IsConnected()
}

// InfoFor builds the confirmation text for kind.
func (a *Action) InfoFor(kind Kind) Info {
	info := Info{Kind: kind, RequiresConfirmation: true}
	switch kind {
	case System:
		info.Description = "Reboot device to Android system"
	case Bootloader:
		info.Description = "Reboot to bootloader/Download Mode"
		if a.device.IsSamsung() {
			info.Warning = samsungBootloaderWarning
		}
	case Recovery:
		info.Description = "Reboot to recovery mode"
	case Download:
		info.Description = "Reboot to Download Mode (Samsung)"
		if !a.device.IsSamsung() {
			info.Warning = nonSamsungDownloadWarning
		}
	}
	return info
}

// Execute issues the reboot and reports the bridge verdict. Nothing is sent
// when CanReboot is false.
func (a *Action) Execute(ctx context.Context, kind Kind) bool {
	return a.ExecuteDetailed(ctx, kind).Success
}

// ExecuteDetailed is Execute with the command line and captured output, so a
// failure can be shown to the operator as a manual fallback.
func (a *Action) ExecuteDetailed(ctx context.Context, kind Kind) bridge.CommandResult {
	if !a.CanReboot() {
		log.Warn().Str("serial", a.device.Serial).Str("kind", kind.String()).
			Msg("reboot: device not connected, skipping")
		return bridge.CommandResult{Output: "Error: device not connected"}
	}
	if _, ok := kindNames[kind]; !ok {
		return bridge.CommandResult{Output: "Error: " + ErrUnknownKind.Error()}
	}
	log.Info().Str("serial", a.device.Serial).Str("kind", kind.String()).Msg("reboot: issuing")
	return a.client.RebootDetailed(ctx, a.device.Serial, kind.Mode())
}

// ManualCommand is the command line an operator can run by hand.
func (a *Action) ManualCommand(kind Kind) string {
	if a.client == nil {
		return ""
	}
	return a.client.RebootCommand(a.device.Serial, kind.Mode())
}
