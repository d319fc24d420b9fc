// Package droidprobe wires the bridge client, the read-only device probes,
// the ROM database and scan history into one analysis pass.
package droidprobe

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/httprunner/DroidProbe/internal/config"
	adbprovider "github.com/httprunner/DroidProbe/internal/providers/adb"
	"github.com/httprunner/DroidProbe/pkg/bridge"
	"github.com/httprunner/DroidProbe/pkg/probe"
	"github.com/httprunner/DroidProbe/pkg/reboot"
	"github.com/httprunner/DroidProbe/pkg/recorder"
	"github.com/httprunner/DroidProbe/pkg/rom"
)

// Transports accepted by Options.Transport.
const (
	TransportExec   = "exec"
	TransportServer = "server"
)

var (
	// ErrNoDevice means enumeration found nothing usable.
	ErrNoDevice = errors.New("no connected device")
	// ErrMultipleDevices means a serial must be chosen explicitly.
	ErrMultipleDevices = errors.New("more than one device connected")
)

// Options configures an Analyzer. Zero values select defaults.
type Options struct {
	// ADBPath is auto-detected when empty.
	ADBPath      string
	FastbootPath string
	// Transport is TransportExec (default) or TransportServer.
	Transport string
	// Runner overrides Transport when set.
	Runner bridge.Runner

	// ROMDBPath replaces the embedded database when set.
	ROMDBPath string
	// Recorder receives every report; nil disables history.
	Recorder recorder.Recorder

	Allowlist   []string
	RebootGrace time.Duration
	// Concurrency bounds AnalyzeAll; values below 1 mean one device at a time.
	Concurrency int
}

// OptionsFromEnv reads the environment keys documented in internal/config.
func OptionsFromEnv() Options {
	return Options{
		ADBPath:      config.String(config.EnvADBPath, ""),
		FastbootPath: config.String(config.EnvFastbootPath, ""),
		Transport:    config.String(config.EnvBridgeTransport, TransportExec),
		ROMDBPath:    config.String(config.EnvROMDBPath, ""),
		Allowlist:    ParseAllowlist(config.String(config.EnvDeviceAllowlist, "")),
		RebootGrace:  config.Duration(config.EnvRebootGrace, bridge.DefaultRebootGrace),
		Concurrency:  config.Int(config.EnvAnalyzeConcurrency, 1),
	}
}

// Analyzer owns the bridge client and hands it to every probe.
type Analyzer struct {
	client  *bridge.Client
	locator *bridge.Locator
	rom     *rom.Lookup

	deviceInfo *probe.DeviceInfoProbe
	root       *probe.RootStatusProbe
	bootloader *probe.BootloaderProbe
	verified   *probe.VerifiedBootProbe

	recorder    recorder.Recorder
	hostID      string
	allow       allowlist
	concurrency int
	now         func() time.Time
}

// NewAnalyzer resolves the transport, the tool paths and the ROM database.
// A ROM database that fails to load is an error; an unreachable bridge is not,
// since every probe degrades on its own.
func NewAnalyzer(ctx context.Context, opts Options) (*Analyzer, error) {
	runner, err := resolveRunner(opts)
	if err != nil {
		return nil, err
	}
	locator := bridge.NewLocator(runner)

	adbPath := strings.TrimSpace(opts.ADBPath)
	if adbPath == "" {
		adbPath = locator.LocateADB(ctx)
	}
	fastbootPath := strings.TrimSpace(opts.FastbootPath)
	if fastbootPath == "" {
		fastbootPath = locator.LocateFastboot(ctx)
	}
	client := bridge.NewClient(runner, bridge.Options{
		ADBPath:      adbPath,
		FastbootPath: fastbootPath,
		RebootGrace:  opts.RebootGrace,
	})

	lookup := rom.NewDefault()
	if path := strings.TrimSpace(opts.ROMDBPath); path != "" {
		lookup = rom.New()
		if err := lookup.LoadFile(path); err != nil {
			return nil, err
		}
	}

	rec := opts.Recorder
	if rec == nil {
		rec = recorder.NoopRecorder{}
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	log.Debug().
		Str("adb", client.ADBPath()).
		Str("fastboot", client.FastbootPath()).
		Str("rom_db", lookup.Source()).
		Int("concurrency", concurrency).
		Msg("droidprobe: analyzer ready")

	return &Analyzer{
		client:      client,
		locator:     locator,
		rom:         lookup,
		deviceInfo:  probe.NewDeviceInfoProbe(client),
		root:        probe.NewRootStatusProbe(client),
		bootloader:  probe.NewBootloaderProbe(client, locator),
		verified:    probe.NewVerifiedBootProbe(client),
		recorder:    rec,
		hostID:      HostID(),
		allow:       newAllowlist(opts.Allowlist),
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func resolveRunner(opts Options) (bridge.Runner, error) {
	if opts.Runner != nil {
		return opts.Runner, nil
	}
	switch strings.ToLower(strings.TrimSpace(opts.Transport)) {
	case "", TransportExec:
		return bridge.NewExecRunner(), nil
	case TransportServer:
		runner, err := adbprovider.NewDefault()
		if err != nil {
			return nil, errors.Wrap(err, "droidprobe: connect adb server")
		}
		return runner, nil
	default:
		return nil, errors.Errorf("droidprobe: unknown transport %q (want %s or %s)",
			opts.Transport, TransportExec, TransportServer)
	}
}

// Client exposes the shared bridge client.
func (a *Analyzer) Client() *bridge.Client { return a.client }

// ROM exposes the compatibility database.
func (a *Analyzer) ROM() *rom.Lookup { return a.rom }

// Bootloader exposes the bootloader probe for explicit fastboot queries.
func (a *Analyzer) Bootloader() *probe.BootloaderProbe { return a.bootloader }

// Devices enumerates attached devices that pass the allowlist.
func (a *Analyzer) Devices(ctx context.Context) []bridge.Device {
	return a.allow.filter(a.client.ListDevices(ctx))
}

// SelectDevice picks the serial to work on: explicit wins, then the only
// connected device, then preferred when it is among several.
func (a *Analyzer) SelectDevice(ctx context.Context, explicit, preferred string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if !a.allow.allows(explicit) {
			return "", errors.Errorf("device %s is not in %s", explicit, config.EnvDeviceAllowlist)
		}
		return explicit, nil
	}
	var connected []string
	for _, dev := range a.Devices(ctx) {
		if dev.State == bridge.StateConnected {
			connected = append(connected, dev.Serial)
		}
	}
	switch len(connected) {
	case 0:
		return "", ErrNoDevice
	case 1:
		return connected[0], nil
	}
	for _, serial := range connected {
		if serial == strings.TrimSpace(preferred) {
			return serial, nil
		}
	}
	return "", errors.Wrapf(ErrMultipleDevices, "pick one with --serial: %s", strings.Join(connected, ", "))
}

// Inspect runs only the identity and hardware probe.
func (a *Analyzer) Inspect(ctx context.Context, serial string) *probe.DeviceInfo {
	return a.deviceInfo.Inspect(ctx, serial)
}

// Root runs only the root probe.
func (a *Analyzer) Root(ctx context.Context, serial string) *probe.RootInfo {
	return a.root.Analyze(ctx, serial)
}

// Security fills the boot-security sections of a fresh report.
func (a *Analyzer) Security(ctx context.Context, serial string) *probe.Report {
	report := &probe.Report{Serial: serial, ScannedAt: a.now()}
	a.fillSecurity(ctx, report)
	return report
}

func (a *Analyzer) fillSecurity(ctx context.Context, report *probe.Report) {
	serial := report.Serial
	report.SELinux = a.verified.SELinux(ctx, serial)
	vb := a.verified.VerifiedBoot(ctx, serial)
	report.VerifiedBoot = &vb
	oem := a.verified.OEMUnlock(ctx, serial)
	report.OEMUnlock = &oem
	slots := a.verified.Slots(ctx, serial)
	report.Slots = &slots
}

// CheckROM answers compatibility for codename.
func (a *Analyzer) CheckROM(codename string) *probe.ROMResult {
	codename = strings.TrimSpace(codename)
	if codename == "" {
		return nil
	}
	res := &probe.ROMResult{Codename: codename}
	if rec, ok := a.rom.Check(codename); ok {
		res.Found = true
		res.Record = &rec
	}
	return res
}

// Analyze runs every probe against serial in a fixed order and records the
// report. Sections a probe could not produce are left nil.
func (a *Analyzer) Analyze(ctx context.Context, serial string) *probe.Report {
	report := &probe.Report{Serial: serial, ScannedAt: a.now()}
	report.Device = a.deviceInfo.Inspect(ctx, serial)
	report.Root = a.root.Analyze(ctx, serial)
	report.Bootloader = a.bootloader.Analyze(ctx, serial)
	a.fillSecurity(ctx, report)
	if report.Device != nil {
		report.ROM = a.CheckROM(report.Device.Codename)
	}

	if err := a.recorder.Record(ctx, a.hostID, report); err != nil {
		log.Warn().Err(err).Str("serial", serial).Msg("droidprobe: record scan history failed")
	}
	log.Info().Str("serial", serial).Bool("identified", report.Device != nil).Msg("droidprobe: analysis finished")
	return report
}

// AnalyzeAll analyzes every connected, allowed device. At most Concurrency
// devices are worked on at once; each device still sees its probes in order.
// Reports keep enumeration order.
func (a *Analyzer) AnalyzeAll(ctx context.Context) ([]*probe.Report, error) {
	var serials []string
	for _, dev := range a.Devices(ctx) {
		if dev.State == bridge.StateConnected {
			serials = append(serials, dev.Serial)
		}
	}
	if len(serials) == 0 {
		return nil, ErrNoDevice
	}

	reports := make([]*probe.Report, len(serials))
	var (
		mu      sync.Mutex
		panics  []error
		onPanic = func(err error) {
			mu.Lock()
			panics = append(panics, err)
			mu.Unlock()
		}
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(a.concurrency)
	for i, serial := range serials {
		groupGoSafe(gctx, group, "analyze "+serial, func(ctx context.Context) error {
			reports[i] = a.Analyze(ctx, serial)
			return nil
		}, onPanic)
	}
	if err := group.Wait(); err != nil {
		return reports, err
	}
	for _, err := range panics {
		log.Error().Err(err).Msg("droidprobe: device analysis aborted")
	}
	out := reports[:0]
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// RebootAction loads the identity needed to gate reboots for serial.
func (a *Analyzer) RebootAction(ctx context.Context, serial string) *reboot.Action {
	return reboot.LoadAction(ctx, a.client, serial)
}

// Close releases the history recorder.
func (a *Analyzer) Close() error {
	if a == nil || a.recorder == nil {
		return nil
	}
	return a.recorder.Close()
}
