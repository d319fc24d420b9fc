package droidprobe

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/httprunner/DroidProbe/pkg/bridge"
)

// EventKind describes what changed for one device between two polls.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventStateChanged EventKind = "state_changed"
	EventDisconnected EventKind = "disconnected"
)

// Event is one observed change.
type Event struct {
	Kind     EventKind
	Serial   string
	State    string
	Previous string
	At       time.Time
}

// DeviceLister is the enumeration half of the bridge client.
type DeviceLister interface {
	ListDevices(ctx context.Context) []bridge.Device
}

// Watcher tracks enumeration results across polls. State is in memory only.
type Watcher struct {
	lister DeviceLister
	allow  allowlist

	mu      sync.Mutex
	devices map[string]*watchedDevice
	now     func() time.Time
}

type watchedDevice struct {
	serial    string
	state     string
	firstSeen time.Time
	lastSeen  time.Time
}

// NewWatcher polls lister, ignoring serials outside allow (nil allows all).
func NewWatcher(lister DeviceLister, allow []string) *Watcher {
	return &Watcher{
		lister:  lister,
		allow:   newAllowlist(allow),
		devices: make(map[string]*watchedDevice),
		now:     time.Now,
	}
}

// Watcher returns a watcher over the analyzer's client and allowlist.
func (a *Analyzer) Watcher() *Watcher {
	w := NewWatcher(a.client, nil)
	w.allow = a.allow
	return w
}

// Refresh polls once and returns the changes since the previous poll, sorted
// by serial.
func (w *Watcher) Refresh(ctx context.Context) ([]Event, error) {
	if w == nil || w.lister == nil {
		return nil, errors.New("watcher: lister is nil")
	}
	devices := w.allow.filter(w.lister.ListDevices(ctx))
	now := w.now()
	seen := make(map[string]struct{}, len(devices))
	var events []Event

	w.mu.Lock()
	for _, d := range devices {
		serial := strings.TrimSpace(d.Serial)
		if serial == "" {
			continue
		}
		seen[serial] = struct{}{}
		state := d.RawState
		if state == "" {
			state = d.State.String()
		}
		dev, exists := w.devices[serial]
		if !exists {
			w.devices[serial] = &watchedDevice{serial: serial, state: state, firstSeen: now, lastSeen: now}
			events = append(events, Event{Kind: EventConnected, Serial: serial, State: state, At: now})
			log.Info().Str("serial", serial).Str("state", state).Msg("device connected")
			continue
		}
		dev.lastSeen = now
		if dev.state != state {
			events = append(events, Event{Kind: EventStateChanged, Serial: serial, State: state, Previous: dev.state, At: now})
			log.Info().Str("serial", serial).Str("from", dev.state).Str("to", state).Msg("device state changed")
			dev.state = state
		}
	}
	for serial, dev := range w.devices {
		if _, ok := seen[serial]; ok {
			continue
		}
		delete(w.devices, serial)
		events = append(events, Event{Kind: EventDisconnected, Serial: serial, Previous: dev.state, At: now})
		log.Info().Str("serial", serial).Dur("connected_for", now.Sub(dev.firstSeen)).Msg("device disconnected")
	}
	w.mu.Unlock()

	sort.SliceStable(events, func(i, j int) bool { return events[i].Serial < events[j].Serial })
	return events, nil
}

// Known returns the serials currently tracked, sorted.
func (w *Watcher) Known() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.devices))
	for serial := range w.devices {
		out = append(out, serial)
	}
	sort.Strings(out)
	return out
}

// Run polls every interval until ctx is done, passing each batch of events
// to fn. The first poll happens immediately.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, fn func([]Event)) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		events, err := w.Refresh(ctx)
		if err != nil {
			return err
		}
		if len(events) > 0 && fn != nil {
			fn(events)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
