package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/httprunner/DroidProbe/internal/env"
)

// Environment keys read by the analyzer and the CLI.
const (
	EnvADBPath            = "ADB_PATH"
	EnvFastbootPath       = "FASTBOOT_PATH"
	EnvBridgeTransport    = "BRIDGE_TRANSPORT"
	EnvROMDBPath          = "ROM_DB_PATH"
	EnvScanHistoryDB      = "SCAN_HISTORY_DB"
	EnvDeviceAllowlist    = "DEVICE_ALLOWLIST"
	EnvRebootGrace        = "REBOOT_GRACE"
	EnvAnalyzeConcurrency = "ANALYZE_CONCURRENCY"
	EnvConfigPath         = "DROIDPROBE_CONFIG"
)

var ensureOnce sync.Once

func ensureEnvLoaded() {
	ensureOnce.Do(func() {
		_ = env.Ensure()
	})
}

// String returns the trimmed environment variable or fallback when unset.
func String(key, fallback string) string {
	ensureEnvLoaded()
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Duration parses a time duration from environment or returns fallback.
// A bare integer is read as milliseconds.
func Duration(key string, fallback time.Duration) time.Duration {
	ensureEnvLoaded()
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// Int returns an integer environment variable or fallback when invalid.
func Int(key string, fallback int) int {
	ensureEnvLoaded()
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// Bool parses a boolean environment variable.
func Bool(key string, fallback bool) bool {
	ensureEnvLoaded()
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		switch strings.ToLower(val) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

// List splits a comma separated variable, dropping blanks.
func List(key string) []string {
	raw := String(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
