package droidprobe

import "github.com/httprunner/DroidProbe/internal/config"

// Version is stamped by the release build with -ldflags "-X".
var Version = "0.1.0-dev"

// Environment variable names understood by OptionsFromEnv and the CLI.
// These are re-exported so callers can depend on the root package only.
const (
	EnvADBPath            = config.EnvADBPath
	EnvFastbootPath       = config.EnvFastbootPath
	EnvBridgeTransport    = config.EnvBridgeTransport
	EnvROMDBPath          = config.EnvROMDBPath
	EnvScanHistoryDB      = config.EnvScanHistoryDB
	EnvDeviceAllowlist    = config.EnvDeviceAllowlist
	EnvRebootGrace        = config.EnvRebootGrace
	EnvAnalyzeConcurrency = config.EnvAnalyzeConcurrency
	EnvConfigPath         = config.EnvConfigPath
)
