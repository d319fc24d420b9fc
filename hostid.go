package droidprobe

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	hostIDOnce  sync.Once
	hostIDValue string
)

// HostID identifies the workstation that ran a scan. It prefers the hardware
// or machine UUID and falls back to the hostname; the result is cached.
func HostID() string {
	hostIDOnce.Do(func() {
		id, err := hostUUID()
		if err != nil {
			log.Debug().Err(err).Msg("droidprobe: read host uuid failed")
		}
		if id == "" {
			id, _ = os.Hostname()
		}
		hostIDValue = strings.TrimSpace(id)
	})
	return hostIDValue
}

// hostUUID uses system_profiler on macOS, and on Linux /etc/machine-id then
// /sys/class/dmi/id/product_uuid.
func hostUUID() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		cmd := exec.CommandContext(context.Background(), "bash", "-c", "system_profiler SPHardwareDataType | awk '/Hardware UUID/ {print $3}'")
		out, err := cmd.Output()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	case "linux":
		for _, path := range []string{"/etc/machine-id", "/sys/class/dmi/id/product_uuid"} {
			if id := readSystemFile(path); id != "" {
				return id, nil
			}
		}
		return "", nil
	default:
		return "", nil
	}
}

func readSystemFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
