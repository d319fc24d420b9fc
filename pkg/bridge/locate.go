package bridge

import (
	"context"
	"os"
	"strings"
)

// Common host install locations checked when the path lookup finds nothing.
var (
	ADBCommonPaths = []string{
		"/usr/bin/adb",
		"/usr/local/bin/adb",
		"/opt/android-sdk-linux/platform-tools/adb",
	}
	FastbootCommonPaths = []string{
		"/usr/bin/fastboot",
		"/usr/local/bin/fastboot",
		"/opt/android-sdk-linux/platform-tools/fastboot",
	}
)

// Locator finds host executables. IsExecutable defaults to a stat-based check
// and can be swapped in tests.
type Locator struct {
	Runner       Runner
	IsExecutable func(path string) bool
}

// NewLocator builds a Locator that resolves names through runner.
func NewLocator(runner Runner) *Locator {
	return &Locator{Runner: runner, IsExecutable: isExecutableFile}
}

// Locate resolves name with `which`, then falls back to the given candidates.
// It returns "" when nothing was found.
func (l *Locator) Locate(ctx context.Context, name string, candidates []string) string {
	if l == nil {
		return ""
	}
	if l.Runner != nil {
		out, started := l.Runner.Run(ctx, "which "+name+" 2>/dev/null")
		if started {
			if line := firstLine(out); line != "" && strings.Contains(line, name) {
				return line
			}
		}
	}
	for _, path := range candidates {
		if l.Executable(path) {
			return path
		}
	}
	return ""
}

// Executable reports whether path is an executable file on the host.
func (l *Locator) Executable(path string) bool {
	if l == nil || path == "" {
		return false
	}
	if l.IsExecutable != nil {
		return l.IsExecutable(path)
	}
	return isExecutableFile(path)
}

// LocateADB returns the adb path, or the literal "adb" so that later
// verification fails loudly instead of silently.
func (l *Locator) LocateADB(ctx context.Context) string {
	if path := l.Locate(ctx, "adb", ADBCommonPaths); path != "" {
		return path
	}
	return "adb"
}

// LocateFastboot returns the fastboot path or "".
func (l *Locator) LocateFastboot(ctx context.Context) string {
	return l.Locate(ctx, "fastboot", FastbootCommonPaths)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
