package bridgetest

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// FakeADB writes an executable `adb` shell script into a temp dir. body is the
// script after the shebang; every invocation's arguments are appended, one
// line per call, to the returned log file. Tests are skipped on Windows.
func FakeADB(t testing.TB, body string) (adbPath, logPath string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb needs a POSIX shell")
	}
	dir := t.TempDir()
	adbPath = filepath.Join(dir, "adb")
	logPath = filepath.Join(dir, "calls.log")
	script := "#!/bin/sh\nprintf '%s\\n' \"$*\" >> '" + logPath + "'\n" + body + "\n"
	if err := os.WriteFile(adbPath, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake adb: %v", err)
	}
	return adbPath, logPath
}

// FakeCalls returns the argument lines the fake adb recorded.
func FakeCalls(t testing.TB, logPath string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read fake adb log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// DaemonStartADB behaves like adb on the first call after the server was
// down: start-up chatter on stderr, the real answer on stdout. Serial ABC123
// is attached; any other -s target is reported missing on stderr.
const DaemonStartADB = `echo '* daemon not running; starting now at tcp:5037' >&2
echo '* daemon started successfully' >&2
if [ "$1" = "-s" ]; then
  serial="$2"
  shift 2
  if [ "$serial" != "ABC123" ]; then
    echo "adb: device '$serial' not found" >&2
    exit 1
  fi
else
  serial="ABC123"
fi
case "$1" in
  get-state) echo device ;;
  get-serialno) echo "$serial" ;;
  shell) echo "samsung" ;;
  reboot) ;;
esac`
