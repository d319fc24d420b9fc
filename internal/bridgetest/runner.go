// Package bridgetest provides a programmable bridge.Runner for tests.
package bridgetest

import (
	"context"
	"strings"
	"sync"

	"github.com/httprunner/DroidProbe/pkg/bridge"
)

// Runner answers exact command lines from a table and records every call.
// Unknown command lines return ("", true), the same as a device shell that
// printed nothing.
type Runner struct {
	mu        sync.Mutex
	responses map[string]string
	failed    map[string]bool
	calls     []string

	// Client builds command lines the same way production code does.
	Client *bridge.Client
}

// New returns a Runner plus a Client that uses it.
func New() *Runner {
	r := &Runner{
		responses: make(map[string]string),
		failed:    make(map[string]bool),
	}
	r.Client = bridge.NewClient(r, bridge.Options{ADBPath: "adb", FastbootPath: "fastboot"})
	return r
}

func (r *Runner) Run(ctx context.Context, cmdline string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, cmdline)
	if r.failed[cmdline] {
		return "", false
	}
	return r.responses[cmdline], true
}

// Set registers output for an exact command line.
func (r *Runner) Set(cmdline, output string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[cmdline] = output
	return r
}

// Fail makes cmdline report that the process could not start.
func (r *Runner) Fail(cmdline string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[cmdline] = true
	return r
}

// Shell registers output for a device shell command.
func (r *Runner) Shell(serial, cmd, output string) *Runner {
	return r.Set(r.Client.ShellLine(serial, cmd), output)
}

// Prop registers a property value.
func (r *Runner) Prop(serial, key, value string) *Runner {
	return r.Shell(serial, "getprop "+key, value)
}

// Found makes a `test ... && echo found` probe succeed.
func (r *Runner) Found(serial, cmd string) *Runner {
	return r.Shell(serial, cmd, "found\n")
}

// Calls returns a copy of every command line seen so far.
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many calls contained substr.
func (r *Runner) Count(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if strings.Contains(call, substr) {
			n++
		}
	}
	return n
}
