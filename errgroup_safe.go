package droidprobe

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// groupGoSafe runs fn in an errgroup goroutine and turns a panic into an
// error for that one unit of work instead of crashing the whole pass.
//
// A recovered panic is reported through onPanic and does not cancel sibling
// goroutines; returned errors keep errgroup semantics. ctx cancellation before
// start skips fn.
//
// The panic is printed to stderr rather than through the logger, since the
// logger may be what panicked.
func groupGoSafe(ctx context.Context, group *errgroup.Group, name string, fn func(context.Context) error, onPanic func(error)) {
	if group == nil || fn == nil {
		return
	}
	group.Go(func() (err error) {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
		defer func() {
			if r := recover(); r != nil {
				_, _ = fmt.Fprintf(os.Stderr, "WARN: %s panicked: %v\n%s\n", name, r, debug.Stack())
				if onPanic != nil {
					onPanic(errors.Errorf("%s panicked: %v", name, r))
				}
				err = nil
			}
		}()
		return fn(ctx)
	})
}
