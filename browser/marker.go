// Package browser connects webchat to a real page when compiled for
// js/wasm: it injects the widget script, looks up the global entry point
// and wraps widget objects and DOM elements.
//
// Other builds get stubs that report ErrUnsupported, so packages importing
// browser still compile and test on the host.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pthm/webchat"
)

// Marker attribute and the states a script tag moves through.
const (
	MarkerAttr     = "data-webchat-state"
	MarkerLoading  = "loading"
	MarkerResolved = "resolved"
	MarkerRejected = "rejected"
)

// DefaultPollInterval is how often WaitForMarker re-reads the marker.
const DefaultPollInterval = 50 * time.Millisecond

var (
	// ErrRejected reports that the script tag fired its error event.
	ErrRejected = errors.New("browser: script tag reported a load error")

	// ErrUnsupported is returned by every browser operation outside js/wasm.
	ErrUnsupported = errors.New("browser: only available in js/wasm builds")
)

// WaitForMarker polls read until the marker leaves the loading state.
// Resolved returns nil, rejected returns ErrRejected and any other value
// fails at once with webchat.ErrUnknownMarker. Cancelling ctx stops the
// wait but not the load.
func WaitForMarker(ctx context.Context, read func() string, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		switch state := read(); state {
		case MarkerResolved:
			return nil
		case MarkerRejected:
			return ErrRejected
		case MarkerLoading:
		default:
			return fmt.Errorf("%w: %q", webchat.ErrUnknownMarker, state)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
