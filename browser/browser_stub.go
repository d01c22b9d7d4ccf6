//go:build !(js && wasm)

package browser

import (
	"context"
	"time"

	"github.com/a-h/templ"
	"github.com/pthm/webchat"
)

// ScriptTagLoader is unavailable outside js/wasm.
type ScriptTagLoader struct {
	Nonce    string
	Interval time.Duration
}

// LoadScript returns ErrUnsupported.
func (ScriptTagLoader) LoadScript(context.Context, string) error {
	return ErrUnsupported
}

// GlobalEntryPoint never finds an entry point outside js/wasm.
func GlobalEntryPoint() (webchat.EntryPoint, bool) {
	return nil, false
}

// Element is unavailable outside js/wasm.
type Element struct{}

// ElementByID returns ErrUnsupported.
func ElementByID(string) (*Element, error) {
	return nil, ErrUnsupported
}

// ReplaceChildren returns ErrUnsupported.
func (*Element) ReplaceChildren(context.Context, templ.Component) error {
	return ErrUnsupported
}

// AddClass is a no-op.
func (*Element) AddClass(string) {}

// RemoveClass is a no-op.
func (*Element) RemoveClass(string) {}
