package webchat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ScriptState is the load state of the widget script in a Registry.
type ScriptState int

const (
	ScriptUnrequested ScriptState = iota
	ScriptLoading
	ScriptLoaded
	ScriptFailed
)

func (s ScriptState) String() string {
	switch s {
	case ScriptUnrequested:
		return "unrequested"
	case ScriptLoading:
		return "loading"
	case ScriptLoaded:
		return "loaded"
	case ScriptFailed:
		return "failed"
	default:
		return fmt.Sprintf("ScriptState(%d)", int(s))
	}
}

var errNoLoader = errors.New("no script loader configured")

// Registry coordinates the widget script and entry point for one page.
//
// The first EnsureScript call fixes the script URL for the registry's
// lifetime; every caller shares that one load. Requests for a different URL
// are logged and then wait on the load already started: running two widget
// versions side by side is not supported.
//
// Containers on the same page should share a Registry. Default returns a
// process-wide one; tests construct their own.
type Registry struct {
	loader   ScriptLoader
	log      *zap.Logger
	observer Observer

	mu    sync.Mutex
	url   string
	state ScriptState
	done  chan struct{}
	err   error
	entry func() (EntryPoint, bool)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for script diagnostics.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(reg *Registry) {
		reg.log = l
	}
}

// WithRegistryObserver reports script requests and outcomes to o.
func WithRegistryObserver(o Observer) RegistryOption {
	return func(reg *Registry) {
		reg.observer = o
	}
}

// WithEntryPointLookup resolves the entry point lazily, each time a
// container needs it. The browser adapter uses this to read the global the
// remote script installs.
func WithEntryPointLookup(lookup func() (EntryPoint, bool)) RegistryOption {
	return func(reg *Registry) {
		reg.entry = lookup
	}
}

// NewRegistry creates a registry that fetches the widget script through
// loader. A nil loader fails every load.
func NewRegistry(loader ScriptLoader, opts ...RegistryOption) *Registry {
	reg := &Registry{
		loader:   loader,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(reg)
	}
	if reg.loader == nil {
		reg.loader = ScriptLoaderFunc(func(context.Context, string) error {
			return errNoLoader
		})
	}
	return reg
}

// EnsureScript loads url unless a load was already started, then waits for
// that load to settle.
//
// The load itself is detached from ctx: cancelling ctx abandons this caller's
// wait and nothing else. The returned error wraps ErrScriptLoad when the
// script failed.
func (reg *Registry) EnsureScript(ctx context.Context, url string) error {
	log := diag(reg.log, nil)

	reg.mu.Lock()
	initiated := reg.done == nil
	if initiated {
		reg.url = url
		reg.state = ScriptLoading
		reg.done = make(chan struct{})
		go reg.load(url, reg.done)
	}
	loaded, done := reg.url, reg.done
	reg.mu.Unlock()

	switch {
	case initiated:
		log.Debug("Loading the web chat javascript.", zap.String("url", url))
	case loaded != url:
		log.Warn("Web chat has already been loaded using a different URL. Loading web chat from multiple URLs, including different versions, is not supported.",
			zap.String("loaded", loaded),
			zap.String("requested", url))
	}
	reg.observer.ScriptRequested(url, initiated)

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.err
}

func (reg *Registry) load(url string, done chan struct{}) {
	err := reg.loader.LoadScript(context.Background(), url)

	reg.mu.Lock()
	if err != nil {
		reg.err = fmt.Errorf("%w: %s: %w", ErrScriptLoad, url, err)
		reg.state = ScriptFailed
	} else {
		reg.state = ScriptLoaded
	}
	reg.mu.Unlock()

	reg.observer.ScriptSettled(url, err)
	close(done)
}

// State returns the current script load state.
func (reg *Registry) State() ScriptState {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.state
}

// ScriptURL returns the URL of the first requested load, or "".
func (reg *Registry) ScriptURL() string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.url
}

// Install registers the creation entry point, replacing any lookup. It is
// what the remote script does when it finishes evaluating.
func (reg *Registry) Install(ep EntryPoint) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.entry = func() (EntryPoint, bool) {
		return ep, ep != nil
	}
}

// EntryPoint returns the installed entry point, or ErrEntryPointMissing.
func (reg *Registry) EntryPoint() (EntryPoint, error) {
	reg.mu.Lock()
	lookup := reg.entry
	reg.mu.Unlock()

	if lookup == nil {
		return nil, ErrEntryPointMissing
	}
	ep, ok := lookup()
	if !ok || ep == nil {
		return nil, ErrEntryPointMissing
	}
	return ep, nil
}

var (
	defaultMu  sync.RWMutex
	defaultReg *Registry
)

// SetDefault makes reg the registry returned by Default.
func SetDefault(reg *Registry) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultReg = reg
}

// Default returns the process-wide registry. Until SetDefault is called it
// is a registry with no loader, so every load fails.
func Default() *Registry {
	defaultMu.RLock()
	reg := defaultReg
	defaultMu.RUnlock()
	if reg != nil {
		return reg
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg == nil {
		defaultReg = NewRegistry(nil)
	}
	return defaultReg
}
