package webchat

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/a-h/templ"
)

// FakeWidget is an in-memory Instance for tests.
//
// It records every call, dispatches Emit to subscribed listeners and notes
// any call made after Destroy, so tests can assert that a container never
// touches a destroyed widget:
//
//	w := webchat.NewFakeWidget("8.2.0")
//	w.OnRender = func(w *webchat.FakeWidget) {
//	    w.Emit(&webchat.Event{Type: webchat.EventUserDefinedResponse})
//	}
type FakeWidget struct {
	Version string

	// OnRender runs inside Render, before it returns. Events emitted here
	// model a greeting fired during the first paint.
	OnRender func(w *FakeWidget)

	// RenderErr is returned from Render.
	RenderErr error

	// MainWindowNode is returned by MainWindow.
	MainWindowNode *FakeNode

	mu               sync.Mutex
	renders          int
	destroys         int
	listeners        []*Listener
	usedAfterDestroy bool
}

// NewFakeWidget creates a fake reporting version.
func NewFakeWidget(version string) *FakeWidget {
	return &FakeWidget{
		Version:        version,
		MainWindowNode: NewFakeNode(),
	}
}

func (w *FakeWidget) touch() {
	if w.destroys > 0 {
		w.usedAfterDestroy = true
	}
}

// Render records the call and runs OnRender.
func (w *FakeWidget) Render(ctx context.Context) error {
	w.mu.Lock()
	w.touch()
	w.renders++
	fn := w.OnRender
	w.mu.Unlock()

	if fn != nil {
		fn(w)
	}
	return w.RenderErr
}

// Destroy records the call.
func (w *FakeWidget) Destroy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroys++
}

// On subscribes l.
func (w *FakeWidget) On(l *Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()
	w.listeners = append(w.listeners, l)
}

// Off unsubscribes l.
func (w *FakeWidget) Off(l *Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()
	w.listeners = slices.DeleteFunc(w.listeners, func(x *Listener) bool { return x == l })
}

// WidgetVersion returns Version.
func (w *FakeWidget) WidgetVersion() string {
	return w.Version
}

// MainWindow returns MainWindowNode.
func (w *FakeWidget) MainWindow() ClassNamer {
	return w.MainWindowNode
}

// Emit delivers ev to every listener subscribed to ev.Type.
func (w *FakeWidget) Emit(ev *Event) {
	w.mu.Lock()
	var targets []*Listener
	for _, l := range w.listeners {
		if l.Type == ev.Type {
			targets = append(targets, l)
		}
	}
	w.mu.Unlock()

	for _, l := range targets {
		l.Handler(ev)
	}
}

// RenderCount returns how many times Render was called.
func (w *FakeWidget) RenderCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.renders
}

// DestroyCount returns how many times Destroy was called.
func (w *FakeWidget) DestroyCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroys
}

// ListenerCount returns the number of listeners subscribed to typ.
func (w *FakeWidget) ListenerCount(typ string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, l := range w.listeners {
		if l.Type == typ {
			n++
		}
	}
	return n
}

// UsedAfterDestroy reports whether any method other than Destroy was called
// after the first Destroy.
func (w *FakeWidget) UsedAfterDestroy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.usedAfterDestroy
}

// FakeFactory produces FakeWidgets through an EntryPoint and records every
// creation. Hold blocks creation until Release, for racing teardown
// against an in-flight create.
type FakeFactory struct {
	Version string
	Err     error

	// Setup, if set, configures each widget before it is returned.
	Setup func(w *FakeWidget)

	mu      sync.Mutex
	created []*FakeWidget
	configs []*Config
	gate    chan struct{}
	entered chan struct{}
}

// NewFakeFactory creates a factory whose widgets report version.
func NewFakeFactory(version string) *FakeFactory {
	return &FakeFactory{Version: version}
}

// Hold makes subsequent creations block until Release. The returned channel
// receives once for every creation that reaches the gate.
func (f *FakeFactory) Hold() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 16)
	return f.entered
}

// Release unblocks creations waiting in Hold.
func (f *FakeFactory) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// EntryPoint returns the creation function to Install on a Registry.
func (f *FakeFactory) EntryPoint() EntryPoint {
	return func(ctx context.Context, cfg *Config) (Instance, error) {
		f.mu.Lock()
		f.configs = append(f.configs, cfg)
		gate, entered := f.gate, f.entered
		f.mu.Unlock()

		if gate != nil {
			entered <- struct{}{}
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if f.Err != nil {
			return nil, f.Err
		}

		w := NewFakeWidget(f.Version)
		if f.Setup != nil {
			f.Setup(w)
		}
		f.mu.Lock()
		f.created = append(f.created, w)
		f.mu.Unlock()
		return w, nil
	}
}

// Created returns the widgets created so far.
func (f *FakeFactory) Created() []*FakeWidget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.created)
}

// Configs returns the configs the entry point received.
func (f *FakeFactory) Configs() []*Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.configs)
}

// FakeLoader is a ScriptLoader that records requested URLs. With Hold it
// blocks loads until Release, so tests can act while a load is in flight.
type FakeLoader struct {
	Err error

	// OnLoad runs after a successful load, standing in for the script's own
	// side effects such as installing the entry point.
	OnLoad func(url string)

	mu      sync.Mutex
	calls   []string
	gate    chan struct{}
	started chan struct{}
}

// NewFakeLoader creates a loader that succeeds immediately.
func NewFakeLoader() *FakeLoader {
	return &FakeLoader{started: make(chan struct{})}
}

// Hold makes loads block until Release.
func (f *FakeLoader) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

// Release unblocks a held load.
func (f *FakeLoader) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Started is closed when the first load begins.
func (f *FakeLoader) Started() <-chan struct{} {
	return f.started
}

// LoadScript records url, waits on the gate, then reports Err.
func (f *FakeLoader) LoadScript(ctx context.Context, url string) error {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	if len(f.calls) == 1 {
		close(f.started)
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.Err != nil {
		return f.Err
	}
	if f.OnLoad != nil {
		f.OnLoad(url)
	}
	return nil
}

// Calls returns every URL LoadScript was asked for.
func (f *FakeLoader) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// FakeNode is an in-memory Element. ReplaceChildren renders the content to
// a string.
type FakeNode struct {
	mu       sync.Mutex
	html     string
	replaces int
	classes  map[string]bool
}

// NewFakeNode creates an empty node.
func NewFakeNode() *FakeNode {
	return &FakeNode{classes: make(map[string]bool)}
}

// ReplaceChildren renders content as the node's only children.
func (n *FakeNode) ReplaceChildren(ctx context.Context, content templ.Component) error {
	var buf bytes.Buffer
	if err := content.Render(ctx, &buf); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.html = buf.String()
	n.replaces++
	return nil
}

// HTML returns the last rendered children.
func (n *FakeNode) HTML() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.html
}

// ReplaceCount returns how many times ReplaceChildren succeeded.
func (n *FakeNode) ReplaceCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.replaces
}

// AddClass adds a CSS class.
func (n *FakeNode) AddClass(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.classes[name] = true
}

// RemoveClass removes a CSS class.
func (n *FakeNode) RemoveClass(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.classes, name)
}

// HasClass reports whether the class is set.
func (n *FakeNode) HasClass(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.classes[name]
}
