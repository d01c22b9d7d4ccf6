package webchat

import (
	"context"

	"github.com/a-h/templ"
)

// Event names the widget emits that this package listens for.
const (
	// EventCustomResponse is the response event name before widget 8.2.0.
	EventCustomResponse = "customResponse"

	// EventUserDefinedResponse is the response event name from widget 8.2.0.
	EventUserDefinedResponse = "userDefinedResponse"

	// EventRestartConversation fires when the user restarts the
	// conversation. Rendered responses from before the restart are dropped.
	EventRestartConversation = "restartConversation"

	// EventViewChange fires when the widget opens or closes its main window.
	EventViewChange = "view:change"
)

// Instance is the capability surface of a live widget.
//
// The widget is externally owned and otherwise opaque. Implementations wrap
// whatever the remote script hands back (a js.Value in the browser, a fake
// in tests).
//
// Render may block until the widget has finished its first paint. Destroy is
// called at most once by this package; implementations need not guard
// against repeats.
type Instance interface {
	Render(ctx context.Context) error
	Destroy()
	On(l *Listener)
	Off(l *Listener)
	WidgetVersion() string
}

// MainWindowProvider is optionally implemented by an Instance that exposes
// its main window element. The custom element wrapper uses it to hide the
// window when the widget reports it closed.
type MainWindowProvider interface {
	MainWindow() ClassNamer
}

// Listener pairs an event type with a handler.
//
// Subscription identity is the *Listener pointer: pass the same pointer to
// Off that was passed to On.
type Listener struct {
	Type    string
	Handler func(ev *Event)
}

// Event is what the widget delivers to a Listener.
type Event struct {
	Type string
	Data EventData

	// NewViewState is populated for view:change events.
	NewViewState ViewState
}

// EventData carries the node the widget reserved for host content and the
// message that produced it.
type EventData struct {
	Element     Node
	Message     any
	FullMessage any
}

// ViewState reports which widget views are visible.
type ViewState struct {
	Launcher   bool
	MainWindow bool
}

// Node is a DOM node whose position the widget owns and whose children the
// host fills. ReplaceChildren must not move the node itself.
type Node interface {
	ReplaceChildren(ctx context.Context, content templ.Component) error
}

// ClassNamer toggles CSS classes on an element.
type ClassNamer interface {
	AddClass(name string)
	RemoveClass(name string)
}

// EntryPoint creates a widget instance from a config. In the browser it is
// the global function the remote script installs.
type EntryPoint func(ctx context.Context, cfg *Config) (Instance, error)

// ScriptLoader fetches and evaluates a remote script. It returns once the
// script has signalled load, or with an error if it failed.
type ScriptLoader interface {
	LoadScript(ctx context.Context, url string) error
}

// ScriptLoaderFunc adapts a function to ScriptLoader.
type ScriptLoaderFunc func(ctx context.Context, url string) error

// LoadScript calls f(ctx, url).
func (f ScriptLoaderFunc) LoadScript(ctx context.Context, url string) error {
	return f(ctx, url)
}

// RenderFunc produces the host content for one captured response event.
type RenderFunc func(ev *Event, inst Instance) templ.Component

// Hook runs against a freshly created instance around its first render.
type Hook func(ctx context.Context, inst Instance) error
