package webchat

import (
	"context"
	"io"
	"sync"

	"github.com/a-h/templ"
)

// CSS classes toggled by the default view change handler.
const (
	ClassElementHidden    = "CustomElementHideWebChat"
	ClassMainWindowHidden = "HideWebChat"
)

const customElementStyles = `
#WACContainer.WACContainer .HideWebChat { display: none }
.CustomElementHideWebChat { width: 0; height: 0 }
`

// Element is a host node the widget can render into as a custom element.
type Element interface {
	Node
	ClassNamer
}

// ViewChangeFunc handles view:change events for a custom element.
type ViewChangeFunc func(ev *Event, inst Instance)

// CustomElement renders the widget inside a host-provided element instead
// of the widget's own floating container.
//
// The widget does not hide its main window when it closes in custom element
// mode, so something has to react to view:change. Unless a ViewChangeFunc is
// supplied, CustomElement toggles CSS classes on the element and the main
// window; include Styles in the page for those classes to take effect.
type CustomElement struct {
	element      Element
	container    *Container
	onViewChange ViewChangeFunc

	mu      sync.Mutex
	source  *Config
	derived *Config
}

// NewCustomElement creates a custom element wrapper around a Container
// configured with opts. onViewChange may be nil.
func NewCustomElement(el Element, reg *Registry, onViewChange ViewChangeFunc, opts ...Option) *CustomElement {
	ce := &CustomElement{
		element:      el,
		onViewChange: onViewChange,
	}
	c := NewContainer(reg, opts...)
	c.beforeRender = ce.beforeRender(c.beforeRender)
	ce.container = c
	return ce
}

// SetConfig mounts cfg with Element pointing at the custom element. The
// derived config is memoized per cfg pointer, so calling SetConfig again
// with the same pointer keeps the current widget.
func (ce *CustomElement) SetConfig(cfg *Config) {
	ce.mu.Lock()
	if cfg != ce.source {
		ce.source = cfg
		ce.derived = nil
		if cfg != nil {
			d := *cfg
			d.Element = ce.element
			ce.derived = &d
		}
	}
	derived := ce.derived
	ce.mu.Unlock()

	ce.container.SetConfig(derived)
}

// Unmount tears the widget down.
func (ce *CustomElement) Unmount() {
	ce.mu.Lock()
	ce.source, ce.derived = nil, nil
	ce.mu.Unlock()

	ce.container.Unmount()
}

// Container returns the wrapped container.
func (ce *CustomElement) Container() *Container {
	return ce.container
}

// Styles renders the CSS the default view change handler relies on. It
// renders nothing when a custom ViewChangeFunc was supplied.
func (ce *CustomElement) Styles() templ.Component {
	if ce.onViewChange != nil {
		return templ.NopComponent
	}
	return CustomElementStyles()
}

// CustomElementStyles renders the CSS for the hidden-element classes.
func CustomElementStyles() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<style>"+customElementStyles+"</style>")
		return err
	})
}

func (ce *CustomElement) beforeRender(next Hook) Hook {
	return func(ctx context.Context, inst Instance) error {
		handler := ce.onViewChange
		if handler == nil {
			handler = ce.defaultViewChange
		}
		inst.On(&Listener{
			Type:    EventViewChange,
			Handler: func(ev *Event) { handler(ev, inst) },
		})

		if next != nil {
			return next(ctx, inst)
		}
		return nil
	}
}

func (ce *CustomElement) defaultViewChange(ev *Event, inst Instance) {
	var mainWindow ClassNamer
	if p, ok := inst.(MainWindowProvider); ok {
		mainWindow = p.MainWindow()
	}

	if ev.NewViewState.MainWindow {
		ce.element.RemoveClass(ClassElementHidden)
		if mainWindow != nil {
			mainWindow.RemoveClass(ClassMainWindowHidden)
		}
		return
	}
	ce.element.AddClass(ClassElementHidden)
	if mainWindow != nil {
		mainWindow.AddClass(ClassMainWindowHidden)
	}
}
