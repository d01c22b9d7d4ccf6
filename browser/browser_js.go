//go:build js && wasm

package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall/js"
	"time"

	"github.com/a-h/templ"
	"github.com/pthm/webchat"
)

// GlobalEntryName is the window property the widget script installs.
const GlobalEntryName = "loadWatsonAssistantChat"

// ScriptTagLoader loads the widget script by injecting a <script> tag, or by
// adopting a tag already on the page for the same URL. Progress is tracked
// through the tag's marker attribute, so separate copies of this package on
// one page wait on the same tag.
type ScriptTagLoader struct {
	Nonce    string
	Interval time.Duration
}

// LoadScript implements webchat.ScriptLoader.
func (l ScriptTagLoader) LoadScript(ctx context.Context, url string) error {
	doc := js.Global().Get("document")
	selector := fmt.Sprintf(`script[%s][src="%s"]`, MarkerAttr, js.Global().Get("CSS").Call("escape", url).String())
	tag := doc.Call("querySelector", selector)

	if tag.IsNull() {
		tag = doc.Call("createElement", "script")
		tag.Set("src", url)
		tag.Call("setAttribute", MarkerAttr, MarkerLoading)
		if l.Nonce != "" {
			tag.Call("setAttribute", "nonce", l.Nonce)
		}

		var onLoad, onError js.Func
		settle := func(state string) {
			tag.Call("setAttribute", MarkerAttr, state)
			onLoad.Release()
			onError.Release()
		}
		onLoad = js.FuncOf(func(js.Value, []js.Value) any {
			settle(MarkerResolved)
			return nil
		})
		onError = js.FuncOf(func(js.Value, []js.Value) any {
			settle(MarkerRejected)
			return nil
		})
		tag.Call("addEventListener", "load", onLoad)
		tag.Call("addEventListener", "error", onError)
		doc.Get("head").Call("appendChild", tag)
	}

	return WaitForMarker(ctx, func() string {
		v := tag.Call("getAttribute", MarkerAttr)
		if v.IsNull() {
			return ""
		}
		return v.String()
	}, l.Interval)
}

// GlobalEntryPoint looks up window.loadWatsonAssistantChat. Pass it to
// webchat.WithEntryPointLookup.
func GlobalEntryPoint() (webchat.EntryPoint, bool) {
	fn := js.Global().Get(GlobalEntryName)
	if fn.Type() != js.TypeFunction {
		return nil, false
	}
	return func(ctx context.Context, cfg *webchat.Config) (webchat.Instance, error) {
		v, err := await(ctx, fn.Invoke(configValue(cfg)))
		if err != nil {
			return nil, err
		}
		if !v.Truthy() {
			return nil, errors.New("browser: entry point resolved to nothing")
		}
		return NewWidget(v), nil
	}, true
}

func configValue(cfg *webchat.Config) js.Value {
	values := cfg.Values()
	if el, ok := cfg.Element.(*Element); ok && el != nil {
		values["element"] = el.v
	}
	return js.ValueOf(values)
}

// Widget adapts a widget instance object to webchat.Instance.
type Widget struct {
	v js.Value

	mu        sync.Mutex
	listeners map[*webchat.Listener]js.Func
}

// NewWidget wraps v.
func NewWidget(v js.Value) *Widget {
	return &Widget{v: v, listeners: make(map[*webchat.Listener]js.Func)}
}

// Render calls render and waits for the returned promise.
func (w *Widget) Render(ctx context.Context) error {
	_, err := await(ctx, w.v.Call("render"))
	return err
}

// Destroy calls destroy and releases every listener still registered.
func (w *Widget) Destroy() {
	w.v.Call("destroy")

	w.mu.Lock()
	defer w.mu.Unlock()
	for l, fn := range w.listeners {
		fn.Release()
		delete(w.listeners, l)
	}
}

// On subscribes l.
func (w *Widget) On(l *webchat.Listener) {
	fn := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) > 0 {
			l.Handler(toEvent(args[0]))
		}
		return nil
	})

	w.mu.Lock()
	w.listeners[l] = fn
	w.mu.Unlock()

	w.v.Call("on", map[string]any{"type": l.Type, "handler": fn})
}

// Off unsubscribes l.
func (w *Widget) Off(l *webchat.Listener) {
	w.mu.Lock()
	fn, ok := w.listeners[l]
	delete(w.listeners, l)
	w.mu.Unlock()
	if !ok {
		return
	}

	w.v.Call("off", map[string]any{"type": l.Type, "handler": fn})
	fn.Release()
}

// WidgetVersion returns getWidgetVersion().
func (w *Widget) WidgetVersion() string {
	v := w.v.Call("getWidgetVersion")
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

// MainWindow returns the widget's main window element.
func (w *Widget) MainWindow() webchat.ClassNamer {
	return mainWindow{w.v.Get("elements").Call("getMainWindow")}
}

type mainWindow struct {
	v js.Value
}

func (m mainWindow) AddClass(name string)    { m.v.Call("addClassName", name) }
func (m mainWindow) RemoveClass(name string) { m.v.Call("removeClassName", name) }

// Element adapts a DOM element to webchat.Element.
type Element struct {
	v js.Value
}

// ElementByID looks up an element by id.
func ElementByID(id string) (*Element, error) {
	v := js.Global().Get("document").Call("getElementById", id)
	if v.IsNull() {
		return nil, fmt.Errorf("browser: no element with id %q", id)
	}
	return &Element{v: v}, nil
}

// ReplaceChildren renders content and swaps it in as the element's
// children. The element itself stays where it is.
func (e *Element) ReplaceChildren(ctx context.Context, content templ.Component) error {
	var buf bytes.Buffer
	if err := content.Render(ctx, &buf); err != nil {
		return err
	}
	e.v.Set("innerHTML", buf.String())
	return nil
}

// AddClass adds a CSS class.
func (e *Element) AddClass(name string) {
	e.v.Get("classList").Call("add", name)
}

// RemoveClass removes a CSS class.
func (e *Element) RemoveClass(name string) {
	e.v.Get("classList").Call("remove", name)
}

func toEvent(v js.Value) *webchat.Event {
	ev := &webchat.Event{Type: v.Get("type").String()}
	if d := v.Get("data"); d.Truthy() {
		if el := d.Get("element"); el.Truthy() {
			ev.Data.Element = &Element{v: el}
		}
		ev.Data.Message = d.Get("message")
		ev.Data.FullMessage = d.Get("fullMessage")
	}
	if s := v.Get("newViewState"); s.Truthy() {
		ev.NewViewState = webchat.ViewState{
			Launcher:   s.Get("launcher").Truthy(),
			MainWindow: s.Get("mainWindow").Truthy(),
		}
	}
	return ev
}

// await waits for v to settle if it is a thenable, and returns v unchanged
// otherwise.
func await(ctx context.Context, v js.Value) (js.Value, error) {
	if v.Type() != js.TypeObject || v.Get("then").Type() != js.TypeFunction {
		return v, nil
	}

	type result struct {
		v   js.Value
		err error
	}
	ch := make(chan result, 1)
	onOK := js.FuncOf(func(_ js.Value, args []js.Value) any {
		ch <- result{v: arg(args)}
		return nil
	})
	onErr := js.FuncOf(func(_ js.Value, args []js.Value) any {
		ch <- result{err: jsError(arg(args))}
		return nil
	})
	release := func() {
		onOK.Release()
		onErr.Release()
	}
	v.Call("then", onOK, onErr)

	select {
	case r := <-ch:
		release()
		return r.v, r.err
	case <-ctx.Done():
		go func() {
			<-ch
			release()
		}()
		return js.Undefined(), ctx.Err()
	}
}

func arg(args []js.Value) js.Value {
	if len(args) == 0 {
		return js.Undefined()
	}
	return args[0]
}

func jsError(v js.Value) error {
	if !v.Truthy() {
		return errors.New("browser: promise rejected")
	}
	return fmt.Errorf("browser: %s", v.Call("toString").String())
}
