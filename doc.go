// Package webchat embeds a remotely hosted chat widget into a host
// application and manages its lifecycle.
//
// The widget ships as a script that, once evaluated, exposes an entry point
// for creating widget instances. webchat loads that script at most once per
// process, creates one instance per mounted configuration, keeps it in step
// with the host's mount lifetime and renders host content into the slots
// the widget reserves for user defined responses.
//
// # Core Concepts
//
// A Registry is the process-wide script loader. The first EnsureScript call
// starts the load; every later caller, for any URL, shares its outcome:
//
//	reg := webchat.NewRegistry(browser.ScriptTagLoader{})
//	webchat.SetDefault(reg)
//
// A Container binds one widget instance to one host mount. Each new Config
// pointer replaces the instance; the same pointer is a no-op:
//
//	c := webchat.NewContainer(reg,
//	    webchat.WithRenderResponse(renderCard),
//	    webchat.WithInstanceRef(ref),
//	)
//	c.SetConfig(cfg)
//	defer c.Unmount()
//
// Creation is asynchronous. A teardown that arrives while the script is
// loading, while the instance is being created or while it renders never
// leaks a live widget: whatever was produced is destroyed exactly once as
// soon as it is noticed, and is never published.
//
// # Responses
//
// The widget emits a response event for every message it cannot render
// itself. Widgets before 8.2.0 call it customResponse, later ones
// userDefinedResponse; ResponseEventName picks the right one. The Bridge
// captures these events in order and renders the host's RenderFunc into the
// node each event carries. A restartConversation event clears them.
//
// # Custom Elements
//
// CustomElement renders the widget into a host element instead of the
// widget's floating container and hides the element when the main window
// closes, using the classes rendered by Styles.
//
// # Diagnostics
//
// All diagnostics go through zap and are off until SetEnableDebug(true).
// Lines are named "WebChatContainer", suffixed with the config namespace
// when one is set.
//
// # Testing
//
// FakeLoader, FakeFactory, FakeWidget and FakeNode stand in for the remote
// script and the browser so lifecycle races can be driven deterministically.
package webchat
