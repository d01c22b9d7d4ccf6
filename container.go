package webchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/a-h/templ"
	"go.uber.org/zap"
)

// Container ties a widget instance to a host component's mount lifetime.
//
// Each time SetConfig receives a config pointer it has not seen, the
// container tears down the current instance and starts creating a new one:
//
//  1. tombstone the previous instance (destroying it if it exists)
//  2. wait for the widget script (shared through the Registry)
//  3. create the instance through the registry's entry point
//  4. attach the response bridge, so events fired during render are kept
//  5. run the before-render hook, render, run the after-render hook
//  6. publish the instance through Instance, the Ref and OnChange
//
// Steps 2 to 6 run on their own goroutine and check the tombstone after every
// blocking call. Anything that fails is logged and torn down; the host just
// never sees an instance. Nothing is cancelled mid-flight: a stale result
// is destroyed as soon as it is noticed.
//
//	c := webchat.NewContainer(reg,
//	    webchat.WithAfterRender(func(ctx context.Context, inst webchat.Instance) error {
//	        return nil
//	    }),
//	    webchat.WithRenderResponse(renderCard),
//	)
//	c.SetConfig(cfg)
//	defer c.Unmount()
type Container struct {
	reg            *Registry
	ctx            context.Context
	beforeRender   Hook
	afterRender    Hook
	renderResponse RenderFunc
	ref            *Ref[Instance]
	onChange       func(Instance)
	observer       Observer
	log            *zap.Logger

	mu          sync.Mutex
	hostURL     string
	prevConfig  *Config
	current     *managedInstance
	published   Instance
	publishedBy *managedInstance

	wg sync.WaitGroup
}

// Option configures a Container.
type Option func(*Container)

// WithHostURL sets the initial script host. SetHostURL changes it later.
func WithHostURL(url string) Option {
	return func(c *Container) {
		c.hostURL = url
	}
}

// WithBeforeRender runs h after the instance is created and before it
// renders. Use it to register event handlers that must see the first render.
func WithBeforeRender(h Hook) Option {
	return func(c *Container) {
		c.beforeRender = h
	}
}

// WithAfterRender runs h after the instance has rendered and before it is
// published.
func WithAfterRender(h Hook) Option {
	return func(c *Container) {
		c.afterRender = h
	}
}

// WithRenderResponse sets the function that produces host content for each
// user-defined response the widget emits.
func WithRenderResponse(fn RenderFunc) Option {
	return func(c *Container) {
		c.renderResponse = fn
	}
}

// WithInstanceRef mirrors the published instance into ref.
func WithInstanceRef(ref *Ref[Instance]) Option {
	return func(c *Container) {
		c.ref = ref
	}
}

// WithOnChange calls fn whenever the published instance or the captured
// responses change. fn receives the instance current at call time, which
// may be nil.
func WithOnChange(fn func(Instance)) Option {
	return func(c *Container) {
		c.onChange = fn
	}
}

// WithObserver reports lifecycle transitions to o.
func WithObserver(o Observer) Option {
	return func(c *Container) {
		c.observer = o
	}
}

// WithLogger sets the diagnostics logger. The debug toggle still applies.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		c.log = l
	}
}

// WithContext sets the context passed to the entry point, hooks and render.
// It is never cancelled by the container.
func WithContext(ctx context.Context) Option {
	return func(c *Container) {
		c.ctx = ctx
	}
}

// NewContainer creates an unmounted container. A nil reg means Default().
func NewContainer(reg *Registry, opts ...Option) *Container {
	if reg == nil {
		reg = Default()
	}
	c := &Container{
		reg:      reg,
		ctx:      context.Background(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetConfig mounts cfg. It is a no-op when cfg is the pointer already
// mounted; any other pointer, even one with equal fields, replaces the
// current instance. A nil cfg tears down without creating anything.
func (c *Container) SetConfig(cfg *Config) {
	c.mu.Lock()
	if cfg == c.prevConfig {
		c.mu.Unlock()
		return
	}
	c.prevConfig = cfg
	c.remountLocked()
}

// SetHostURL changes where the widget script is fetched from. A mounted
// instance is replaced by one created from the new host, as with a new
// config. Setting the current value again does nothing.
func (c *Container) SetHostURL(url string) {
	c.mu.Lock()
	if url == c.hostURL {
		c.mu.Unlock()
		return
	}
	c.hostURL = url
	c.remountLocked()
}

// remountLocked replaces the current record with one for prevConfig and
// hostURL. It is called with c.mu held and releases it.
func (c *Container) remountLocked() {
	cfg := c.prevConfig
	prev := c.current
	var m *managedInstance
	if cfg != nil {
		m = c.newRecord(cfg)
	}
	c.current = m
	c.mu.Unlock()

	if prev != nil {
		diag(c.log, prev.config).Debug("Destroying web chat due to configuration change.")
		c.teardown(prev)
	}
	if m == nil {
		return
	}

	diag(c.log, cfg).Debug("Creating a new web chat due to configuration change.",
		zap.String("fingerprint", cfg.Fingerprint()))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.load(m); err != nil {
			diag(c.log, cfg).Error("An error occurred loading web chat.", zap.Error(err))
			c.observer.CreateFailed(cfg, err)
			c.teardown(m)
		}
	}()
}

// newRecord creates the record for one mount of cfg. Each record captures
// responses on its own Bridge, so a stale instance attaching late cannot
// take over the live one's.
func (c *Container) newRecord(cfg *Config) *managedInstance {
	m := newManagedInstance(cfg, c.observer)
	m.scriptURL = ScriptURL(cfg, c.hostURL)
	m.bridge = NewBridge(c.renderResponse, func() { c.bridgeChanged(m) })
	return m
}

// Unmount tears down the current instance. Mounting the same config pointer
// again afterwards creates a fresh instance.
func (c *Container) Unmount() {
	c.mu.Lock()
	m := c.current
	c.current = nil
	c.prevConfig = nil
	c.mu.Unlock()

	if m != nil {
		diag(c.log, m.config).Debug("Destroying web chat due to component unmounting.")
		c.teardown(m)
	}
}

// Instance returns the published instance, or nil while none is live.
func (c *Container) Instance() Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published
}

// Events returns the response events captured from the current instance.
func (c *Container) Events() []*Event {
	c.mu.Lock()
	m := c.current
	c.mu.Unlock()
	if m == nil {
		return nil
	}
	return m.bridge.Events()
}

// Flush renders pending response portals. It does nothing until an instance
// is published or when no render function was configured.
func (c *Container) Flush(ctx context.Context) error {
	c.mu.Lock()
	m := c.publishedBy
	c.mu.Unlock()
	if c.renderResponse == nil || m == nil {
		return nil
	}
	return m.bridge.Flush(ctx)
}

// Render is the container's host view. The portals live inside the widget's
// own nodes, so it writes nothing to w and only flushes pending responses.
func (c *Container) Render(ctx context.Context, w io.Writer) error {
	return c.Flush(ctx)
}

// Component returns Render as a templ component for host pages.
func (c *Container) Component() templ.Component {
	return templ.ComponentFunc(c.Render)
}

// Wait blocks until every creation sequence started so far has finished.
func (c *Container) Wait() {
	c.wg.Wait()
}

// load runs the creation sequence for m. A nil return with no published
// instance means m was tombstoned along the way.
func (c *Container) load(m *managedInstance) error {
	cfg := m.config
	log := diag(c.log, cfg)

	if !m.advance(PhaseScriptLoading) {
		return nil
	}
	if err := c.reg.EnsureScript(c.ctx, m.scriptURL); err != nil {
		return err
	}
	if m.tombstoned() {
		log.Debug("Destroying web chat before an instance is created.")
		return nil
	}

	if cfg.OnLoad != nil {
		log.Warn("Do not use OnLoad in the web chat config. Use the WithBeforeRender or WithAfterRender options instead.")
	}
	entry, err := c.reg.EntryPoint()
	if err != nil {
		return err
	}
	if !m.advance(PhaseCreating) {
		return nil
	}

	log.Debug("Creating web chat instance.")
	inst, err := entry(c.ctx, cfg.withoutOnLoad())
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	if inst == nil {
		return errors.New("create instance: entry point returned no instance")
	}
	if !m.adopt(inst) {
		log.Debug("Destroying web chat after an instance is created.")
		return nil
	}

	ran, _ := m.use(func(inst Instance) error {
		sub := m.bridge.Attach(inst)
		m.onDestroy(sub.Close)
		log.Debug("Listening for responses.", zap.String("event", sub.EventName()),
			zap.String("version", inst.WidgetVersion()))
		return nil
	})
	if !ran {
		return nil
	}

	if c.beforeRender != nil {
		ran, err := m.use(func(inst Instance) error { return c.beforeRender(c.ctx, inst) })
		if err != nil {
			return fmt.Errorf("%w: before render: %w", ErrHook, err)
		}
		if !ran {
			return nil
		}
	}

	log.Debug("Calling render.")
	ran, err = m.use(func(inst Instance) error { return inst.Render(c.ctx) })
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if !ran {
		return nil
	}

	if c.afterRender != nil {
		ran, err := m.use(func(inst Instance) error { return c.afterRender(c.ctx, inst) })
		if err != nil {
			return fmt.Errorf("%w: after render: %w", ErrHook, err)
		}
		if !ran {
			return nil
		}
	}

	c.publish(m)
	return nil
}

func (c *Container) publish(m *managedInstance) {
	c.mu.Lock()
	inst, ok := m.markCreated()
	if !ok {
		c.mu.Unlock()
		diag(c.log, m.config).Debug("Destroying web chat after it rendered but before it was published.")
		return
	}
	c.published = inst
	c.publishedBy = m
	if c.ref != nil {
		c.ref.Set(inst)
	}
	c.mu.Unlock()

	c.bridgeChanged(m)
}

// teardown tombstones m and withdraws its instance if it was the one
// published. Safe to call repeatedly.
func (c *Container) teardown(m *managedInstance) {
	c.mu.Lock()
	finalize := m.tombstone()
	changed := c.publishedBy == m
	if changed {
		c.published = nil
		c.publishedBy = nil
		if c.ref != nil {
			c.ref.Clear()
		}
	}
	c.mu.Unlock()

	finalize()
	if changed && c.onChange != nil {
		c.onChange(nil)
	}
}

// bridgeChanged renders new portals once m's instance is live and tells the
// host. Changes from any other record are ignored.
func (c *Container) bridgeChanged(m *managedInstance) {
	c.mu.Lock()
	live := c.publishedBy == m
	c.mu.Unlock()
	if !live {
		return
	}
	if err := m.bridge.Flush(c.ctx); err != nil {
		diag(c.log, nil).Warn("Rendering a user defined response failed.", zap.Error(err))
	}
	if c.onChange != nil {
		c.onChange(c.Instance())
	}
}
