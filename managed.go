package webchat

import "sync"

// managedInstance tracks one attempt to stand up a widget for one
// configuration. It is owned by a single Container mount cycle.
//
// shouldDestroy is the tombstone: once set, the only call this record makes
// into the instance is Destroy, exactly once. Calls already in flight when
// the tombstone lands are allowed to return first; the last one out performs
// the destroy.
type managedInstance struct {
	config    *Config
	scriptURL string
	observer  Observer
	bridge    *Bridge

	mu            sync.Mutex
	shouldDestroy bool
	phase         Phase
	instance      Instance
	inUse         int
	cleanups      []func()
}

func newManagedInstance(cfg *Config, obs Observer) *managedInstance {
	m := &managedInstance{
		config:   cfg,
		observer: obs,
		phase:    PhasePending,
	}
	obs.PhaseChanged(cfg, PhasePending)
	return m
}

// advance moves to phase p unless tombstoned.
func (m *managedInstance) advance(p Phase) bool {
	m.mu.Lock()
	if m.shouldDestroy {
		m.mu.Unlock()
		return false
	}
	m.phase = p
	m.mu.Unlock()

	m.observer.PhaseChanged(m.config, p)
	return true
}

func (m *managedInstance) tombstoned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shouldDestroy
}

// adopt records a freshly created instance. If the record was tombstoned
// while creation was in flight, inst is destroyed instead and adopt reports
// false.
func (m *managedInstance) adopt(inst Instance) bool {
	m.mu.Lock()
	if m.shouldDestroy {
		m.mu.Unlock()
		inst.Destroy()
		return false
	}
	m.instance = inst
	m.mu.Unlock()
	return true
}

// use runs fn against the instance unless tombstoned. It reports whether fn
// ran. A tombstone that lands while fn runs is honoured when fn returns.
func (m *managedInstance) use(fn func(Instance) error) (bool, error) {
	m.mu.Lock()
	if m.shouldDestroy || m.instance == nil {
		m.mu.Unlock()
		return false, nil
	}
	inst := m.instance
	m.inUse++
	m.mu.Unlock()

	defer m.release()
	return true, fn(inst)
}

func (m *managedInstance) release() {
	m.mu.Lock()
	m.inUse--
	inst, cleanups := m.takeLocked()
	m.mu.Unlock()

	destroy(inst, cleanups)
}

// onDestroy registers fn to run just before Destroy. Cleanups run in
// registration order.
func (m *managedInstance) onDestroy(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, fn)
}

// markCreated moves to PhaseCreated and returns the instance to publish, or
// false if tombstoned.
func (m *managedInstance) markCreated() (Instance, bool) {
	m.mu.Lock()
	if m.shouldDestroy || m.instance == nil {
		m.mu.Unlock()
		return nil, false
	}
	m.phase = PhaseCreated
	inst := m.instance
	m.mu.Unlock()

	m.observer.PhaseChanged(m.config, PhaseCreated)
	return inst, true
}

// tombstone requests teardown. It only flips state; the returned finalize
// makes the external calls (observer, cleanups, Destroy) and must be run
// outside any lock. Repeated calls return a no-op finalize.
func (m *managedInstance) tombstone() (finalize func()) {
	m.mu.Lock()
	if m.shouldDestroy {
		m.mu.Unlock()
		return func() {}
	}
	m.shouldDestroy = true
	m.phase = PhaseDestroyed
	inst, cleanups := m.takeLocked()
	m.mu.Unlock()

	return func() {
		m.observer.PhaseChanged(m.config, PhaseDestroyed)
		destroy(inst, cleanups)
	}
}

// takeLocked hands out the instance for destruction once tombstoned and
// idle. It clears the fields so a second caller gets nothing.
func (m *managedInstance) takeLocked() (Instance, []func()) {
	if !m.shouldDestroy || m.inUse > 0 || m.instance == nil {
		return nil, nil
	}
	inst, cleanups := m.instance, m.cleanups
	m.instance, m.cleanups = nil, nil
	return inst, cleanups
}

func destroy(inst Instance, cleanups []func()) {
	if inst == nil {
		return
	}
	for _, fn := range cleanups {
		fn()
	}
	inst.Destroy()
}
