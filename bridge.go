package webchat

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Bridge captures response events from a widget and renders host content
// into the nodes those events carry.
//
// The widget decides where each node sits in the document; the bridge only
// replaces the node's children. Events are kept in receipt order until a
// restart event clears them or a new instance is attached.
//
// A Bridge follows one instance at a time. Attach returns a Subscription
// whose Close removes exactly the listeners that Attach added; late events
// from an instance that is no longer current are dropped.
type Bridge struct {
	render   RenderFunc
	onChange func()

	mu      sync.Mutex
	gen     uint64
	inst    Instance
	portals []*portal
}

type portal struct {
	event    *Event
	rendered bool
}

// NewBridge creates a bridge. render may be nil, in which case events are
// still captured but Flush renders nothing. onChange, if set, is called after
// every change to the captured list.
func NewBridge(render RenderFunc, onChange func()) *Bridge {
	return &Bridge{
		render:   render,
		onChange: onChange,
	}
}

// Attach subscribes to inst's response and restart events and makes inst
// the bridge's current instance. Events captured from a previous instance
// are discarded. Call Attach before inst renders so events fired during the
// first render are not missed.
func (b *Bridge) Attach(inst Instance) *Subscription {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.inst = inst
	b.portals = nil
	b.mu.Unlock()

	name := ResponseEventName(inst.WidgetVersion())
	s := &Subscription{
		bridge: b,
		inst:   inst,
		gen:    gen,
		listeners: map[string]*Listener{
			name: {
				Type:    name,
				Handler: func(ev *Event) { b.capture(gen, ev) },
			},
			EventRestartConversation: {
				Type:    EventRestartConversation,
				Handler: func(*Event) { b.reset(gen) },
			},
		},
	}
	for _, l := range s.listeners {
		inst.On(l)
	}

	b.changed()
	return s
}

func (b *Bridge) capture(gen uint64, ev *Event) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.portals = append(b.portals, &portal{event: ev})
	b.mu.Unlock()

	b.changed()
}

func (b *Bridge) reset(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.portals = nil
	b.mu.Unlock()

	b.changed()
}

func (b *Bridge) release(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.inst = nil
	b.portals = nil
	b.mu.Unlock()

	b.changed()
}

func (b *Bridge) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

// Events returns the captured events in receipt order.
func (b *Bridge) Events() []*Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := make([]*Event, len(b.portals))
	for i, p := range b.portals {
		events[i] = p.event
	}
	return events
}

// Flush renders every captured event that has not been rendered yet, in
// receipt order. Events without a target node are skipped. Errors from
// individual nodes are joined; one failing node does not stop the rest.
func (b *Bridge) Flush(ctx context.Context) error {
	b.mu.Lock()
	if b.render == nil || b.inst == nil {
		b.mu.Unlock()
		return nil
	}
	inst := b.inst
	var pending []*portal
	for _, p := range b.portals {
		if !p.rendered {
			p.rendered = true
			pending = append(pending, p)
		}
	}
	b.mu.Unlock()

	var errs []error
	for i, p := range pending {
		node := p.event.Data.Element
		if node == nil {
			continue
		}
		content := b.render(p.event, inst)
		if content == nil {
			continue
		}
		if err := node.ReplaceChildren(ctx, content); err != nil {
			errs = append(errs, fmt.Errorf("portal %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Subscription is the set of listeners one Attach added.
type Subscription struct {
	bridge    *Bridge
	inst      Instance
	gen       uint64
	listeners map[string]*Listener
	once      sync.Once
}

// Close unsubscribes the listeners and, if this subscription is still the
// bridge's current one, clears the captured events. Safe to call more than
// once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		for _, l := range s.listeners {
			s.inst.Off(l)
		}
		s.bridge.release(s.gen)
	})
}

// EventName returns the response event name this subscription listens on.
func (s *Subscription) EventName() string {
	for name := range s.listeners {
		if name != EventRestartConversation {
			return name
		}
	}
	return ""
}
