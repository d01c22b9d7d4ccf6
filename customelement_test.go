package webchat

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomElement_InjectsElement(t *testing.T) {
	h := newHarness("8.2.0")
	el := NewFakeNode()
	ce := NewCustomElement(el, h.reg, nil)

	cfg := testConfig()
	ce.SetConfig(cfg)
	ce.Container().Wait()

	configs := h.factory.Configs()
	require.Len(t, configs, 1)
	assert.Same(t, el, configs[0].Element)
	assert.Nil(t, cfg.Element, "caller's config must not be modified")
}

func TestCustomElement_MemoizesPerConfig(t *testing.T) {
	h := newHarness("8.2.0")
	ce := NewCustomElement(NewFakeNode(), h.reg, nil)
	cfg := testConfig()

	ce.SetConfig(cfg)
	ce.Container().Wait()
	ce.SetConfig(cfg)
	ce.Container().Wait()
	assert.Len(t, h.factory.Created(), 1)

	ce.SetConfig(testConfig())
	ce.Container().Wait()
	created := h.factory.Created()
	require.Len(t, created, 2)
	assert.Equal(t, 1, created[0].DestroyCount())
}

func TestCustomElement_DefaultViewChange(t *testing.T) {
	h := newHarness("8.2.0")
	el := NewFakeNode()
	ce := NewCustomElement(el, h.reg, nil)

	ce.SetConfig(testConfig())
	ce.Container().Wait()
	w := h.factory.Created()[0]
	require.Equal(t, 1, w.ListenerCount(EventViewChange))

	w.Emit(&Event{Type: EventViewChange, NewViewState: ViewState{Launcher: true}})
	assert.True(t, el.HasClass(ClassElementHidden))
	assert.True(t, w.MainWindowNode.HasClass(ClassMainWindowHidden))

	w.Emit(&Event{Type: EventViewChange, NewViewState: ViewState{MainWindow: true}})
	assert.False(t, el.HasClass(ClassElementHidden))
	assert.False(t, w.MainWindowNode.HasClass(ClassMainWindowHidden))
}

func TestCustomElement_CustomViewChange(t *testing.T) {
	h := newHarness("8.2.0")
	el := NewFakeNode()
	var got []ViewState
	ce := NewCustomElement(el, h.reg, func(ev *Event, _ Instance) {
		got = append(got, ev.NewViewState)
	})

	ce.SetConfig(testConfig())
	ce.Container().Wait()
	w := h.factory.Created()[0]
	w.Emit(&Event{Type: EventViewChange, NewViewState: ViewState{Launcher: true}})

	require.Len(t, got, 1)
	assert.True(t, got[0].Launcher)
	assert.False(t, el.HasClass(ClassElementHidden))
}

func TestCustomElement_ChainsBeforeRender(t *testing.T) {
	h := newHarness("8.2.0")
	var called bool
	ce := NewCustomElement(NewFakeNode(), h.reg, nil, WithBeforeRender(func(_ context.Context, inst Instance) error {
		called = true
		assert.Equal(t, 1, inst.(*FakeWidget).ListenerCount(EventViewChange))
		return nil
	}))

	ce.SetConfig(testConfig())
	ce.Container().Wait()
	assert.True(t, called)
	assert.NotNil(t, ce.Container().Instance())
}

func TestCustomElement_Styles(t *testing.T) {
	var buf bytes.Buffer
	ce := NewCustomElement(NewFakeNode(), NewRegistry(nil), nil)
	require.NoError(t, ce.Styles().Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "."+ClassElementHidden)
	assert.Contains(t, buf.String(), "."+ClassMainWindowHidden)

	buf.Reset()
	custom := NewCustomElement(NewFakeNode(), NewRegistry(nil), func(*Event, Instance) {})
	require.NoError(t, custom.Styles().Render(context.Background(), &buf))
	assert.Empty(t, buf.String())
}

func TestCustomElement_Unmount(t *testing.T) {
	h := newHarness("8.2.0")
	ce := NewCustomElement(NewFakeNode(), h.reg, nil)
	cfg := testConfig()

	ce.SetConfig(cfg)
	ce.Container().Wait()
	ce.Unmount()

	w := h.factory.Created()[0]
	assert.Equal(t, 1, w.DestroyCount())
	assert.Nil(t, ce.Container().Instance())
}
