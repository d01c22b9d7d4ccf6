package webchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func withDebug(t *testing.T, enable bool) {
	t.Helper()
	prev := DebugEnabled()
	SetEnableDebug(enable)
	t.Cleanup(func() { SetEnableDebug(prev) })
}

func TestDiag_GatedByDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	withDebug(t, false)
	diag(base, nil).Warn("hidden")
	assert.Equal(t, 0, logs.Len())

	SetEnableDebug(true)
	diag(base, nil).Debug("shown")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestDiag_Name(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)
	withDebug(t, true)

	diag(base, nil).Info("plain")
	diag(base, &Config{Namespace: "support"}).Info("namespaced")
	diag(base, &Config{}).Info("empty namespace")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "WebChatContainer", entries[0].LoggerName)
	assert.Equal(t, "WebChatContainer: Namespace support", entries[1].LoggerName)
	assert.Equal(t, "WebChatContainer", entries[2].LoggerName)
}

func TestDiag_WithFieldsStaysGated(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	withDebug(t, true)
	l := diag(zap.New(core), nil).With(zap.String("k", "v"))

	SetEnableDebug(false)
	l.Info("hidden")
	assert.Equal(t, 0, logs.Len())

	SetEnableDebug(true)
	l.Info("shown")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "v", logs.All()[0].ContextMap()["k"])
}

func TestContainer_LogsThroughLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	withDebug(t, true)

	h := newHarness("8.2.0")
	cfg := testConfig()
	cfg.Namespace = "ns"
	cfg.OnLoad = func(Instance) {}
	c := NewContainer(h.reg, WithLogger(zap.New(core)))
	c.SetConfig(cfg)
	c.Wait()

	warnings := logs.FilterLevelExact(zap.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "OnLoad")
	assert.Equal(t, "WebChatContainer: Namespace ns", warnings[0].LoggerName)
}

func TestSetLogger(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	withDebug(t, true)

	diag(nil, nil).Info("via default")
	assert.Equal(t, 1, logs.Len())
}
