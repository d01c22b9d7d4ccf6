package webchat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "https://example.com/versions/latest/WatsonAssistantChatEntry.js"

func TestEnsureScript_LoadsOnceForConcurrentCallers(t *testing.T) {
	loader := NewFakeLoader()
	loader.Hold()
	reg := NewRegistry(loader)

	const n = 25
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- reg.EnsureScript(context.Background(), testURL)
		}()
	}

	<-loader.Started()
	assert.Equal(t, ScriptLoading, reg.State())
	loader.Release()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, []string{testURL}, loader.Calls())
	assert.Equal(t, ScriptLoaded, reg.State())
	assert.Equal(t, testURL, reg.ScriptURL())
}

func TestEnsureScript_FailureSharedByAllCallers(t *testing.T) {
	loader := NewFakeLoader()
	loader.Err = errors.New("404")
	loader.Hold()
	reg := NewRegistry(loader)

	const n = 5
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() { errs <- reg.EnsureScript(context.Background(), testURL) }()
	}
	<-loader.Started()
	loader.Release()

	for i := 0; i < n; i++ {
		err := <-errs
		require.Error(t, err)
		assert.True(t, IsScriptLoadError(err), "err = %v", err)
	}
	assert.Len(t, loader.Calls(), 1)
	assert.Equal(t, ScriptFailed, reg.State())

	// A failed load is final for the registry.
	err := reg.EnsureScript(context.Background(), testURL)
	assert.True(t, IsScriptLoadError(err))
	assert.Len(t, loader.Calls(), 1)
}

func TestEnsureScript_DifferentURLReusesFirstLoad(t *testing.T) {
	loader := NewFakeLoader()
	reg := NewRegistry(loader)

	require.NoError(t, reg.EnsureScript(context.Background(), testURL))
	require.NoError(t, reg.EnsureScript(context.Background(), "https://other.example.com/versions/8.1.0/WatsonAssistantChatEntry.js"))

	assert.Equal(t, []string{testURL}, loader.Calls())
	assert.Equal(t, testURL, reg.ScriptURL())
}

func TestEnsureScript_ContextCancelStopsWaitOnly(t *testing.T) {
	loader := NewFakeLoader()
	loader.Hold()
	reg := NewRegistry(loader)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := reg.EnsureScript(ctx, testURL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	loader.Release()
	assert.NoError(t, reg.EnsureScript(context.Background(), testURL))
	assert.Len(t, loader.Calls(), 1)
}

func TestEnsureScript_NilLoader(t *testing.T) {
	reg := NewRegistry(nil)
	err := reg.EnsureScript(context.Background(), testURL)
	assert.True(t, IsScriptLoadError(err))
}

func TestRegistryEntryPoint(t *testing.T) {
	reg := NewRegistry(NewFakeLoader())

	_, err := reg.EntryPoint()
	assert.True(t, IsEntryPointMissing(err))

	reg.Install(NewFakeFactory("8.2.0").EntryPoint())
	ep, err := reg.EntryPoint()
	require.NoError(t, err)
	assert.NotNil(t, ep)

	reg.Install(nil)
	_, err = reg.EntryPoint()
	assert.True(t, IsEntryPointMissing(err))
}

func TestRegistryEntryPointLookup(t *testing.T) {
	var installed EntryPoint
	reg := NewRegistry(NewFakeLoader(), WithEntryPointLookup(func() (EntryPoint, bool) {
		return installed, installed != nil
	}))

	_, err := reg.EntryPoint()
	assert.ErrorIs(t, err, ErrEntryPointMissing)

	installed = NewFakeFactory("8.2.0").EntryPoint()
	_, err = reg.EntryPoint()
	assert.NoError(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	defer SetDefault(nil)

	SetDefault(nil)
	d := Default()
	require.NotNil(t, d)
	assert.Same(t, d, Default())

	custom := NewRegistry(NewFakeLoader())
	SetDefault(custom)
	assert.Same(t, custom, Default())
}

func TestScriptStateString(t *testing.T) {
	assert.Equal(t, "unrequested", ScriptUnrequested.String())
	assert.Equal(t, "loading", ScriptLoading.String())
	assert.Equal(t, "loaded", ScriptLoaded.String())
	assert.Equal(t, "failed", ScriptFailed.String())
	assert.Equal(t, "ScriptState(9)", ScriptState(9).String())
}
