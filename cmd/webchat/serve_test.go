package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pthm/webchat"
	"github.com/pthm/webchat/lib/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, loader webchat.ScriptLoader) (*server, *httptest.Server) {
	t.Helper()
	cfg := &webchat.Config{IntegrationID: "int-1", Region: "us-south", CSPNonce: "n0nce"}
	s := newServer(cfg, loader)
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestServe_Page(t *testing.T) {
	s, ts := testServer(t, webchat.NewFakeLoader())

	status, body := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, webchat.ScriptURL(s.cfg, ""))
	assert.Contains(t, body, `mark('loading')`)
	assert.Contains(t, body, `"integrationID":"int-1"`)
	assert.Contains(t, body, `nonce="n0nce"`)
	assert.Contains(t, body, "loadWatsonAssistantChat")
	assert.NotContains(t, body, webchat.ClassElementHidden)
}

func TestServe_CustomElementPage(t *testing.T) {
	s, ts := testServer(t, webchat.NewFakeLoader())
	s.customElement = true
	s.hostURL = "https://cdn.example.com/"

	_, body := get(t, ts.URL+"/")
	assert.Contains(t, body, "."+webchat.ClassElementHidden)
	assert.Contains(t, body, "https://cdn.example.com/versions/latest/")
	assert.Contains(t, body, "if (true)")
}

func TestServe_TokenPage(t *testing.T) {
	_, ts := testServer(t, webchat.NewFakeLoader())

	status, body := get(t, ts.URL+"/share")
	require.Equal(t, http.StatusOK, status)
	var share map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &share))
	require.True(t, strings.HasPrefix(share["path"], "/c/"))

	status, page := get(t, ts.URL+share["path"])
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, `"integrationID":"int-1"`)

	other, err := encoding.Token(&webchat.Config{IntegrationID: "int-2", Region: "eu-de"})
	require.NoError(t, err)
	_, page = get(t, ts.URL+"/c/"+other)
	assert.Contains(t, page, `"integrationID":"int-2"`)
}

func TestServe_TokenPageKeepsScriptSource(t *testing.T) {
	s, ts := testServer(t, webchat.NewFakeLoader())
	s.cfg.ClientVersion = "8.2.1"

	token, err := encoding.Token(&webchat.Config{
		IntegrationID:       "int-2",
		Region:              "eu-de",
		ClientVersion:       "../../other",
		CloudPrivateHostURL: "https://evil.example",
	})
	require.NoError(t, err)

	status, page := get(t, ts.URL+"/c/"+token)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, page, "evil.example")
	assert.NotContains(t, page, "../../other")
	assert.Contains(t, page, "/versions/8.2.1/")
	assert.Contains(t, page, `"integrationID":"int-2"`)
}

func TestServe_TokenPageRejectsBadInput(t *testing.T) {
	_, ts := testServer(t, webchat.NewFakeLoader())

	status, _ := get(t, ts.URL+"/c/!!!")
	assert.Equal(t, http.StatusBadRequest, status)

	incomplete, err := encoding.Token(&webchat.Config{Region: "eu-de"})
	require.NoError(t, err)
	status, body := get(t, ts.URL+"/c/"+incomplete)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "integrationID")
}

func TestServe_Config(t *testing.T) {
	_, ts := testServer(t, webchat.NewFakeLoader())

	status, body := get(t, ts.URL+"/config.json")
	require.Equal(t, http.StatusOK, status)
	var values map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &values))
	assert.Equal(t, "us-south", values["region"])
}

func TestServe_ScriptHealth(t *testing.T) {
	loader := webchat.NewFakeLoader()
	_, ts := testServer(t, loader)

	for range 3 {
		status, body := get(t, ts.URL+"/healthz/script")
		require.Equal(t, http.StatusOK, status, body)
		assert.Contains(t, body, `"state":"loaded"`)
	}
	assert.Len(t, loader.Calls(), 1, "the registry loads once per process")

	_, metricsBody := get(t, ts.URL+"/metrics")
	assert.Contains(t, metricsBody, `webchat_script_loads_total{result="ok"} 1`)
	assert.Contains(t, metricsBody, `webchat_script_requests_total{initiated="false"} 2`)
}

func TestServe_ScriptHealthFailure(t *testing.T) {
	loader := webchat.NewFakeLoader()
	loader.Err = errors.New("unreachable")
	_, ts := testServer(t, loader)

	status, body := get(t, ts.URL+"/healthz/script")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body, "unreachable")
	assert.Contains(t, body, `"state":"failed"`)
}

func TestServe_CORS(t *testing.T) {
	s, _ := testServer(t, webchat.NewFakeLoader())
	s.origins = []string{"https://app.example.com"}
	handler := s.routes()

	req := httptest.NewRequest(http.MethodOptions, "/config.json", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/config.json", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPLoader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.js" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "window.loadWatsonAssistantChat = function () {};")
	}))
	defer ts.Close()

	l := newHTTPLoader(ts.Client())
	assert.NoError(t, l.LoadScript(t.Context(), ts.URL+"/entry.js"))
	assert.ErrorContains(t, l.LoadScript(t.Context(), ts.URL+"/missing.js"), "404")
}
