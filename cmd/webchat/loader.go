package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpLoader checks that the widget script is reachable. On the server
// there is nothing to evaluate, so a successful fetch counts as loaded.
type httpLoader struct {
	client *http.Client
}

func newHTTPLoader(client *http.Client) *httpLoader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &httpLoader{client: client}
}

func (l *httpLoader) LoadScript(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return nil
}
