// Package agent internal/infrastructure/agent/intercept.go
package agent

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// offlineHTML is the synthesized last-resort response for navigation
// requests when both the network and every cached fallback are gone
const offlineHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Offline</title></head>
<body><h1>You are offline</h1><p>This page is not available offline yet. Reconnect and try again.</p></body>
</html>`

// ServeHTTP intercepts asset requests per the configured policy.
// Only same-origin GET requests outside the API tree are intercepted;
// everything else passes through to the upstream untouched, so remote
// API calls are never cached by this layer.
func (a *Agent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !a.intercepts(r) {
		a.passThrough(w, r)
		return
	}

	switch a.cfg.Policy {
	case PolicyNetworkFirst:
		a.serveNetworkFirst(w, r)
	default:
		a.serveCacheFirst(w, r)
	}
}

// intercepts reports whether a request is eligible for cache serving
func (a *Agent) intercepts(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}

	// The router keeps API calls away from the agent; this guard is
	// the contract, not just the routing accident
	return !strings.HasPrefix(r.URL.Path, "/api/")
}

// serveCacheFirst answers from the current generation when possible
func (a *Agent) serveCacheFirst(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if body, contentType, ok := a.store.Get(a.generation, path); ok {
		if a.cfg.Revalidate {
			go a.refresh(path)
		}
		writeAsset(w, contentType, body)
		return
	}

	body, contentType, err := a.fetchAsset(r.Context(), path)
	if err == nil {
		if storeErr := a.store.Put(a.generation, path, contentType, body); storeErr != nil {
			a.logger.Warn("Failed to store fetched asset", map[string]interface{}{
				"path":  path,
				"error": storeErr.Error(),
			})
		}
		writeAsset(w, contentType, body)
		return
	}

	a.logger.Warn("Asset fetch failed with no cached copy", map[string]interface{}{
		"path":  path,
		"error": err.Error(),
	})

	a.serveOfflineFallback(w, r)
}

// serveNetworkFirst prefers a fresh copy and degrades to the cache
func (a *Agent) serveNetworkFirst(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	body, contentType, err := a.fetchAsset(r.Context(), path)
	if err == nil {
		if storeErr := a.store.Put(a.generation, path, contentType, body); storeErr != nil {
			a.logger.Warn("Failed to store fetched asset", map[string]interface{}{
				"path":  path,
				"error": storeErr.Error(),
			})
		}
		writeAsset(w, contentType, body)
		return
	}

	if body, contentType, ok := a.store.Get(a.generation, path); ok {
		writeAsset(w, contentType, body)
		return
	}

	if isNavigation(r) {
		for _, fallback := range []string{a.cfg.RootPath, "/"} {
			if body, contentType, ok := a.store.Get(a.generation, fallback); ok {
				writeAsset(w, contentType, body)
				return
			}
		}
	}

	http.Error(w, "asset unavailable", http.StatusBadGateway)
}

// serveOfflineFallback walks the navigation fallback chain: dedicated
// offline page, cached root document, synthesized inline response
func (a *Agent) serveOfflineFallback(w http.ResponseWriter, r *http.Request) {
	if isNavigation(r) {
		for _, fallback := range []string{a.cfg.OfflinePath, a.cfg.RootPath, "/"} {
			if body, contentType, ok := a.store.Get(a.generation, fallback); ok {
				writeAsset(w, contentType, body)
				return
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, offlineHTML)
		return
	}

	http.Error(w, "asset unavailable", http.StatusBadGateway)
}

// hopHeaders are connection-scoped and must not be forwarded in
// either direction
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// stripHopHeaders removes hop-by-hop headers, including any named in
// the Connection header itself
func stripHopHeaders(h http.Header) {
	for _, field := range h.Values("Connection") {
		for _, name := range strings.Split(field, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}

	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// passThrough proxies a non-intercepted request to the upstream
// without touching the cache
func (a *Agent) passThrough(w http.ResponseWriter, r *http.Request) {
	target := *a.upstream
	target.Path = r.URL.Path
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	req.Header = r.Header.Clone()
	stripHopHeaders(req.Header)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	stripHopHeaders(resp.Header)
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// refresh refetches one asset in the background to keep the current
// generation warm after a cache-first hit
func (a *Agent) refresh(path string) {
	timeout := a.httpClient.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	body, contentType, err := a.fetchAsset(ctx, path)
	if err != nil {
		a.logger.Debug("Background revalidation failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return
	}

	if err := a.store.Put(a.generation, path, contentType, body); err != nil {
		a.logger.Warn("Background revalidation store failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// isNavigation reports whether a request is a document navigation
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeAsset(w http.ResponseWriter, contentType string, body []byte) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
