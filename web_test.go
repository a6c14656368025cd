package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestSecurityHeaders(t *testing.T) {
	cfg := testConfig(t)

	w := httptest.NewRecorder()
	securityHeaders(cfg, w)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"

	w = httptest.NewRecorder()
	securityHeaders(cfg, w)

	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRealIP(t *testing.T) {
	for _, tc := range []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "192.0.2.1:5000", nil, "192.0.2.1:5000"},
		{"ipv6 remote", "[2001:db8::1]:5000", nil, "[2001:db8::1]:5000"},
		{"cloudflare", "192.0.2.1:5000", map[string]string{"CF-Connecting-IP": "198.51.100.7"}, "198.51.100.7:5000"},
		{"real ip", "192.0.2.1:5000", map[string]string{"X-Real-IP": "198.51.100.8"}, "198.51.100.8:5000"},
		{"garbage header", "192.0.2.1:5000", map[string]string{"X-Real-IP": "not-an-ip"}, "192.0.2.1:5000"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}

			assert.Equal(t, tc.want, realIP(r))
		})
	}
}

func TestServeVersion(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	resp, body := get(t, srv, "/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jeopardy v"+releaseVersion+"\n", body)
}

func TestServeHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	resp, body := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ok\n", body)
}

func TestServeRobots(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	resp, body := get(t, srv, "/robots.txt")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "User-agent: GPTBot")
}

func TestServeHomePage(t *testing.T) {
	cfg := testConfig(t)
	cfg.prefix = "/games"
	srv, _ := newTestServer(t, cfg)

	resp, body := get(t, srv, "/games/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `href="/games/board"`)
	assert.Contains(t, body, `/games/favicons/favicon.svg`)
	assert.Contains(t, body, `/games/assets/jeopardy/page.css`)
}

func TestServeAssets(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	resp, body := get(t, srv, "/assets/jeopardy/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/javascript; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "WebSocket")

	resp, _ = get(t, srv, "/assets/jeopardy/app.css")
	assert.Equal(t, "text/css; charset=utf-8", resp.Header.Get("Content-Type"))

	resp, _ = get(t, srv, "/assets/jeopardy/index.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv, "/assets/jeopardy/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeFavicons(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	resp, _ := get(t, srv, "/favicons/favicon.svg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))

	resp, _ = get(t, srv, "/favicons/site.webmanifest")
	assert.Equal(t, "application/manifest+json", resp.Header.Get("Content-Type"))

	resp, _ = get(t, srv, "/favicons/nope.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProfileHandlersOptIn(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	resp, _ := get(t, srv, "/pprof/cmdline")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cfg := testConfig(t)
	cfg.profile = true
	srv, _ = newTestServer(t, cfg)

	resp, _ = get(t, srv, "/pprof/cmdline")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "999 B", humanReadableSize(999))
	assert.Equal(t, "1.0 kB", humanReadableSize(1000))
	assert.Equal(t, "1.5 MB", humanReadableSize(1_500_000))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/css; charset=utf-8", contentType("assets/jeopardy/app.css"))
	assert.Equal(t, "text/javascript; charset=utf-8", contentType("assets/jeopardy/APP.JS"))
	assert.Equal(t, "image/svg+xml", contentType("favicons/favicon.svg"))
	assert.Equal(t, "application/octet-stream", contentType("favicons/unknown.bin"))
}
