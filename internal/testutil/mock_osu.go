// Package testutil provides a configurable mock osu! API server for
// tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockResponse defines the response for a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockOsu is a configurable mock osu! API server. It answers the OAuth
// token endpoint with a fixed token by default so that client
// construction succeeds without extra setup.
type MockOsu struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	requestCount int
	tokenCount   int
	lastHeader   http.Header
	requestPaths []string
}

// NewMockOsu creates a started mock server.
func NewMockOsu() *MockOsu {
	mock := &MockOsu{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastHeader = r.Header.Clone()
		mock.requestPaths = append(mock.requestPaths, r.URL.RequestURI())
		if r.URL.Path == "/oauth/token" {
			mock.tokenCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, ok := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if ok {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// BaseURL returns the mock server URL, usable as Config.BaseURL.
func (m *MockOsu) BaseURL() string {
	return m.server.URL
}

// TokenURL returns the mock OAuth token endpoint URL.
func (m *MockOsu) TokenURL() string {
	return m.server.URL + "/oauth/token"
}

// Close shuts down the mock server.
func (m *MockOsu) Close() {
	m.server.Close()
}

// SetHandler installs a custom handler for a path.
func (m *MockOsu) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse installs a fixed response for a path.
func (m *MockOsu) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if _, ok := resp.Headers["Content-Type"]; !ok {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetUserBestResponse installs a response for a user's best-scores
// endpoint.
func (m *MockOsu) SetUserBestResponse(userID int64, resp MockResponse) {
	m.SetResponse(fmt.Sprintf("/users/%d/scores/best", userID), resp)
}

// SetRankingResponse installs a response for the performance ranking
// endpoint (all pages; use SetHandler for per-page behavior).
func (m *MockOsu) SetRankingResponse(resp MockResponse) {
	m.SetResponse("/rankings/osu/performance", resp)
}

// RequestCount returns the number of requests received.
func (m *MockOsu) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// TokenCount returns the number of OAuth token requests received.
func (m *MockOsu) TokenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokenCount
}

// LastHeader returns the headers of the most recent request.
func (m *MockOsu) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// RequestPaths returns the request URIs received, in order.
func (m *MockOsu) RequestPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, len(m.requestPaths))
	copy(paths, m.requestPaths)
	return paths
}

// defaultHandler answers the token endpoint with a valid grant and
// everything else with 404.
func (m *MockOsu) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/oauth/token" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(TokenBody))
		return
	}

	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error": "not found"}`))
}

// TokenBody is the default OAuth token response.
const TokenBody = `{"token_type": "Bearer", "expires_in": 86400, "access_token": "test-token"}`

// RankingEntryBody builds one ranking entry object.
func RankingEntryBody(userID int64, username string, globalRank int, pp float64) string {
	return fmt.Sprintf(
		`{"pp": %v, "global_rank": %d, "user": {"id": %d, "username": %q}}`,
		pp, globalRank, userID, username,
	)
}

// RankingBody builds a ranking page body from entry objects.
func RankingBody(entries ...string) string {
	body := `{"ranking": [`
	for i, e := range entries {
		if i > 0 {
			body += ","
		}
		body += e
	}
	return body + fmt.Sprintf(`], "total": %d}`, len(entries))
}

// ScoreBody builds a single score object with the given id, owner, mods
// and timestamp; descriptive fields are fixed.
func ScoreBody(id, userID int64, mods, createdAt string) string {
	return fmt.Sprintf(`{
		"id": %d,
		"best_id": %d,
		"user_id": %d,
		"accuracy": 0.9912,
		"mods": %s,
		"score": 123456789,
		"pp": 321.5,
		"created_at": %q,
		"replay": true,
		"beatmapset": {
			"artist": "Artist",
			"artist_unicode": "Artist",
			"creator": "Mapper",
			"source": "",
			"title": "Title",
			"title_unicode": "Title"
		},
		"beatmap": {"version": "Extra"}
	}`, id, id, userID, mods, createdAt)
}
