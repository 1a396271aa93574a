package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// mockGitHub is a fake GitHub REST API. Routes are exact paths; a route may
// serve several pages keyed by the page query parameter.
type mockGitHub struct {
	*httptest.Server
	mu       sync.Mutex
	routes   map[string]mockRoute
	requests []*http.Request
}

type mockRoute struct {
	status  int
	pages   []interface{}
	headers map[string]string
}

func newMockGitHub(t *testing.T) *mockGitHub {
	t.Helper()
	m := &mockGitHub{routes: make(map[string]mockRoute)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)
	return m
}

func (m *mockGitHub) handle(path string, status int, pages ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[path] = mockRoute{status: status, pages: pages}
}

func (m *mockGitHub) handleWithHeaders(path string, status int, headers map[string]string, body interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[path] = mockRoute{status: status, pages: []interface{}{body}, headers: headers}
}

func (m *mockGitHub) requestsTo(path string) []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*http.Request
	for _, r := range m.requests {
		if r.URL.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (m *mockGitHub) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r)
	route, ok := m.routes[r.URL.Path]
	m.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
		return
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		page = int(p[0] - '0')
	}
	if page < 1 || page > len(route.pages) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if page < len(route.pages) {
		next := *r.URL
		q := next.Query()
		q.Set("page", string(rune('0'+page+1)))
		next.RawQuery = q.Encode()
		w.Header().Set("Link", `<`+m.URL+next.String()+`>; rel="next"`)
	}

	for k, v := range route.headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(route.status)
	json.NewEncoder(w).Encode(route.pages[page-1])
}

func newTestClient(t *testing.T, m *mockGitHub) *GitHubClient {
	t.Helper()
	c, err := NewGitHubClientWithBaseURL("test-token", m.URL)
	if err != nil {
		t.Fatalf("NewGitHubClientWithBaseURL: %v", err)
	}
	return c
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
